package ai

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*OpenAIEmbedding)(nil)

const (
	defaultOpenAIModel   = "text-embedding-3-small"
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	// Responses beyond this are treated as upstream failures.
	maxEmbeddingResponse = 64 << 20
)

// nativeDimensions of the OpenAI embedding models. Unknown models are
// assumed to produce 1536.
var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIEmbedding calls the /embeddings endpoint directly, so the HTTP
// status and error code are available for classifying failures.
type OpenAIEmbedding struct {
	apiKey  string
	model   string
	baseURL string
	dims    int
	// override asks the API to shorten vectors to dims.
	override bool
	http     *http.Client
}

// NewOpenAIEmbedding uses the model's native size when dimensions is zero.
func NewOpenAIEmbedding(apiKey, model, baseURL string, dimensions int) (*OpenAIEmbedding, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key is required", domain.ErrInvalidConfig)
	}
	e := &OpenAIEmbedding{
		apiKey:  apiKey,
		model:   cmp.Or(model, defaultOpenAIModel),
		baseURL: cmp.Or(baseURL, defaultOpenAIBaseURL),
		http:    &http.Client{},
	}

	native := nativeDimensions[e.model]
	if native == 0 {
		native = 1536
	}
	e.dims = native
	if dimensions > 0 && dimensions != native {
		e.dims, e.override = dimensions, true
	}
	return e, nil
}

type embedRequest struct {
	Model          string   `json:"model"`
	Input          []string `json:"input"`
	EncodingFormat string   `json:"encoding_format"`
	Dimensions     int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// Embed places each returned vector by its index, so the API may answer in
// any order. The caller's ctx carries the deadline.
func (e *OpenAIEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	req := embedRequest{Model: e.model, Input: texts, EncodingFormat: "float"}
	if e.override {
		req.Dimensions = e.dims
	}

	resp, err := e.post(ctx, req)
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(out) {
			return nil, domain.NewEmbeddingError(domain.ReasonUpstream,
				fmt.Errorf("embedding index %d outside %d inputs", d.Index, len(texts)))
		}
		out[d.Index] = d.Embedding
	}
	for i := range out {
		if out[i] == nil {
			return nil, domain.NewEmbeddingError(domain.ReasonUpstream, fmt.Errorf("input %d has no embedding", i))
		}
	}
	return out, nil
}

func (e *OpenAIEmbedding) post(ctx context.Context, body embedRequest) (*embedResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode embedding request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build embedding request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	res, err := e.http.Do(req)
	if err != nil {
		return nil, asProviderError(err, domain.NewEmbeddingError)
	}
	defer res.Body.Close()

	var out embedResponse
	decodeErr := json.NewDecoder(io.LimitReader(res.Body, maxEmbeddingResponse)).Decode(&out)

	if res.StatusCode != http.StatusOK || out.Error != nil {
		if decodeErr != nil || out.Error == nil {
			return nil, domain.NewEmbeddingError(reasonForStatus(res.StatusCode, ""),
				fmt.Errorf("openai embeddings: HTTP %d", res.StatusCode))
		}
		return nil, domain.NewEmbeddingError(reasonForStatus(res.StatusCode, out.Error.Code),
			fmt.Errorf("openai embeddings: HTTP %d %s: %s", res.StatusCode, out.Error.Code, out.Error.Message))
	}
	if decodeErr != nil {
		return nil, domain.NewEmbeddingError(domain.ReasonUpstream, fmt.Errorf("decode embedding response: %w", decodeErr))
	}
	return &out, nil
}

func (e *OpenAIEmbedding) Dimensions() int { return e.dims }

func (e *OpenAIEmbedding) Model() string { return e.model }

// HealthCheck embeds a short sample text under a 10s deadline.
func (e *OpenAIEmbedding) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	_, err := e.Embed(ctx, []string{"ping"})
	return err
}

func (e *OpenAIEmbedding) Close() error {
	e.http.CloseIdleConnections()
	return nil
}

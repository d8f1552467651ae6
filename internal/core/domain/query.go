package domain

import (
	"fmt"
	"strings"
	"time"
)

// NoAnswerText is stored when no chunk clears the similarity threshold.
const NoAnswerText = "I don't have enough information to answer this question based on the available documents."

// NoResultsMessage is returned to the caller alongside NoAnswerText.
const NoResultsMessage = "No relevant documents found. Consider uploading documents related to your question."

// QueryRequest is a question asked by an authenticated principal.
type QueryRequest struct {
	Question   string      `json:"question"`
	Department string      `json:"department,omitempty"`
	Scope      AccessScope `json:"-"`
}

// Generation is one completion returned by a generation provider.
type Generation struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	// UsageReported is false when the provider omitted token counts.
	UsageReported bool
}

// Answer is the synthesizer's output for a set of retrieved chunks.
type Answer struct {
	Text       string `json:"answer"`
	Prompt     string `json:"-"`
	TokensUsed int    `json:"tokens_used"`
	Model      string `json:"model,omitempty"`
}

// Citation links an answer to a chunk it was grounded on.
type Citation struct {
	ChunkID          string  `json:"chunk_id"`
	DocumentID       string  `json:"document_id"`
	DocumentTitle    string  `json:"document_title"`
	RevisionSequence int     `json:"version_number"`
	Text             string  `json:"text,omitempty"`
	Score            float64 `json:"similarity_score"`
	Rank             int     `json:"rank"`
}

// QueryRecord is the persisted outcome of one answered question.
type QueryRecord struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Question        string     `json:"question"`
	Answer          string     `json:"answer"`
	ContextText     string     `json:"context_text"`
	Department      string     `json:"department,omitempty"`
	TokensUsed      int        `json:"tokens_used"`
	LatencyMs       int64      `json:"response_time_ms"`
	Success         bool       `json:"was_successful"`
	ChunksRetrieved int        `json:"num_chunks_retrieved"`
	AvgSimilarity   float64    `json:"avg_similarity_score"`
	Citations       []Citation `json:"citations"`
	CreatedAt       time.Time  `json:"created_at"`
}

// QueryResult is returned to the caller of the query pipeline.
type QueryResult struct {
	Record  *QueryRecord    `json:"record"`
	Message string          `json:"message,omitempty"`
	Stats   SimilarityStats `json:"stats"`
}

// CitationsFrom converts ranked results into citations.
func CitationsFrom(results []*RetrievalResult) []Citation {
	citations := make([]Citation, 0, len(results))
	for _, r := range results {
		citations = append(citations, Citation{
			ChunkID:          r.Chunk.ID,
			DocumentID:       r.Chunk.DocumentID,
			DocumentTitle:    r.DocumentTitle,
			RevisionSequence: r.RevisionSequence,
			Text:             r.Chunk.Text,
			Score:            r.Score,
			Rank:             r.Rank,
		})
	}
	return citations
}

// FormatContext renders the retrieved chunks as stored on the QueryRecord.
func FormatContext(results []*RetrievalResult) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("[%s v%d]\n%s\n", r.DocumentTitle, r.RevisionSequence, r.Chunk.Text))
	}
	return strings.Join(parts, "\n\n")
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

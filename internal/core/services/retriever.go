package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// RetrievalRequest asks for the chunks closest to a query vector.
type RetrievalRequest struct {
	Vector     []float32
	Scope      domain.AccessScope
	Department string
	TopK       int
	Threshold  *float64 // nil uses the retriever threshold
}

// RetrieverConfig holds configuration for Retriever.
type RetrieverConfig struct {
	Index     driven.SimilarityIndex
	TopK      int     // Default result count (default: 5)
	Threshold float64 // Minimum similarity in [0, 1], used as given
	Logger    *slog.Logger
}

// Retriever turns index candidates into thresholded, ranked results.
type Retriever struct {
	index     driven.SimilarityIndex
	topK      int
	threshold float64
	logger    *slog.Logger
}

// NewRetriever creates a retriever.
func NewRetriever(cfg RetrieverConfig) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	topK := cfg.TopK
	if topK <= 0 {
		topK = 5
	}
	return &Retriever{
		index:     cfg.Index,
		topK:      topK,
		threshold: cfg.Threshold,
		logger:    logger.With("component", "retriever"),
	}
}

// Retrieve returns at most TopK results whose similarity reaches the
// threshold, ranked from 1. An empty result is not an error.
func (r *Retriever) Retrieve(ctx context.Context, req RetrievalRequest) ([]*domain.RetrievalResult, error) {
	topK := req.TopK
	if topK <= 0 {
		topK = r.topK
	}
	threshold := r.threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	// Over-fetch so thresholding still leaves TopK when it can.
	candidates, err := r.index.Search(ctx, domain.SearchQuery{
		Vector: req.Vector,
		Filter: domain.SearchFilter{
			Scope:      req.Scope,
			Department: req.Department,
		},
		Limit: 2 * topK,
	})
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	results := make([]*domain.RetrievalResult, 0, topK)
	for _, c := range candidates {
		similarity := domain.SimilarityFromDistance(c.Distance)
		if similarity < threshold {
			continue
		}
		results = append(results, &domain.RetrievalResult{
			Chunk:            c.Chunk,
			DocumentTitle:    c.DocumentTitle,
			RevisionSequence: c.RevisionSequence,
			Score:            domain.RoundScore(similarity),
			Rank:             len(results) + 1,
		})
		if len(results) == topK {
			break
		}
	}

	r.logger.Debug("retrieval complete",
		"candidates", len(candidates),
		"accepted", len(results),
		"threshold", threshold,
	)

	return results, nil
}

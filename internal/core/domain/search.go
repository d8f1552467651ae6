package domain

import "math"

// ScopeKind selects which documents a principal may retrieve from.
type ScopeKind string

const (
	ScopeApproved ScopeKind = "approved" // Any approved document
	ScopeOwned    ScopeKind = "owned"    // Approved documents owned by the principal
	ScopeAll      ScopeKind = "all"      // Admin: no ownership restriction
)

// AccessScope is the permission filter applied to similarity search.
// Every scope still requires an approved document and a ready revision.
type AccessScope struct {
	Kind   ScopeKind `json:"kind"`
	UserID string    `json:"user_id,omitempty"`
}

// SearchFilter narrows similarity search.
type SearchFilter struct {
	Scope      AccessScope
	Department string
}

// SearchQuery is a nearest-neighbour request against the index.
type SearchQuery struct {
	Vector []float32
	Filter SearchFilter
	Limit  int
}

// Candidate is a raw index hit before thresholding.
type Candidate struct {
	Chunk            *Chunk
	DocumentTitle    string
	RevisionSequence int
	Distance         float64
}

// RetrievalResult is a chunk accepted for a query, in rank order.
type RetrievalResult struct {
	Chunk            *Chunk  `json:"chunk"`
	DocumentTitle    string  `json:"document_title"`
	RevisionSequence int     `json:"revision_sequence"`
	Score            float64 `json:"similarity_score"`
	Rank             int     `json:"rank"`
}

// SimilarityStats summarizes the scores of a result set.
type SimilarityStats struct {
	Count int     `json:"count"`
	Avg   float64 `json:"avg_score"`
	Min   float64 `json:"min_score"`
	Max   float64 `json:"max_score"`
}

// ComputeSimilarityStats returns rounded stats over results.
func ComputeSimilarityStats(results []*RetrievalResult) SimilarityStats {
	if len(results) == 0 {
		return SimilarityStats{}
	}
	minScore, maxScore := math.Inf(1), math.Inf(-1)
	var sum float64
	for _, r := range results {
		sum += r.Score
		minScore = math.Min(minScore, r.Score)
		maxScore = math.Max(maxScore, r.Score)
	}
	return SimilarityStats{
		Count: len(results),
		Avg:   RoundScore(sum / float64(len(results))),
		Min:   RoundScore(minScore),
		Max:   RoundScore(maxScore),
	}
}

// SimilarityFromDistance converts cosine distance to a similarity in [0, 1].
func SimilarityFromDistance(distance float64) float64 {
	s := 1 - distance
	if s < 0 || math.IsNaN(s) {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// RoundScore rounds to four decimal places.
func RoundScore(v float64) float64 {
	return math.Round(v*10000) / 10000
}

package ai

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)

// RateLimitedEmbedding throttles Embed calls to a provider.
// One token is spent per call, not per text.
type RateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps next with a limiter allowing rps calls per
// second and bursts of burst calls.
func NewRateLimitedEmbedding(next driven.EmbeddingService, rps float64, burst int) *RateLimitedEmbedding {
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedEmbedding{
		EmbeddingService: next,
		limiter:          rate.NewLimiter(rate.Limit(rps), burst),
	}
}

// Embed waits for a token, then delegates. A context that ends while
// waiting returns its error without calling the provider.
func (r *RateLimitedEmbedding) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := r.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	return r.EmbeddingService.Embed(ctx, texts)
}

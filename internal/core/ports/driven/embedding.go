package driven

import "context"

// EmbeddingService turns texts into vectors. Failures are
// *domain.ProviderError so callers can tell quota from outage.
type EmbeddingService interface {
	// Embed returns len(texts) vectors, each of Dimensions() length, in
	// input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
	HealthCheck(ctx context.Context) error
	Close() error
}

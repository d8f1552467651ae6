package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

// EmbeddingClientConfig holds configuration for EmbeddingClient.
type EmbeddingClientConfig struct {
	Service        driven.EmbeddingService
	BatchSize      int           // Texts per provider call (default: 64)
	Concurrency    int           // Batches in flight (default: 1)
	Timeout        time.Duration // Per-call deadline (default: 30s)
	RetryAttempts  int           // Attempts for transient failures (default: 3)
	RetryBaseDelay time.Duration // First retry delay, doubled each time (default: 500ms)

	// IndexDimensions is the vector column size. A provider producing a
	// different size is rejected. Zero skips the check.
	IndexDimensions int
	Logger          *slog.Logger
}

// EmbeddingClient batches texts for an EmbeddingService, retries transient
// provider failures and verifies the shape of every response.
type EmbeddingClient struct {
	service        driven.EmbeddingService
	pool           *ants.Pool
	batchSize      int
	timeout        time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	logger         *slog.Logger
}

// NewEmbeddingClient creates an embedding client backed by a goroutine pool.
func NewEmbeddingClient(cfg EmbeddingClientConfig) (*EmbeddingClient, error) {
	if cfg.Service == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidConfig)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &EmbeddingClient{
		service:        cfg.Service,
		batchSize:      cfg.BatchSize,
		timeout:        cfg.Timeout,
		retryAttempts:  cfg.RetryAttempts,
		retryBaseDelay: cfg.RetryBaseDelay,
		logger:         logger.With("component", "embedding_client"),
	}
	if cfg.IndexDimensions > 0 && c.Dimensions() != cfg.IndexDimensions {
		return nil, fmt.Errorf("%w: model %s produces %d-dimensional vectors, the index stores %d",
			domain.ErrInvalidConfig, c.Model(), c.Dimensions(), cfg.IndexDimensions)
	}
	if c.batchSize <= 0 {
		c.batchSize = 64
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.retryAttempts <= 0 {
		c.retryAttempts = 3
	}
	if c.retryBaseDelay <= 0 {
		c.retryBaseDelay = 500 * time.Millisecond
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	pool, err := ants.NewPool(concurrency)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	c.pool = pool

	return c, nil
}

// Model returns the underlying provider's model name.
func (c *EmbeddingClient) Model() string {
	return c.service.Model()
}

// Dimensions returns the underlying provider's vector size.
func (c *EmbeddingClient) Dimensions() int {
	return c.service.Dimensions()
}

// Close releases the goroutine pool.
func (c *EmbeddingClient) Close() {
	c.pool.Release()
}

// Embed returns one vector per text, in input order.
func (c *EmbeddingClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))

	// Single batch: no need to go through the pool.
	if len(texts) <= c.batchSize {
		vecs, err := c.embedBatch(ctx, texts)
		if err != nil {
			return nil, err
		}
		copy(out, vecs)
		return out, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for start := 0; start < len(texts); start += c.batchSize {
		end := min(start+c.batchSize, len(texts))
		offset, batch := start, texts[start:end]

		wg.Add(1)
		err := c.pool.Submit(func() {
			defer wg.Done()
			vecs, err := c.embedBatch(ctx, batch)
			if err != nil {
				fail(err)
				return
			}
			copy(out[offset:], vecs)
		})
		if err != nil {
			wg.Done()
			fail(domain.NewEmbeddingError(domain.ReasonUpstream, fmt.Errorf("submit batch: %w", err)))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

func (c *EmbeddingClient) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	var vecs [][]float32

	err := retryWithBackoff(ctx, c.logger, c.retryAttempts, c.retryBaseDelay, isTransient, func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		result, err := c.service.Embed(callCtx, batch)
		if err != nil {
			return classifyEmbeddingError(ctx, err)
		}
		if err := c.checkShape(batch, result); err != nil {
			return err
		}
		vecs = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	return vecs, nil
}

func (c *EmbeddingClient) checkShape(batch []string, vecs [][]float32) error {
	if len(vecs) != len(batch) {
		return domain.NewEmbeddingError(domain.ReasonUpstream,
			fmt.Errorf("expected %d vectors, got %d", len(batch), len(vecs)))
	}

	want := c.service.Dimensions()
	for i, v := range vecs {
		if len(v) == 0 || (want > 0 && len(v) != want) {
			return domain.NewEmbeddingError(domain.ReasonUpstream,
				fmt.Errorf("vector %d has %d dimensions, expected %d", i, len(v), want))
		}
	}
	return nil
}

// classifyEmbeddingError keeps typed provider errors and caller cancellation
// as they are and gives everything else a sub-reason.
func classifyEmbeddingError(parent context.Context, err error) error {
	var perr *domain.ProviderError
	if errors.As(err, &perr) {
		return err
	}
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewEmbeddingError(domain.ReasonTimeout, err)
	}
	return domain.NewEmbeddingError(domain.ReasonUpstream, err)
}

func isTransient(err error) bool {
	var perr *domain.ProviderError
	return errors.As(err, &perr) && perr.Transient()
}

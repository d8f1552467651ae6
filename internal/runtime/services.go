// Package runtime holds the model provider clients the process is
// currently using and keeps RuntimeConfig's capability flags in step.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
)

type closer interface{ Close() error }

// slot holds one provider. Installing a new one closes its predecessor.
type slot[T closer] struct {
	mu  sync.RWMutex
	cur T
	set bool
}

func (s *slot[T]) get() (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur, s.set
}

// swap installs v, or clears the slot when ok is false, and returns the
// error from closing the previous provider.
func (s *slot[T]) swap(v T, ok bool) error {
	s.mu.Lock()
	prev, had := s.cur, s.set
	s.cur, s.set = v, ok
	s.mu.Unlock()
	if had {
		return prev.Close()
	}
	return nil
}

type Services struct {
	config     *domain.RuntimeConfig
	embedding  slot[driven.EmbeddingService]
	generation slot[driven.GenerationService]
}

func NewServices(config *domain.RuntimeConfig) *Services {
	return &Services{config: config}
}

func (s *Services) Config() *domain.RuntimeConfig { return s.config }

// EmbeddingService is nil until one is installed.
func (s *Services) EmbeddingService() driven.EmbeddingService {
	svc, _ := s.embedding.get()
	return svc
}

// GenerationService is nil until one is installed.
func (s *Services) GenerationService() driven.GenerationService {
	svc, _ := s.generation.get()
	return svc
}

// SetEmbeddingService installs svc, closing the one it replaces. nil clears.
func (s *Services) SetEmbeddingService(svc driven.EmbeddingService) {
	_ = s.embedding.swap(svc, svc != nil)
	s.config.SetEmbeddingAvailable(svc != nil)
}

// SetGenerationService installs svc, closing the one it replaces. nil clears.
func (s *Services) SetGenerationService(svc driven.GenerationService) {
	_ = s.generation.swap(svc, svc != nil)
	s.config.SetGenerationAvailable(svc != nil)
}

// ValidateAndSetEmbedding installs svc only after its health check passes.
// A failing svc is closed.
func (s *Services) ValidateAndSetEmbedding(ctx context.Context, svc driven.EmbeddingService) error {
	if svc != nil {
		if err := svc.HealthCheck(ctx); err != nil {
			_ = svc.Close()
			return fmt.Errorf("embedding %s: %w", svc.Model(), err)
		}
	}
	s.SetEmbeddingService(svc)
	return nil
}

// ValidateAndSetGeneration installs svc only after it answers a ping.
func (s *Services) ValidateAndSetGeneration(ctx context.Context, svc driven.GenerationService) error {
	if svc != nil {
		if err := svc.Ping(ctx); err != nil {
			_ = svc.Close()
			return fmt.Errorf("generation %s: %w", svc.Model(), err)
		}
	}
	s.SetGenerationService(svc)
	return nil
}

// Ping reports the providers validated at install time. It never calls
// them, so polling /ready costs no provider quota.
func (s *Services) Ping(context.Context) error {
	var errs []error
	if !s.config.EmbeddingAvailable() {
		errs = append(errs, errors.New("embedding provider not configured"))
	}
	if !s.config.GenerationAvailable() {
		errs = append(errs, errors.New("generation provider not configured"))
	}
	return errors.Join(errs...)
}

func (s *Services) Close() error {
	var nilEmb driven.EmbeddingService
	var nilGen driven.GenerationService
	err := errors.Join(s.embedding.swap(nilEmb, false), s.generation.swap(nilGen, false))
	s.config.SetEmbeddingAvailable(false)
	s.config.SetGenerationAvailable(false)
	return err
}

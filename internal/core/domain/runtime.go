package domain

import "sync/atomic"

// RuntimeConfig records the backends chosen at startup and which model
// providers are installed right now. Safe for concurrent use.
type RuntimeConfig struct {
	// QueueBackend and LockBackend are "redis" or "postgres" and never change.
	QueueBackend string
	LockBackend  string

	embedding  atomic.Bool
	generation atomic.Bool
}

func NewRuntimeConfig(queueBackend, lockBackend string) *RuntimeConfig {
	return &RuntimeConfig{QueueBackend: queueBackend, LockBackend: lockBackend}
}

func (c *RuntimeConfig) EmbeddingAvailable() bool  { return c.embedding.Load() }
func (c *RuntimeConfig) GenerationAvailable() bool { return c.generation.Load() }

func (c *RuntimeConfig) SetEmbeddingAvailable(v bool)  { c.embedding.Store(v) }
func (c *RuntimeConfig) SetGenerationAvailable(v bool) { c.generation.Store(v) }

// CanIngest needs only an embedding provider.
func (c *RuntimeConfig) CanIngest() bool { return c.EmbeddingAvailable() }

// CanAnswer needs both providers: one to embed the question, one to answer.
func (c *RuntimeConfig) CanAnswer() bool {
	return c.EmbeddingAvailable() && c.GenerationAvailable()
}

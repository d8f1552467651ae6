package domain

import (
	"sync"
	"testing"
)

func TestNewRuntimeConfig(t *testing.T) {
	config := NewRuntimeConfig("redis", "postgres")

	if config == nil {
		t.Fatal("expected non-nil config")
	}
	if config.QueueBackend != "redis" || config.LockBackend != "postgres" {
		t.Errorf("unexpected backends %s/%s", config.QueueBackend, config.LockBackend)
	}
	if config.EmbeddingAvailable() {
		t.Error("expected embedding to be unavailable initially")
	}
	if config.GenerationAvailable() {
		t.Error("expected generation to be unavailable initially")
	}
}

func TestRuntimeConfig_Capabilities(t *testing.T) {
	config := NewRuntimeConfig("postgres", "postgres")

	if config.CanIngest() || config.CanAnswer() {
		t.Error("expected no capabilities initially")
	}

	config.SetEmbeddingAvailable(true)
	if !config.CanIngest() {
		t.Error("expected ingestion with embedding available")
	}
	if config.CanAnswer() {
		t.Error("expected answering to need generation too")
	}

	config.SetGenerationAvailable(true)
	if !config.CanAnswer() {
		t.Error("expected answering with both providers")
	}

	config.SetEmbeddingAvailable(false)
	if config.CanIngest() || config.CanAnswer() {
		t.Error("expected capabilities to drop with embedding")
	}
}

func TestRuntimeConfig_ConcurrentAccess(t *testing.T) {
	config := NewRuntimeConfig("redis", "redis")
	var wg sync.WaitGroup

	for i := range 50 {
		wg.Add(2)
		go func(v bool) {
			defer wg.Done()
			config.SetEmbeddingAvailable(v)
			config.SetGenerationAvailable(!v)
		}(i%2 == 0)
		go func() {
			defer wg.Done()
			_ = config.CanAnswer()
		}()
	}
	wg.Wait()
}

package domain

import "testing"

func TestEmbeddingSettingsIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestGenerationSettingsIsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings GenerationSettings
		expected bool
	}{
		{"empty", GenerationSettings{}, false},
		{"openai without key", GenerationSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", GenerationSettings{Provider: AIProviderOpenAI, APIKey: "sk"}, true},
		{"ollama", GenerationSettings{Provider: AIProviderOllama}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.settings.IsConfigured(); got != tt.expected {
				t.Errorf("IsConfigured() = %v, want %v", got, tt.expected)
			}
		})
	}
}

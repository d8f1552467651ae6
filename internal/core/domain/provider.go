package domain

// AIProvider identifies a model provider
type AIProvider string

const (
	AIProviderOpenAI AIProvider = "openai"
	AIProviderOllama AIProvider = "ollama"
)

// RequiresAPIKey returns true if this provider requires an API key
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI
}

// EmbeddingSettings configures the embedding provider
type EmbeddingSettings struct {
	Provider AIProvider `json:"provider" yaml:"provider"`
	// Backend selects the client implementation: "http" (native OpenAI
	// client) or "langchain".
	Backend    string `json:"backend,omitempty" yaml:"backend"`
	Model      string `json:"model" yaml:"model"`
	APIKey     string `json:"-" yaml:"api_key"`
	BaseURL    string `json:"base_url,omitempty" yaml:"base_url"`
	Dimensions int    `json:"dimensions,omitempty" yaml:"dimensions"`
	// RequestsPerSecond throttles calls to the provider. Zero disables it.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty" yaml:"requests_per_second"`
}

// IsConfigured returns true if embedding settings are properly configured
func (e *EmbeddingSettings) IsConfigured() bool {
	if e.Provider == "" {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// GenerationSettings configures the answer generation provider
type GenerationSettings struct {
	Provider    AIProvider `json:"provider" yaml:"provider"`
	Model       string     `json:"model" yaml:"model"`
	APIKey      string     `json:"-" yaml:"api_key"`
	BaseURL     string     `json:"base_url,omitempty" yaml:"base_url"`
	Temperature float64    `json:"temperature" yaml:"temperature"`
	MaxTokens   int        `json:"max_tokens" yaml:"max_tokens"`
}

// IsConfigured returns true if generation settings are properly configured
func (g *GenerationSettings) IsConfigured() bool {
	if g.Provider == "" {
		return false
	}
	if g.Provider.RequiresAPIKey() && g.APIKey == "" {
		return false
	}
	return true
}

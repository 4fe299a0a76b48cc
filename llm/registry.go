package llm

import (
	"fmt"
	"sync"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderOpenAI    = "openai"
)

// ClientKey uniquely identifies a resolved LLM client configuration.
type ClientKey struct {
	Provider string
	Model    string
	APIKey   string // For credential-based providers
	Host     string // For Ollama
	BaseURL  string // For OpenAI-compatible endpoints
}

// ProviderConfig holds the settings needed for provider resolution. It
// deliberately does not import the config package.
type ProviderConfig struct {
	AnthropicAPIKey string
	AnthropicModel  string
	OllamaHost      string
	OllamaModel     string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
}

// ProviderRegistry manages provider selection and configuration resolution.
// Client creation is handled by the caller to avoid import cycles with the
// provider subpackages.
type ProviderRegistry struct {
	enabledProviders map[string]bool
	mu               sync.RWMutex
	config           *ProviderConfig
}

// NewProviderRegistry creates a registry with the given config and enabled
// providers, in preference order. An empty list enables every provider, so a
// bare API key in the environment is enough to get resolved.
func NewProviderRegistry(providerConfig *ProviderConfig, enabledProviders []string) *ProviderRegistry {
	if len(enabledProviders) == 0 {
		enabledProviders = []string{ProviderAnthropic, ProviderOpenAI, ProviderOllama}
	}
	enabledMap := make(map[string]bool)
	for _, p := range enabledProviders {
		enabledMap[p] = true
	}
	return &ProviderRegistry{
		enabledProviders: enabledMap,
		config:           providerConfig,
	}
}

// IsProviderEnabled checks if a provider is in the enabled providers list.
func (r *ProviderRegistry) IsProviderEnabled(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.enabledProviders[provider]
}

// IsProviderConfigured checks if a provider has the required configuration.
func (r *ProviderRegistry) IsProviderConfigured(provider string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isProviderConfiguredUnlocked(provider)
}

func (r *ProviderRegistry) isProviderConfiguredUnlocked(provider string) bool {
	switch provider {
	case ProviderAnthropic:
		return r.config.AnthropicAPIKey != ""
	case ProviderOllama:
		// Ollama falls back to environment defaults; a model is enough.
		return r.config.OllamaModel != ""
	case ProviderOpenAI:
		return r.config.OpenAIAPIKey != ""
	default:
		return false
	}
}

// Resolve returns a ClientKey for the first enabled and configured provider
// from the preference list. An empty preference list tries every enabled
// provider in a fixed order.
func (r *ProviderRegistry) Resolve(preferences []string) (*ClientKey, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(preferences) == 0 {
		preferences = []string{ProviderAnthropic, ProviderOpenAI, ProviderOllama}
	}

	var attempted []string
	for _, provider := range preferences {
		attempted = append(attempted, provider)
		if !r.enabledProviders[provider] || !r.isProviderConfiguredUnlocked(provider) {
			continue
		}
		key, err := r.resolveProviderConfig(provider)
		if err != nil {
			continue
		}
		return key, nil
	}
	return nil, fmt.Errorf("no available provider from preferences %v", attempted)
}

func (r *ProviderRegistry) resolveProviderConfig(provider string) (*ClientKey, error) {
	switch provider {
	case ProviderAnthropic:
		return &ClientKey{
			Provider: ProviderAnthropic,
			Model:    r.config.AnthropicModel,
			APIKey:   r.config.AnthropicAPIKey,
		}, nil
	case ProviderOllama:
		return &ClientKey{
			Provider: ProviderOllama,
			Model:    r.config.OllamaModel,
			Host:     r.config.OllamaHost,
		}, nil
	case ProviderOpenAI:
		return &ClientKey{
			Provider: ProviderOpenAI,
			Model:    r.config.OpenAIModel,
			APIKey:   r.config.OpenAIAPIKey,
			BaseURL:  r.config.OpenAIBaseURL,
		}, nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", provider)
	}
}

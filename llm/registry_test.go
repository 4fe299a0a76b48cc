package llm

import "testing"

func TestResolveFollowsPreferenceOrder(t *testing.T) {
	r := NewProviderRegistry(&ProviderConfig{
		AnthropicAPIKey: "key-a",
		OpenAIAPIKey:    "key-o",
	}, []string{ProviderAnthropic, ProviderOpenAI})

	key, err := r.Resolve([]string{ProviderOpenAI, ProviderAnthropic})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderOpenAI {
		t.Errorf("provider = %s", key.Provider)
	}
}

func TestResolveSkipsUnconfiguredProviders(t *testing.T) {
	r := NewProviderRegistry(&ProviderConfig{
		OllamaModel: "llama3",
		OllamaHost:  "http://localhost:11434",
	}, []string{ProviderAnthropic, ProviderOllama})

	key, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderOllama {
		t.Errorf("provider = %s", key.Provider)
	}
	if key.Host != "http://localhost:11434" {
		t.Errorf("host = %s", key.Host)
	}
}

// With no explicit provider list, a configured provider still resolves; an
// API key alone must be enough to get model-backed explanations.
func TestEmptyProviderListEnablesConfiguredProviders(t *testing.T) {
	r := NewProviderRegistry(&ProviderConfig{AnthropicAPIKey: "key-a"}, nil)
	key, err := r.Resolve(nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if key.Provider != ProviderAnthropic {
		t.Errorf("provider = %s", key.Provider)
	}
}

func TestResolveFailsWhenNothingConfigured(t *testing.T) {
	r := NewProviderRegistry(&ProviderConfig{}, []string{ProviderAnthropic})
	if _, err := r.Resolve(nil); err == nil {
		t.Fatal("expected error with no configured provider")
	}
}

func TestIsProviderEnabled(t *testing.T) {
	r := NewProviderRegistry(&ProviderConfig{}, []string{ProviderOpenAI})
	if !r.IsProviderEnabled(ProviderOpenAI) {
		t.Error("openai should be enabled")
	}
	if r.IsProviderEnabled(ProviderAnthropic) {
		t.Error("anthropic should be disabled")
	}
}

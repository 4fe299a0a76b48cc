// Package config loads daemon configuration: documented defaults merged with
// an optional user YAML file, user values taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"

	"github.com/Ritesh-97/causal-rationale-extraction-system/causal"
)

// AnthropicConfig represents configuration for the Anthropic LLM provider.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key,omitempty"`
	Model  string `yaml:"model,omitempty"`
}

// OllamaConfig represents configuration for the Ollama LLM provider.
type OllamaConfig struct {
	Host  string `yaml:"host,omitempty"` // default: http://localhost:11434
	Model string `yaml:"model,omitempty"`
}

// OpenAIConfig represents configuration for the OpenAI LLM provider.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"` // default: official API
	Model   string `yaml:"model,omitempty"`
}

// AnalysisConfig holds the scoring and detection settings.
type AnalysisConfig struct {
	WindowSize int `yaml:"window_size,omitempty"`
	TopK       int `yaml:"top_k,omitempty"`

	// Weights for the four fused signals; must sum to 1.0.
	Weights struct {
		Relevance  float64 `yaml:"relevance"`
		Temporal   float64 `yaml:"temporal"`
		Pattern    float64 `yaml:"pattern"`
		Similarity float64 `yaml:"similarity"`
	} `yaml:"weights,omitempty"`

	LookbackSeconds     float64 `yaml:"lookback_seconds,omitempty"`
	LookbackTurns       int     `yaml:"lookback_turns,omitempty"`
	SequentialThreshold float64 `yaml:"sequential_threshold,omitempty"`
	SequentialBonus     float64 `yaml:"sequential_bonus,omitempty"`
}

// ConversationsConfig bounds per-conversation history.
type ConversationsConfig struct {
	HistoryDepth int    `yaml:"history_depth,omitempty"`
	TTL          string `yaml:"ttl,omitempty"` // Go duration string, e.g. "1h"
}

// EmbeddingConfig selects the embedder used for span indexing and query
// vectors. Provider may be "ollama", "openai", or "none".
type EmbeddingConfig struct {
	Provider string `yaml:"provider,omitempty"`
	Model    string `yaml:"model,omitempty"`
}

// ServerConfig is the daemon's complete configuration.
type ServerConfig struct {
	Server struct {
		Addr string `yaml:"addr,omitempty"` // HTTP listen address
	} `yaml:"server,omitempty"`

	DBPath         string `yaml:"db_path,omitempty"`
	MigrationsPath string `yaml:"migrations_path,omitempty"`

	Analysis      AnalysisConfig      `yaml:"analysis,omitempty"`
	Conversations ConversationsConfig `yaml:"conversations,omitempty"`
	Embedding     EmbeddingConfig     `yaml:"embedding,omitempty"`

	// Cues overrides the built-in cue and trigger tables per event type.
	Cues causal.CueTable `yaml:"cues,omitempty"`

	// LLM provider configurations for explanation generation.
	Anthropic AnthropicConfig `yaml:"anthropic,omitempty"`
	Ollama    OllamaConfig    `yaml:"ollama,omitempty"`
	OpenAI    OpenAIConfig    `yaml:"openai,omitempty"`
	// LLMProviders restricts and orders provider selection. Empty means every
	// configured provider is eligible.
	LLMProviders []string `yaml:"llm_providers,omitempty"`
}

// DefaultServerConfig returns the documented defaults.
func DefaultServerConfig() ServerConfig {
	var cfg ServerConfig
	cfg.Server.Addr = "localhost:8080"
	cfg.DBPath = "./.crxd/corpus.db"
	cfg.MigrationsPath = "./migrations"
	cfg.Analysis.WindowSize = 5
	cfg.Analysis.TopK = 10
	cfg.Analysis.Weights.Relevance = 0.4
	cfg.Analysis.Weights.Temporal = 0.3
	cfg.Analysis.Weights.Pattern = 0.2
	cfg.Analysis.Weights.Similarity = 0.1
	cfg.Analysis.LookbackSeconds = 120
	cfg.Analysis.LookbackTurns = 10
	cfg.Analysis.SequentialThreshold = 0.3
	cfg.Analysis.SequentialBonus = 0.1
	cfg.Conversations.HistoryDepth = 10
	cfg.Conversations.TTL = "1h"
	cfg.Embedding.Provider = "none"
	cfg.Ollama.Host = "http://localhost:11434"
	cfg.Cues = causal.DefaultCueTable()
	return cfg
}

// GetServerConfigPath returns the default config file path. Can be
// overridden via CRX_CONFIG_PATH.
func GetServerConfigPath() string {
	if envPath := os.Getenv("CRX_CONFIG_PATH"); envPath != "" {
		return expandPath(envPath)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "./.crxd/config.yaml"
	}
	return filepath.Join(homeDir, ".crxd", "config.yaml")
}

// LoadServerConfig reads the config at path and merges it over the defaults.
// A missing file is not an error; the defaults stand. API keys may also come
// from ANTHROPIC_API_KEY and OPENAI_API_KEY.
func LoadServerConfig(path string) (*ServerConfig, error) {
	defaults := DefaultServerConfig()

	data, err := os.ReadFile(expandPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&defaults)
			return &defaults, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var userConfig ServerConfig
	if err := yaml.Unmarshal(data, &userConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := mergo.Merge(&defaults, userConfig, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	applyEnvOverrides(&defaults)
	return &defaults, nil
}

// SaveServerConfig saves the configuration to the specified path.
func SaveServerConfig(cfg *ServerConfig, path string) error {
	expandedPath := expandPath(path)
	if err := os.MkdirAll(filepath.Dir(expandedPath), 0o750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(expandedPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// ConversationTTL parses the configured TTL, falling back to one hour on a
// bad or empty value.
func (c *ServerConfig) ConversationTTL() time.Duration {
	d, err := time.ParseDuration(c.Conversations.TTL)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

func applyEnvOverrides(cfg *ServerConfig) {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.OpenAI.APIKey == "" {
		cfg.OpenAI.APIKey = key
	}
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(homeDir, path[2:])
	}
	return path
}

package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures the LLM provider.
type Config struct {
	// Provider is one of "openai", "anthropic", "gemini", "openrouter",
	// "mock".
	Provider string `yaml:"provider"`

	OpenAI     OpenAIConfig     `yaml:"openai"`
	Anthropic  AnthropicConfig  `yaml:"anthropic"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Retry      RetryConfig      `yaml:"retry"`

	// Timeout bounds one logical call, retries included.
	Timeout time.Duration `yaml:"timeout"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type OpenRouterConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// RetryConfig configures backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

// DefaultConfig targets gpt-4o-mini through OpenAI.
func DefaultConfig() Config {
	return Config{
		Provider:   "openai",
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenRouterConfig{Model: "openai/gpt-4o-mini"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 1 * time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 45 * time.Second,
	}
}

// envOverrides maps DEEPREAD_* variables onto config fields.
func (c *Config) envOverrides() []struct {
	name string
	dst  *string
} {
	return []struct {
		name string
		dst  *string
	}{
		{"DEEPREAD_LLM_PROVIDER", &c.Provider},
		{"DEEPREAD_OPENAI_API_KEY", &c.OpenAI.APIKey},
		{"DEEPREAD_OPENAI_MODEL", &c.OpenAI.Model},
		{"DEEPREAD_OPENAI_BASE_URL", &c.OpenAI.BaseURL},
		{"DEEPREAD_ANTHROPIC_API_KEY", &c.Anthropic.APIKey},
		{"DEEPREAD_ANTHROPIC_MODEL", &c.Anthropic.Model},
		{"DEEPREAD_GEMINI_API_KEY", &c.Gemini.APIKey},
		{"DEEPREAD_GEMINI_MODEL", &c.Gemini.Model},
		{"DEEPREAD_OPENROUTER_API_KEY", &c.OpenRouter.APIKey},
		{"DEEPREAD_OPENROUTER_MODEL", &c.OpenRouter.Model},
	}
}

// ApplyEnv overwrites fields with any DEEPREAD_* variables that are set.
func (c *Config) ApplyEnv() {
	for _, o := range c.envOverrides() {
		if v := os.Getenv(o.name); v != "" {
			*o.dst = v
		}
	}
	if d := os.Getenv("DEEPREAD_LLM_TIMEOUT"); d != "" {
		if parsed, err := time.ParseDuration(d); err == nil {
			c.Timeout = parsed
		}
	}
}

// ConfigFromEnv builds a Config from defaults and DEEPREAD_* variables.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	return cfg
}

// DiscoverConfig checks the vendors' standard key variables, OpenAI first,
// and returns a Config for the first one found.
func DiscoverConfig() (Config, bool) {
	cfg := DefaultConfig()

	if k := os.Getenv("OPENAI_API_KEY"); k != "" {
		cfg.Provider = "openai"
		cfg.OpenAI.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("GEMINI_API_KEY"); k != "" {
		cfg.Provider = "gemini"
		cfg.Gemini.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("ANTHROPIC_API_KEY"); k != "" {
		cfg.Provider = "anthropic"
		cfg.Anthropic.APIKey = k
		return cfg, true
	}
	if k := os.Getenv("OPENROUTER_API_KEY"); k != "" {
		cfg.Provider = "openrouter"
		cfg.OpenRouter.APIKey = k
		return cfg, true
	}

	return Config{}, false
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	var key, envName string
	switch c.Provider {
	case "openai":
		key, envName = c.OpenAI.APIKey, "DEEPREAD_OPENAI_API_KEY"
	case "anthropic":
		key, envName = c.Anthropic.APIKey, "DEEPREAD_ANTHROPIC_API_KEY"
	case "gemini":
		key, envName = c.Gemini.APIKey, "DEEPREAD_GEMINI_API_KEY"
	case "openrouter":
		key, envName = c.OpenRouter.APIKey, "DEEPREAD_OPENROUTER_API_KEY"
	case "mock":
		return nil
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("%s is required for the %s provider", envName, c.Provider)
	}
	return nil
}

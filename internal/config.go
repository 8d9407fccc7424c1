package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL         = "http://localhost:3000"
	DefaultHTTPTimeout    = 60 * time.Second
	DefaultRevealStride   = 6
	DefaultRevealInterval = 12 * time.Millisecond
	DefaultServerAddr     = ":3000"
	DefaultOllamaHost     = "http://localhost:11434"
	DefaultOllamaModel    = "llama3.2"
	DefaultOpenAIModel    = "gpt-4o-mini"
)

// Config is the client and server configuration
type Config struct {
	APIURL      string            `yaml:"api_url"`
	HTTPTimeout time.Duration     `yaml:"http_timeout"`
	Storage     StorageConfig     `yaml:"storage"`
	Reveal      RevealConfig      `yaml:"reveal"`
	Providers   map[string]string `yaml:"providers,omitempty"`
	Server      ServerConfig      `yaml:"server"`
}

// StorageConfig selects the durable store
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// RevealConfig tunes the progressive reveal of assistant replies
type RevealConfig struct {
	Stride   int           `yaml:"stride"`
	Interval time.Duration `yaml:"interval"`
}

// ServerConfig configures `synapse serve`
type ServerConfig struct {
	Addr            string   `yaml:"addr"`
	LLMProvider     string   `yaml:"llm_provider"` // "ollama" or "openai"
	OllamaHost      string   `yaml:"ollama_host"`
	OllamaModel     string   `yaml:"ollama_model"`
	OpenAIBaseURL   string   `yaml:"openai_base_url,omitempty"`
	OpenAIKey       string   `yaml:"openai_api_key,omitempty"`
	OpenAIModel     string   `yaml:"openai_model"`
	StripeSecretKey string   `yaml:"stripe_secret_key,omitempty"`
	PublicURL       string   `yaml:"public_url,omitempty"`
	Prices          PriceIDs `yaml:"prices"`
}

// DefaultHome returns ~/.synapse
func DefaultHome() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".synapse"), nil
}

// DefaultConfig returns the built-in configuration rooted at home
func DefaultConfig(home string) *Config {
	return &Config{
		APIURL:      DefaultAPIURL,
		HTTPTimeout: DefaultHTTPTimeout,
		Storage: StorageConfig{
			Backend: BackendSQLite,
			Path:    filepath.Join(home, "synapse.db"),
		},
		Reveal: RevealConfig{
			Stride:   DefaultRevealStride,
			Interval: DefaultRevealInterval,
		},
		Server: ServerConfig{
			Addr:        DefaultServerAddr,
			LLMProvider: "ollama",
			OllamaHost:  DefaultOllamaHost,
			OllamaModel: DefaultOllamaModel,
			OpenAIModel: DefaultOpenAIModel,
		},
	}
}

// LoadConfig reads the YAML file at path (a missing file is fine), then .env,
// then environment overrides. An empty path means ~/.synapse/config.yaml.
func LoadConfig(path string) (*Config, error) {
	home, err := DefaultHome()
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig(home)

	if path == "" {
		path = filepath.Join(home, "config.yaml")
	}
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		LogWarn("Failed to load .env: %v", err)
	}
	cfg.applyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		LogDebug("No config file at %s, using defaults", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	LogDebug("Loaded config from %s", path)
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.APIURL, "SYNAPSE_API_URL")
	set(&c.Storage.Backend, "SYNAPSE_STORAGE_BACKEND")
	set(&c.Storage.Path, "SYNAPSE_STORAGE_PATH")
	set(&c.Server.Addr, "SYNAPSE_ADDR")
	set(&c.Server.LLMProvider, "LLM_PROVIDER")
	set(&c.Server.OllamaHost, "OLLAMA_HOST")
	set(&c.Server.OllamaModel, "OLLAMA_MODEL")
	set(&c.Server.OpenAIBaseURL, "OPENAI_BASE_URL")
	set(&c.Server.OpenAIKey, "OPENAI_API_KEY")
	set(&c.Server.OpenAIModel, "OPENAI_MODEL")
	set(&c.Server.StripeSecretKey, "STRIPE_SECRET_KEY")
	set(&c.Server.PublicURL, "SYNAPSE_PUBLIC_URL")
	set(&c.Server.Prices.Basic, "STRIPE_PRICE_BASIC")
	set(&c.Server.Prices.Pro, "STRIPE_PRICE_PRO")
	set(&c.Server.Prices.Elite, "STRIPE_PRICE_ELITE")

	if v := getenv("SYNAPSE_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.HTTPTimeout = d
		} else {
			LogWarn("Ignoring SYNAPSE_HTTP_TIMEOUT=%q: %v", v, err)
		}
	}
	if v := getenv("SYNAPSE_REVEAL_STRIDE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Reveal.Stride = n
		} else {
			LogWarn("Ignoring SYNAPSE_REVEAL_STRIDE=%q: %v", v, err)
		}
	}
}

// Validate checks the values the session layer relies on
func (c *Config) Validate() error {
	if c.Reveal.Stride < 1 {
		return &ValidationError{Field: "reveal.stride", Reason: "must be at least 1"}
	}
	if c.Reveal.Interval <= 0 {
		return &ValidationError{Field: "reveal.interval", Reason: "must be positive"}
	}
	if c.HTTPTimeout <= 0 {
		return &ValidationError{Field: "http_timeout", Reason: "must be positive"}
	}
	switch c.Storage.Backend {
	case BackendSQLite, BackendBolt, BackendMemory:
	default:
		return &ValidationError{Field: "storage.backend", Reason: fmt.Sprintf("unsupported backend %q", c.Storage.Backend)}
	}
	return nil
}

// ValidateBilling checks the settings checkout depends on. Redirect URLs are
// built from public_url only, never from request headers.
func (s ServerConfig) ValidateBilling() error {
	if s.StripeSecretKey == "" {
		return nil
	}
	if s.PublicURL == "" {
		return &ValidationError{Field: "server.public_url", Reason: "required when billing is enabled"}
	}
	u, err := url.Parse(s.PublicURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "server.public_url", Reason: fmt.Sprintf("%q is not an absolute http(s) URL", s.PublicURL)}
	}
	return nil
}

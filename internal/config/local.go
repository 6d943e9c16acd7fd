// Package config loads the daemon configuration from ~/.pymaster.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid config")

// LocalConfig holds configuration for the local daemon
type LocalConfig struct {
	Daemon  DaemonConfig  `yaml:"daemon"`
	LLM     LLMConfig     `yaml:"llm"`
	Storage StorageConfig `yaml:"storage"`
	Handoff HandoffConfig `yaml:"handoff"`
	Events  EventsConfig  `yaml:"events"`
	Tabs    TabsConfig    `yaml:"tabs"`
	Content ContentConfig `yaml:"content"`
}

// DaemonConfig holds daemon server settings
type DaemonConfig struct {
	Port     int    `yaml:"port"`
	Bind     string `yaml:"bind"`
	LogLevel string `yaml:"log_level"`
}

// LLMConfig holds LLM provider settings
type LLMConfig struct {
	DefaultProvider string                     `yaml:"default_provider"`
	Providers       map[string]*ProviderConfig `yaml:"providers"`
	MaxTokens       int                        `yaml:"max_tokens"`
	Temperature     float64                    `yaml:"temperature"`
	Resilience      ResilienceConfig           `yaml:"resilience"`
}

// ProviderConfig holds settings for a single LLM provider. Model serves
// code analysis and exercise generation; FastModel serves quizzes and chat.
type ProviderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Model     string `yaml:"model"`
	FastModel string `yaml:"fast_model,omitempty"`
	URL       string `yaml:"url,omitempty"`
	APIKey    string `yaml:"-"` // Loaded from secrets.yaml or the environment
}

// ResilienceConfig tunes the wrapper around every provider
type ResilienceConfig struct {
	Retry         bool `yaml:"retry"`
	MaxConcurrent int  `yaml:"max_concurrent"`
	RatePerSecond int  `yaml:"rate_per_second"`
}

// Storage backends
const (
	StorageJSON     = "json"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// StorageConfig selects where the learner profile lives
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	PostgresURL string `yaml:"postgres_url,omitempty"`
	MaxConns    int32  `yaml:"max_conns,omitempty"`
}

// Handoff backends
const (
	HandoffMemory = "memory"
	HandoffRedis  = "redis"
)

// HandoffConfig selects the pending exercise relay
type HandoffConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url,omitempty"`
	TTL      time.Duration `yaml:"ttl"`
}

// Events backends
const (
	EventsNone   = "none"
	EventsAMQP   = "amqp"
	EventsSQLite = "sqlite"
)

// EventsConfig selects where generation activity events go
type EventsConfig struct {
	Backend string `yaml:"backend"`
	AMQPURL string `yaml:"amqp_url,omitempty"`
}

// TabsConfig bounds open client tabs
type TabsConfig struct {
	IdleTimeout time.Duration `yaml:"idle_timeout"`
	MaxOpen     int           `yaml:"max_open"`
}

// ContentConfig points at an optional directory of extra catalog YAML
type ContentConfig struct {
	Path string `yaml:"path,omitempty"`
}

// SecretsConfig holds API keys loaded from secrets.yaml
type SecretsConfig struct {
	Providers map[string]struct {
		APIKey string `yaml:"api_key"`
	} `yaml:"providers"`
}

// PyMasterDir returns the data directory, ~/.pymaster unless PYMASTER_HOME
// is set.
func PyMasterDir() (string, error) {
	if dir := os.Getenv("PYMASTER_HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".pymaster"), nil
}

// EnsurePyMasterDir creates the data directory and its subdirectories
func EnsurePyMasterDir() (string, error) {
	dir, err := PyMasterDir()
	if err != nil {
		return "", err
	}

	for _, subdir := range []string{"", "logs", "data", "content"} {
		path := filepath.Join(dir, subdir)
		if err := os.MkdirAll(path, 0755); err != nil {
			return "", fmt.Errorf("create dir %s: %w", path, err)
		}
	}

	return dir, nil
}

// DefaultLocalConfig returns sensible defaults for local mode
func DefaultLocalConfig() *LocalConfig {
	return &LocalConfig{
		Daemon: DaemonConfig{
			Port:     7433,
			Bind:     "127.0.0.1",
			LogLevel: "info",
		},
		LLM: LLMConfig{
			DefaultProvider: "auto",
			Providers: map[string]*ProviderConfig{
				"gemini": {
					Enabled:   true,
					Model:     "gemini-2.5-pro",
					FastModel: "gemini-2.5-flash",
				},
				"claude": {
					Enabled:   true,
					Model:     "claude-sonnet-4-20250514",
					FastModel: "claude-3-5-haiku-latest",
				},
				"openai": {
					Enabled:   false,
					Model:     "gpt-4o",
					FastModel: "gpt-4o-mini",
				},
				"ollama": {
					Enabled: false,
					URL:     "http://localhost:11434",
					Model:   "qwen2.5-coder",
				},
			},
			MaxTokens:   2048,
			Temperature: 0.7,
			Resilience: ResilienceConfig{
				Retry:         false,
				MaxConcurrent: 5,
				RatePerSecond: 2,
			},
		},
		Storage: StorageConfig{
			Backend:  StorageJSON,
			MaxConns: 4,
		},
		Handoff: HandoffConfig{
			Backend: HandoffMemory,
			TTL:     30 * time.Minute,
		},
		Events: EventsConfig{
			Backend: EventsNone,
		},
		Tabs: TabsConfig{
			IdleTimeout: 2 * time.Hour,
			MaxOpen:     64,
		},
	}
}

// LoadLocalConfig loads configuration from ~/.pymaster
func LoadLocalConfig() (*LocalConfig, error) {
	dir, err := PyMasterDir()
	if err != nil {
		return nil, err
	}
	return LoadLocalConfigFrom(dir)
}

// LoadLocalConfigFrom loads config.yaml and secrets.yaml from dir, then
// applies .env and environment overrides. Missing files keep defaults.
func LoadLocalConfigFrom(dir string) (*LocalConfig, error) {
	cfg := DefaultLocalConfig()

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := loadSecrets(dir, cfg); err != nil {
		return nil, fmt.Errorf("load secrets: %w", err)
	}
	if err := loadDotEnv(dir); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks backend names and numeric ranges
func (c *LocalConfig) Validate() error {
	if c.Daemon.Port <= 0 || c.Daemon.Port > 65535 {
		return fmt.Errorf("%w: daemon.port %d out of range", ErrInvalidConfig, c.Daemon.Port)
	}
	switch c.Storage.Backend {
	case StorageJSON, StorageSQLite:
	case StoragePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("%w: storage.postgres_url is required for the postgres backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown storage.backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	switch c.Handoff.Backend {
	case HandoffMemory:
	case HandoffRedis:
		if c.Handoff.RedisURL == "" {
			return fmt.Errorf("%w: handoff.redis_url is required for the redis backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown handoff.backend %q", ErrInvalidConfig, c.Handoff.Backend)
	}
	switch c.Events.Backend {
	case "", EventsNone, EventsSQLite:
	case EventsAMQP:
		if c.Events.AMQPURL == "" {
			return fmt.Errorf("%w: events.amqp_url is required for the amqp backend", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown events.backend %q", ErrInvalidConfig, c.Events.Backend)
	}
	return nil
}

// loadSecrets loads API keys from secrets.yaml
func loadSecrets(dir string, cfg *LocalConfig) error {
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read secrets: %w", err)
	}

	var secrets SecretsConfig
	if err := yaml.Unmarshal(data, &secrets); err != nil {
		return fmt.Errorf("parse secrets: %w", err)
	}

	for name, secret := range secrets.Providers {
		if provider, ok := cfg.LLM.Providers[name]; ok {
			provider.APIKey = secret.APIKey
		}
	}

	return nil
}

// SaveLocalConfig saves configuration to ~/.pymaster/config.yaml
func SaveLocalConfig(cfg *LocalConfig) error {
	dir, err := EnsurePyMasterDir()
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// SaveSecrets saves API keys to ~/.pymaster/secrets.yaml
func SaveSecrets(secrets map[string]string) error {
	dir, err := EnsurePyMasterDir()
	if err != nil {
		return err
	}

	secretsCfg := SecretsConfig{
		Providers: make(map[string]struct {
			APIKey string `yaml:"api_key"`
		}),
	}
	for name, key := range secrets {
		secretsCfg.Providers[name] = struct {
			APIKey string `yaml:"api_key"`
		}{APIKey: key}
	}

	data, err := yaml.Marshal(secretsCfg)
	if err != nil {
		return fmt.Errorf("marshal secrets: %w", err)
	}

	// owner read/write only
	if err := os.WriteFile(filepath.Join(dir, "secrets.yaml"), data, 0600); err != nil {
		return fmt.Errorf("write secrets: %w", err)
	}

	return nil
}

// SetProviderKey stores one provider's API key, keeping any others already
// in secrets.yaml.
func SetProviderKey(provider, key string) error {
	dir, err := EnsurePyMasterDir()
	if err != nil {
		return err
	}

	secrets := make(map[string]string)
	data, err := os.ReadFile(filepath.Join(dir, "secrets.yaml"))
	switch {
	case err == nil:
		var existing SecretsConfig
		if err := yaml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse secrets: %w", err)
		}
		for name, secret := range existing.Providers {
			secrets[name] = secret.APIKey
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("read secrets: %w", err)
	}

	secrets[provider] = key
	return SaveSecrets(secrets)
}

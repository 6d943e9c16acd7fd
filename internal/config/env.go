package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// loadDotEnv reads dir/.env into the process environment. Variables that
// are already set win.
func loadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(path)
}

// providerKeyEnv maps provider names to the environment variables that
// carry their API key, in priority order.
var providerKeyEnv = map[string][]string{
	"gemini": {"GEMINI_API_KEY", "API_KEY"},
	"claude": {"ANTHROPIC_API_KEY"},
	"openai": {"OPENAI_API_KEY"},
}

// applyEnv overlays PYMASTER_* variables and provider API keys.
func applyEnv(cfg *LocalConfig) {
	cfg.Daemon.Port = getEnvInt("PYMASTER_PORT", cfg.Daemon.Port)
	cfg.Daemon.Bind = getEnv("PYMASTER_BIND", cfg.Daemon.Bind)
	cfg.Daemon.LogLevel = getEnv("PYMASTER_LOG_LEVEL", cfg.Daemon.LogLevel)

	cfg.LLM.DefaultProvider = getEnv("PYMASTER_LLM_PROVIDER", cfg.LLM.DefaultProvider)
	cfg.LLM.Temperature = getEnvFloat("PYMASTER_LLM_TEMPERATURE", cfg.LLM.Temperature)
	cfg.LLM.Resilience.Retry = getEnvBool("PYMASTER_LLM_RETRY", cfg.LLM.Resilience.Retry)

	cfg.Storage.Backend = getEnv("PYMASTER_STORAGE_BACKEND", cfg.Storage.Backend)
	cfg.Storage.PostgresURL = getEnv("PYMASTER_POSTGRES_URL", cfg.Storage.PostgresURL)
	cfg.Handoff.Backend = getEnv("PYMASTER_HANDOFF_BACKEND", cfg.Handoff.Backend)
	cfg.Handoff.RedisURL = getEnv("PYMASTER_REDIS_URL", cfg.Handoff.RedisURL)
	cfg.Events.Backend = getEnv("PYMASTER_EVENTS_BACKEND", cfg.Events.Backend)
	cfg.Events.AMQPURL = getEnv("PYMASTER_AMQP_URL", cfg.Events.AMQPURL)
	cfg.Content.Path = getEnv("PYMASTER_CONTENT_PATH", cfg.Content.Path)

	for name, keys := range providerKeyEnv {
		p, ok := cfg.LLM.Providers[name]
		if !ok {
			continue
		}
		for _, key := range keys {
			if v := os.Getenv(key); v != "" {
				p.APIKey = v
				break
			}
		}
	}
	if p, ok := cfg.LLM.Providers["ollama"]; ok {
		p.URL = getEnv("OLLAMA_URL", p.URL)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

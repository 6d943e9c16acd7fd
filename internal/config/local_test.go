package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// isolate points PYMASTER_HOME at a temp dir and blanks every variable
// applyEnv reads so the host environment cannot leak into a test.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PYMASTER_HOME", dir)
	for _, key := range []string{
		"PYMASTER_PORT", "PYMASTER_BIND", "PYMASTER_LOG_LEVEL",
		"PYMASTER_LLM_PROVIDER", "PYMASTER_LLM_TEMPERATURE", "PYMASTER_LLM_RETRY",
		"PYMASTER_STORAGE_BACKEND", "PYMASTER_POSTGRES_URL",
		"PYMASTER_HANDOFF_BACKEND", "PYMASTER_REDIS_URL",
		"PYMASTER_EVENTS_BACKEND", "PYMASTER_AMQP_URL", "PYMASTER_CONTENT_PATH",
		"GEMINI_API_KEY", "API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY", "OLLAMA_URL",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestPyMasterDir(t *testing.T) {
	t.Setenv("PYMASTER_HOME", "")
	t.Setenv("HOME", t.TempDir())

	dir, err := PyMasterDir()
	if err != nil {
		t.Fatalf("PyMasterDir() error = %v", err)
	}
	if filepath.Base(dir) != ".pymaster" {
		t.Errorf("PyMasterDir() = %q, want ending with .pymaster", dir)
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("PyMasterDir() = %q, want absolute path", dir)
	}
}

func TestPyMasterDir_Override(t *testing.T) {
	t.Setenv("PYMASTER_HOME", "/srv/pymaster")

	dir, err := PyMasterDir()
	if err != nil {
		t.Fatalf("PyMasterDir() error = %v", err)
	}
	if dir != "/srv/pymaster" {
		t.Errorf("PyMasterDir() = %q, want /srv/pymaster", dir)
	}
}

func TestEnsurePyMasterDir(t *testing.T) {
	dir := isolate(t)

	got, err := EnsurePyMasterDir()
	if err != nil {
		t.Fatalf("EnsurePyMasterDir() error = %v", err)
	}
	if got != dir {
		t.Errorf("EnsurePyMasterDir() = %q, want %q", got, dir)
	}

	for _, subdir := range []string{"logs", "data", "content"} {
		if _, err := os.Stat(filepath.Join(dir, subdir)); err != nil {
			t.Errorf("EnsurePyMasterDir() should create %s: %v", subdir, err)
		}
	}
}

func TestDefaultLocalConfig(t *testing.T) {
	cfg := DefaultLocalConfig()

	if cfg.Daemon.Port != 7433 {
		t.Errorf("Daemon.Port = %d, want 7433", cfg.Daemon.Port)
	}
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon.Bind = %q, want 127.0.0.1", cfg.Daemon.Bind)
	}
	if cfg.LLM.DefaultProvider != "auto" {
		t.Errorf("LLM.DefaultProvider = %q, want auto", cfg.LLM.DefaultProvider)
	}
	if cfg.LLM.Resilience.Retry {
		t.Error("LLM.Resilience.Retry should default to false")
	}
	if cfg.Storage.Backend != StorageJSON {
		t.Errorf("Storage.Backend = %q, want json", cfg.Storage.Backend)
	}
	if cfg.Handoff.Backend != HandoffMemory || cfg.Handoff.TTL != 30*time.Minute {
		t.Errorf("Handoff = %+v, want memory with 30m ttl", cfg.Handoff)
	}
	if cfg.Events.Backend != EventsNone {
		t.Errorf("Events.Backend = %q, want none", cfg.Events.Backend)
	}
	if cfg.Tabs.MaxOpen != 64 || cfg.Tabs.IdleTimeout != 2*time.Hour {
		t.Errorf("Tabs = %+v", cfg.Tabs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestDefaultLocalConfig_ProviderDetails(t *testing.T) {
	cfg := DefaultLocalConfig()

	tests := []struct {
		name      string
		enabled   bool
		model     string
		fastModel string
	}{
		{"gemini", true, "gemini-2.5-pro", "gemini-2.5-flash"},
		{"claude", true, "claude-sonnet-4-20250514", "claude-3-5-haiku-latest"},
		{"openai", false, "gpt-4o", "gpt-4o-mini"},
		{"ollama", false, "qwen2.5-coder", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, ok := cfg.LLM.Providers[tt.name]
			if !ok {
				t.Fatalf("provider %s missing", tt.name)
			}
			if p.Enabled != tt.enabled {
				t.Errorf("Enabled = %v, want %v", p.Enabled, tt.enabled)
			}
			if p.Model != tt.model {
				t.Errorf("Model = %q, want %q", p.Model, tt.model)
			}
			if p.FastModel != tt.fastModel {
				t.Errorf("FastModel = %q, want %q", p.FastModel, tt.fastModel)
			}
		})
	}
}

func TestLoadSecrets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "secrets.yaml"), `providers:
  gemini:
    api_key: gm-key
  claude:
    api_key: sk-ant
  unknown:
    api_key: ignored
`)

	cfg := DefaultLocalConfig()
	if err := loadSecrets(dir, cfg); err != nil {
		t.Fatalf("loadSecrets() error = %v", err)
	}
	if got := cfg.LLM.Providers["gemini"].APIKey; got != "gm-key" {
		t.Errorf("gemini key = %q", got)
	}
	if got := cfg.LLM.Providers["claude"].APIKey; got != "sk-ant" {
		t.Errorf("claude key = %q", got)
	}
	if _, ok := cfg.LLM.Providers["unknown"]; ok {
		t.Error("unknown provider should not be added")
	}
}

func TestLoadSecrets_NoSecretsFile(t *testing.T) {
	cfg := DefaultLocalConfig()
	if err := loadSecrets(t.TempDir(), cfg); err != nil {
		t.Errorf("loadSecrets() error = %v, want nil", err)
	}
}

func TestLoadSecrets_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "secrets.yaml"), "providers: [unclosed")

	if err := loadSecrets(dir, DefaultLocalConfig()); err == nil {
		t.Error("loadSecrets() should fail on invalid YAML")
	}
}

func TestLoadLocalConfigFrom_DefaultsWhenNoFile(t *testing.T) {
	dir := isolate(t)

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Port != 7433 || cfg.Storage.Backend != StorageJSON {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadLocalConfigFrom_WithConfigFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.yaml"), `daemon:
  port: 9000
storage:
  backend: sqlite
handoff:
  backend: redis
  redis_url: redis://localhost:6379/0
  ttl: 5m
tabs:
  idle_timeout: 10m
  max_open: 3
`)

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Port != 9000 {
		t.Errorf("Daemon.Port = %d, want 9000", cfg.Daemon.Port)
	}
	// untouched keys keep defaults
	if cfg.Daemon.Bind != "127.0.0.1" {
		t.Errorf("Daemon.Bind = %q, want default", cfg.Daemon.Bind)
	}
	if cfg.Storage.Backend != StorageSQLite {
		t.Errorf("Storage.Backend = %q, want sqlite", cfg.Storage.Backend)
	}
	if cfg.Handoff.TTL != 5*time.Minute {
		t.Errorf("Handoff.TTL = %v, want 5m", cfg.Handoff.TTL)
	}
	if cfg.Tabs.IdleTimeout != 10*time.Minute || cfg.Tabs.MaxOpen != 3 {
		t.Errorf("Tabs = %+v", cfg.Tabs)
	}
	if cfg.LLM.Providers["gemini"].Model != "gemini-2.5-pro" {
		t.Error("provider defaults should survive a partial file")
	}
}

func TestLoadLocalConfigFrom_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.yaml"), "daemon: [unclosed")

	if _, err := LoadLocalConfigFrom(dir); err == nil {
		t.Error("LoadLocalConfigFrom() should fail on invalid YAML")
	}
}

func TestLoadLocalConfigFrom_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "secrets.yaml"), "providers:\n  gemini:\n    api_key: from-file\n")
	t.Setenv("PYMASTER_PORT", "8123")
	t.Setenv("PYMASTER_EVENTS_BACKEND", "sqlite")
	t.Setenv("PYMASTER_LLM_RETRY", "true")
	t.Setenv("API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "ant-env")

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Port != 8123 {
		t.Errorf("Daemon.Port = %d, want 8123", cfg.Daemon.Port)
	}
	if cfg.Events.Backend != EventsSQLite {
		t.Errorf("Events.Backend = %q, want sqlite", cfg.Events.Backend)
	}
	if !cfg.LLM.Resilience.Retry {
		t.Error("PYMASTER_LLM_RETRY should enable retry")
	}
	if got := cfg.LLM.Providers["gemini"].APIKey; got != "from-env" {
		t.Errorf("gemini key = %q, want env to win over secrets.yaml", got)
	}
	if got := cfg.LLM.Providers["claude"].APIKey; got != "ant-env" {
		t.Errorf("claude key = %q", got)
	}
}

func TestLoadLocalConfigFrom_GeminiKeyPriority(t *testing.T) {
	dir := isolate(t)
	t.Setenv("GEMINI_API_KEY", "primary")
	t.Setenv("API_KEY", "fallback")

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if got := cfg.LLM.Providers["gemini"].APIKey; got != "primary" {
		t.Errorf("gemini key = %q, want primary", got)
	}
}

func TestLoadLocalConfigFrom_DotEnv(t *testing.T) {
	dir := isolate(t)
	// blank but set would shadow .env, so unset; t.Setenv restores it
	os.Unsetenv("PYMASTER_BIND")
	writeFile(t, filepath.Join(dir, ".env"), "PYMASTER_BIND=0.0.0.0\n")

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if cfg.Daemon.Bind != "0.0.0.0" {
		t.Errorf("Daemon.Bind = %q, want value from .env", cfg.Daemon.Bind)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*LocalConfig)
		wantErr bool
	}{
		{"defaults", func(*LocalConfig) {}, false},
		{"bad port", func(c *LocalConfig) { c.Daemon.Port = 70000 }, true},
		{"unknown storage", func(c *LocalConfig) { c.Storage.Backend = "mongo" }, true},
		{"postgres without url", func(c *LocalConfig) { c.Storage.Backend = StoragePostgres }, true},
		{"postgres with url", func(c *LocalConfig) {
			c.Storage.Backend = StoragePostgres
			c.Storage.PostgresURL = "postgres://localhost/pymaster"
		}, false},
		{"redis without url", func(c *LocalConfig) { c.Handoff.Backend = HandoffRedis }, true},
		{"unknown handoff", func(c *LocalConfig) { c.Handoff.Backend = "etcd" }, true},
		{"amqp without url", func(c *LocalConfig) { c.Events.Backend = EventsAMQP }, true},
		{"unknown events", func(c *LocalConfig) { c.Events.Backend = "kafka" }, true},
		{"sqlite events", func(c *LocalConfig) { c.Events.Backend = EventsSQLite }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultLocalConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("error should wrap ErrInvalidConfig: %v", err)
			}
		})
	}
}

func TestSaveLocalConfig(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultLocalConfig()
	cfg.Daemon.Port = 8000
	if err := SaveLocalConfig(cfg); err != nil {
		t.Fatalf("SaveLocalConfig() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var saved LocalConfig
	if err := yaml.Unmarshal(data, &saved); err != nil {
		t.Fatalf("parse saved config: %v", err)
	}
	if saved.Daemon.Port != 8000 {
		t.Errorf("saved port = %d, want 8000", saved.Daemon.Port)
	}
}

func TestSaveSecrets(t *testing.T) {
	dir := isolate(t)

	if err := SaveSecrets(map[string]string{"gemini": "gm-123"}); err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}

	path := filepath.Join(dir, "secrets.yaml")
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat secrets: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("secrets perm = %o, want 0600", perm)
	}

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if got := cfg.LLM.Providers["gemini"].APIKey; got != "gm-123" {
		t.Errorf("gemini key = %q, want gm-123", got)
	}
}

func TestAPIKeyNotSerialized(t *testing.T) {
	cfg := DefaultLocalConfig()
	cfg.LLM.Providers["gemini"].APIKey = "secret-value"

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "secret-value") {
		t.Error("API key must not be written to config.yaml")
	}
}

func TestSetProviderKey_KeepsOthers(t *testing.T) {
	dir := isolate(t)

	if err := SaveSecrets(map[string]string{"claude": "sk-ant"}); err != nil {
		t.Fatalf("SaveSecrets() error = %v", err)
	}
	if err := SetProviderKey("gemini", "gm-456"); err != nil {
		t.Fatalf("SetProviderKey() error = %v", err)
	}

	cfg, err := LoadLocalConfigFrom(dir)
	if err != nil {
		t.Fatalf("LoadLocalConfigFrom() error = %v", err)
	}
	if got := cfg.LLM.Providers["claude"].APIKey; got != "sk-ant" {
		t.Errorf("claude key = %q, want sk-ant", got)
	}
	if got := cfg.LLM.Providers["gemini"].APIKey; got != "gm-456" {
		t.Errorf("gemini key = %q, want gm-456", got)
	}
}

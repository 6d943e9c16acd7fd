package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/config"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
	"github.com/NgTruc2025/python-ntt/internal/llm"
	"github.com/NgTruc2025/python-ntt/internal/profile"
	"github.com/NgTruc2025/python-ntt/internal/storage/local"
	"github.com/NgTruc2025/python-ntt/internal/storage/postgres"
	"github.com/NgTruc2025/python-ntt/internal/storage/sqlite"
)

// sqliteFile is the database used by the sqlite storage and events backends.
const sqliteFile = "pymaster.db"

const healthTimeout = 2 * time.Second

// backends opens the configured storage, handoff and event sinks and
// remembers how to close them.
type backends struct {
	dataDir string
	sqlite  *sqlite.DB
	closers []func() error
	checks  map[string]func(context.Context) error
}

func (b *backends) onClose(fn func() error) {
	b.closers = append(b.closers, fn)
}

// onCheck registers a liveness check for a networked or file backend.
func (b *backends) onCheck(name string, fn func(context.Context) error) {
	if b.checks == nil {
		b.checks = make(map[string]func(context.Context) error)
	}
	b.checks[name] = fn
}

// Health runs every registered check and reports "ok" or the error text
// per backend. In-memory and file backends have no entry.
func (b *backends) Health(ctx context.Context) map[string]string {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	health := make(map[string]string, len(b.checks))
	for name, check := range b.checks {
		if err := check(ctx); err != nil {
			health[name] = err.Error()
			continue
		}
		health[name] = "ok"
	}
	return health
}

// Close releases everything in reverse open order.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}

// sqliteDB opens the shared SQLite database on first use.
func (b *backends) sqliteDB(ctx context.Context) (*sqlite.DB, error) {
	if b.sqlite != nil {
		return b.sqlite, nil
	}
	db, err := sqlite.Open(filepath.Join(b.dataDir, sqliteFile))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	b.sqlite = db
	b.onClose(db.Close)
	b.onCheck("sqlite", db.PingContext)
	return db, nil
}

func (b *backends) profileStore(ctx context.Context, cfg config.StorageConfig) (profile.Store, error) {
	switch cfg.Backend {
	case config.StorageSQLite:
		db, err := b.sqliteDB(ctx)
		if err != nil {
			return nil, err
		}
		return sqlite.NewProfileStore(db), nil

	case config.StoragePostgres:
		db, err := postgres.Open(ctx, cfg.PostgresURL, int(cfg.MaxConns))
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		b.onClose(func() error { db.Close(); return nil })
		b.onCheck("postgres", db.HealthCheck)
		return postgres.NewProfileStore(db), nil

	default:
		store, err := local.NewStore(b.dataDir)
		if err != nil {
			return nil, err
		}
		return profile.NewJSONStore(store), nil
	}
}

// handoffChannel falls back to the in-memory channel when Redis is
// unreachable.
func (b *backends) handoffChannel(ctx context.Context, cfg config.HandoffConfig) handoff.Channel {
	if cfg.Backend != config.HandoffRedis {
		return handoff.NewMemoryChannel()
	}
	ch, err := handoff.NewRedisChannel(ctx, cfg.RedisURL, cfg.TTL)
	if err != nil {
		slog.Warn("redis handoff not available, using memory", "error", err)
		return handoff.NewMemoryChannel()
	}
	b.onClose(ch.Close)
	b.onCheck("redis", ch.HealthCheck)
	return ch
}

// eventSink returns the activity publisher, or nil when events are off. The
// activity log is set only for the sqlite backend.
func (b *backends) eventSink(ctx context.Context, cfg config.EventsConfig) (events.Publisher, *sqlite.ActivityLog) {
	switch cfg.Backend {
	case config.EventsAMQP:
		conn, err := events.NewConnection(cfg.AMQPURL)
		if err != nil {
			slog.Warn("activity events disabled", "backend", cfg.Backend, "error", err)
			return nil, nil
		}
		b.onClose(conn.Close)
		return events.NewAMQPPublisher(conn), nil

	case config.EventsSQLite:
		db, err := b.sqliteDB(ctx)
		if err != nil {
			slog.Warn("activity events disabled", "backend", cfg.Backend, "error", err)
			return nil, nil
		}
		log := sqlite.NewActivityLog(db)
		return log, log

	default:
		return nil, nil
	}
}

// SetupLLMProviders registers every enabled provider that has credentials,
// each behind the resilience wrapper, and returns the per-provider models.
func SetupLLMProviders(registry *llm.Registry, cfg config.LLMConfig) map[string]generation.Models {
	resilience := llm.DefaultResilientConfig()
	resilience.EnableRetry = cfg.Resilience.Retry
	if cfg.Resilience.MaxConcurrent > 0 {
		resilience.MaxConcurrent = cfg.Resilience.MaxConcurrent
	}
	if cfg.Resilience.RatePerSecond > 0 {
		resilience.RatePerSecond = cfg.Resilience.RatePerSecond
	}

	models := make(map[string]generation.Models)
	for name, providerCfg := range cfg.Providers {
		if !providerCfg.Enabled {
			continue
		}

		var provider llm.Provider
		switch name {
		case "gemini":
			if providerCfg.APIKey == "" {
				slog.Debug("Gemini provider enabled but no API key set")
				continue
			}
			provider = llm.NewGeminiProvider(llm.GeminiConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "claude":
			if providerCfg.APIKey == "" {
				slog.Debug("Claude provider enabled but no API key set")
				continue
			}
			provider = llm.NewClaudeProvider(llm.ClaudeConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "openai":
			if providerCfg.APIKey == "" {
				slog.Debug("OpenAI provider enabled but no API key set")
				continue
			}
			provider = llm.NewOpenAIProvider(llm.OpenAIConfig{
				APIKey: providerCfg.APIKey,
				Model:  providerCfg.Model,
			})
		case "ollama":
			provider = llm.NewOllamaProvider(llm.OllamaConfig{
				BaseURL: providerCfg.URL,
				Model:   providerCfg.Model,
			})
		default:
			slog.Warn("unknown LLM provider in config", "name", name)
			continue
		}

		registry.Register(name, llm.NewResilientProvider(provider, resilience))
		models[name] = generation.Models{Reasoning: providerCfg.Model, Fast: providerCfg.FastModel}
		slog.Info("registered LLM provider", "name", name, "model", providerCfg.Model, "fast_model", providerCfg.FastModel)
	}

	if err := registry.SetDefault(cfg.DefaultProvider); err != nil {
		slog.Warn("default LLM provider not registered, choosing automatically",
			"provider", cfg.DefaultProvider,
			"error", err,
		)
	}
	return models
}

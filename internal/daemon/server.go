// Package daemon serves the PyMaster HTTP API: catalog reads, the learner
// profile and the per-tab view controllers.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/config"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
	"github.com/NgTruc2025/python-ntt/internal/llm"
	"github.com/NgTruc2025/python-ntt/internal/metrics"
	"github.com/NgTruc2025/python-ntt/internal/profile"
	"github.com/NgTruc2025/python-ntt/internal/storage/sqlite"
	"github.com/NgTruc2025/python-ntt/internal/tab"
)

// tabCleanupInterval is how often idle tabs are reaped.
const tabCleanupInterval = 5 * time.Minute

// Server represents the PyMaster daemon HTTP server
type Server struct {
	cfg     *config.LocalConfig
	version string
	server  *http.Server
	router  *http.ServeMux
	handler http.Handler

	// Services
	catalog   *catalog.Catalog
	registry  llm.LLMRegistry
	generator *generation.Client
	profiles  *profile.Service
	tabs      *tab.Manager
	metrics   *metrics.Metrics
	activity  *sqlite.ActivityLog
	backends  *backends
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config  *config.LocalConfig
	DataDir string // default: ~/.pymaster
	Version string

	// Optional overrides for the configured backends.
	Catalog  *catalog.Catalog
	Registry llm.LLMRegistry
	Profiles profile.Store
	Handoff  handoff.Channel
	Events   events.Publisher
}

// NewServer creates a new daemon server. The tab cleanup loop runs until
// ctx is done.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	if cfg.Config == nil {
		cfg.Config = config.DefaultLocalConfig()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.DataDir == "" {
		dir, err := config.PyMasterDir()
		if err != nil {
			return nil, fmt.Errorf("get pymaster dir: %w", err)
		}
		cfg.DataDir = dir
	}

	s := &Server{
		cfg:      cfg.Config,
		version:  cfg.Version,
		router:   http.NewServeMux(),
		metrics:  metrics.New(),
		backends: &backends{dataDir: filepath.Join(cfg.DataDir, "data")},
	}

	ok := false
	defer func() {
		if !ok {
			s.backends.Close()
		}
	}()

	// Content
	s.catalog = cfg.Catalog
	if s.catalog == nil {
		var err error
		if cfg.Config.Content.Path != "" {
			s.catalog, err = catalog.LoadDir(cfg.Config.Content.Path)
		} else {
			s.catalog, err = catalog.Load()
		}
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
	}

	// Profile store
	store := cfg.Profiles
	if store == nil {
		var err error
		store, err = s.backends.profileStore(ctx, cfg.Config.Storage)
		if err != nil {
			return nil, fmt.Errorf("open profile store: %w", err)
		}
	}
	s.profiles = profile.NewService(store)

	// LLM providers
	models := map[string]generation.Models{}
	s.registry = cfg.Registry
	if s.registry == nil {
		registry := llm.NewRegistry()
		models = SetupLLMProviders(registry, cfg.Config.LLM)
		s.registry = registry
		s.backends.onClose(registry.Close)
	}
	s.generator = generation.NewClient(generation.Config{
		Registry:    s.registry,
		Models:      models,
		MaxTokens:   cfg.Config.LLM.MaxTokens,
		Temperature: cfg.Config.LLM.Temperature,
		Observe:     s.metrics.ObserveGeneration,
	})

	// Handoff and activity events
	channel := cfg.Handoff
	if channel == nil {
		channel = s.backends.handoffChannel(ctx, cfg.Config.Handoff)
	}
	publisher := cfg.Events
	if publisher == nil {
		publisher, s.activity = s.backends.eventSink(ctx, cfg.Config.Events)
	}

	s.tabs = tab.NewManager(tab.Config{
		Catalog:   s.catalog,
		Generator: s.generator,
		Tutor:     s.generator,
		Handoff:   channel,
		Events:    events.NewRecorder(publisher),
		IdleTTL:   cfg.Config.Tabs.IdleTimeout,
		MaxTabs:   cfg.Config.Tabs.MaxOpen,
	})
	s.tabs.StartCleanupLoop(ctx, tabCleanupInterval)
	s.metrics.RegisterGauge("open_tabs", "Number of open client tabs", func() float64 {
		return float64(s.tabs.Count())
	})

	s.setupRoutes()

	// Create HTTP server with middleware chain. Metrics sit next to the mux
	// so they see the matched route pattern.
	s.handler = recoveryMiddleware(correlationIDMiddleware(loggingMiddleware(s.metrics.Middleware(s.router))))
	addr := fmt.Sprintf("%s:%d", cfg.Config.Daemon.Bind, cfg.Config.Daemon.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // model calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	ok = true
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	// Health & status
	s.router.HandleFunc("GET /v1/health", s.handleHealth)
	s.router.HandleFunc("GET /v1/status", s.handleStatus)
	s.router.HandleFunc("GET /v1/config", s.handleGetConfig)
	s.router.Handle("GET /metrics", s.metrics.Handler())
	s.router.HandleFunc("GET /v1/activity", s.handleActivity)

	// Profile
	s.router.HandleFunc("GET /v1/profile", s.handleGetProfile)
	s.router.HandleFunc("POST /v1/profile", s.handleRegister)
	s.router.HandleFunc("DELETE /v1/profile", s.handleLogout)

	// Catalog
	s.router.HandleFunc("GET /v1/catalog/functions", s.handleCatalogFunctions)
	s.router.HandleFunc("GET /v1/catalog/libraries", s.handleCatalogLibraries)
	s.router.HandleFunc("GET /v1/catalog/topics", s.handleCatalogTopics)
	s.router.HandleFunc("GET /v1/catalog/topics/{id}", s.handleCatalogTopic)
	s.router.HandleFunc("GET /v1/catalog/exercises", s.handleCatalogExercises)

	// Tabs
	s.router.HandleFunc("POST /v1/tabs", s.handleCreateTab)
	s.router.HandleFunc("GET /v1/tabs", s.handleListTabs)
	s.router.HandleFunc("DELETE /v1/tabs/{id}", s.handleCloseTab)

	// Function lookup & library explorer
	s.router.HandleFunc("GET /v1/tabs/{id}/functions", s.handleFunctions)
	s.router.HandleFunc("POST /v1/tabs/{id}/functions/select", s.handleSelectFunction)
	s.router.HandleFunc("GET /v1/tabs/{id}/libraries", s.handleLibraries)
	s.router.HandleFunc("POST /v1/tabs/{id}/libraries/select", s.handleSelectLibrary)

	// Knowledge base
	s.router.HandleFunc("GET /v1/tabs/{id}/knowledge", s.handleKnowledge)
	s.router.HandleFunc("POST /v1/tabs/{id}/knowledge/select", s.handleSelectTopic)
	s.router.HandleFunc("POST /v1/tabs/{id}/knowledge/quiz", s.handleGenerateQuiz)
	s.router.HandleFunc("POST /v1/tabs/{id}/knowledge/quiz/answer", s.handleAnswerQuiz)
	s.router.HandleFunc("POST /v1/tabs/{id}/knowledge/practice", s.handlePracticeTopic)

	// Practice arena
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/mount", s.handleMountPractice)
	s.router.HandleFunc("GET /v1/tabs/{id}/practice", s.handlePractice)
	s.router.HandleFunc("GET /v1/tabs/{id}/practice/topics", s.handlePracticeTopics)
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/select", s.handleSelectExercise)
	s.router.HandleFunc("PUT /v1/tabs/{id}/practice/code", s.handleSetCode)
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/reset", s.handleResetCode)
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/hint", s.handleToggleHint)
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/check", s.handleCheckCode)
	s.router.HandleFunc("POST /v1/tabs/{id}/practice/generate", s.handleGenerateExercise)

	// Tutor chat
	s.router.HandleFunc("POST /v1/tabs/{id}/tutor", s.handleOpenTutor)
	s.router.HandleFunc("GET /v1/tabs/{id}/tutor", s.handleGetTutor)
	s.router.HandleFunc("POST /v1/tabs/{id}/tutor/messages", s.handleTutorMessage)
	s.router.HandleFunc("DELETE /v1/tabs/{id}/tutor", s.handleCloseTutor)
}

// Handler returns the full middleware chain, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	slog.Info("starting pymaster daemon",
		"addr", s.server.Addr,
		"version", s.version,
		"llm_providers", s.registry.List(),
		"storage", s.cfg.Storage.Backend,
		"handoff", s.cfg.Handoff.Backend,
	)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server and closes the backends
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("shutting down daemon...")

	err := s.server.Shutdown(ctx)
	if cerr := s.backends.Close(); cerr != nil {
		slog.Warn("failed to close backends", "error", cerr)
	}
	return err
}

// Helper methods

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (s *Server) jsonError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]any{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	s.jsonResponse(w, status, response)
}

// maxBodyBytes bounds request bodies; submitted code is the largest input.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

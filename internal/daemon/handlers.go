package daemon

import (
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"status":        "running",
		"version":       s.version,
		"llm_providers": s.registry.List(),
		"storage":       s.cfg.Storage.Backend,
		"handoff":       s.cfg.Handoff.Backend,
		"events":        s.cfg.Events.Backend,
		"open_tabs":     s.tabs.Count(),
		"registered":    s.profiles.Registered(r.Context()),
		"backends":      s.backends.Health(r.Context()),
	})
}

type providerView struct {
	Name       string `json:"name"`
	Enabled    bool   `json:"enabled"`
	Model      string `json:"model"`
	FastModel  string `json:"fast_model,omitempty"`
	Configured bool   `json:"configured"`
}

// handleGetConfig returns the configuration without secrets or URLs that
// may embed credentials.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	providers := make([]providerView, 0, len(s.cfg.LLM.Providers))
	for name, p := range s.cfg.LLM.Providers {
		providers = append(providers, providerView{
			Name:       name,
			Enabled:    p.Enabled,
			Model:      p.Model,
			FastModel:  p.FastModel,
			Configured: p.APIKey != "" || name == "ollama",
		})
	}
	slices.SortFunc(providers, func(a, b providerView) int { return strings.Compare(a.Name, b.Name) })

	s.jsonResponse(w, http.StatusOK, map[string]any{
		"daemon":           s.cfg.Daemon,
		"default_provider": s.cfg.LLM.DefaultProvider,
		"providers":        providers,
		"storage":          s.cfg.Storage.Backend,
		"handoff":          map[string]any{"backend": s.cfg.Handoff.Backend, "ttl": s.cfg.Handoff.TTL.String()},
		"events":           s.cfg.Events.Backend,
		"tabs":             map[string]any{"idle_timeout": s.cfg.Tabs.IdleTimeout.String(), "max_open": s.cfg.Tabs.MaxOpen},
	})
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	if s.activity == nil {
		s.jsonError(w, http.StatusNotFound, "activity log not enabled", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	recent, err := s.activity.Recent(r.Context(), limit)
	if err != nil {
		s.fail(w, r, "failed to read activity", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"events": recent})
}

// Profile handlers

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	learner, err := s.profiles.Current(r.Context())
	if errors.Is(err, domain.ErrNotRegistered) {
		s.jsonError(w, http.StatusNotFound, "learner not registered", nil)
		return
	}
	if err != nil {
		s.fail(w, r, "failed to load profile", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, learner)
}

type registerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.jsonError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	learner, err := s.profiles.Register(r.Context(), req.Name, req.Email)
	if err != nil {
		s.fail(w, r, "failed to register", err)
		return
	}
	s.tabs.CloseTutors()
	s.jsonResponse(w, http.StatusCreated, learner)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Logout(r.Context()); err != nil {
		s.fail(w, r, "failed to log out", err)
		return
	}
	s.tabs.CloseTutors()
	s.jsonResponse(w, http.StatusOK, map[string]any{"status": "logged_out"})
}

// Catalog handlers

func (s *Server) handleCatalogFunctions(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"functions": s.catalog.SearchFunctions(r.URL.Query().Get("q")),
	})
}

func (s *Server) handleCatalogLibraries(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"libraries": s.catalog.SearchLibraries(r.URL.Query().Get("q")),
	})
}

type topicSummary struct {
	ID       string `json:"id"`
	Category string `json:"category"`
	Title    string `json:"title"`
}

func (s *Server) handleCatalogTopics(w http.ResponseWriter, r *http.Request) {
	topics := lo.Map(s.catalog.Topics(), func(t domain.Topic, _ int) topicSummary {
		return topicSummary{ID: t.ID, Category: t.Category, Title: t.Title}
	})
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"categories": s.catalog.Categories(),
		"topics":     topics,
	})
}

func (s *Server) handleCatalogTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.catalog.Topic(r.PathValue("id"))
	if err != nil {
		s.fail(w, r, "topic not found", err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"topic":    topic,
		"segments": catalog.RenderTopic(topic.Content),
	})
}

func (s *Server) handleCatalogExercises(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"exercises": s.catalog.Exercises(),
	})
}

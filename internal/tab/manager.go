package tab

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
	"github.com/NgTruc2025/python-ntt/internal/views"
)

const (
	// DefaultMaxTabs limits the number of open tabs.
	DefaultMaxTabs = 64
	// DefaultIdleTTL is the default time before an idle tab is closed.
	DefaultIdleTTL = 2 * time.Hour
)

// ErrMaxTabs is returned when the open tab limit is reached.
var ErrMaxTabs = errors.New("maximum open tabs reached")

// Config configures a Manager
type Config struct {
	Catalog   *catalog.Catalog
	Generator generation.Generator
	Tutor     generation.Tutor
	Handoff   handoff.Channel
	Events    *events.Recorder

	IdleTTL time.Duration
	MaxTabs int
	Now     func() time.Time
}

// Manager creates, looks up and reaps tabs.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	tabs map[string]*Tab
}

// NewManager creates a new tab manager.
func NewManager(cfg Config) *Manager {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.MaxTabs <= 0 {
		cfg.MaxTabs = DefaultMaxTabs
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{cfg: cfg, tabs: make(map[string]*Tab)}
}

// Create opens a new tab with fresh view state.
func (m *Manager) Create() (*Tab, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.tabs) >= m.cfg.MaxTabs {
		return nil, ErrMaxTabs
	}

	now := m.cfg.Now()
	id := uuid.New().String()
	env := views.Env{
		TabID:     id,
		Catalog:   m.cfg.Catalog,
		Generator: m.cfg.Generator,
		Handoff:   m.cfg.Handoff,
		Events:    m.cfg.Events,
	}
	t := &Tab{
		ID:        id,
		CreatedAt: now,
		Functions: views.NewFunctionLookup(m.cfg.Catalog),
		Libraries: views.NewLibraryExplorer(m.cfg.Catalog),
		Knowledge: views.NewKnowledgeBase(env),
		Practice:  views.NewPracticeArena(env),
		lastSeen:  now,
		opener:    m.cfg.Tutor,
	}
	m.tabs[id] = t

	slog.Debug("tab opened", "tab_id", id)
	return t, nil
}

// Get returns a tab and marks it as used.
func (m *Manager) Get(id string) (*Tab, error) {
	m.mu.Lock()
	t, ok := m.tabs[id]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: tab %s", domain.ErrNotFound, id)
	}
	t.touch(m.cfg.Now())
	return t, nil
}

// Close discards a tab, its tutor session and any pending handoff.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	delete(m.tabs, id)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: tab %s", domain.ErrNotFound, id)
	}
	m.release(t)
	return nil
}

func (m *Manager) release(t *Tab) {
	t.CloseTutor()
	if d, ok := m.cfg.Handoff.(interface{ Drop(string) }); ok {
		d.Drop(t.ID)
	}
}

// List returns every open tab, oldest first.
func (m *Manager) List() []Info {
	m.mu.Lock()
	tabs := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabs = append(tabs, t)
	}
	m.mu.Unlock()

	infos := make([]Info, 0, len(tabs))
	for _, t := range tabs {
		infos = append(infos, t.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].CreatedAt.Before(infos[j].CreatedAt) })
	return infos
}

// CloseTutors ends the tutor session in every open tab. Sessions are bound
// to the learner who opened them.
func (m *Manager) CloseTutors() {
	m.mu.Lock()
	tabs := make([]*Tab, 0, len(m.tabs))
	for _, t := range m.tabs {
		tabs = append(tabs, t)
	}
	m.mu.Unlock()

	for _, t := range tabs {
		t.CloseTutor()
	}
}

// Count returns the number of open tabs.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tabs)
}

// Cleanup closes tabs idle for longer than the configured TTL.
func (m *Manager) Cleanup() int {
	cutoff := m.cfg.Now().Add(-m.cfg.IdleTTL)

	m.mu.Lock()
	var expired []*Tab
	for id, t := range m.tabs {
		if t.LastSeen().Before(cutoff) {
			expired = append(expired, t)
			delete(m.tabs, id)
		}
	}
	m.mu.Unlock()

	for _, t := range expired {
		m.release(t)
	}
	if len(expired) > 0 {
		slog.Info("tab cleanup complete", "closed", len(expired))
	}
	return len(expired)
}

// StartCleanupLoop periodically closes idle tabs until ctx is done.
func (m *Manager) StartCleanupLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}

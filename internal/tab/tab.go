// Package tab tracks the open clients of the daemon. Each tab owns its own
// view controllers, handoff slot and tutor chat.
package tab

import (
	"sync"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/views"
)

// Tab is one open client session.
type Tab struct {
	ID        string
	CreatedAt time.Time

	Functions *views.FunctionLookup
	Libraries *views.LibraryExplorer
	Knowledge *views.KnowledgeBase
	Practice  *views.PracticeArena

	mu       sync.Mutex
	lastSeen time.Time
	tutor    *generation.TutorSession
	opener   generation.Tutor
}

// Info is the summary returned when listing tabs.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
	TutorOpen bool      `json:"tutor_open"`
}

func (t *Tab) touch(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = now
}

// LastSeen returns when the tab was last used.
func (t *Tab) LastSeen() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen
}

// Tutor returns the tab's chat session, opening it on first use.
func (t *Tab) Tutor(learnerName string) *generation.TutorSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tutor == nil {
		t.tutor = t.opener.OpenTutor(learnerName)
	}
	return t.tutor
}

// OpenTutorSession returns the chat session if one is open.
func (t *Tab) OpenTutorSession() (*generation.TutorSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tutor, t.tutor != nil
}

// CloseTutor discards the chat session and its history.
func (t *Tab) CloseTutor() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.tutor = nil
}

// Info summarizes the tab.
func (t *Tab) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		ID:        t.ID,
		CreatedAt: t.CreatedAt,
		LastSeen:  t.lastSeen,
		TutorOpen: t.tutor != nil,
	}
}

// Package views holds the per-tab state machines behind the four learning
// screens. Each controller owns its state; nothing is shared between them.
//
// Controllers that call the model tag every request with the selection
// counter current when it started. A reply that comes back after the
// selection moved on is dropped and reported as domain.ErrStale.
package views

import (
	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
)

// State is the coarse state of a view
type State string

const (
	StateIdle               State = "idle"
	StateSelected           State = "selected"
	StateAwaitingGeneration State = "awaiting_generation"
)

// PracticePath is the navigation target after a topic exercise is handed off.
const PracticePath = "/practice"

// Env carries the collaborators of the generating views of one tab.
type Env struct {
	TabID     string
	Catalog   *catalog.Catalog
	Generator generation.Generator
	Handoff   handoff.Channel
	Events    *events.Recorder
}

// Navigation asks the client to switch screens.
type Navigation struct {
	Path       string `json:"path"`
	ExerciseID string `json:"exercise_id,omitempty"`
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

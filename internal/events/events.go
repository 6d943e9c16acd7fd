// Package events records generation activity. Events carry the kind of call,
// the tab it came from and the outcome; never learner data or content.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Type identifies the generation call an event describes.
type Type string

const (
	ExerciseGenerated Type = "exercise.generated"
	QuizGenerated     Type = "quiz.generated"
	CodeAnalyzed      Type = "code.analyzed"
)

// Outcome of a generation call.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeFailed   Outcome = "failed"
	OutcomeFallback Outcome = "fallback"
)

// Event is one generation activity record.
type Event struct {
	ID      uuid.UUID `json:"id"`
	Type    Type      `json:"type"`
	TabID   string    `json:"tab_id"`
	Outcome Outcome   `json:"outcome"`
	At      time.Time `json:"at"`
}

// Publisher delivers events to a sink.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Recorder stamps and publishes events. Publish failures are logged and
// never returned. A nil Recorder discards everything.
type Recorder struct {
	pub Publisher
	now func() time.Time
}

// NewRecorder creates a recorder over pub. A nil pub yields a recorder that
// discards events.
func NewRecorder(pub Publisher) *Recorder {
	return &Recorder{pub: pub, now: time.Now}
}

// Record publishes one event.
func (r *Recorder) Record(ctx context.Context, typ Type, tabID string, outcome Outcome) {
	if r == nil || r.pub == nil {
		return
	}
	ev := Event{
		ID:      uuid.New(),
		Type:    typ,
		TabID:   tabID,
		Outcome: outcome,
		At:      r.now().UTC(),
	}
	if err := r.pub.Publish(ctx, ev); err != nil {
		slog.Warn("failed to publish activity event",
			"type", typ,
			"tab_id", tabID,
			"error", err,
		)
	}
}

// OutcomeOf maps an error to an outcome.
func OutcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeFailed
	}
	return OutcomeOK
}

// MemoryPublisher keeps events in memory. It backs tests and the
// in-process activity feed.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// Publish appends ev.
func (m *MemoryPublisher) Publish(_ context.Context, ev Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Event(nil), m.events...)
}

package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/google/uuid"
)

func TestActivityLog_PublishRecent(t *testing.T) {
	log := NewActivityLog(openTestDB(t))
	ctx := context.Background()
	base := time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)

	for i, typ := range []events.Type{events.CodeAnalyzed, events.QuizGenerated, events.ExerciseGenerated} {
		ev := events.Event{
			ID:      uuid.New(),
			Type:    typ,
			TabID:   "tab-1",
			Outcome: events.OutcomeOK,
			At:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := log.Publish(ctx, ev); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	got, err := log.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent() len = %d; want 2", len(got))
	}
	if got[0].Type != events.ExerciseGenerated {
		t.Errorf("newest event type = %q; want %q", got[0].Type, events.ExerciseGenerated)
	}
	if got[1].Type != events.QuizGenerated {
		t.Errorf("second event type = %q; want %q", got[1].Type, events.QuizGenerated)
	}
}

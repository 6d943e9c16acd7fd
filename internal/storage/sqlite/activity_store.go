package sqlite

import (
	"context"
	"fmt"

	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/google/uuid"
)

// ActivityLog stores generation activity events in the local database.
type ActivityLog struct {
	db *DB
}

// NewActivityLog creates a new SQLite-backed activity log.
func NewActivityLog(db *DB) *ActivityLog {
	return &ActivityLog{db: db}
}

// Publish inserts one event.
func (a *ActivityLog) Publish(ctx context.Context, ev events.Event) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO activity_log (id, type, tab_id, outcome, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		ev.ID.String(), string(ev.Type), ev.TabID, string(ev.Outcome), ev.At.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert activity event: %w", err)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (a *ActivityLog) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, type, tab_id, outcome, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			ev            events.Event
			id, typ, outc string
		)
		if err := rows.Scan(&id, &typ, &ev.TabID, &outc, &ev.At); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("parse activity id %q: %w", id, err)
		}
		ev.ID = parsed
		ev.Type = events.Type(typ)
		ev.Outcome = events.Outcome(outc)
		out = append(out, ev)
	}
	return out, rows.Err()
}

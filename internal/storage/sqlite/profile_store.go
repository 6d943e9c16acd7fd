package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/profile"
)

// ProfileStore implements profile persistence backed by SQLite.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new SQLite-backed profile store.
func NewProfileStore(db *DB) *ProfileStore {
	return &ProfileStore{db: db}
}

// Save upserts the single profile row.
func (s *ProfileStore) Save(ctx context.Context, l *domain.Learner) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.Normalize()

	topics, err := json.Marshal(l.CompletedTopics)
	if err != nil {
		return fmt.Errorf("marshal completed_topics: %w", err)
	}
	exercises, err := json.Marshal(l.CompletedExercises)
	if err != nil {
		return fmt.Errorf("marshal completed_exercises: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO learner_profile (key, name, email, enrolled_at,
			completed_topics, completed_exercises, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name=excluded.name,
			email=excluded.email,
			enrolled_at=excluded.enrolled_at,
			completed_topics=excluded.completed_topics,
			completed_exercises=excluded.completed_exercises,
			updated_at=excluded.updated_at`,
		profile.RecordKey, l.Name, l.Email, l.EnrolledAt.UTC(),
		string(topics), string(exercises), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Load reads the profile row. Rows whose completion sets cannot be decoded
// are treated as absent.
func (s *ProfileStore) Load(ctx context.Context) (*domain.Learner, error) {
	var (
		l                 domain.Learner
		topics, exercises string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT name, email, enrolled_at, completed_topics, completed_exercises
		FROM learner_profile WHERE key = ?`, profile.RecordKey,
	).Scan(&l.Name, &l.Email, &l.EnrolledAt, &topics, &exercises)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if err := json.Unmarshal([]byte(topics), &l.CompletedTopics); err != nil {
		slog.Warn("discarding unreadable learner profile", "field", "completed_topics", "error", err)
		return nil, domain.ErrNotFound
	}
	if err := json.Unmarshal([]byte(exercises), &l.CompletedExercises); err != nil {
		slog.Warn("discarding unreadable learner profile", "field", "completed_exercises", "error", err)
		return nil, domain.ErrNotFound
	}
	l.Normalize()
	return &l, nil
}

// Clear deletes the profile row. Clearing an absent profile succeeds.
func (s *ProfileStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM learner_profile WHERE key = ?", profile.RecordKey); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

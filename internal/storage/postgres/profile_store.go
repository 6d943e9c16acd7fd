package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/profile"
	"github.com/jackc/pgx/v5"
)

var _ profile.Store = (*ProfileStore)(nil)

// ProfileStore implements profile persistence backed by PostgreSQL.
type ProfileStore struct {
	db *DB
}

// NewProfileStore creates a new PostgreSQL-backed profile store.
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

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO learner_profile (key, name, email, enrolled_at,
			completed_topics, completed_exercises, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (key) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			enrolled_at = EXCLUDED.enrolled_at,
			completed_topics = EXCLUDED.completed_topics,
			completed_exercises = EXCLUDED.completed_exercises,
			updated_at = now()`,
		profile.RecordKey, l.Name, l.Email, l.EnrolledAt.UTC(), topics, exercises,
	)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// Load reads the profile row.
func (s *ProfileStore) Load(ctx context.Context) (*domain.Learner, error) {
	var (
		l                 domain.Learner
		topics, exercises []byte
	)
	err := s.db.Pool.QueryRow(ctx, `
		SELECT name, email, enrolled_at, completed_topics, completed_exercises
		FROM learner_profile WHERE key = $1`, profile.RecordKey,
	).Scan(&l.Name, &l.Email, &l.EnrolledAt, &topics, &exercises)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query profile: %w", err)
	}

	if err := json.Unmarshal(topics, &l.CompletedTopics); err != nil {
		slog.Warn("discarding unreadable learner profile", "field", "completed_topics", "error", err)
		return nil, domain.ErrNotFound
	}
	if err := json.Unmarshal(exercises, &l.CompletedExercises); err != nil {
		slog.Warn("discarding unreadable learner profile", "field", "completed_exercises", "error", err)
		return nil, domain.ErrNotFound
	}
	l.EnrolledAt = l.EnrolledAt.UTC()
	l.Normalize()
	return &l, nil
}

// Clear deletes the profile row. Clearing an absent profile succeeds.
func (s *ProfileStore) Clear(ctx context.Context) error {
	if _, err := s.db.Pool.Exec(ctx, "DELETE FROM learner_profile WHERE key = $1", profile.RecordKey); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

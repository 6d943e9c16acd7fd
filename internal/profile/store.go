// Package profile persists the single local learner profile and exposes
// registration on top of it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/storage/local"
)

// RecordKey is the storage key of the learner profile record.
const RecordKey = "py_master_student"

// Store persists the learner profile. Load returns domain.ErrNotFound when
// no profile exists; unreadable records are reported the same way.
type Store interface {
	Load(ctx context.Context) (*domain.Learner, error)
	Save(ctx context.Context, l *domain.Learner) error
	Clear(ctx context.Context) error
}

// JSONStore keeps the profile as a JSON file in a local record store.
type JSONStore struct {
	store *local.Store
}

// NewJSONStore creates a profile store over a local JSON store.
func NewJSONStore(store *local.Store) *JSONStore {
	return &JSONStore{store: store}
}

// Load reads the profile record.
func (s *JSONStore) Load(ctx context.Context) (*domain.Learner, error) {
	var l domain.Learner
	if err := s.store.Load(RecordKey, &l); err != nil {
		if errors.Is(err, local.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		if errors.Is(err, local.ErrCorrupt) {
			slog.Warn("discarding unreadable learner profile", "key", RecordKey, "error", err)
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if err := l.Validate(); err != nil {
		slog.Warn("discarding invalid learner profile", "key", RecordKey, "error", err)
		return nil, domain.ErrNotFound
	}
	l.Normalize()
	return &l, nil
}

// Save writes the profile record, replacing any previous one.
func (s *JSONStore) Save(ctx context.Context, l *domain.Learner) error {
	if err := l.Validate(); err != nil {
		return err
	}
	l.Normalize()
	if err := s.store.Save(RecordKey, l); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// Clear removes the profile record. Clearing an absent profile succeeds.
func (s *JSONStore) Clear(ctx context.Context) error {
	if err := s.store.Delete(RecordKey); err != nil && !errors.Is(err, local.ErrNotFound) {
		return fmt.Errorf("clear profile: %w", err)
	}
	return nil
}

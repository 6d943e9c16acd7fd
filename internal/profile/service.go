package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// Service handles registration and the current learner
type Service struct {
	store Store
	now   func() time.Time
}

// NewService creates a new profile service
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Register validates the input, stamps the enrollment time and saves the
// profile. Registering again replaces the existing learner.
func (s *Service) Register(ctx context.Context, name, email string) (*domain.Learner, error) {
	l, err := domain.NewLearner(name, email, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, l); err != nil {
		return nil, err
	}
	slog.Info("learner registered", "name", l.Name)
	return l, nil
}

// Current returns the registered learner or domain.ErrNotRegistered.
func (s *Service) Current(ctx context.Context) (*domain.Learner, error) {
	l, err := s.store.Load(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrNotRegistered
		}
		return nil, err
	}
	return l, nil
}

// Registered reports whether a learner profile exists.
func (s *Service) Registered(ctx context.Context) bool {
	_, err := s.Current(ctx)
	return err == nil
}

// Logout clears the stored profile.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		return err
	}
	slog.Info("learner logged out")
	return nil
}

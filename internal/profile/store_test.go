package profile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/storage/local"
)

func newTestJSONStore(t *testing.T) (*JSONStore, string) {
	t.Helper()
	dir := t.TempDir()
	ls, err := local.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return NewJSONStore(ls), dir
}

func TestJSONStore_RoundTrip(t *testing.T) {
	store, _ := newTestJSONStore(t)
	ctx := context.Background()

	in := &domain.Learner{
		Name:               "An",
		Email:              "an@example.com",
		EnrolledAt:         time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		CompletedTopics:    []string{"k1", "k3"},
		CompletedExercises: []string{"ex2"},
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != in.Name || out.Email != in.Email || !out.EnrolledAt.Equal(in.EnrolledAt) {
		t.Errorf("Load() = %+v, want %+v", out, in)
	}
	if len(out.CompletedTopics) != 2 || out.CompletedTopics[1] != "k3" {
		t.Errorf("CompletedTopics = %v, want [k1 k3]", out.CompletedTopics)
	}
	if len(out.CompletedExercises) != 1 {
		t.Errorf("CompletedExercises = %v, want [ex2]", out.CompletedExercises)
	}
}

func TestJSONStore_LoadAbsent(t *testing.T) {
	store, _ := newTestJSONStore(t)

	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestJSONStore_CorruptRecordIsAbsent(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{broken"},
		{"missing name", `{"email":"a@b.c","enrolledAt":"2026-01-01T00:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, dir := newTestJSONStore(t)
			path := filepath.Join(dir, RecordKey+".json")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatalf("failed to write record: %v", err)
			}

			if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
				t.Errorf("Load() error = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestJSONStore_Clear(t *testing.T) {
	store, _ := newTestJSONStore(t)
	ctx := context.Background()

	// clearing nothing is fine
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() on empty store error = %v", err)
	}

	l, _ := domain.NewLearner("An", "an@example.com", time.Now())
	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() after Clear error = %v, want ErrNotFound", err)
	}
}

func TestJSONStore_SaveRejectsInvalid(t *testing.T) {
	store, _ := newTestJSONStore(t)

	err := store.Save(context.Background(), &domain.Learner{Name: "An"})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Save() error = %v, want ErrInvalidInput", err)
	}
}

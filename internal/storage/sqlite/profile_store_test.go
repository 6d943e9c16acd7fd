package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/profile"
)

func TestProfileStore_SaveLoad(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	in := &domain.Learner{
		Name:               "An",
		Email:              "an@example.com",
		EnrolledAt:         time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC),
		CompletedTopics:    []string{"k1"},
		CompletedExercises: []string{"ex1", "ex2"},
	}
	if err := store.Save(ctx, in); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != "An" || out.Email != "an@example.com" {
		t.Errorf("Load() = %+v", out)
	}
	if !out.EnrolledAt.Equal(in.EnrolledAt) {
		t.Errorf("EnrolledAt = %v; want %v", out.EnrolledAt, in.EnrolledAt)
	}
	if len(out.CompletedExercises) != 2 {
		t.Errorf("CompletedExercises = %v; want 2 entries", out.CompletedExercises)
	}
}

func TestProfileStore_SingleRow(t *testing.T) {
	db := openTestDB(t)
	store := NewProfileStore(db)
	ctx := context.Background()

	for _, name := range []string{"An", "Binh"} {
		l, _ := domain.NewLearner(name, name+"@example.com", time.Now())
		if err := store.Save(ctx, l); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM learner_profile").Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	if count != 1 {
		t.Errorf("row count = %d; want 1", count)
	}

	out, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if out.Name != "Binh" {
		t.Errorf("Name = %q; want Binh", out.Name)
	}
}

func TestProfileStore_LoadAbsent(t *testing.T) {
	store := NewProfileStore(openTestDB(t))

	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestProfileStore_CorruptRowIsAbsent(t *testing.T) {
	db := openTestDB(t)
	store := NewProfileStore(db)

	_, err := db.Exec(`INSERT INTO learner_profile (key, name, email, enrolled_at, completed_topics)
		VALUES (?, 'An', 'an@example.com', datetime('now'), '{bad')`, profile.RecordKey)
	if err != nil {
		t.Fatalf("insert corrupt row: %v", err)
	}

	if _, err := store.Load(context.Background()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() error = %v; want ErrNotFound", err)
	}
}

func TestProfileStore_Clear(t *testing.T) {
	store := NewProfileStore(openTestDB(t))
	ctx := context.Background()

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() on empty table error = %v", err)
	}

	l, _ := domain.NewLearner("An", "an@example.com", time.Now())
	if err := store.Save(ctx, l); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Load(ctx); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Load() after Clear error = %v; want ErrNotFound", err)
	}
}

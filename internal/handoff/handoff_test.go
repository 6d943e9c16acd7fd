package handoff

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

func sampleExercise(id string) *domain.Exercise {
	return &domain.Exercise{
		ID:          id,
		Title:       "Reverse a string",
		Difficulty:  domain.DifficultyEasy,
		Description: "Print the string backwards.",
		StarterCode: "s = 'abc'\n",
		Hint:        "Slicing",
		AIGenerated: true,
	}
}

func TestMemoryChannel_TakeOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryChannel()
	ex := sampleExercise("ai-1")

	if err := c.Put(ctx, "tab-1", ex); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	got, err := c.Take(ctx, "tab-1")
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if *got != *ex {
		t.Errorf("Take() = %+v, want %+v", got, ex)
	}

	if _, err := c.Take(ctx, "tab-1"); !errors.Is(err, ErrEmpty) {
		t.Errorf("second Take() error = %v, want ErrEmpty", err)
	}
}

func TestMemoryChannel_PerTabAndOverwrite(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryChannel()

	_ = c.Put(ctx, "a", sampleExercise("ai-1"))
	_ = c.Put(ctx, "a", sampleExercise("ai-2"))
	_ = c.Put(ctx, "b", sampleExercise("ai-3"))

	got, err := c.Take(ctx, "a")
	if err != nil || got.ID != "ai-2" {
		t.Errorf("Take(a) = %v, %v; want ai-2", got, err)
	}
	got, err = c.Take(ctx, "b")
	if err != nil || got.ID != "ai-3" {
		t.Errorf("Take(b) = %v, %v; want ai-3", got, err)
	}
}

func TestMemoryChannel_PutCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryChannel()
	ex := sampleExercise("ai-1")

	_ = c.Put(ctx, "a", ex)
	ex.Title = "changed"

	got, _ := c.Take(ctx, "a")
	if got.Title != "Reverse a string" {
		t.Error("Put should store a copy")
	}
}

func TestMemoryChannel_InvalidInput(t *testing.T) {
	c := NewMemoryChannel()
	if err := c.Put(context.Background(), "", sampleExercise("x")); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Put(empty tab) error = %v", err)
	}
	if err := c.Put(context.Background(), "a", nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Put(nil) error = %v", err)
	}
}

func TestMemoryChannel_ConcurrentTake(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryChannel()
	_ = c.Put(ctx, "a", sampleExercise("ai-1"))

	var wg sync.WaitGroup
	var mu sync.Mutex
	claimed := 0
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Take(ctx, "a"); err == nil {
				mu.Lock()
				claimed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if claimed != 1 {
		t.Errorf("claimed = %d, want exactly 1", claimed)
	}
}

func TestMemoryChannel_Drop(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryChannel()
	_ = c.Put(ctx, "a", sampleExercise("ai-1"))
	c.Drop("a")

	if _, err := c.Take(ctx, "a"); !errors.Is(err, ErrEmpty) {
		t.Errorf("Take() after Drop error = %v, want ErrEmpty", err)
	}
}

func TestParseURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"redis://localhost:6379/0", false},
		{"redis://:secret@cache:6379/2", false},
		{"", true},
		{"http://localhost:6379", true},
	}

	for _, tt := range tests {
		_, err := ParseURL(tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseURL(%q) error = %v, wantErr %v", tt.url, err, tt.wantErr)
		}
	}
}

package catalog

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

func TestLoad_SeedContent(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if got := len(c.Functions()); got != 8 {
		t.Errorf("Functions() len = %d, want 8", got)
	}
	if got := len(c.Libraries()); got != 10 {
		t.Errorf("Libraries() len = %d, want 10", got)
	}
	if got := len(c.Topics()); got != 9 {
		t.Errorf("Topics() len = %d, want 9", got)
	}
	if got := len(c.Exercises()); got < 9 {
		t.Errorf("Exercises() len = %d, want at least 9", got)
	}

	if first := c.Topics()[0]; first.ID != "k1" {
		t.Errorf("first topic = %q, want k1", first.ID)
	}
	ex, err := c.Exercise("ex4")
	if err != nil {
		t.Fatalf("Exercise(ex4) error = %v", err)
	}
	if ex.Difficulty != domain.DifficultyMedium {
		t.Errorf("ex4 difficulty = %q, want Medium", ex.Difficulty)
	}
	if ex.AIGenerated {
		t.Error("seed exercise marked as AI generated")
	}
}

func TestCatalog_SearchFunctions(t *testing.T) {
	c := MustLoad()

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"print", "len", "input", "range", "type", "enumerate", "zip", "sorted"}},
		{"PR", []string{"print"}},
		{"en", []string{"len", "enumerate"}},
		{"xyz", nil},
	}

	for _, tt := range tests {
		t.Run(tt.term, func(t *testing.T) {
			got := c.SearchFunctions(tt.term)
			if len(got) != len(tt.want) {
				t.Fatalf("SearchFunctions(%q) len = %d, want %d", tt.term, len(got), len(tt.want))
			}
			for i, f := range got {
				if f.Name != tt.want[i] {
					t.Errorf("SearchFunctions(%q)[%d] = %q, want %q", tt.term, i, f.Name, tt.want[i])
				}
			}
		})
	}
}

func TestCatalog_SearchLibraries(t *testing.T) {
	c := MustLoad()

	if got := len(c.SearchLibraries("")); got != 10 {
		t.Errorf("SearchLibraries(\"\") len = %d, want 10", got)
	}

	// "http" only appears in the requests description
	got := c.SearchLibraries("HTTP")
	if len(got) != 1 || got[0].Name != "requests" {
		t.Errorf("SearchLibraries(HTTP) = %v, want [requests]", got)
	}

	// "data" matches the descriptions of several libraries
	got = c.SearchLibraries("DATA")
	names := make(map[string]bool)
	for _, l := range got {
		names[l.Name] = true
	}
	if !names["pandas"] || !names["matplotlib"] {
		t.Errorf("SearchLibraries(DATA) = %v, want pandas and matplotlib", got)
	}
}

func TestCatalog_ReturnsCopies(t *testing.T) {
	c := MustLoad()

	fns := c.Functions()
	fns[0].CommonErrors[0] = "changed"
	if c.Functions()[0].CommonErrors[0] == "changed" {
		t.Error("Functions() exposes internal slices")
	}

	exs := c.Exercises()
	exs[0].Title = "changed"
	if c.Exercises()[0].Title == "changed" {
		t.Error("Exercises() exposes internal exercises")
	}
}

func TestCatalog_Lookups(t *testing.T) {
	c := MustLoad()

	if _, err := c.Function("LEN"); err != nil {
		t.Errorf("Function(LEN) error = %v", err)
	}
	if _, err := c.Library("pandas"); err != nil {
		t.Errorf("Library(pandas) error = %v", err)
	}
	if _, err := c.Topic("k9"); err != nil {
		t.Errorf("Topic(k9) error = %v", err)
	}
	if _, err := c.Topic("k99"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Topic(k99) error = %v, want ErrNotFound", err)
	}
	if _, err := c.Exercise("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Exercise(nope) error = %v, want ErrNotFound", err)
	}
}

func TestCatalog_Categories(t *testing.T) {
	c := MustLoad()

	cats := c.Categories()
	want := []string{"Basics", "Control flow", "Data structures", "Code structure", "Advanced"}
	if len(cats) != len(want) {
		t.Fatalf("Categories() = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, cats[i], want[i])
		}
	}

	if got := len(c.TopicsByCategory("Basics")); got != 3 {
		t.Errorf("TopicsByCategory(Basics) len = %d, want 3", got)
	}
}

func TestLoadDir_Overlay(t *testing.T) {
	dir := t.TempDir()
	exYAML := `exercises:
  - id: extra1
    title: Extra exercise
    difficulty: Khó
    description: Something harder.
    starter: "pass\n"
    hint: Think.
`
	if err := os.WriteFile(filepath.Join(dir, ExercisesFile), []byte(exYAML), 0644); err != nil {
		t.Fatalf("failed to write overlay: %v", err)
	}

	c, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	ex, err := c.Exercise("extra1")
	if err != nil {
		t.Fatalf("Exercise(extra1) error = %v", err)
	}
	if ex.Difficulty != domain.DifficultyHard {
		t.Errorf("difficulty = %q, want Hard", ex.Difficulty)
	}
	if got := len(c.Functions()); got != 8 {
		t.Errorf("overlay changed seed functions: len = %d", got)
	}
}

func TestLoadDir_RejectsDuplicates(t *testing.T) {
	dir := t.TempDir()
	topicYAML := `topics:
  - id: k1
    category: Basics
    title: Duplicate
    content: x
`
	if err := os.WriteFile(filepath.Join(dir, TopicsFile), []byte(topicYAML), 0644); err != nil {
		t.Fatalf("failed to write overlay: %v", err)
	}

	if _, err := LoadDir(dir); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("LoadDir() error = %v, want ErrInvalidInput", err)
	}
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("LoadDir() expected error for missing directory")
	}
}

package views

import (
	"errors"
	"strings"
	"testing"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

func TestFunctionLookup_Search(t *testing.T) {
	env := newTestEnv(t)
	v := NewFunctionLookup(env.Catalog)

	if got := len(v.Results()); got != len(env.Catalog.Functions()) {
		t.Errorf("initial results = %d, want full catalog", got)
	}
	if v.State() != StateIdle {
		t.Errorf("State() = %s, want idle", v.State())
	}

	got := v.Search("len")
	if len(got) != 1 || got[0].Name != "len" {
		t.Errorf("Search(len) = %v, want only len", got)
	}

	for _, term := range []string{"PR", "in", "zzz", ""} {
		results := v.Search(term)
		for _, f := range results {
			if !strings.Contains(strings.ToLower(f.Name), strings.ToLower(term)) {
				t.Errorf("Search(%q) returned %s", term, f.Name)
			}
		}
		want := 0
		for _, f := range env.Catalog.Functions() {
			if strings.Contains(strings.ToLower(f.Name), strings.ToLower(term)) {
				want++
			}
		}
		if len(results) != want {
			t.Errorf("Search(%q) = %d results, want %d", term, len(results), want)
		}
	}
}

func TestFunctionLookup_SelectSurvivesSearch(t *testing.T) {
	env := newTestEnv(t)
	v := NewFunctionLookup(env.Catalog)

	if _, err := v.Select("print"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	v.Search("len")

	snap := v.Snapshot()
	if snap.State != StateSelected || snap.Selected == nil || snap.Selected.Name != "print" {
		t.Errorf("Snapshot() = %+v", snap)
	}
	if snap.Term != "len" {
		t.Errorf("Term = %q", snap.Term)
	}

	v.Clear()
	if v.State() != StateIdle {
		t.Errorf("State() after Clear = %s", v.State())
	}
}

func TestFunctionLookup_SelectUnknown(t *testing.T) {
	v := NewFunctionLookup(newTestEnv(t).Catalog)
	if _, err := v.Select("nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Select() error = %v, want ErrNotFound", err)
	}
	if v.State() != StateIdle {
		t.Error("failed select should not change state")
	}
}

func TestLibraryExplorer_SearchesDescription(t *testing.T) {
	v := NewLibraryExplorer(newTestEnv(t).Catalog)

	got := v.Search("http")
	if len(got) == 0 || got[0].Name != "requests" {
		t.Errorf("Search(http) = %v, want requests", got)
	}

	lib, err := v.Select("requests")
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if lib.IsStandard {
		t.Error("requests is third-party")
	}
}

func TestLookup_ResultsAreCopies(t *testing.T) {
	v := NewFunctionLookup(newTestEnv(t).Catalog)
	results := v.Results()
	results[0].Name = "mutated"

	if v.Results()[0].Name == "mutated" {
		t.Error("Results() should return a copy")
	}
}

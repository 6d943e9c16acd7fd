package views

import (
	"slices"
	"sync"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// LookupSnapshot is the read model of a search-and-select view.
type LookupSnapshot[T any] struct {
	State    State  `json:"state"`
	Term     string `json:"term"`
	Results  []T    `json:"results"`
	Selected *T     `json:"selected,omitempty"`
}

// lookup is a filter box over a catalog list plus one selected entry.
// Selection survives a change of search term.
type lookup[T any] struct {
	mu       sync.RWMutex
	search   func(term string) []T
	find     func(key string) (T, error)
	term     string
	results  []T
	selected *T
}

func newLookup[T any](search func(string) []T, find func(string) (T, error)) *lookup[T] {
	return &lookup[T]{search: search, find: find, results: search("")}
}

func (l *lookup[T]) Search(term string) []T {
	results := l.search(term)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.term = term
	l.results = results
	return slices.Clone(results)
}

func (l *lookup[T]) Results() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.results)
}

func (l *lookup[T]) Select(key string) (T, error) {
	item, err := l.find(key)
	if err != nil {
		var zero T
		return zero, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = &item
	return item, nil
}

func (l *lookup[T]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.selected = nil
}

func (l *lookup[T]) State() State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.selected != nil {
		return StateSelected
	}
	return StateIdle
}

func (l *lookup[T]) Snapshot() LookupSnapshot[T] {
	l.mu.RLock()
	defer l.mu.RUnlock()

	snap := LookupSnapshot[T]{
		State:   StateIdle,
		Term:    l.term,
		Results: slices.Clone(l.results),
	}
	if l.selected != nil {
		sel := *l.selected
		snap.Selected = &sel
		snap.State = StateSelected
	}
	return snap
}

// FunctionLookup searches built-in functions by name.
type FunctionLookup struct {
	*lookup[domain.Function]
}

// NewFunctionLookup starts idle with the full function list.
func NewFunctionLookup(cat *catalog.Catalog) *FunctionLookup {
	return &FunctionLookup{newLookup(cat.SearchFunctions, cat.Function)}
}

// LibraryExplorer searches libraries by name or description.
type LibraryExplorer struct {
	*lookup[domain.Library]
}

// NewLibraryExplorer starts idle with the full library list.
func NewLibraryExplorer(cat *catalog.Catalog) *LibraryExplorer {
	return &LibraryExplorer{newLookup(cat.SearchLibraries, cat.Library)}
}

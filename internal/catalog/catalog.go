// Package catalog holds the read-only learning content: built-in function
// reference, library descriptions, knowledge topics and seed exercises.
package catalog

import (
	"fmt"
	"strings"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/samber/lo"
)

// Catalog is immutable once loaded and safe for concurrent reads.
type Catalog struct {
	functions []domain.Function
	libraries []domain.Library
	topics    []domain.Topic
	exercises []*domain.Exercise

	functionIdx map[string]int
	libraryIdx  map[string]int
	topicIdx    map[string]int
	exerciseIdx map[string]int
}

func newCatalog() *Catalog {
	return &Catalog{
		functionIdx: make(map[string]int),
		libraryIdx:  make(map[string]int),
		topicIdx:    make(map[string]int),
		exerciseIdx: make(map[string]int),
	}
}

func (c *Catalog) addFunction(f domain.Function) error {
	key := strings.ToLower(f.Name)
	if key == "" {
		return fmt.Errorf("%w: function without name", domain.ErrInvalidInput)
	}
	if _, dup := c.functionIdx[key]; dup {
		return fmt.Errorf("%w: duplicate function %q", domain.ErrInvalidInput, f.Name)
	}
	c.functionIdx[key] = len(c.functions)
	c.functions = append(c.functions, f)
	return nil
}

func (c *Catalog) addLibrary(l domain.Library) error {
	key := strings.ToLower(l.Name)
	if key == "" {
		return fmt.Errorf("%w: library without name", domain.ErrInvalidInput)
	}
	if _, dup := c.libraryIdx[key]; dup {
		return fmt.Errorf("%w: duplicate library %q", domain.ErrInvalidInput, l.Name)
	}
	c.libraryIdx[key] = len(c.libraries)
	c.libraries = append(c.libraries, l)
	return nil
}

func (c *Catalog) addTopic(t domain.Topic) error {
	if t.ID == "" {
		return fmt.Errorf("%w: topic without id", domain.ErrInvalidInput)
	}
	if _, dup := c.topicIdx[t.ID]; dup {
		return fmt.Errorf("%w: duplicate topic %q", domain.ErrInvalidInput, t.ID)
	}
	c.topicIdx[t.ID] = len(c.topics)
	c.topics = append(c.topics, t)
	return nil
}

func (c *Catalog) addExercise(e *domain.Exercise) error {
	if _, dup := c.exerciseIdx[e.ID]; dup {
		return fmt.Errorf("%w: duplicate exercise %q", domain.ErrInvalidInput, e.ID)
	}
	c.exerciseIdx[e.ID] = len(c.exercises)
	c.exercises = append(c.exercises, e)
	return nil
}

// Functions returns every function entry in catalog order.
func (c *Catalog) Functions() []domain.Function {
	return cloneFunctions(c.functions)
}

// Libraries returns every library entry in catalog order.
func (c *Catalog) Libraries() []domain.Library {
	return cloneLibraries(c.libraries)
}

// Topics returns every knowledge topic in catalog order.
func (c *Catalog) Topics() []domain.Topic {
	return append([]domain.Topic(nil), c.topics...)
}

// Exercises returns copies of the seed exercises in catalog order.
func (c *Catalog) Exercises() []*domain.Exercise {
	return lo.Map(c.exercises, func(e *domain.Exercise, _ int) *domain.Exercise {
		return e.Clone()
	})
}

// Function looks up a function by name, ignoring case.
func (c *Catalog) Function(name string) (domain.Function, error) {
	i, ok := c.functionIdx[strings.ToLower(name)]
	if !ok {
		return domain.Function{}, fmt.Errorf("function %q: %w", name, domain.ErrNotFound)
	}
	return cloneFunctions(c.functions[i : i+1])[0], nil
}

// Library looks up a library by name, ignoring case.
func (c *Catalog) Library(name string) (domain.Library, error) {
	i, ok := c.libraryIdx[strings.ToLower(name)]
	if !ok {
		return domain.Library{}, fmt.Errorf("library %q: %w", name, domain.ErrNotFound)
	}
	return cloneLibraries(c.libraries[i : i+1])[0], nil
}

// Topic looks up a knowledge topic by id.
func (c *Catalog) Topic(id string) (domain.Topic, error) {
	i, ok := c.topicIdx[id]
	if !ok {
		return domain.Topic{}, fmt.Errorf("topic %q: %w", id, domain.ErrNotFound)
	}
	return c.topics[i], nil
}

// Exercise looks up a seed exercise by id.
func (c *Catalog) Exercise(id string) (*domain.Exercise, error) {
	i, ok := c.exerciseIdx[id]
	if !ok {
		return nil, fmt.Errorf("exercise %q: %w", id, domain.ErrNotFound)
	}
	return c.exercises[i].Clone(), nil
}

// Categories returns the topic categories in first-seen order.
func (c *Catalog) Categories() []string {
	return lo.Uniq(lo.Map(c.topics, func(t domain.Topic, _ int) string {
		return t.Category
	}))
}

// TopicsByCategory returns the topics of one category in catalog order.
func (c *Catalog) TopicsByCategory(category string) []domain.Topic {
	return lo.Filter(c.topics, func(t domain.Topic, _ int) bool {
		return t.Category == category
	})
}

// SearchFunctions matches term against function names, case-insensitively.
// An empty term matches everything.
func (c *Catalog) SearchFunctions(term string) []domain.Function {
	needle := strings.ToLower(term)
	return cloneFunctions(lo.Filter(c.functions, func(f domain.Function, _ int) bool {
		return strings.Contains(strings.ToLower(f.Name), needle)
	}))
}

// SearchLibraries matches term against library names and descriptions,
// case-insensitively. An empty term matches everything.
func (c *Catalog) SearchLibraries(term string) []domain.Library {
	needle := strings.ToLower(term)
	return cloneLibraries(lo.Filter(c.libraries, func(l domain.Library, _ int) bool {
		return strings.Contains(strings.ToLower(l.Name), needle) ||
			strings.Contains(strings.ToLower(l.Description), needle)
	}))
}

func cloneFunctions(in []domain.Function) []domain.Function {
	return lo.Map(in, func(f domain.Function, _ int) domain.Function {
		f.CommonErrors = append([]string(nil), f.CommonErrors...)
		return f
	})
}

func cloneLibraries(in []domain.Library) []domain.Library {
	return lo.Map(in, func(l domain.Library, _ int) domain.Library {
		l.KeyFeatures = append([]string(nil), l.KeyFeatures...)
		return l
	})
}

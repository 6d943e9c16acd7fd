package views

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
)

// RandomTopic is the topic choice that asks for a random exercise.
const RandomTopic = "random"

// PracticeSnapshot is the read model of the practice arena.
type PracticeSnapshot struct {
	State      State                  `json:"state"`
	Exercises  []*domain.Exercise     `json:"exercises"`
	Selected   *domain.Exercise       `json:"selected,omitempty"`
	Code       string                 `json:"code"`
	ShowHint   bool                   `json:"show_hint"`
	Result     *domain.AnalysisResult `json:"result,omitempty"`
	Checking   bool                   `json:"checking"`
	Generating bool                   `json:"generating"`
	LastError  string                 `json:"last_error,omitempty"`
}

// PracticeArena is the exercise list, the code editor buffer and the
// analysis result for the selected exercise.
type PracticeArena struct {
	env Env

	mu         sync.Mutex
	exercises  []*domain.Exercise
	selected   *domain.Exercise
	code       string
	showHint   bool
	result     *domain.AnalysisResult
	gen        uint64
	checking   bool
	generating bool
	lastErr    error
}

// NewPracticeArena starts with the seed exercises, the first one selected.
func NewPracticeArena(env Env) *PracticeArena {
	a := &PracticeArena{env: env, exercises: env.Catalog.Exercises()}
	if len(a.exercises) > 0 {
		a.selectLocked(a.exercises[0])
	}
	return a
}

// selectLocked resets the editor for ex. Caller holds mu.
func (a *PracticeArena) selectLocked(ex *domain.Exercise) {
	a.selected = ex
	a.code = ex.StarterCode
	a.showHint = false
	a.result = nil
	a.checking = false
	a.gen++
}

// prependLocked puts ex at the head of the list and selects it.
func (a *PracticeArena) prependLocked(ex *domain.Exercise) {
	rest := lo.Reject(a.exercises, func(e *domain.Exercise, _ int) bool { return e.ID == ex.ID })
	a.exercises = append([]*domain.Exercise{ex}, rest...)
	a.selectLocked(ex)
}

// Mount claims a pending exercise from the handoff slot, if any, and puts
// it first. It returns nil when nothing was pending.
func (a *PracticeArena) Mount(ctx context.Context) (*domain.Exercise, error) {
	ex, err := a.env.Handoff.Take(ctx, a.env.TabID)
	if errors.Is(err, handoff.ErrEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := ex.Validate(); err != nil {
		slog.Warn("discarding invalid pending exercise", "tab_id", a.env.TabID, "error", err)
		return nil, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.prependLocked(ex)
	return ex.Clone(), nil
}

// Select switches exercise and resets the editor, hint and result.
func (a *PracticeArena) Select(id string) (*domain.Exercise, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ex, ok := lo.Find(a.exercises, func(e *domain.Exercise) bool { return e.ID == id })
	if !ok {
		return nil, fmt.Errorf("%w: exercise %s", domain.ErrNotFound, id)
	}
	a.selectLocked(ex)
	return ex.Clone(), nil
}

// SetCode replaces the editor buffer.
func (a *PracticeArena) SetCode(code string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.code = code
}

// ResetCode restores the starter code of the selected exercise.
func (a *PracticeArena) ResetCode() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.selected != nil {
		a.code = a.selected.StarterCode
	}
	return a.code
}

// ToggleHint flips hint visibility and returns the new value.
func (a *PracticeArena) ToggleHint() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.showHint = !a.showHint
	return a.showHint
}

// Check sends the editor buffer for analysis. Blank code is rejected
// without calling the model.
func (a *PracticeArena) Check(ctx context.Context) (domain.AnalysisResult, error) {
	a.mu.Lock()
	if a.selected == nil {
		a.mu.Unlock()
		return domain.AnalysisResult{}, fmt.Errorf("%w: no exercise selected", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(a.code) == "" {
		a.mu.Unlock()
		return domain.AnalysisResult{}, domain.ErrEmptyCode
	}
	if a.checking {
		a.mu.Unlock()
		return domain.AnalysisResult{}, domain.ErrBusy
	}
	a.checking = true
	a.result = nil
	gen, code, problem := a.gen, a.code, a.selected.Description
	a.mu.Unlock()

	result := a.env.Generator.AnalyzeCode(ctx, code, problem)
	outcome := events.OutcomeOK
	if result == generation.FallbackAnalysis {
		outcome = events.OutcomeFallback
	}
	a.env.Events.Record(ctx, events.CodeAnalyzed, a.env.TabID, outcome)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.gen {
		return domain.AnalysisResult{}, domain.ErrStale
	}
	a.checking = false
	a.result = &result
	return result, nil
}

// Generate asks for a new exercise and selects it. topic may be a topic
// title, RandomTopic or empty. On failure the list is left as it was.
func (a *PracticeArena) Generate(ctx context.Context, topic string) (*domain.Exercise, error) {
	if strings.EqualFold(strings.TrimSpace(topic), RandomTopic) {
		topic = ""
	}

	a.mu.Lock()
	if a.generating {
		a.mu.Unlock()
		return nil, domain.ErrBusy
	}
	a.generating = true
	a.mu.Unlock()

	ex, err := a.env.Generator.GenerateExercise(ctx, topic)
	a.env.Events.Record(ctx, events.ExerciseGenerated, a.env.TabID, events.OutcomeOf(err))

	a.mu.Lock()
	defer a.mu.Unlock()
	a.generating = false
	if err != nil {
		a.lastErr = err
		return nil, err
	}
	a.lastErr = nil
	a.prependLocked(ex)
	return ex.Clone(), nil
}

// TopicChoices lists the options of the generate menu.
func (a *PracticeArena) TopicChoices() []string {
	titles := lo.Map(a.env.Catalog.Topics(), func(t domain.Topic, _ int) string { return t.Title })
	return append([]string{RandomTopic}, titles...)
}

// LastError returns the message of the most recent failed generation.
func (a *PracticeArena) LastError() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return errString(a.lastErr)
}

// State returns the coarse view state.
func (a *PracticeArena) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state()
}

func (a *PracticeArena) state() State {
	switch {
	case a.checking || a.generating:
		return StateAwaitingGeneration
	case a.selected != nil:
		return StateSelected
	default:
		return StateIdle
	}
}

// Snapshot returns a copy of the view state.
func (a *PracticeArena) Snapshot() PracticeSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := PracticeSnapshot{
		State:      a.state(),
		Exercises:  lo.Map(a.exercises, func(e *domain.Exercise, _ int) *domain.Exercise { return e.Clone() }),
		Selected:   a.selected.Clone(),
		Code:       a.code,
		ShowHint:   a.showHint,
		Checking:   a.checking,
		Generating: a.generating,
		LastError:  errString(a.lastErr),
	}
	if a.result != nil {
		r := *a.result
		snap.Result = &r
	}
	return snap
}

package views

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/events"
	"github.com/NgTruc2025/python-ntt/internal/generation"
	"github.com/NgTruc2025/python-ntt/internal/handoff"
)

var errOffline = errors.New("offline")

// fakeGenerator records calls and can hold them until released.
type fakeGenerator struct {
	mu       sync.Mutex
	calls    map[string]int
	topics   []string
	analysis domain.AnalysisResult
	quiz     *domain.QuizQuestion
	err      error
	seq      int

	// hold, when set, blocks each call until a value is received.
	hold    chan struct{}
	started chan struct{}
}

func newFakeGenerator() *fakeGenerator {
	return &fakeGenerator{
		calls:    map[string]int{},
		analysis: domain.AnalysisResult{IsCorrect: true, Output: "6", Explanation: "ok"},
		quiz: &domain.QuizQuestion{
			Question:           "What does len('abc') return?",
			Options:            []string{"2", "3", "4", "error"},
			CorrectAnswerIndex: 1,
			Explanation:        "Three characters.",
		},
	}
}

func (f *fakeGenerator) enter(op string) {
	f.mu.Lock()
	f.calls[op]++
	hold, started := f.hold, f.started
	f.mu.Unlock()
	if started != nil {
		started <- struct{}{}
	}
	if hold != nil {
		<-hold
	}
}

func (f *fakeGenerator) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeGenerator) AnalyzeCode(_ context.Context, _, _ string) domain.AnalysisResult {
	f.enter("analyze")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return generation.FallbackAnalysis
	}
	return f.analysis
}

func (f *fakeGenerator) GenerateExercise(_ context.Context, topic string) (*domain.Exercise, error) {
	f.enter("exercise")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topics = append(f.topics, topic)
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	return &domain.Exercise{
		ID:          fmt.Sprintf("ai-%d", f.seq),
		Title:       "Generated " + topic,
		Difficulty:  domain.DifficultyMedium,
		Description: "Write something.",
		StarterCode: "# start\n",
		Hint:        "think",
		AIGenerated: true,
	}, nil
}

func (f *fakeGenerator) GenerateQuiz(_ context.Context, _, _ string) (*domain.QuizQuestion, error) {
	f.enter("quiz")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quiz
	return &q, nil
}

func (f *fakeGenerator) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// gate makes every following call block until release is called.
func (f *fakeGenerator) gate() (release func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hold = make(chan struct{})
	f.started = make(chan struct{}, 8)
	hold := f.hold
	return func() { close(hold) }
}

func (f *fakeGenerator) waitStarted(t *testing.T) {
	t.Helper()
	f.mu.Lock()
	started := f.started
	f.mu.Unlock()
	<-started
}

type testEnv struct {
	Env
	gen *fakeGenerator
	pub *events.MemoryPublisher
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	cat, err := catalog.Load()
	if err != nil {
		t.Fatalf("catalog.Load() error = %v", err)
	}
	gen := newFakeGenerator()
	pub := &events.MemoryPublisher{}
	return testEnv{
		Env: Env{
			TabID:     "tab-1",
			Catalog:   cat,
			Generator: gen,
			Handoff:   handoff.NewMemoryChannel(),
			Events:    events.NewRecorder(pub),
		},
		gen: gen,
		pub: pub,
	}
}

package views

import (
	"context"
	"fmt"
	"sync"

	"github.com/NgTruc2025/python-ntt/internal/catalog"
	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/events"
)

// AnswerOutcome reports the result of picking a quiz option.
type AnswerOutcome struct {
	Index   int  `json:"index"`
	Correct bool `json:"correct"`
	// Changed is false when the question was already answered.
	Changed bool `json:"changed"`
}

// KnowledgeSnapshot is the read model of the knowledge base view.
type KnowledgeSnapshot struct {
	State           State                `json:"state"`
	Categories      []string             `json:"categories"`
	Topic           *domain.Topic        `json:"topic,omitempty"`
	Segments        []catalog.Segment    `json:"segments,omitempty"`
	Quiz            *domain.QuizQuestion `json:"quiz,omitempty"`
	SelectedOption  *int                 `json:"selected_option,omitempty"`
	Answered        bool                 `json:"answered"`
	QuizLoading     bool                 `json:"quiz_loading"`
	ExerciseLoading bool                 `json:"exercise_loading"`
	LastError       string               `json:"last_error,omitempty"`
}

// KnowledgeBase shows one topic at a time with an optional generated quiz
// and a shortcut that generates a practice exercise for the topic.
type KnowledgeBase struct {
	env Env

	mu              sync.Mutex
	topic           *domain.Topic
	gen             uint64
	quiz            *domain.QuizQuestion
	selectedOption  *int
	answered        bool
	quizPending     bool
	exercisePending bool
	lastErr         error
}

// NewKnowledgeBase starts on the first topic of the catalog.
func NewKnowledgeBase(env Env) *KnowledgeBase {
	kb := &KnowledgeBase{env: env}
	if topics := env.Catalog.Topics(); len(topics) > 0 {
		kb.topic = &topics[0]
	}
	return kb
}

// SelectTopic switches topic, dropping the quiz and any answer.
func (kb *KnowledgeBase) SelectTopic(id string) (domain.Topic, error) {
	topic, err := kb.env.Catalog.Topic(id)
	if err != nil {
		return domain.Topic{}, err
	}

	kb.mu.Lock()
	defer kb.mu.Unlock()
	kb.topic = &topic
	kb.gen++
	kb.quiz = nil
	kb.selectedOption = nil
	kb.answered = false
	kb.quizPending = false
	kb.exercisePending = false
	kb.lastErr = nil
	return topic, nil
}

// begin marks an action in flight for the current topic and returns the
// selection counter and topic it belongs to.
func (kb *KnowledgeBase) begin(pending *bool) (uint64, domain.Topic, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	if kb.topic == nil {
		return 0, domain.Topic{}, fmt.Errorf("%w: no topic selected", domain.ErrInvalidInput)
	}
	if *pending {
		return 0, domain.Topic{}, domain.ErrBusy
	}
	*pending = true
	return kb.gen, *kb.topic, nil
}

// GenerateQuiz asks for a new question about the current topic. On failure
// the previous question stays in place.
func (kb *KnowledgeBase) GenerateQuiz(ctx context.Context) (*domain.QuizQuestion, error) {
	gen, topic, err := kb.begin(&kb.quizPending)
	if err != nil {
		return nil, err
	}

	q, err := kb.env.Generator.GenerateQuiz(ctx, topic.Title, topic.Content)
	kb.env.Events.Record(ctx, events.QuizGenerated, kb.env.TabID, events.OutcomeOf(err))

	kb.mu.Lock()
	defer kb.mu.Unlock()
	if gen != kb.gen {
		return nil, domain.ErrStale
	}
	kb.quizPending = false
	if err != nil {
		kb.lastErr = err
		return nil, err
	}

	kb.quiz = q
	kb.selectedOption = nil
	kb.answered = false
	kb.lastErr = nil
	out := *q
	return &out, nil
}

// Answer picks an option. Only the first answer per question counts.
func (kb *KnowledgeBase) Answer(index int) (AnswerOutcome, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if kb.quiz == nil {
		return AnswerOutcome{}, fmt.Errorf("%w: no quiz question", domain.ErrInvalidInput)
	}
	if kb.answered {
		return AnswerOutcome{
			Index:   *kb.selectedOption,
			Correct: kb.quiz.IsCorrect(*kb.selectedOption),
		}, nil
	}
	if index < 0 || index >= len(kb.quiz.Options) {
		return AnswerOutcome{}, fmt.Errorf("%w: option %d out of range", domain.ErrInvalidInput, index)
	}

	kb.selectedOption = &index
	kb.answered = true
	return AnswerOutcome{Index: index, Correct: kb.quiz.IsCorrect(index), Changed: true}, nil
}

// PracticeTopic generates an exercise for the current topic, leaves it in
// the tab's handoff slot and asks the client to open the practice view.
func (kb *KnowledgeBase) PracticeTopic(ctx context.Context) (Navigation, error) {
	gen, topic, err := kb.begin(&kb.exercisePending)
	if err != nil {
		return Navigation{}, err
	}

	ex, err := kb.env.Generator.GenerateExercise(ctx, topic.Title)
	kb.env.Events.Record(ctx, events.ExerciseGenerated, kb.env.TabID, events.OutcomeOf(err))

	kb.mu.Lock()
	defer kb.mu.Unlock()
	if gen != kb.gen {
		return Navigation{}, domain.ErrStale
	}
	// The slot is filled under the lock: a newer selection never finds an
	// exercise for the topic it replaced.
	if err == nil {
		err = kb.env.Handoff.Put(ctx, kb.env.TabID, ex)
	}
	kb.exercisePending = false
	if err != nil {
		kb.lastErr = err
		return Navigation{}, err
	}
	kb.lastErr = nil
	return Navigation{Path: PracticePath, ExerciseID: ex.ID}, nil
}

// LastError returns the message of the most recent failed action.
func (kb *KnowledgeBase) LastError() string {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return errString(kb.lastErr)
}

// State returns the coarse view state.
func (kb *KnowledgeBase) State() State {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	return kb.state()
}

func (kb *KnowledgeBase) state() State {
	switch {
	case kb.topic == nil:
		return StateIdle
	case kb.quizPending || kb.exercisePending:
		return StateAwaitingGeneration
	default:
		return StateSelected
	}
}

// Snapshot returns a copy of the view state with the topic rendered.
func (kb *KnowledgeBase) Snapshot() KnowledgeSnapshot {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	snap := KnowledgeSnapshot{
		State:           kb.state(),
		Categories:      kb.env.Catalog.Categories(),
		Answered:        kb.answered,
		QuizLoading:     kb.quizPending,
		ExerciseLoading: kb.exercisePending,
		LastError:       errString(kb.lastErr),
	}
	if kb.topic != nil {
		topic := *kb.topic
		snap.Topic = &topic
		snap.Segments = catalog.RenderTopic(topic.Content)
	}
	if kb.quiz != nil {
		q := *kb.quiz
		q.Options = append([]string(nil), kb.quiz.Options...)
		snap.Quiz = &q
	}
	if kb.selectedOption != nil {
		i := *kb.selectedOption
		snap.SelectedOption = &i
	}
	return snap
}

package domain

import (
	"fmt"
	"strings"
)

// QuizOptionCount is the fixed number of options in a quiz question.
const QuizOptionCount = 4

// QuizQuestion is one multiple-choice check generated for a topic.
type QuizQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
}

// Validate enforces exactly four options and an in-range answer index.
func (q *QuizQuestion) Validate() error {
	if strings.TrimSpace(q.Question) == "" {
		return fmt.Errorf("%w: question text is empty", ErrInvalidQuiz)
	}
	if len(q.Options) != QuizOptionCount {
		return fmt.Errorf("%w: got %d options, want %d", ErrInvalidQuiz, len(q.Options), QuizOptionCount)
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= QuizOptionCount {
		return fmt.Errorf("%w: correct answer index %d out of range", ErrInvalidQuiz, q.CorrectAnswerIndex)
	}
	return nil
}

// IsCorrect reports whether index selects the correct option.
func (q *QuizQuestion) IsCorrect(index int) bool {
	return index == q.CorrectAnswerIndex
}

// AnalysisResult is the model's verdict on a submitted solution.
type AnalysisResult struct {
	IsCorrect   bool   `json:"isCorrect"`
	Output      string `json:"output"`
	Explanation string `json:"explanation"`
	Suggestion  string `json:"suggestion,omitempty"`
}

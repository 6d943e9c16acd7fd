package generation

import (
	"context"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// Generator is the narrow contract the views depend on
type Generator interface {
	// AnalyzeCode judges code against a problem; it degrades to
	// FallbackAnalysis instead of failing
	AnalyzeCode(ctx context.Context, code, problem string) domain.AnalysisResult

	// GenerateExercise creates an exercise; topic "" picks a random one
	GenerateExercise(ctx context.Context, topic string) (*domain.Exercise, error)

	// GenerateQuiz creates one question about a lesson
	GenerateQuiz(ctx context.Context, title, content string) (*domain.QuizQuestion, error)
}

// Tutor opens chat sessions
type Tutor interface {
	OpenTutor(learnerName string) *TutorSession
}

// Ensure Client implements Generator and Tutor
var (
	_ Generator = (*Client)(nil)
	_ Tutor     = (*Client)(nil)
)

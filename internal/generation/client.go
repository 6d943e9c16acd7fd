// Package generation turns learner requests into structured calls against
// a language model and shapes the replies into domain entities.
package generation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/llm"
)

var (
	// ErrGeneration wraps every failure surfaced by GenerateExercise and
	// GenerateQuiz.
	ErrGeneration = errors.New("generation failed")

	ErrMalformedResponse = errors.New("malformed model response")
	ErrSchemaViolation   = errors.New("model response violates schema")
)

// Operation names used for observation and events.
const (
	OpAnalyze  = "analyze_code"
	OpExercise = "generate_exercise"
	OpQuiz     = "generate_quiz"
	OpTutor    = "tutor"
)

// Outcome labels passed to the observer.
const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeFallback = "fallback"
)

// FallbackAnalysis is returned by AnalyzeCode whenever the model cannot
// produce a usable verdict.
var FallbackAnalysis = domain.AnalysisResult{
	IsCorrect:   false,
	Output:      "Execution error",
	Explanation: "Could not reach the AI service.",
	Suggestion:  "Try again later.",
}

// Models names the model used per task tier for one provider. Empty fields
// fall back to the provider's own default.
type Models struct {
	Reasoning string `yaml:"reasoning"`
	Fast      string `yaml:"fast"`
}

// ObserveFunc receives one call per model request.
type ObserveFunc func(op, outcome string, elapsed time.Duration)

// Config configures a Client
type Config struct {
	Registry llm.LLMRegistry

	// Models per provider name, e.g. "gemini".
	Models map[string]Models

	MaxTokens   int
	Temperature float64

	Observe ObserveFunc
	Logger  *slog.Logger
	Now     func() time.Time
}

// Client is the Generation Client
type Client struct {
	registry    llm.LLMRegistry
	models      map[string]Models
	maxTokens   int
	temperature float64
	prompter    *Prompter
	observe     ObserveFunc
	logger      *slog.Logger
	now         func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// NewClient creates a new generation client
func NewClient(cfg Config) *Client {
	c := &Client{
		registry:    cfg.Registry,
		models:      cfg.Models,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		prompter:    NewPrompter(),
		observe:     cfg.Observe,
		logger:      cfg.Logger,
		now:         cfg.Now,
	}
	if c.maxTokens <= 0 {
		c.maxTokens = 2048
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type tier int

const (
	tierReasoning tier = iota
	tierFast
)

// model resolves the model name for a provider and tier.
func (c *Client) model(provider string, t tier) string {
	m, ok := c.models[provider]
	if !ok {
		return ""
	}
	if t == tierFast && m.Fast != "" {
		return m.Fast
	}
	return m.Reasoning
}

// complete sends one structured request and returns the raw reply.
func (c *Client) complete(ctx context.Context, t tier, system, prompt, schemaName string, schema map[string]any) (string, error) {
	if c.registry == nil {
		return "", llm.ErrNoDefaultProvider
	}
	provider, err := c.registry.Default()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}

	resp, err := provider.Generate(ctx, &llm.Request{
		Model:          c.model(provider.Name(), t),
		System:         system,
		Messages:       []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		MaxTokens:      c.maxTokens,
		Temperature:    c.temperature,
		ResponseSchema: schema,
		SchemaName:     schemaName,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider.Name(), err)
	}
	return resp.Content, nil
}

func (c *Client) record(op, outcome string, start time.Time) {
	if c.observe != nil {
		c.observe(op, outcome, time.Since(start))
	}
}

// AnalyzeCode asks the model to judge code against a problem statement. It
// never fails: any error yields FallbackAnalysis.
func (c *Client) AnalyzeCode(ctx context.Context, code, problem string) domain.AnalysisResult {
	start := time.Now()

	reply, err := c.complete(ctx, tierReasoning, analysisSystem, c.prompter.AnalysisPrompt(code, problem), "analysis", analysisSchema)
	if err == nil {
		var result domain.AnalysisResult
		if err = analysisValidator.decode(reply, &result); err == nil {
			c.record(OpAnalyze, OutcomeOK, start)
			return result
		}
	}

	c.logger.Warn("code analysis failed, returning fallback", "error", err)
	c.record(OpAnalyze, OutcomeFallback, start)
	return FallbackAnalysis
}

type exerciseReply struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty"`
	InitialCode string `json:"initialCode"`
	Hint        string `json:"hint"`
}

// GenerateExercise creates a new exercise about topic, or a random one when
// topic is empty. The result carries a fresh "ai-" id.
func (c *Client) GenerateExercise(ctx context.Context, topic string) (*domain.Exercise, error) {
	start := time.Now()

	ex, err := c.generateExercise(ctx, topic)
	if err != nil {
		c.record(OpExercise, OutcomeFailed, start)
		return nil, fmt.Errorf("%w: exercise: %w", ErrGeneration, err)
	}
	c.record(OpExercise, OutcomeOK, start)
	return ex, nil
}

func (c *Client) generateExercise(ctx context.Context, topic string) (*domain.Exercise, error) {
	reply, err := c.complete(ctx, tierReasoning, "", c.prompter.ExercisePrompt(topic), "exercise", exerciseSchema)
	if err != nil {
		return nil, err
	}

	var r exerciseReply
	if err := exerciseValidator.decode(reply, &r); err != nil {
		return nil, err
	}

	difficulty, err := domain.ParseDifficulty(r.Difficulty)
	if err != nil {
		return nil, err
	}

	ex := &domain.Exercise{
		ID:          c.nextID(),
		Title:       strings.TrimSpace(r.Title),
		Difficulty:  difficulty,
		Description: strings.TrimSpace(r.Description),
		StarterCode: r.InitialCode,
		Hint:        r.Hint,
		AIGenerated: true,
	}
	if err := ex.Validate(); err != nil {
		return nil, err
	}
	return ex, nil
}

// nextID returns "ai-<unix millis>", bumped past the previous id when two
// exercises land in the same millisecond.
func (c *Client) nextID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()

	id := c.now().UnixMilli()
	if id <= c.lastID {
		id = c.lastID + 1
	}
	c.lastID = id
	return fmt.Sprintf("ai-%d", id)
}

// GenerateQuiz creates one multiple-choice question about a lesson.
func (c *Client) GenerateQuiz(ctx context.Context, title, content string) (*domain.QuizQuestion, error) {
	start := time.Now()

	q, err := c.generateQuiz(ctx, title, content)
	if err != nil {
		c.record(OpQuiz, OutcomeFailed, start)
		return nil, fmt.Errorf("%w: quiz: %w", ErrGeneration, err)
	}
	c.record(OpQuiz, OutcomeOK, start)
	return q, nil
}

func (c *Client) generateQuiz(ctx context.Context, title, content string) (*domain.QuizQuestion, error) {
	reply, err := c.complete(ctx, tierFast, "", c.prompter.QuizPrompt(title, content), "quiz", quizSchema)
	if err != nil {
		return nil, err
	}

	var q domain.QuizQuestion
	if err := quizValidator.decode(reply, &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return &q, nil
}

// OpenTutor starts an in-memory chat session for a learner.
func (c *Client) OpenTutor(learnerName string) *TutorSession {
	name := strings.TrimSpace(learnerName)
	if name == "" {
		name = "there"
	}
	return &TutorSession{
		client:   c,
		system:   c.prompter.TutorSystem(name),
		greeting: c.prompter.TutorGreeting(name),
	}
}

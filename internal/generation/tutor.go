package generation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/NgTruc2025/python-ntt/internal/domain"
	"github.com/NgTruc2025/python-ntt/internal/llm"
)

// Turn is one message in a tutor conversation
type Turn struct {
	Role string `json:"role"` // "user" or "model"
	Text string `json:"text"`
}

// TutorSession is a multi-turn chat held in memory. The full history is
// sent with every turn.
type TutorSession struct {
	client   *Client
	system   string
	greeting string

	mu      sync.Mutex
	history []llm.Message
	sending bool
}

// Greeting returns the opening line for the session.
func (s *TutorSession) Greeting() string {
	return s.greeting
}

// Send posts one learner message and returns the tutor's reply. Only one
// turn may be in flight; a failed turn leaves the history untouched.
func (s *TutorSession) Send(ctx context.Context, message string) (string, error) {
	return s.SendStream(ctx, message, nil)
}

// SendStream is Send with the reply delivered piece by piece to onChunk as
// the provider produces it. Providers without streaming deliver the whole
// reply as one piece. A nil onChunk makes a plain request.
func (s *TutorSession) SendStream(ctx context.Context, message string, onChunk func(string)) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return "", domain.ErrBusy
	}
	s.sending = true
	messages := make([]llm.Message, 0, len(s.history)+1)
	messages = append(messages, s.history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	start := time.Now()
	reply, err := s.exchange(ctx, messages, onChunk)
	if err != nil {
		s.client.record(OpTutor, OutcomeFailed, start)
		return "", fmt.Errorf("%w: tutor: %w", ErrGeneration, err)
	}
	s.client.record(OpTutor, OutcomeOK, start)

	s.mu.Lock()
	s.history = append(s.history,
		llm.Message{Role: llm.RoleUser, Content: message},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	s.mu.Unlock()
	return reply, nil
}

func (s *TutorSession) exchange(ctx context.Context, messages []llm.Message, onChunk func(string)) (string, error) {
	c := s.client
	if c.registry == nil {
		return "", llm.ErrNoDefaultProvider
	}
	provider, err := c.registry.Default()
	if err != nil {
		return "", fmt.Errorf("get LLM provider: %w", err)
	}

	req := &llm.Request{
		Model:       c.model(provider.Name(), tierFast),
		System:      s.system,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}

	if onChunk == nil || !provider.SupportsStreaming() {
		resp, err := provider.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s: %w", provider.Name(), err)
		}
		reply := strings.TrimSpace(resp.Content)
		if onChunk != nil && reply != "" {
			onChunk(reply)
		}
		return reply, nil
	}

	stream, err := provider.GenerateStream(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%s: %w", provider.Name(), err)
	}
	var reply strings.Builder
	for chunk := range stream {
		if chunk.Error != nil {
			return "", fmt.Errorf("%s: %w", provider.Name(), chunk.Error)
		}
		if chunk.Content != "" {
			reply.WriteString(chunk.Content)
			onChunk(chunk.Content)
		}
		if chunk.Done {
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return strings.TrimSpace(reply.String()), nil
}

// History returns the completed turns, oldest first.
func (s *TutorSession) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()

	turns := make([]Turn, 0, len(s.history))
	for _, m := range s.history {
		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "model"
		}
		turns = append(turns, Turn{Role: role, Text: m.Content})
	}
	return turns
}

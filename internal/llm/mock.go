package llm

import (
	"context"
	"strings"
	"sync"
)

// MockProvider is a scripted provider for tests. Replies are served in
// order; the last one repeats once the script runs out.
type MockProvider struct {
	mu       sync.Mutex
	replies  []mockReply
	requests []*Request
	calls    int

	// Gate, when set, blocks every call until it is closed or ctx ends.
	Gate chan struct{}
}

type mockReply struct {
	content string
	err     error
}

// NewMockProvider creates a MockProvider that returns the given responses.
func NewMockProvider(responses ...string) *MockProvider {
	m := &MockProvider{}
	for _, r := range responses {
		m.replies = append(m.replies, mockReply{content: r})
	}
	return m
}

// Reply appends a successful reply to the script.
func (m *MockProvider) Reply(content string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{content: content})
	return m
}

// Fail appends a failing reply to the script.
func (m *MockProvider) Fail(err error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replies = append(m.replies, mockReply{err: err})
	return m
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) SupportsStreaming() bool { return true }

func (m *MockProvider) Generate(ctx context.Context, req *Request) (*Response, error) {
	if m.Gate != nil {
		select {
		case <-m.Gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	copied := *req
	copied.Messages = append([]Message(nil), req.Messages...)
	m.requests = append(m.requests, &copied)

	if len(m.replies) == 0 {
		m.calls++
		return nil, ErrEmptyResponse
	}
	i := m.calls
	if i >= len(m.replies) {
		i = len(m.replies) - 1
	}
	m.calls++

	r := m.replies[i]
	if r.err != nil {
		return nil, r.err
	}
	return &Response{Content: r.content, FinishReason: "stop"}, nil
}

func (m *MockProvider) GenerateStream(ctx context.Context, req *Request) (<-chan StreamChunk, error) {
	resp, err := m.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	// One chunk per word, like a token stream.
	words := strings.SplitAfter(resp.Content, " ")
	ch := make(chan StreamChunk, len(words)+1)
	for _, w := range words {
		ch <- StreamChunk{Content: w}
	}
	ch <- StreamChunk{Done: true}
	close(ch)
	return ch, nil
}

// Calls returns how many requests were made.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

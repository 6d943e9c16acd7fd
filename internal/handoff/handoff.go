// Package handoff relays one generated exercise per tab across a
// navigation boundary.
package handoff

import (
	"context"
	"errors"
	"sync"

	"github.com/NgTruc2025/python-ntt/internal/domain"
)

// ErrEmpty is returned by Take when no exercise is pending for the tab.
var ErrEmpty = errors.New("no pending exercise")

// Channel is a single-slot mailbox per tab. Put overwrites; Take reads and
// removes the value exactly once.
type Channel interface {
	Put(ctx context.Context, tabID string, ex *domain.Exercise) error
	Take(ctx context.Context, tabID string) (*domain.Exercise, error)
}

// MemoryChannel keeps pending exercises in process memory.
type MemoryChannel struct {
	mu    sync.Mutex
	slots map[string]*domain.Exercise
}

// NewMemoryChannel creates an empty in-memory channel
func NewMemoryChannel() *MemoryChannel {
	return &MemoryChannel{slots: make(map[string]*domain.Exercise)}
}

func (c *MemoryChannel) Put(_ context.Context, tabID string, ex *domain.Exercise) error {
	if tabID == "" || ex == nil {
		return domain.ErrInvalidInput
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slots[tabID] = ex.Clone()
	return nil
}

func (c *MemoryChannel) Take(_ context.Context, tabID string) (*domain.Exercise, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ex, ok := c.slots[tabID]
	if !ok {
		return nil, ErrEmpty
	}
	delete(c.slots, tabID)
	return ex, nil
}

// Drop discards any pending exercise for a closed tab.
func (c *MemoryChannel) Drop(tabID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.slots, tabID)
}

// Package signal provides the hand-off primitives the control tasks use to
// talk to each other: latest-value mailboxes, fan-out change notifications
// and lock-guarded cells.
//
// None of these primitives queue history. A slow reader only ever sees the
// newest value.
package signal

import (
	"context"
	"sync"
)

// Signal is a single-slot mailbox. Sending overwrites any value that has not
// been received yet, so a receiver always gets the most recent one.
type Signal[T any] struct {
	mu sync.Mutex
	ch chan T
}

// New creates an empty Signal.
func New[T any]() *Signal[T] {
	return &Signal[T]{ch: make(chan T, 1)}
}

// Send stores v, replacing a pending value. It never blocks.
func (s *Signal[T]) Send(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

// C returns the receive side, for use in select statements.
func (s *Signal[T]) C() <-chan T {
	return s.ch
}

// Wait blocks until a value is available or ctx is done.
func (s *Signal[T]) Wait(ctx context.Context) (T, error) {
	select {
	case v := <-s.ch:
		return v, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// TryReceive returns the pending value, if any, without blocking.
func (s *Signal[T]) TryReceive() (T, bool) {
	select {
	case v := <-s.ch:
		return v, true
	default:
		var zero T
		return zero, false
	}
}

// Cell is a value guarded by its own lock. Readers get a copy.
type Cell[T any] struct {
	mu sync.RWMutex
	v  T
}

// NewCell creates a Cell holding v.
func NewCell[T any](v T) *Cell[T] {
	return &Cell[T]{v: v}
}

// Load returns a copy of the current value.
func (c *Cell[T]) Load() T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.v
}

// Store overwrites the current value.
func (c *Cell[T]) Store(v T) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

// Update applies fn to the value under the write lock and returns the result.
// fn must not block.
func (c *Cell[T]) Update(fn func(T) T) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.v = fn(c.v)
	return c.v
}

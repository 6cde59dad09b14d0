package signal

import (
	"context"
	"sync"
)

// Broadcast fans a notification out to every subscriber. Each subscriber has
// a one-slot buffer; publishing replaces an unread notification rather than
// blocking, so a notification means "something changed", not a full history.
type Broadcast[T any] struct {
	mu   sync.RWMutex
	subs map[*Subscription[T]]struct{}
}

// NewBroadcast creates a Broadcast with no subscribers.
func NewBroadcast[T any]() *Broadcast[T] {
	return &Broadcast[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Subscribe registers a new subscriber. Call Close when done.
func (b *Broadcast[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{parent: b, mailbox: New[T]()}
	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()
	return sub
}

// Publish delivers v to every subscriber without blocking.
func (b *Broadcast[T]) Publish(v T) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs {
		sub.mailbox.Send(v)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *Broadcast[T]) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Subscription is one subscriber's view of a Broadcast.
type Subscription[T any] struct {
	parent  *Broadcast[T]
	mailbox *Signal[T]
}

// C returns the receive side, for use in select statements.
func (s *Subscription[T]) C() <-chan T {
	return s.mailbox.C()
}

// Next blocks until the next notification or until ctx is done.
func (s *Subscription[T]) Next(ctx context.Context) (T, error) {
	return s.mailbox.Wait(ctx)
}

// Close unregisters the subscription.
func (s *Subscription[T]) Close() {
	s.parent.mu.Lock()
	delete(s.parent.subs, s)
	s.parent.mu.Unlock()
}

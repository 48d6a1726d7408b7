// Package mailbox provides a single-slot, latest-wins handoff between a
// producer that may fire often and a consumer that works slowly.
package mailbox

import (
	"context"
	"sync"
)

// Mailbox is a single-slot buffer where the latest item always wins.
// It is NOT a queue. It holds at most one pending item.
// Put overwrites any existing item. Take blocks until an item is available.
type Mailbox[T any] struct {
	mu    sync.Mutex
	item  *T
	ready chan struct{}
}

// New creates an empty mailbox.
func New[T any]() *Mailbox[T] {
	return &Mailbox[T]{ready: make(chan struct{}, 1)}
}

// Put stores an item, replacing any existing one. It never blocks and
// reports whether a pending item was overwritten.
func (m *Mailbox[T]) Put(v T) bool {
	m.mu.Lock()
	replaced := m.item != nil
	m.item = &v
	m.mu.Unlock()

	select {
	case m.ready <- struct{}{}:
	default:
	}
	return replaced
}

// Take blocks until an item is available or ctx is done, then returns it and
// clears the slot.
func (m *Mailbox[T]) Take(ctx context.Context) (T, error) {
	for {
		if v := m.TryTake(); v != nil {
			return *v, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-m.ready:
		}
	}
}

// TryTake returns the item if present, or nil if empty.
// It never blocks.
func (m *Mailbox[T]) TryTake() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.item == nil {
		return nil
	}

	v := m.item
	m.item = nil
	return v
}

// Pending reports whether an item is currently waiting.
func (m *Mailbox[T]) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.item != nil
}

// Package gate provides the bounded-wait primitive behind cadre's human
// approval points. A Gate is a one-shot future paired with a deadline:
// a waiter suspends until an external actor resolves the gate, and if
// nobody does before the ceiling elapses, the wait returns a fallback
// value instead of blocking forever. Timing out is an expected outcome,
// not an error; a slow or absent approver must never stall an agent.
package gate

import (
	"context"
	"sync"
	"time"
)

// Gate is a one-shot resolvable value with a deadline fallback.
// The zero value is not usable; create gates with New.
type Gate[T any] struct {
	mu       sync.Mutex
	value    T
	resolved bool
	done     chan struct{}
}

// New creates an unresolved Gate.
func New[T any]() *Gate[T] {
	return &Gate[T]{done: make(chan struct{})}
}

// Resolve supplies the gate's value and releases any waiter. Only the
// first call has any effect; later calls are ignored.
func (g *Gate[T]) Resolve(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.resolved {
		return
	}
	g.value = v
	g.resolved = true
	close(g.done)
}

// Await blocks until the gate is resolved, the ceiling elapses, or ctx is
// cancelled. It returns the resolved value with resolved=true, or the
// fallback with resolved=false for both the timeout and cancellation
// outcomes.
func (g *Gate[T]) Await(ctx context.Context, ceiling time.Duration, fallback T) (value T, resolved bool) {
	timer := time.NewTimer(ceiling)
	defer timer.Stop()

	select {
	case <-g.done:
		g.mu.Lock()
		defer g.mu.Unlock()
		return g.value, true
	case <-timer.C:
		return fallback, false
	case <-ctx.Done():
		return fallback, false
	}
}

// Resolved reports whether the gate has been resolved without blocking.
func (g *Gate[T]) Resolved() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resolved
}

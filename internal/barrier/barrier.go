// Package barrier implements a re-armable quiescence signal over a count of
// in-flight operations.
//
// The barrier is Idle while the count is zero. The 0->1 transition arms it
// with a fresh done channel; the transition back to zero closes that channel,
// waking every waiter at once, and returns the barrier to Idle.
//
// Wait only observes operations registered before it is called. An Inc that
// races with a Wait which already saw Idle is not captured by that Wait.
package barrier

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrInvariant marks corrupted bookkeeping. Barrier panics with an error
// wrapping it; it is never returned.
var ErrInvariant = errors.New("synckv: invariant violation")

type Barrier struct {
	mu       sync.Mutex
	count    int
	done     chan struct{} // nil => Idle, non-nil => Armed
	onChange func(n int)
}

// New returns an Idle barrier. onChange, when non-nil, receives every new
// count. It runs under the barrier's lock, so reports arrive in the order the
// count changed; it must not call back into the barrier.
func New(onChange func(n int)) *Barrier { return &Barrier{onChange: onChange} }

// Inc registers one in-flight operation and returns the new count.
func (b *Barrier) Inc() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	if b.done == nil {
		b.done = make(chan struct{})
	}
	b.report()
	return b.count
}

// Done releases one in-flight operation and returns the new count.
// Releasing more than was registered panics.
func (b *Barrier) Done() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count == 0 {
		panic(fmt.Errorf("%w: barrier released below zero", ErrInvariant))
	}
	b.count--
	b.report()
	if b.count == 0 {
		if b.done == nil {
			panic(fmt.Errorf("%w: barrier reached zero without a signal", ErrInvariant))
		}
		close(b.done)
		b.done = nil
	}
	return b.count
}

// Count returns the number of in-flight operations.
func (b *Barrier) Count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *Barrier) report() {
	if b.onChange != nil {
		b.onChange(b.count)
	}
}

// Wait blocks until the count returns to zero or ctx ends. It returns nil
// immediately when the barrier is Idle.
func (b *Barrier) Wait(ctx context.Context) error {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done == nil {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

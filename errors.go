package synckv

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/synckv/internal/barrier"
)

var (
	ErrNoStore = errors.New("synckv: store is required")
	ErrClosed  = errors.New("synckv: cache closed")

	// ErrInvariant marks corrupted internal bookkeeping. It is only ever
	// carried by a panic, never returned.
	ErrInvariant = barrier.ErrInvariant
)

// PendingError is returned by gated operations called before the initial
// load finished. Wait on Load, then repeat the call.
type PendingError struct {
	Op   string
	Load *Future
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("synckv: %s: initial load pending", e.Op)
}

// IsPending reports whether err is a *PendingError and returns its load future.
func IsPending(err error) (*Future, bool) {
	var pe *PendingError
	if errors.As(err, &pe) {
		return pe.Load, true
	}
	return nil, false
}

// BackendError wraps a failure returned by the durable store.
type BackendError struct {
	Op  string // "open", "load", "get", "put", "delete"
	Key string // empty for open/load
	Err error
}

func (e *BackendError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("synckv: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("synckv: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// CommitError lists the background writes that failed since the previous
// WaitForCommit. Only returned when Options.StrictCommit is set.
type CommitError struct {
	Failed []*BackendError
}

func (e *CommitError) Error() string {
	switch len(e.Failed) {
	case 0:
		return "synckv: commit: no failures"
	case 1:
		return fmt.Sprintf("synckv: commit: 1 write failed: %v", e.Failed[0])
	default:
		return fmt.Sprintf("synckv: commit: %d writes failed; first: %v", len(e.Failed), e.Failed[0])
	}
}

func (e *CommitError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, f := range e.Failed {
		errs = append(errs, f)
	}
	return errs
}

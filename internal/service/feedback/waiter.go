package feedback

import (
	"context"
	"errors"
	"time"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

// ErrTimeout means no reply arrived in time and the session is now expired.
var ErrTimeout = errors.New("timed out waiting for feedback")

// Waiter blocks a single caller until its session completes or times out.
type Waiter struct {
	store *Store
}

// NewWaiter binds a waiter to the store it observes.
func NewWaiter(store *Store) *Waiter {
	return &Waiter{store: store}
}

// AwaitCompletion waits up to timeout for the session to be completed. On
// timeout the session is expired unless a reply won the race, in which case
// that reply is returned. Cancelling ctx leaves the session waiting. The wait
// is bound to the session present at call time; if it is swept, the wait ends
// with ErrSessionNotFound even when the id is created again.
func (w *Waiter) AwaitCompletion(ctx context.Context, sessionID string, timeout time.Duration) (feedback.Response, error) {
	e, ok := w.store.lookup(sessionID)
	if !ok {
		return feedback.Response{}, ErrSessionNotFound
	}

	if resp, settled, err := w.settled(e); settled {
		return resp, err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-e.done:
		return w.outcome(e)
	case <-timer.C:
		if _, err := w.store.expireEntry(e); err != nil {
			return feedback.Response{}, err
		}
		return w.outcome(e)
	case <-ctx.Done():
		return feedback.Response{}, ctx.Err()
	}
}

// outcome reads the result once the entry is known to have left Waiting.
func (w *Waiter) outcome(e *entry) (feedback.Response, error) {
	resp, settled, err := w.settled(e)
	if !settled {
		return feedback.Response{}, ErrSessionNotFound
	}
	return resp, err
}

// settled inspects the entry's state and reports whether the wait is over.
func (w *Waiter) settled(e *entry) (feedback.Response, bool, error) {
	session, ok := w.store.snapshot(e)
	if !ok {
		return feedback.Response{}, true, ErrSessionNotFound
	}

	switch session.Status {
	case feedback.StatusCompleted:
		return *session.Response, true, nil
	case feedback.StatusExpired:
		return feedback.Response{}, true, ErrTimeout
	default:
		return feedback.Response{}, false, nil
	}
}

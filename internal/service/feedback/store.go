package feedback

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/feedback-collector/backend/internal/model/feedback"
)

var (
	ErrDuplicateID     = errors.New("session id already exists")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionClosed   = errors.New("session already closed")
)

// entry is one stored session. A removed entry stays readable by waiters that
// still hold it, so a reused id never resolves an older wait.
type entry struct {
	session feedback.Session
	done    chan struct{}
	removed bool
}

// Store holds every in-flight and finished feedback session in memory.
// Terminal transitions are compare-and-set under the store lock, so the first
// writer of Completed or Expired wins and later writers become no-ops.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

// NewStore returns an empty session store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*entry),
		now:      time.Now,
	}
}

// Create registers a waiting session. A fresh id is generated when id is empty.
func (s *Store) Create(id, prompt string) (feedback.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return feedback.Session{}, ErrDuplicateID
	}

	session := feedback.Session{
		ID:        id,
		Prompt:    prompt,
		Status:    feedback.StatusWaiting,
		CreatedAt: s.now().UTC(),
	}
	s.sessions[id] = &entry{session: session, done: make(chan struct{})}
	return session, nil
}

// Get returns a snapshot of the session.
func (s *Store) Get(id string) (feedback.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return feedback.Session{}, false
	}
	return e.session, true
}

// Done returns a channel closed once the session leaves Waiting or is removed.
func (s *Store) Done(id string) (<-chan struct{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// lookup returns the live entry for id.
func (s *Store) lookup(id string) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	return e, ok
}

// snapshot reads a held entry. It reports false once the entry was swept.
func (s *Store) snapshot(e *entry) (feedback.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e.removed {
		return feedback.Session{}, false
	}
	return e.session, true
}

// Complete attaches the reply and marks the session completed. It returns false
// when the session had already reached a terminal state.
func (s *Store) Complete(id string, resp feedback.Response) (bool, error) {
	return s.transition(id, feedback.StatusCompleted, &resp)
}

// Expire marks a waiting session expired. It returns false when the session had
// already reached a terminal state.
func (s *Store) Expire(id string) (bool, error) {
	return s.transition(id, feedback.StatusExpired, nil)
}

func (s *Store) transition(id string, to feedback.Status, resp *feedback.Response) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return false, ErrSessionNotFound
	}
	return s.transitionLocked(e, to, resp)
}

// expireEntry expires exactly the entry a waiter holds, not whatever session
// currently owns its id.
func (s *Store) expireEntry(e *entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(e, feedback.StatusExpired, nil)
}

func (s *Store) transitionLocked(e *entry, to feedback.Status, resp *feedback.Response) (bool, error) {
	if e.removed {
		return false, ErrSessionNotFound
	}
	if e.session.Status != feedback.StatusWaiting {
		return false, nil
	}

	e.session.Status = to
	e.session.Response = resp
	e.session.ClosedAt = s.now().UTC()
	close(e.done)
	return true, nil
}

// RemoveOlderThan evicts every session whose age exceeds maxAge, whatever its
// status, and returns how many were removed.
func (s *Store) RemoveOlderThan(maxAge time.Duration) int {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.session.CreatedAt) <= maxAge {
			continue
		}
		if e.session.Status == feedback.StatusWaiting {
			close(e.done)
		}
		e.removed = true
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Len reports how many sessions are held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Stats counts sessions by status.
func (s *Store) Stats() map[feedback.Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[feedback.Status]int{
		feedback.StatusWaiting:   0,
		feedback.StatusCompleted: 0,
		feedback.StatusExpired:   0,
	}
	for _, e := range s.sessions {
		stats[e.session.Status]++
	}
	return stats
}

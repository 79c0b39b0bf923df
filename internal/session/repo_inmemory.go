package session

import (
	"sync"
	"time"
)

// InMemoryRepo is an in-memory session repository guarded by a RWMutex.
// Expired sessions are dropped lazily on access and swept opportunistically
// on writes.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	lastSweep time.Time
}

// NewInMemoryRepo creates a new in-memory session repository.
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]*Session),
	}
}

// Get retrieves a session by ID, treating expired sessions as absent.
func (r *InMemoryRepo) Get(id string) (*Session, error) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if !sess.ExpiresAt.IsZero() && time.Now().After(sess.ExpiresAt) {
		r.mu.Lock()
		delete(r.sessions, id)
		r.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Upsert creates or updates a session.
func (r *InMemoryRepo) Upsert(sess *Session) error {
	if sess.ID == "" {
		return ErrSessionNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sess.ID] = sess
	r.sweepLocked()
	return nil
}

// Delete removes a session. Deleting an unknown ID is not an error.
func (r *InMemoryRepo) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

// sweepLocked prunes expired sessions at most once a minute. Caller holds
// the write lock.
func (r *InMemoryRepo) sweepLocked() {
	now := time.Now()
	if now.Sub(r.lastSweep) < time.Minute {
		return
	}
	r.lastSweep = now
	for id, sess := range r.sessions {
		if !sess.ExpiresAt.IsZero() && now.After(sess.ExpiresAt) {
			delete(r.sessions, id)
		}
	}
}

// Compile-time check
var _ Repo = (*InMemoryRepo)(nil)

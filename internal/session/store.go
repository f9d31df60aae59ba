package session

import (
	"sync"
	"time"
)

// Store manages at most one session per user. Implementations apply lazy
// expiry: a session past its idle timeout is deleted the next time it is
// read, never by a background sweep.
type Store interface {
	// Create installs a fresh session for the user, replacing any existing
	// one unconditionally.
	Create(userID string, search SearchState) *Session

	// Get returns the user's live session, deleting and reporting absence
	// if it has expired.
	Get(userID string) (*Session, bool)

	// Mutate applies fn to the live session and refreshes its activity
	// timestamp. Returns false when there is no live session.
	Mutate(userID string, fn func(*Session)) bool

	// Touch refreshes the activity timestamp without other mutation.
	Touch(userID string) bool
}

// MemoryStore is the in-memory Store implementation. Sessions for distinct
// users are fully independent; one mutex over the map is enough because
// every operation is a short critical section with no blocking calls inside.
type MemoryStore struct {
	mu       sync.Mutex
	timeout  time.Duration
	sessions map[string]*Session
}

// NewMemoryStore creates a store whose sessions expire after the given
// idle timeout.
func NewMemoryStore(timeout time.Duration) *MemoryStore {
	return &MemoryStore{
		timeout:  timeout,
		sessions: make(map[string]*Session),
	}
}

// Create replaces any existing session for the user. Last write wins when
// two creates race; the map entry is swapped atomically under the lock.
func (s *MemoryStore) Create(userID string, search SearchState) *Session {
	sess := New(search)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[NormalizeID(userID)] = sess
	return sess
}

// Get applies the lazy-expiry check. Expired sessions are deleted on read,
// so a second Get for the same user is an ordinary miss.
func (s *MemoryStore) Get(userID string) (*Session, bool) {
	key := NormalizeID(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if time.Since(sess.LastActivity) > s.timeout {
		delete(s.sessions, key)
		return nil, false
	}
	return sess, true
}

// Mutate runs fn on the live session under the store lock and refreshes
// LastActivity. fn must not block.
func (s *MemoryStore) Mutate(userID string, fn func(*Session)) bool {
	key := NormalizeID(userID)

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return false
	}
	if time.Since(sess.LastActivity) > s.timeout {
		delete(s.sessions, key)
		return false
	}

	fn(sess)
	sess.LastActivity = time.Now()
	return true
}

// Touch refreshes LastActivity on a live session.
func (s *MemoryStore) Touch(userID string) bool {
	return s.Mutate(userID, func(*Session) {})
}

// Count returns the number of tracked sessions, expired ones included
// until their next read. Used by the status gateway.
func (s *MemoryStore) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

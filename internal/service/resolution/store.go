package resolution

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cardline/backend/internal/model/session"
)

type entry struct {
	sess      session.Session
	inFlight  bool
	updatedAt time.Time
}

// SessionStore keeps resolution sessions in memory. All state transitions go
// through Claim/Complete/Release or Transition, which serialize on the store
// lock so concurrent operations on one session cannot both pass the
// state-precondition check.
//
// Retention is bounded: a janitor evicts terminal (summary_ready) sessions
// once they exceed the TTL. In-flight and non-terminal sessions are never
// evicted. A zero TTL disables eviction.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*entry

	ttl  time.Duration
	done chan struct{}
	once sync.Once
}

// NewSessionStore creates a store and, when ttl > 0, starts the eviction
// janitor at the given sweep interval.
func NewSessionStore(ttl, sweepInterval time.Duration) *SessionStore {
	s := &SessionStore{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		if sweepInterval <= 0 {
			sweepInterval = 5 * time.Minute
		}
		go s.janitor(sweepInterval)
	}
	return s
}

// Close stops the eviction janitor.
func (s *SessionStore) Close() {
	s.once.Do(func() { close(s.done) })
}

// Create stores a new session.
func (s *SessionStore) Create(sess session.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = &entry{sess: sess, updatedAt: time.Now()}
}

// Get returns a copy of the session.
func (s *SessionStore) Get(sessionID string) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return e.sess, nil
}

// Claim atomically checks that the session is in the required state and not
// already being operated on, then marks it in-flight. The winner gets a copy
// to work with; a concurrent claimer gets ErrInvalidState.
func (s *SessionStore) Claim(sessionID string, required session.Status) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if e.inFlight {
		return session.Session{}, fmt.Errorf("%w: session %s is being handled", ErrInvalidState, sessionID)
	}
	if e.sess.Status != required {
		return session.Session{}, fmt.Errorf("%w: session %s is %s, want %s",
			ErrInvalidState, sessionID, e.sess.Status, required)
	}

	e.inFlight = true
	return e.sess, nil
}

// Release undoes a claim after a failed operation, leaving the session in
// its pre-claim state.
func (s *SessionStore) Release(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[sessionID]; ok {
		e.inFlight = false
	}
}

// Complete applies the mutation for a claimed session and clears the claim.
func (s *SessionStore) Complete(sessionID string, apply func(*session.Session)) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	apply(&e.sess)
	e.inFlight = false
	e.updatedAt = time.Now()
	return e.sess, nil
}

// Transition performs an atomic compare-and-set on the session status.
func (s *SessionStore) Transition(sessionID string, from, to session.Status) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok {
		return session.Session{}, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if e.inFlight {
		return session.Session{}, fmt.Errorf("%w: session %s is being handled", ErrInvalidState, sessionID)
	}
	if e.sess.Status != from {
		return session.Session{}, fmt.Errorf("%w: session %s is %s, want %s",
			ErrInvalidState, sessionID, e.sess.Status, from)
	}

	e.sess.Status = to
	e.updatedAt = time.Now()
	return e.sess, nil
}

func (s *SessionStore) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *SessionStore) evictExpired() {
	cutoff := time.Now().Add(-s.ttl)

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.sessions {
		if e.sess.Status == session.StatusSummaryReady && !e.inFlight && e.updatedAt.Before(cutoff) {
			delete(s.sessions, id)
			log.Debug().Str("sessionId", id).Msg("evicted expired session")
		}
	}
}

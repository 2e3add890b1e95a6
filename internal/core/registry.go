package core

import (
	"sync"

	"github.com/google/uuid"
)

const outboundQueueSize = 64

// Session is one live connection. It is bound to at most one user, set
// once at authentication time, and owns the outbound delta queue the
// write loop drains.
type Session struct {
	ID string

	mu     sync.Mutex
	userID string
	closed bool

	out  chan *Event
	kill func()
}

// UserID returns the bound user id, empty until authenticated.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Outbound is drained by the session's write loop.
func (s *Session) Outbound() <-chan *Event {
	return s.out
}

// Enqueue places an event on the session's outbound queue. A closed or
// full queue means the peer is gone or too slow; the session is
// scheduled for teardown instead of blocking the caller.
func (s *Session) Enqueue(ev *Event) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.mu.Unlock()

	select {
	case s.out <- ev:
		return nil
	default:
		s.kill()
		return ErrSessionClosed
	}
}

// Registry tracks live sessions. It is the only structure session
// handlers mutate directly, guarded independently from the stores.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Open admits a new unauthenticated session. kill is invoked, at most
// once per need, when the session must be torn down from outside its
// own loops (slow consumer, admin shutdown).
func (r *Registry) Open(kill func()) *Session {
	s := &Session{
		ID:   uuid.NewString(),
		out:  make(chan *Event, outboundQueueSize),
		kill: kill,
	}

	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	return s
}

// Authenticate binds the session to a user. Rebinding an already-bound
// session is rejected.
func (r *Registry) Authenticate(sessionID, userID string) error {
	r.mu.RLock()
	s, ok := r.sessions[sessionID]
	r.mu.RUnlock()
	if !ok {
		return ErrSessionClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userID != "" {
		return ErrAlreadyAuthed
	}
	s.userID = userID
	return nil
}

// Close removes the session and marks its queue dead. Idempotent.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	if !ok {
		return
	}

	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// SessionsFor returns the live sessions bound to userID.
func (r *Registry) SessionsFor(userID string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.UserID() == userID {
			out = append(out, s)
		}
	}
	return out
}

// All returns every live session, authenticated or not.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// Authenticated returns every session with a bound user.
func (r *Registry) Authenticated() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Session
	for _, s := range r.sessions {
		if s.UserID() != "" {
			out = append(out, s)
		}
	}
	return out
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

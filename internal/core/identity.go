package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// IdentityStore maps opaque user identifiers to profiles. Mutations go
// through the Sequencer only; lookups may be served directly.
type IdentityStore struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]string // display name -> user id
}

// NewIdentityStore returns an empty identity store.
func NewIdentityStore() *IdentityStore {
	return &IdentityStore{
		byID:   make(map[string]*User),
		byName: make(map[string]string),
	}
}

// Register creates a new user with a fresh identifier. Fails with
// ErrNameConflict if the display name is already taken.
func (s *IdentityStore) Register(name string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byName[name]; taken {
		return User{}, ErrNameConflict
	}

	u := &User{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	s.byID[u.ID] = u
	s.byName[u.Name] = u.ID
	return *u, nil
}

// Lookup returns the user for id, if registered.
func (s *IdentityStore) Lookup(id string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// LookupName resolves a display name to its current owner.
func (s *IdentityStore) LookupName(name string) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byName[name]
	if !ok {
		return User{}, false
	}
	return *s.byID[id], true
}

// Rename changes a user's display name. The identifier stays the
// durable key; only the name moves.
func (s *IdentityStore) Rename(id, newName string) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, ErrUnknownUser
	}
	if owner, taken := s.byName[newName]; taken && owner != id {
		return User{}, ErrNameConflict
	}

	delete(s.byName, u.Name)
	u.Name = newName
	s.byName[newName] = id
	return *u, nil
}

// All returns every user ordered by registration time.
func (s *IdentityStore) All() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of registered users.
func (s *IdentityStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Restore replaces the store's contents with a loaded snapshot.
func (s *IdentityStore) Restore(users []User) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID = make(map[string]*User, len(users))
	s.byName = make(map[string]string, len(users))
	for i := range users {
		u := users[i]
		s.byID[u.ID] = &u
		s.byName[u.Name] = u.ID
	}
}

package core

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ChatStore maps chat identifiers to metadata and message logs.
// Participant existence against the identity store is the Sequencer's
// job; this store enforces membership and ordering invariants only.
type ChatStore struct {
	mu    sync.RWMutex
	chats map[string]*Chat
}

// NewChatStore returns an empty chat store.
func NewChatStore() *ChatStore {
	return &ChatStore{chats: make(map[string]*Chat)}
}

// Create builds a new chat. The creator is always a participant;
// duplicate ids collapse while keeping first-seen order.
func (s *ChatStore) Create(creatorID string, participantIDs []string) Chat {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	c := &Chat{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		LastActive: now,
	}

	seen := make(map[string]struct{})
	for _, id := range append([]string{creatorID}, participantIDs...) {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.Participants = append(c.Participants, id)
	}

	s.chats[c.ID] = c
	return c.Clone()
}

// AddParticipant appends newUserID to the chat's participant set. Only
// an existing participant may add another; adding a present member is
// a no-op reported as ok.
func (s *ChatStore) AddParticipant(chatID, actorID, newUserID string) (Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return Chat{}, ErrUnknownChat
	}
	if !c.HasParticipant(actorID) {
		return Chat{}, ErrNotAParticipant
	}
	if !c.HasParticipant(newUserID) {
		c.Participants = append(c.Participants, newUserID)
		c.LastActive = time.Now()
	}
	return c.Clone(), nil
}

// Append accepts a message into the chat's log, assigning the next
// acceptance position and a timestamp that never decreases within the
// chat.
func (s *ChatStore) Append(chatID, senderID, body string) (Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.chats[chatID]
	if !ok {
		return Message{}, ErrUnknownChat
	}
	if !c.HasParticipant(senderID) {
		return Message{}, ErrNotAParticipant
	}

	now := time.Now()
	if n := len(c.Messages); n > 0 && now.Before(c.Messages[n-1].CreatedAt) {
		now = c.Messages[n-1].CreatedAt
	}

	msg := Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Seq:       int64(len(c.Messages)) + 1,
		Body:      body,
		CreatedAt: now,
	}
	c.Messages = append(c.Messages, msg)
	c.LastActive = now
	return msg, nil
}

// Get returns a copy of the chat.
func (s *ChatStore) Get(chatID string) (Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok {
		return Chat{}, false
	}
	return c.Clone(), true
}

// Participants returns the chat's current participant set.
func (s *ChatStore) Participants(chatID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, ErrUnknownChat
	}
	return append([]string(nil), c.Participants...), nil
}

// ListByUser returns the chats userID participates in, most recently
// active first.
func (s *ChatStore) ListByUser(userID string) []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Chat
	for _, c := range s.chats {
		if c.HasParticipant(userID) {
			out = append(out, c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LastActive.Equal(out[j].LastActive) {
			return out[i].ID < out[j].ID
		}
		return out[i].LastActive.After(out[j].LastActive)
	})
	return out
}

// History returns the chat's ordered message log. Only participants may
// read it.
func (s *ChatStore) History(chatID, actorID string) ([]Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chats[chatID]
	if !ok {
		return nil, ErrUnknownChat
	}
	if !c.HasParticipant(actorID) {
		return nil, ErrNotAParticipant
	}
	return append([]Message(nil), c.Messages...), nil
}

// All returns every chat ordered by creation time, for snapshots.
func (s *ChatStore) All() []Chat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Restore replaces the store's contents with a loaded snapshot.
func (s *ChatStore) Restore(chats []Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chats = make(map[string]*Chat, len(chats))
	for i := range chats {
		c := chats[i].Clone()
		s.chats[c.ID] = &c
	}
}

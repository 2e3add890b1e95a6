package core

import "time"

// User is a registered account. The ID is the opaque server-issued
// identifier clients authenticate with; possession of it is the entire
// trust boundary.
type User struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// Message is one entry in a chat's append-only log. Seq is the
// acceptance order within the chat; CreatedAt is assigned by the server
// at acceptance time and never decreases within one chat.
type Message struct {
	ChatID    string
	SenderID  string
	Seq       int64
	Body      string
	CreatedAt time.Time
}

// Chat groups a participant set with its message log. Participants
// keep insertion order for display; membership itself is a set.
type Chat struct {
	ID           string
	Participants []string
	Messages     []Message
	CreatedAt    time.Time
	LastActive   time.Time
}

// HasParticipant reports whether userID belongs to the chat.
func (c *Chat) HasParticipant(userID string) bool {
	for _, id := range c.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy safe to hand outside the store's lock.
func (c *Chat) Clone() Chat {
	out := *c
	out.Participants = append([]string(nil), c.Participants...)
	out.Messages = append([]Message(nil), c.Messages...)
	return out
}

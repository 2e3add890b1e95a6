// Package store is the persistence gateway: it snapshots the identity
// and chat stores to sqlite on a schedule and on shutdown, and loads
// them back at startup. Persistence is not transactional with the
// sequencer; a crash loses at most the mutations since the last flush.
package store

import (
	"time"

	"github.com/chatbois/chatbois-server/internal/core"
)

// userRecord is the durable form of a core.User.
type userRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// messageRecord is the durable form of a core.Message.
type messageRecord struct {
	ChatID    string    `json:"chat_id"`
	SenderID  string    `json:"sender_id"`
	Seq       int64     `json:"seq"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// chatRecord is the durable form of a core.Chat.
type chatRecord struct {
	ID           string          `json:"id"`
	Participants []string        `json:"participants"`
	Messages     []messageRecord `json:"messages"`
	CreatedAt    time.Time       `json:"created_at"`
	LastActive   time.Time       `json:"last_active"`
}

func usersToRecords(users []core.User) []userRecord {
	out := make([]userRecord, 0, len(users))
	for _, u := range users {
		out = append(out, userRecord(u))
	}
	return out
}

func usersFromRecords(recs []userRecord) []core.User {
	out := make([]core.User, 0, len(recs))
	for _, r := range recs {
		out = append(out, core.User(r))
	}
	return out
}

func chatsToRecords(chats []core.Chat) []chatRecord {
	out := make([]chatRecord, 0, len(chats))
	for _, c := range chats {
		rec := chatRecord{
			ID:           c.ID,
			Participants: c.Participants,
			Messages:     make([]messageRecord, 0, len(c.Messages)),
			CreatedAt:    c.CreatedAt,
			LastActive:   c.LastActive,
		}
		for _, m := range c.Messages {
			rec.Messages = append(rec.Messages, messageRecord(m))
		}
		out = append(out, rec)
	}
	return out
}

func chatsFromRecords(recs []chatRecord) []core.Chat {
	out := make([]core.Chat, 0, len(recs))
	for _, r := range recs {
		c := core.Chat{
			ID:           r.ID,
			Participants: r.Participants,
			Messages:     make([]core.Message, 0, len(r.Messages)),
			CreatedAt:    r.CreatedAt,
			LastActive:   r.LastActive,
		}
		for _, m := range r.Messages {
			c.Messages = append(c.Messages, core.Message(m))
		}
		out = append(out, c)
	}
	return out
}

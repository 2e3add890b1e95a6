package core

import (
	"sync"

	"github.com/rs/zerolog"
)

// Sequencer is the single authority for state mutation. Every mutation
// runs under one mutex spanning both stores, so accepted mutations are
// totally ordered; the matching change event is emitted before the
// mutex is released, so channel order equals acceptance order.
//
// Reads (user list, chat list, history) go straight to the stores:
// entities are immutable once created or appended.
type Sequencer struct {
	users *IdentityStore
	chats *ChatStore
	log   *zerolog.Logger

	mu       sync.Mutex
	events   chan *Event
	maxUsers int
	locked   bool
}

// NewSequencer wires the sequencer over the two stores. maxUsers of 0
// means no registration cap.
func NewSequencer(users *IdentityStore, chats *ChatStore, maxUsers int, logger *zerolog.Logger) *Sequencer {
	return &Sequencer{
		users:    users,
		chats:    chats,
		log:      logger,
		events:   make(chan *Event, 256),
		maxUsers: maxUsers,
	}
}

// Events is consumed by the Broadcast Router, in acceptance order.
func (q *Sequencer) Events() <-chan *Event {
	return q.events
}

// emit hands a change event to the router without ever blocking under
// the mutation lock. The buffer only fills once the router has stopped
// draining, i.e. during shutdown; dropping a delta then loses nothing
// durable.
func (q *Sequencer) emit(ev *Event) {
	select {
	case q.events <- ev:
	default:
		q.log.Warn().Int("kind", int(ev.Kind)).Msg("event buffer full, dropping change event")
	}
}

// Register creates a new user. Rejected when the name is taken, the
// server is locked, or the user cap is reached; rejections emit no event.
func (q *Sequencer) Register(name string) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.locked {
		return User{}, ErrServerLocked
	}
	if q.maxUsers > 0 && q.users.Count() >= q.maxUsers {
		return User{}, ErrServerFull
	}

	u, err := q.users.Register(name)
	if err != nil {
		return User{}, err
	}

	q.emit(&Event{
		Kind:   EventUserRegistered,
		User:   &u,
		Users:  q.users.All(),
		Global: true,
	})
	return u, nil
}

// Rename changes a user's display name. Past messages keep referencing
// the user id; clients resolve names from the refreshed user list.
func (q *Sequencer) Rename(userID, newName string) (User, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	u, err := q.users.Rename(userID, newName)
	if err != nil {
		return User{}, err
	}

	q.emit(&Event{
		Kind:   EventUserRenamed,
		User:   &u,
		Users:  q.users.All(),
		Global: true,
	})
	return u, nil
}

// CreateChat builds a chat for the creator plus the named participants.
// Every participant must be a registered user.
func (q *Sequencer) CreateChat(creatorID string, participantIDs []string) (Chat, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.users.Lookup(creatorID); !ok {
		return Chat{}, ErrUnknownUser
	}
	for _, id := range participantIDs {
		if _, ok := q.users.Lookup(id); !ok {
			return Chat{}, ErrUnknownUser
		}
	}

	c := q.chats.Create(creatorID, participantIDs)
	q.emit(&Event{
		Kind:       EventChatCreated,
		Chat:       &c,
		Interested: c.Participants,
	})
	return c, nil
}

// AddParticipant lets an existing participant add a registered user.
// The interest set is the membership after the add, so the newcomer
// learns about the chat too.
func (q *Sequencer) AddParticipant(chatID, actorID, newUserID string) (Chat, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.users.Lookup(newUserID); !ok {
		return Chat{}, ErrUnknownUser
	}

	c, err := q.chats.AddParticipant(chatID, actorID, newUserID)
	if err != nil {
		return Chat{}, err
	}

	q.emit(&Event{
		Kind:       EventParticipantAdded,
		Chat:       &c,
		User:       &User{ID: newUserID},
		ChatID:     chatID,
		Interested: c.Participants,
	})
	return c, nil
}

// SendMessage appends a message to the chat's log and fans the delta
// out to the participant set at acceptance time.
func (q *Sequencer) SendMessage(chatID, senderID, body string) (Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	msg, err := q.chats.Append(chatID, senderID, body)
	if err != nil {
		return Message{}, err
	}

	participants, _ := q.chats.Participants(chatID)
	q.emit(&Event{
		Kind:       EventMessageSent,
		Message:    &msg,
		ChatID:     chatID,
		Interested: participants,
	})
	return msg, nil
}

// Lock stops new registrations; existing users are unaffected.
func (q *Sequencer) Lock() {
	q.mu.Lock()
	q.locked = true
	q.mu.Unlock()
}

// Unlock resumes registrations.
func (q *Sequencer) Unlock() {
	q.mu.Lock()
	q.locked = false
	q.mu.Unlock()
}

// IncrementMaxUsers raises the registration cap by n and returns the
// new cap. A cap of 0 stays uncapped.
func (q *Sequencer) IncrementMaxUsers(n int) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.maxUsers == 0 {
		return 0
	}
	q.maxUsers += n
	return q.maxUsers
}

// Status reports registered user count, the current cap and whether
// the server is locked, consistently under the mutation lock.
func (q *Sequencer) Status() (users, maxUsers int, locked bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.users.Count(), q.maxUsers, q.locked
}

// Snapshot captures both stores under the mutation lock so the pair is
// consistent with each other.
func (q *Sequencer) Snapshot() ([]User, []Chat) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.users.All(), q.chats.All()
}

// Restore loads both stores from a snapshot. Callers run it before the
// server starts accepting sessions.
func (q *Sequencer) Restore(users []User, chats []Chat) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.users.Restore(users)
	q.chats.Restore(chats)
}

package core

// EventKind identifies what happened or what a session is being told.
type EventKind int

const (
	// Change events, emitted by the Sequencer in acceptance order and
	// fanned out by the Router.

	// EventUserRegistered announces a new user to every live session.
	EventUserRegistered EventKind = iota
	// EventUserRenamed announces a display-name change to every live session.
	EventUserRenamed
	// EventChatCreated notifies a new chat's participants.
	EventChatCreated
	// EventParticipantAdded notifies a chat's participants about a new member.
	EventParticipantAdded
	// EventMessageSent delivers an accepted message to the chat's participants.
	EventMessageSent

	// Direct replies, enqueued only on the originating session.

	// EventAuthenticated confirms a session's user binding.
	EventAuthenticated
	// EventUserList answers a list_users command.
	EventUserList
	// EventChatList answers a list_chats command.
	EventChatList
	// EventHistory answers a history command.
	EventHistory
	// EventPong answers a liveness ping.
	EventPong
	// EventError reports a rejected command to its sender.
	EventError
)

// Event is the unit flowing from the Sequencer through the Router into
// session outbound queues. For change events Interested (or Global)
// names the users whose sessions must observe it; direct replies skip
// the Router entirely.
type Event struct {
	Kind     EventKind
	User     *User
	Users    []User
	Chat     *Chat
	Message  *Message
	Messages []Message
	ChatID   string
	Chats    []Chat
	Error    *Error

	// Interest set, resolved to live sessions by the Router.
	Interested []string
	Global     bool
}

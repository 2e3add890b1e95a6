// Package proto defines the frames flowing over a client's websocket
// connection: command envelopes inbound, ack/delta envelopes outbound.
// All frames are JSON with a type discriminator.
package proto

import "encoding/json"

// Inbound is the envelope for commands coming from the client. Data is
// decoded lazily once the type is known.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeRegister       = "register"
	InboundTypeAuth           = "auth"
	InboundTypeRename         = "rename"
	InboundTypeListUsers      = "list_users"
	InboundTypeCreateChat     = "create_chat"
	InboundTypeAddParticipant = "add_participant"
	InboundTypeSendMsg        = "send_msg"
	InboundTypeListChats      = "list_chats"
	InboundTypeHistory        = "history"
	InboundTypePing           = "ping"

	OutboundTypeAuthenticated = "authenticated"
	OutboundTypeEvent         = "event"
	OutboundTypeError         = "error"

	EventUserList         = "user_list"
	EventChatCreated      = "chat_created"
	EventParticipantAdded = "participant_added"
	EventMessage          = "message"
	EventChatList         = "chat_list"
	EventHistory          = "history"
	EventPong             = "pong"
)

// RegisterData asks the server for a fresh identity under a display name.
type RegisterData struct {
	Name string `json:"name"`
}

// AuthData binds the session to an existing identifier.
type AuthData struct {
	UserID string `json:"user_id"`
}

// RenameData changes the caller's display name.
type RenameData struct {
	Name string `json:"name"`
}

// CreateChatData names the initial participant set by display name; the
// caller is implicitly included.
type CreateChatData struct {
	Participants []string `json:"participants"`
}

// AddParticipantData adds a registered user to an existing chat.
type AddParticipantData struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// SendMsgData is a chat message from the client. The server assigns
// order and timestamp.
type SendMsgData struct {
	ChatID string `json:"chat_id"`
	Body   string `json:"body"`
}

// HistoryData requests a chat's full message log.
type HistoryData struct {
	ChatID string `json:"chat_id"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// AuthenticatedData confirms the session's binding.
type AuthenticatedData struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// UserSummary is one entry of a user_list snapshot.
type UserSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MessageData is one accepted message as pushed or replayed to clients.
type MessageData struct {
	ChatID string `json:"chat_id"`
	Sender string `json:"sender"`
	Seq    int64  `json:"seq"`
	Body   string `json:"body"`
	TS     int64  `json:"ts"`
}

// ChatData is a chat snapshot for chat_created and chat_list frames.
type ChatData struct {
	ID           string        `json:"id"`
	Participants []string      `json:"participants"`
	Messages     []MessageData `json:"messages,omitempty"`
}

// ParticipantAddedData announces a membership change.
type ParticipantAddedData struct {
	ChatID string `json:"chat_id"`
	UserID string `json:"user_id"`
}

// HistoryEventData carries a chat's ordered message log.
type HistoryEventData struct {
	ChatID   string        `json:"chat_id"`
	Messages []MessageData `json:"messages"`
}

// Error describes a rejected command.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

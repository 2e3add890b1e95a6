package http

import (
	"encoding/json"

	"github.com/chatbois/chatbois-server/internal/core"
	"github.com/chatbois/chatbois-server/internal/proto"
)

// decode unmarshals a command payload, reporting malformed_command on
// any shape error so the session survives bad input.
func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return &core.Error{Code: core.ErrCodeMalformedCommand, Message: "missing command data"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &core.Error{Code: core.ErrCodeMalformedCommand, Message: "invalid command data"}
	}
	return nil
}

func userSummaries(users []core.User) []proto.UserSummary {
	out := make([]proto.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, proto.UserSummary{ID: u.ID, Name: u.Name})
	}
	return out
}

func messageData(m core.Message) proto.MessageData {
	return proto.MessageData{
		ChatID: m.ChatID,
		Sender: m.SenderID,
		Seq:    m.Seq,
		Body:   m.Body,
		TS:     m.CreatedAt.Unix(),
	}
}

func messagesData(msgs []core.Message) []proto.MessageData {
	out := make([]proto.MessageData, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageData(m))
	}
	return out
}

func chatData(c core.Chat, withMessages bool) proto.ChatData {
	data := proto.ChatData{
		ID:           c.ID,
		Participants: append([]string(nil), c.Participants...),
	}
	if withMessages {
		data.Messages = messagesData(c.Messages)
	}
	return data
}

// outboundFromEvent renders a core event as its wire frame.
func outboundFromEvent(ev *core.Event) proto.Outbound {
	switch ev.Kind {
	case core.EventAuthenticated:
		return proto.Outbound{
			Type: proto.OutboundTypeAuthenticated,
			Data: proto.AuthenticatedData{UserID: ev.User.ID, Name: ev.User.Name},
		}

	case core.EventUserRegistered, core.EventUserRenamed, core.EventUserList:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventUserList,
			Data:  userSummaries(ev.Users),
		}

	case core.EventChatCreated:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatCreated,
			Data:  chatData(*ev.Chat, false),
		}

	case core.EventParticipantAdded:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventParticipantAdded,
			Data:  proto.ParticipantAddedData{ChatID: ev.ChatID, UserID: ev.User.ID},
		}

	case core.EventMessageSent:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventMessage,
			Data:  messageData(*ev.Message),
		}

	case core.EventChatList:
		chats := make([]proto.ChatData, 0, len(ev.Chats))
		for _, c := range ev.Chats {
			chats = append(chats, chatData(c, false))
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventChatList,
			Data:  chats,
		}

	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventHistory,
			Data:  proto.HistoryEventData{ChatID: ev.ChatID, Messages: messagesData(ev.Messages)},
		}

	case core.EventPong:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventPong,
		}

	case core.EventError:
		if ev.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: ev.Error.Code, Msg: ev.Error.Message},
		}

	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

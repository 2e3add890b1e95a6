package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/chatbois/chatbois-server/internal/core"
	"github.com/chatbois/chatbois-server/internal/proto"
)

// WSHandler upgrades HTTP connections and runs the per-session
// protocol loop: a read loop dispatching commands and a write loop
// draining the session's outbound queue. Either failing tears the
// session down without touching anyone else.
type WSHandler struct {
	deps        Deps
	idleTimeout time.Duration
	log         *zerolog.Logger
}

// NewWSHandler builds the websocket session handler.
func NewWSHandler(deps Deps, idleTimeout time.Duration, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{deps: deps, idleTimeout: idleTimeout, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	session := h.deps.Registry.Open(cancel)
	defer h.deps.Registry.Close(session.ID)

	h.log.Debug().Str("session_id", session.ID).Msg("session opened")

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, session)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, session)
	}()

	err = <-errCh
	cancel() // stop the other loop
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != 0 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			h.log.Warn().Err(err).Str("session_id", session.ID).Msg("session closed with error")
		}
	}

	conn.Close(status, reason)
}

// readLoop consumes inbound frames until the connection dies or goes
// idle past the liveness window. Pings count as traffic.
func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		readCtx := ctx
		var cancel context.CancelFunc
		if h.idleTimeout > 0 {
			readCtx, cancel = context.WithTimeout(ctx, h.idleTimeout)
		}

		var inbound proto.Inbound
		err := wsjson.Read(readCtx, conn, &inbound)
		idle := err != nil && errors.Is(readCtx.Err(), context.DeadlineExceeded)
		if cancel != nil {
			cancel()
		}
		if err != nil {
			if idle {
				h.log.Info().Str("session_id", session.ID).Msg("idle session torn down")
			}
			return err
		}

		if err := h.dispatch(session, inbound); err != nil {
			return err
		}
	}
}

// writeLoop is the connection's only writer. It drains the outbound
// queue fed by direct replies and the broadcast router.
func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, session *core.Session) error {
	for {
		select {
		case ev := <-session.Outbound():
			if err := wsjson.Write(ctx, conn, outboundFromEvent(ev)); err != nil {
				h.log.Error().Err(err).Str("session_id", session.ID).Msg("write ws event")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// dispatch validates a command, runs it, and enqueues the direct reply
// or error. Returning a non-nil error kills the session; command
// failures are reported to the peer instead.
func (h *WSHandler) dispatch(session *core.Session, inbound proto.Inbound) error {
	reply, err := h.handle(session, inbound)
	if err != nil {
		we := core.WireError(err)
		return session.Enqueue(&core.Event{
			Kind:  core.EventError,
			Error: we,
		})
	}
	if reply != nil {
		return session.Enqueue(reply)
	}
	return nil
}

func (h *WSHandler) handle(session *core.Session, inbound proto.Inbound) (*core.Event, error) {
	switch inbound.Type {
	case proto.InboundTypePing:
		return &core.Event{Kind: core.EventPong}, nil

	case proto.InboundTypeRegister:
		var data proto.RegisterData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Name == "" {
			return nil, &core.Error{Code: core.ErrCodeMalformedCommand, Message: "name is required"}
		}
		if session.UserID() != "" {
			return nil, core.ErrAlreadyAuthed
		}
		u, err := h.deps.Sequencer.Register(data.Name)
		if err != nil {
			return nil, err
		}
		if err := h.deps.Registry.Authenticate(session.ID, u.ID); err != nil {
			return nil, err
		}
		h.log.Info().Str("session_id", session.ID).Str("user_id", u.ID).Str("name", u.Name).Msg("user registered")
		return &core.Event{Kind: core.EventAuthenticated, User: &u}, nil

	case proto.InboundTypeAuth:
		var data proto.AuthData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		u, ok := h.deps.Users.Lookup(data.UserID)
		if !ok {
			return nil, core.ErrUnknownUser
		}
		if err := h.deps.Registry.Authenticate(session.ID, u.ID); err != nil {
			return nil, err
		}
		h.log.Info().Str("session_id", session.ID).Str("user_id", u.ID).Msg("session authenticated")
		return &core.Event{Kind: core.EventAuthenticated, User: &u}, nil
	}

	// Everything below requires a bound session.
	userID := session.UserID()
	if userID == "" {
		return nil, core.ErrUnauthenticated
	}

	switch inbound.Type {
	case proto.InboundTypeRename:
		var data proto.RenameData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Name == "" {
			return nil, &core.Error{Code: core.ErrCodeMalformedCommand, Message: "name is required"}
		}
		u, err := h.deps.Sequencer.Rename(userID, data.Name)
		if err != nil {
			return nil, err
		}
		return &core.Event{Kind: core.EventAuthenticated, User: &u}, nil

	case proto.InboundTypeListUsers:
		return &core.Event{Kind: core.EventUserList, Users: h.deps.Users.All()}, nil

	case proto.InboundTypeCreateChat:
		var data proto.CreateChatData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		ids := make([]string, 0, len(data.Participants))
		for _, name := range data.Participants {
			u, ok := h.deps.Users.LookupName(name)
			if !ok {
				return nil, core.ErrUnknownUser
			}
			ids = append(ids, u.ID)
		}
		if _, err := h.deps.Sequencer.CreateChat(userID, ids); err != nil {
			return nil, err
		}
		// The chat_created delta routed back to this user is the ack.
		return nil, nil

	case proto.InboundTypeAddParticipant:
		var data proto.AddParticipantData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if _, err := h.deps.Sequencer.AddParticipant(data.ChatID, userID, data.UserID); err != nil {
			return nil, err
		}
		return nil, nil

	case proto.InboundTypeSendMsg:
		var data proto.SendMsgData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		if _, err := h.deps.Sequencer.SendMessage(data.ChatID, userID, data.Body); err != nil {
			return nil, err
		}
		return nil, nil

	case proto.InboundTypeListChats:
		return &core.Event{Kind: core.EventChatList, Chats: h.deps.Chats.ListByUser(userID)}, nil

	case proto.InboundTypeHistory:
		var data proto.HistoryData
		if err := decode(inbound.Data, &data); err != nil {
			return nil, err
		}
		msgs, err := h.deps.Chats.History(data.ChatID, userID)
		if err != nil {
			return nil, err
		}
		return &core.Event{Kind: core.EventHistory, ChatID: data.ChatID, Messages: msgs}, nil
	}

	return nil, &core.Error{Code: core.ErrCodeMalformedCommand, Message: "unknown command type"}
}

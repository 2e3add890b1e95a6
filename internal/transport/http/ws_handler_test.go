package http

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/chatbois/chatbois-server/internal/core"
	"github.com/chatbois/chatbois-server/internal/proto"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// outFrame mirrors proto.Outbound with raw data for per-case decoding.
type outFrame struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	users := core.NewIdentityStore()
	chats := core.NewChatStore()
	seq := core.NewSequencer(users, chats, 0, nopLogger())
	registry := core.NewRegistry()
	logger := zerolog.Nop()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.NewRouter(registry, seq.Events(), &logger).Run(ctx)

	deps := Deps{
		Sequencer: seq,
		Registry:  registry,
		Users:     users,
		Chats:     chats,
		Shutdown:  func() {},
	}
	srv := httptest.NewServer(NewWSHandler(deps, 0, &logger))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.Dial(ctx, srv.URL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "test done") })
	return conn
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		if err != nil {
			t.Fatalf("marshal %s: %v", typ, err)
		}
		raw = b
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// recvFrame waits for the next frame matching the predicate, skipping
// interleaved broadcast frames such as user_list refreshes.
func recvFrame(t *testing.T, ctx context.Context, conn *websocket.Conn, match func(outFrame) bool) outFrame {
	t.Helper()

	deadline, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for {
		var frame outFrame
		if err := wsjson.Read(deadline, conn, &frame); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(frame) {
			return frame
		}
	}
}

func recvEvent(t *testing.T, ctx context.Context, conn *websocket.Conn, event string) outFrame {
	t.Helper()
	return recvFrame(t, ctx, conn, func(f outFrame) bool {
		return f.Type == proto.OutboundTypeEvent && f.Event == event
	})
}

func recvError(t *testing.T, ctx context.Context, conn *websocket.Conn, code string) {
	t.Helper()
	frame := recvFrame(t, ctx, conn, func(f outFrame) bool { return f.Type == proto.OutboundTypeError })
	if frame.Error == nil || frame.Error.Code != code {
		t.Fatalf("expected error code %s, got %+v", code, frame.Error)
	}
}

func register(t *testing.T, ctx context.Context, conn *websocket.Conn, name string) proto.AuthenticatedData {
	t.Helper()

	send(t, ctx, conn, proto.InboundTypeRegister, proto.RegisterData{Name: name})
	frame := recvFrame(t, ctx, conn, func(f outFrame) bool { return f.Type == proto.OutboundTypeAuthenticated })

	var data proto.AuthenticatedData
	if err := json.Unmarshal(frame.Data, &data); err != nil {
		t.Fatalf("decode authenticated: %v", err)
	}
	if data.Name != name || data.UserID == "" {
		t.Fatalf("unexpected authenticated frame: %+v", data)
	}
	return data
}

func TestChatScenario(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	aliceConn := dial(t, ctx, srv)
	bobConn := dial(t, ctx, srv)

	alice := register(t, ctx, aliceConn, "alice")
	bob := register(t, ctx, bobConn, "bob")
	if alice.UserID == bob.UserID {
		t.Fatal("identifiers collided")
	}

	// Alice creates a chat with bob; both get the chat_created delta.
	send(t, ctx, aliceConn, proto.InboundTypeCreateChat, proto.CreateChatData{Participants: []string{"bob"}})

	var chat proto.ChatData
	frame := recvEvent(t, ctx, aliceConn, proto.EventChatCreated)
	if err := json.Unmarshal(frame.Data, &chat); err != nil {
		t.Fatalf("decode chat_created: %v", err)
	}
	if len(chat.Participants) != 2 {
		t.Fatalf("participants = %v", chat.Participants)
	}
	recvEvent(t, ctx, bobConn, proto.EventChatCreated)

	// Alice says hi; bob's live session receives the delta.
	send(t, ctx, aliceConn, proto.InboundTypeSendMsg, proto.SendMsgData{ChatID: chat.ID, Body: "hi"})

	var delta proto.MessageData
	frame = recvEvent(t, ctx, bobConn, proto.EventMessage)
	if err := json.Unmarshal(frame.Data, &delta); err != nil {
		t.Fatalf("decode message: %v", err)
	}
	if delta.ChatID != chat.ID || delta.Sender != alice.UserID || delta.Body != "hi" {
		t.Fatalf("unexpected delta: %+v", delta)
	}

	// History returns exactly that message.
	send(t, ctx, bobConn, proto.InboundTypeHistory, proto.HistoryData{ChatID: chat.ID})
	var hist proto.HistoryEventData
	frame = recvEvent(t, ctx, bobConn, proto.EventHistory)
	if err := json.Unmarshal(frame.Data, &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Messages) != 1 || hist.Messages[0] != delta {
		t.Fatalf("history mismatch: %+v vs %+v", hist.Messages, delta)
	}

	// Carol is not a participant: history is denied, and she saw no delta.
	carolConn := dial(t, ctx, srv)
	register(t, ctx, carolConn, "carol")
	send(t, ctx, carolConn, proto.InboundTypeHistory, proto.HistoryData{ChatID: chat.ID})
	recvError(t, ctx, carolConn, core.ErrCodeNotAParticipant)

	send(t, ctx, carolConn, proto.InboundTypeSendMsg, proto.SendMsgData{ChatID: chat.ID, Body: "intrude"})
	recvError(t, ctx, carolConn, core.ErrCodeNotAParticipant)
}

func TestDisconnectAndReauthenticate(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	aliceConn := dial(t, ctx, srv)
	bobConn := dial(t, ctx, srv)
	alice := register(t, ctx, aliceConn, "alice")
	bob := register(t, ctx, bobConn, "bob")
	_ = alice

	send(t, ctx, aliceConn, proto.InboundTypeCreateChat, proto.CreateChatData{Participants: []string{"bob"}})
	frame := recvEvent(t, ctx, aliceConn, proto.EventChatCreated)
	var chat proto.ChatData
	if err := json.Unmarshal(frame.Data, &chat); err != nil {
		t.Fatalf("decode chat_created: %v", err)
	}

	send(t, ctx, aliceConn, proto.InboundTypeSendMsg, proto.SendMsgData{ChatID: chat.ID, Body: "first"})
	recvEvent(t, ctx, aliceConn, proto.EventMessage)

	// Bob drops mid-session; alice keeps chatting without server-side errors.
	bobConn.Close(websocket.StatusNormalClosure, "bye")
	send(t, ctx, aliceConn, proto.InboundTypeSendMsg, proto.SendMsgData{ChatID: chat.ID, Body: "second"})
	recvEvent(t, ctx, aliceConn, proto.EventMessage)

	// Bob reconnects with his saved identifier and sees both messages.
	bobConn2 := dial(t, ctx, srv)
	send(t, ctx, bobConn2, proto.InboundTypeAuth, proto.AuthData{UserID: bob.UserID})
	recvFrame(t, ctx, bobConn2, func(f outFrame) bool { return f.Type == proto.OutboundTypeAuthenticated })

	send(t, ctx, bobConn2, proto.InboundTypeHistory, proto.HistoryData{ChatID: chat.ID})
	var hist proto.HistoryEventData
	frame = recvEvent(t, ctx, bobConn2, proto.EventHistory)
	if err := json.Unmarshal(frame.Data, &hist); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(hist.Messages) != 2 || hist.Messages[0].Body != "first" || hist.Messages[1].Body != "second" {
		t.Fatalf("history after reconnect: %+v", hist.Messages)
	}
}

func TestCommandValidation(t *testing.T) {
	ctx := context.Background()
	srv := newTestServer(t)

	t.Run("commands before auth are rejected", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		send(t, ctx, conn, proto.InboundTypeListUsers, nil)
		recvError(t, ctx, conn, core.ErrCodeUnauthenticated)
	})

	t.Run("ping works unauthenticated", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		send(t, ctx, conn, proto.InboundTypePing, nil)
		recvEvent(t, ctx, conn, proto.EventPong)
	})

	t.Run("malformed payload", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		register(t, ctx, conn, "mallory")
		send(t, ctx, conn, proto.InboundTypeSendMsg, "not an object")
		recvError(t, ctx, conn, core.ErrCodeMalformedCommand)
	})

	t.Run("unknown command type", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		register(t, ctx, conn, "trudy")
		send(t, ctx, conn, "make_coffee", nil)
		recvError(t, ctx, conn, core.ErrCodeMalformedCommand)
	})

	t.Run("duplicate registration name", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		register(t, ctx, conn, "dave")

		conn2 := dial(t, ctx, srv)
		send(t, ctx, conn2, proto.InboundTypeRegister, proto.RegisterData{Name: "dave"})
		recvError(t, ctx, conn2, core.ErrCodeNameConflict)
	})

	t.Run("double authentication", func(t *testing.T) {
		conn := dial(t, ctx, srv)
		user := register(t, ctx, conn, "erin")
		send(t, ctx, conn, proto.InboundTypeAuth, proto.AuthData{UserID: user.UserID})
		recvError(t, ctx, conn, core.ErrCodeAlreadyAuthed)
	})
}

func TestIdleSessionTornDown(t *testing.T) {
	ctx := context.Background()

	users := core.NewIdentityStore()
	chats := core.NewChatStore()
	seq := core.NewSequencer(users, chats, 0, nopLogger())
	registry := core.NewRegistry()
	logger := zerolog.Nop()

	routerCtx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go core.NewRouter(registry, seq.Events(), &logger).Run(routerCtx)

	deps := Deps{Sequencer: seq, Registry: registry, Users: users, Chats: chats, Shutdown: func() {}}
	srv := httptest.NewServer(NewWSHandler(deps, 100*time.Millisecond, &logger))
	t.Cleanup(srv.Close)

	conn := dial(t, ctx, srv)
	register(t, ctx, conn, "sleepy")

	// Stay silent past the idle window; the server closes the session.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if registry.Len() == 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("idle session still registered")
}

package core

import "testing"

func TestRegistrySessionLifecycle(t *testing.T) {
	r := NewRegistry()

	s := r.Open(func() {})
	if s.UserID() != "" {
		t.Fatalf("fresh session already bound: %s", s.UserID())
	}
	if r.Len() != 1 {
		t.Fatalf("len = %d", r.Len())
	}

	if err := r.Authenticate(s.ID, "u1"); err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if err := r.Authenticate(s.ID, "u2"); err != ErrAlreadyAuthed {
		t.Fatalf("rebind allowed: %v", err)
	}
	if s.UserID() != "u1" {
		t.Fatalf("binding changed: %s", s.UserID())
	}

	r.Close(s.ID)
	r.Close(s.ID) // idempotent
	if r.Len() != 0 {
		t.Fatalf("len after close = %d", r.Len())
	}
	if err := s.Enqueue(&Event{Kind: EventPong}); err != ErrSessionClosed {
		t.Fatalf("enqueue on closed session: %v", err)
	}
}

func TestRegistryMultipleSessionsPerUser(t *testing.T) {
	r := NewRegistry()

	a := r.Open(func() {})
	b := r.Open(func() {})
	c := r.Open(func() {})
	r.Authenticate(a.ID, "u1")
	r.Authenticate(b.ID, "u1")
	r.Authenticate(c.ID, "u2")

	if got := r.SessionsFor("u1"); len(got) != 2 {
		t.Fatalf("sessions for u1 = %d", len(got))
	}
	if got := r.SessionsFor("ghost"); len(got) != 0 {
		t.Fatalf("sessions for ghost = %d", len(got))
	}
	if got := r.Authenticated(); len(got) != 3 {
		t.Fatalf("authenticated = %d", len(got))
	}
	if got := r.All(); len(got) != 3 {
		t.Fatalf("all = %d", len(got))
	}
}

func TestSessionEnqueueKillsOnOverflow(t *testing.T) {
	r := NewRegistry()

	killed := false
	s := r.Open(func() { killed = true })

	for i := 0; i < outboundQueueSize; i++ {
		if err := s.Enqueue(&Event{Kind: EventPong}); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	if err := s.Enqueue(&Event{Kind: EventPong}); err != ErrSessionClosed {
		t.Fatalf("overflow enqueue: %v", err)
	}
	if !killed {
		t.Fatal("kill not invoked on overflow")
	}
}

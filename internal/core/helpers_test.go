package core

import (
	"testing"
	"time"
)

// mustEvent waits for the next event of the wanted kind, skipping
// events of other kinds along the way.
func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()
	return mustEventMatch(t, ch, func(ev *Event) bool { return ev.Kind == kind })
}

func mustEventMatch(t *testing.T, ch <-chan *Event, match func(*Event) bool) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatal("expected event not received")
			return nil
		}
	}
}

// mustNoEvent asserts that nothing at all arrives within a short window.
func mustNoEvent(t *testing.T, ch <-chan *Event) {
	t.Helper()

	select {
	case ev := <-ch:
		t.Fatalf("unexpected event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

// mustNoEventKind drains the channel for a short window and fails if an
// event of the given kind shows up.
func mustNoEventKind(t *testing.T, ch <-chan *Event, kind EventKind) {
	t.Helper()

	deadline := time.After(50 * time.Millisecond)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event of kind %v: %+v", kind, ev)
			}
		case <-deadline:
			return
		}
	}
}

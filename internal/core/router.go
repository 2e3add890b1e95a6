package core

import (
	"context"

	"github.com/rs/zerolog"
)

// Router fans change events out to the live sessions that must observe
// them. A single goroutine consumes the Sequencer's channel, so each
// session sees events in acceptance order; delivery per session is
// best-effort, with slow consumers scheduled for teardown.
type Router struct {
	registry *Registry
	events   <-chan *Event
	log      *zerolog.Logger
}

// NewRouter wires the router between the sequencer's event stream and
// the session registry.
func NewRouter(registry *Registry, events <-chan *Event, logger *zerolog.Logger) *Router {
	return &Router{registry: registry, events: events, log: logger}
}

// Run dispatches events until the context is cancelled.
func (rt *Router) Run(ctx context.Context) {
	for {
		select {
		case ev := <-rt.events:
			rt.dispatch(ev)
		case <-ctx.Done():
			return
		}
	}
}

func (rt *Router) dispatch(ev *Event) {
	for _, s := range rt.resolve(ev) {
		if err := s.Enqueue(ev); err != nil {
			rt.log.Warn().
				Str("session_id", s.ID).
				Str("user_id", s.UserID()).
				Msg("dropping delta for dead or slow session")
		}
	}
}

// resolve maps the event's interest set to live sessions. Global events
// reach every authenticated session; a user id with no live session is
// simply skipped.
func (rt *Router) resolve(ev *Event) []*Session {
	if ev.Global {
		return rt.registry.Authenticated()
	}

	var out []*Session
	for _, userID := range ev.Interested {
		out = append(out, rt.registry.SessionsFor(userID)...)
	}
	return out
}

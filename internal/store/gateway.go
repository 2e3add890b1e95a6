package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatbois/chatbois-server/internal/core"
)

// Gateway observes the stores out-of-band: it flushes a snapshot every
// interval and once more on shutdown.
type Gateway struct {
	seq      *core.Sequencer
	store    *Store
	interval time.Duration
	log      *zerolog.Logger
}

// NewGateway wires the gateway between the sequencer and the snapshot
// store.
func NewGateway(seq *core.Sequencer, st *Store, interval time.Duration, logger *zerolog.Logger) *Gateway {
	return &Gateway{seq: seq, store: st, interval: interval, log: logger}
}

// Load restores the stores from the latest snapshot. A missing or
// corrupt snapshot degrades to empty stores with a warning; the server
// still starts.
func (g *Gateway) Load(ctx context.Context) {
	users, chats, err := g.store.Load(ctx)
	if err != nil {
		g.log.Warn().Err(err).Msg("snapshot load failed, starting with empty stores")
		return
	}
	if len(users) == 0 && len(chats) == 0 {
		g.log.Info().Msg("no snapshot found, starting with empty stores")
		return
	}

	g.seq.Restore(users, chats)
	g.log.Info().Int("users", len(users)).Int("chats", len(chats)).Msg("snapshot loaded")
}

// Run flushes on a fixed cadence until the context is cancelled, then
// performs the shutdown flush.
func (g *Gateway) Run(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			g.Flush(ctx)
		case <-ctx.Done():
			// Final flush must not be cut off by the dying context.
			flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			g.Flush(flushCtx)
			cancel()
			return
		}
	}
}

// Flush writes the current snapshot pair. Failures are logged, never
// fatal; the next tick retries naturally.
func (g *Gateway) Flush(ctx context.Context) {
	users, chats := g.seq.Snapshot()
	if err := g.store.Save(ctx, users, chats); err != nil {
		g.log.Error().Err(err).Msg("snapshot flush failed")
		return
	}
	g.log.Debug().Int("users", len(users)).Int("chats", len(chats)).Msg("snapshot flushed")
}

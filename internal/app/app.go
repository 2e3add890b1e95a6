package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chatbois/chatbois-server/internal/config"
	"github.com/chatbois/chatbois-server/internal/core"
	"github.com/chatbois/chatbois-server/internal/store"
	transporthttp "github.com/chatbois/chatbois-server/internal/transport/http"
)

// App wires the core engine, persistence gateway, and transport layer.
type App struct {
	server          *stdhttp.Server
	router          *core.Router
	gateway         *store.Gateway
	snapshots       *store.Store
	shutdownTimeout time.Duration
	log             *zerolog.Logger

	killOnce sync.Once
	kill     chan struct{}
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) (*App, error) {
	snapshots, err := store.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("init snapshot store: %w", err)
	}
	logger.Info().Str("db_path", cfg.DBPath).Msg("snapshot store initialized")

	users := core.NewIdentityStore()
	chats := core.NewChatStore()
	sequencer := core.NewSequencer(users, chats, cfg.MaxUsers, logger)
	registry := core.NewRegistry()
	router := core.NewRouter(registry, sequencer.Events(), logger)
	gateway := store.NewGateway(sequencer, snapshots, cfg.SnapshotInterval, logger)

	a := &App{
		router:          router,
		gateway:         gateway,
		snapshots:       snapshots,
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
		kill:            make(chan struct{}),
	}

	deps := transporthttp.Deps{
		Sequencer: sequencer,
		Registry:  registry,
		Users:     users,
		Chats:     chats,
		Shutdown:  a.Kill,
	}
	a.server = transporthttp.NewServer(deps, cfg, logger)

	return a, nil
}

// Kill requests graceful shutdown, as if the process had been signalled.
func (a *App) Kill() {
	a.killOnce.Do(func() { close(a.kill) })
}

// Run loads the latest snapshot, starts the engine, and blocks until
// context cancellation, an admin kill, or a fatal server error. The
// gateway's shutdown flush always runs before return.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.gateway.Load(runCtx)

	go a.router.Run(runCtx)

	gatewayDone := make(chan struct{})
	go func() {
		defer close(gatewayDone)
		a.gateway.Run(runCtx)
	}()

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case err := <-serverErr:
		runErr = err
	case <-ctx.Done():
		runErr = a.stopServer()
	case <-a.kill:
		a.log.Info().Msg("admin kill received")
		runErr = a.stopServer()
	}

	// Stop the router and trigger the gateway's final flush.
	cancel()
	<-gatewayDone
	a.cleanup()
	return runErr
}

func (a *App) stopServer() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	a.log.Info().Msg("shutting down http server")
	return a.server.Shutdown(shutdownCtx)
}

// cleanup closes the snapshot database.
func (a *App) cleanup() {
	if err := a.snapshots.Close(); err != nil {
		a.log.Warn().Err(err).Msg("failed to close snapshot store")
	} else {
		a.log.Info().Msg("snapshot store closed")
	}
}

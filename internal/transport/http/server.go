package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/chatbois/chatbois-server/internal/config"
	"github.com/chatbois/chatbois-server/internal/core"
)

// Deps collects everything the transport layer talks to. Shutdown is
// invoked by the admin kill endpoint and must be safe to call once.
type Deps struct {
	Sequencer *core.Sequencer
	Registry  *core.Registry
	Users     *core.IdentityStore
	Chats     *core.ChatStore
	Shutdown  func()
}

// NewServer builds the HTTP server hosting the websocket endpoint, a
// health probe, and the admin surface.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	admin := NewAdminHandlers(deps, logger)
	router.GET("/info", admin.Info)

	ws := NewWSHandler(deps, cfg.IdleTimeout, logger)
	router.GET("/ws", gin.WrapH(ws))

	router.POST("/admin/kill", admin.Kill)
	router.POST("/admin/lock", admin.Lock)
	router.POST("/admin/unlock", admin.Unlock)
	router.POST("/admin/increment_users", admin.IncrementUsers)

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}

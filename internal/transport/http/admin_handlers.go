package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AdminHandlers exposes the operator surface: server lock/unlock and
// the kill switch that flushes state before exit. Reachability of the
// admin port is the only access control, matching the identifier-only
// trust model.
type AdminHandlers struct {
	deps Deps
	log  *zerolog.Logger
}

// NewAdminHandlers creates the admin handlers instance.
func NewAdminHandlers(deps Deps, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{deps: deps, log: logger}
}

// StatusResponse is the body of every successful admin call.
type StatusResponse struct {
	Status string `json:"status"`
}

// Kill triggers graceful shutdown: snapshot flush, then process exit.
// POST /admin/kill
func (h *AdminHandlers) Kill(c *gin.Context) {
	h.log.Info().Msg("kill requested, shutting down")
	c.JSON(http.StatusOK, StatusResponse{Status: "shutting down"})
	h.deps.Shutdown()
}

// Lock stops new registrations.
// POST /admin/lock
func (h *AdminHandlers) Lock(c *gin.Context) {
	h.deps.Sequencer.Lock()
	h.log.Info().Msg("server locked")
	c.JSON(http.StatusOK, StatusResponse{Status: "locked"})
}

// Unlock resumes registrations.
// POST /admin/unlock
func (h *AdminHandlers) Unlock(c *gin.Context) {
	h.deps.Sequencer.Unlock()
	h.log.Info().Msg("server unlocked")
	c.JSON(http.StatusOK, StatusResponse{Status: "unlocked"})
}

// IncrementRequest raises the registration cap.
type IncrementRequest struct {
	Increment int `json:"increment" binding:"required,gt=0"`
}

// IncrementResponse reports the cap after a successful raise.
type IncrementResponse struct {
	Status   string `json:"status"`
	MaxUsers int    `json:"max_users"`
}

// IncrementUsers raises the registration cap by the requested amount.
// A server running uncapped stays uncapped.
// POST /admin/increment_users
func (h *AdminHandlers) IncrementUsers(c *gin.Context) {
	var req IncrementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "increment must be a positive integer"})
		return
	}
	newMax := h.deps.Sequencer.IncrementMaxUsers(req.Increment)
	h.log.Info().Int("increment", req.Increment).Int("max_users", newMax).Msg("user cap raised")
	c.JSON(http.StatusOK, IncrementResponse{Status: "ok", MaxUsers: newMax})
}

// InfoResponse describes the server to a prospective client.
type InfoResponse struct {
	Status   string `json:"status"`
	WSURL    string `json:"ws_url"`
	Users    int    `json:"users"`
	MaxUsers int    `json:"max_users"`
}

// Info tells a prospective client where to connect. Responds 423 when
// the server is locked or at its registration cap, so clients can bail
// before opening a socket.
// GET /info
func (h *AdminHandlers) Info(c *gin.Context) {
	users, maxUsers, locked := h.deps.Sequencer.Status()
	if locked || (maxUsers > 0 && users >= maxUsers) {
		c.JSON(http.StatusLocked, gin.H{"error": "server is locked or full"})
		return
	}
	c.JSON(http.StatusOK, InfoResponse{
		Status:   "ok",
		WSURL:    "ws://" + c.Request.Host + "/ws",
		Users:    users,
		MaxUsers: maxUsers,
	})
}

package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/calls"
	"github.com/mossy-p/realtime-signaling/internal/models"
	"github.com/mossy-p/realtime-signaling/internal/presence"
	"github.com/mossy-p/realtime-signaling/internal/rooms"
)

// Users is the slice of the user directory the login endpoint needs
type Users interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
}

// Handler holds the dependencies shared by the REST and WebSocket handlers
type Handler struct {
	rooms      *rooms.Manager
	calls      *calls.Machine
	presence   *presence.Controller
	users      Users
	jwtSecret  string
	sendBuffer int
	logger     zerolog.Logger
}

// Deps bundles the constructor arguments of Handler
type Deps struct {
	Rooms      *rooms.Manager
	Calls      *calls.Machine
	Presence   *presence.Controller
	Users      Users
	JWTSecret  string
	SendBuffer int
	Logger     zerolog.Logger
}

// NewHandler creates a Handler
func NewHandler(d Deps) *Handler {
	if d.SendBuffer <= 0 {
		d.SendBuffer = 256
	}
	return &Handler{
		rooms:      d.Rooms,
		calls:      d.Calls,
		presence:   d.Presence,
		users:      d.Users,
		jwtSecret:  d.JWTSecret,
		sendBuffer: d.SendBuffer,
		logger:     d.Logger.With().Str("component", "handlers").Logger(),
	}
}

// respondError writes the error taxonomy as a JSON error body
func (h *Handler) respondError(c *gin.Context, err error) {
	status := apperr.Status(err)
	if apperr.Internal(err) {
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		c.JSON(status, gin.H{"error": "internal", "message": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": apperr.Reason(err), "message": err.Error()})
}

// bindError reports a malformed request body
func (h *Handler) bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid", "message": err.Error()})
}

package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/middleware"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

const tokenTTL = 24 * time.Hour

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name,omitempty"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token  string       `json:"token"`
	UserID string       `json:"user_id"`
	User   *models.User `json:"user"`
}

// Login handles user login and JWT generation.
// For development: accepts any password and registers unknown usernames.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	username := strings.TrimSpace(req.Username)

	user, err := h.users.FindByUsername(ctx, username)
	if errors.Is(err, apperr.ErrNotFound) {
		name := req.Name
		if name == "" {
			name = username
		}
		user = &models.User{Username: username, Name: name}
		err = h.users.CreateUser(ctx, user)
		if errors.Is(err, apperr.ErrConflict) {
			// registered concurrently
			user, err = h.users.FindByUsername(ctx, username)
		}
	}
	if err != nil {
		h.respondError(c, err)
		return
	}

	token, err := middleware.IssueToken(h.jwtSecret, user.ID, tokenTTL)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:  token,
		UserID: user.ID,
		User:   user,
	})
}

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/realtime-signaling/internal/middleware"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

// RequestCall rings the recipient on behalf of the caller
func (h *Handler) RequestCall(c *gin.Context) {
	var req models.CallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	call, delivered, err := h.calls.Initiate(c.Request.Context(), middleware.UserID(c), req.RecipientID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, models.CallResponse{Call: call, Delivered: delivered})
}

// AcceptCall answers a ringing call placed by callerId
func (h *Handler) AcceptCall(c *gin.Context) {
	var req models.CallAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	call, delivered, err := h.calls.Accept(c.Request.Context(), req.CallerID, middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CallResponse{Call: call, Delivered: delivered})
}

// RejectCall declines a ringing call placed by callerId
func (h *Handler) RejectCall(c *gin.Context) {
	var req models.CallAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	call, delivered, err := h.calls.Reject(c.Request.Context(), req.CallerID, middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CallResponse{Call: call, Delivered: delivered})
}

// EndCall hangs up the accepted call with peerId
func (h *Handler) EndCall(c *gin.Context) {
	var req models.CallEndRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	call, delivered, err := h.calls.End(c.Request.Context(), middleware.UserID(c), req.PeerID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CallResponse{Call: call, Delivered: delivered})
}

// CallHistory lists the caller's calls, newest first
func (h *Handler) CallHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	history, err := h.calls.History(c.Request.Context(), middleware.UserID(c), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"calls": history})
}

// OnlineUsers returns the IDs of every connected user
func (h *Handler) OnlineUsers(c *gin.Context) {
	c.JSON(http.StatusOK, models.OnlineUsersPayload{UserIDs: h.presence.Online()})
}

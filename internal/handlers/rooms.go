package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/mossy-p/realtime-signaling/internal/middleware"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

// CreateRoom creates a room owned by the caller
func (h *Handler) CreateRoom(c *gin.Context) {
	var req models.CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	room, err := h.rooms.CreateRoom(c.Request.Context(), req.RoomName, middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms lists every room in creation order
func (h *Handler) ListRooms(c *gin.Context) {
	rooms, err := h.rooms.ListRooms(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// GetRoom gets room information by ID
func (h *Handler) GetRoom(c *gin.Context) {
	room, err := h.rooms.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// JoinRoom adds the caller to the room's member set
func (h *Handler) JoinRoom(c *gin.Context) {
	room, err := h.rooms.JoinRoom(c.Request.Context(), c.Param("roomId"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// LeaveRoom removes the caller from the room's member set
func (h *Handler) LeaveRoom(c *gin.Context) {
	room, err := h.rooms.LeaveRoom(c.Request.Context(), c.Param("roomId"), middleware.UserID(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, room)
}

// SendMessage posts a message to every online member of the room
func (h *Handler) SendMessage(c *gin.Context) {
	var req models.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.bindError(c, err)
		return
	}

	msg, err := h.rooms.BroadcastMessage(c.Request.Context(), c.Param("roomId"), middleware.UserID(c), req.Message, !req.Ephemeral)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns the durable history of a room, oldest first
func (h *Handler) ListMessages(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.rooms.ListMessages(c.Request.Context(), c.Param("roomId"), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListParticipants returns the member set of a room
func (h *Handler) ListParticipants(c *gin.Context) {
	members, err := h.rooms.ListParticipants(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": members})
}

// StartScreenShare notifies the room that the caller started sharing
func (h *Handler) StartScreenShare(c *gin.Context) {
	if err := h.rooms.StartScreenShare(c.Request.Context(), c.Param("roomId"), middleware.UserID(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// StopScreenShare notifies the room that the caller stopped sharing
func (h *Handler) StopScreenShare(c *gin.Context) {
	if err := h.rooms.StopScreenShare(c.Request.Context(), c.Param("roomId"), middleware.UserID(c)); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

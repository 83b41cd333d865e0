package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mossy-p/realtime-signaling/internal/middleware"
)

// NewRouter wires every route onto a fresh gin engine
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.Logger(h.logger))

	// Global CORS middleware (runs before routing)
	router.Use(OriginFilter(allowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.JWTAuth(h.jwtSecret)

	router.POST("/api/auth/login", h.Login)

	api := router.Group("/api", auth)
	{
		api.GET("/users/online", h.OnlineUsers)

		api.POST("/rooms", h.CreateRoom)
		api.GET("/rooms", h.ListRooms)
		api.GET("/rooms/:roomId", h.GetRoom)
		api.POST("/rooms/:roomId/join", h.JoinRoom)
		api.POST("/rooms/:roomId/leave", h.LeaveRoom)
		api.POST("/rooms/:roomId/messages", h.SendMessage)
		api.GET("/rooms/:roomId/messages", h.ListMessages)
		api.GET("/rooms/:roomId/participants", h.ListParticipants)
		api.POST("/rooms/:roomId/screen-share/start", h.StartScreenShare)
		api.POST("/rooms/:roomId/screen-share/stop", h.StopScreenShare)

		api.POST("/calls/request", h.RequestCall)
		api.POST("/calls/accept", h.AcceptCall)
		api.POST("/calls/reject", h.RejectCall)
		api.POST("/calls/end", h.EndCall)
		api.GET("/calls", h.CallHistory)
	}

	// WebSocket signaling endpoint
	router.GET("/ws", auth, h.HandleSignaling)

	return router
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/metrics"
	"github.com/mossy-p/realtime-signaling/internal/middleware"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 16 * 1024
	eventTimeout   = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin checking is handled by middleware
		return true
	},
}

// Client is one user's WebSocket connection
type Client struct {
	id     string
	UserID string
	Conn   *websocket.Conn
	send   chan models.Event

	mu     sync.Mutex
	closed bool
	logger zerolog.Logger
}

func newClient(userID string, conn *websocket.Conn, buffer int, logger zerolog.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		id:     id,
		UserID: userID,
		Conn:   conn,
		send:   make(chan models.Event, buffer),
		logger: logger.With().Str("conn_id", id).Str("user_id", userID).Logger(),
	}
}

// ID returns the connection ID
func (c *Client) ID() string {
	return c.id
}

// Send enqueues an event for the write pump. It never blocks: a full
// buffer or a closed client drops the event.
func (c *Client) Send(event models.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which closes the socket
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// HandleSignaling upgrades an authenticated request to a signaling connection
func (h *Handler) HandleSignaling(c *gin.Context) {
	userID := middleware.UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to upgrade connection")
		return
	}

	client := newClient(userID, conn, h.sendBuffer, h.logger)

	go client.writePump()
	h.presence.Connect(userID, client)
	go h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.presence.Disconnect(c.UserID, c)
		c.Close()
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("websocket error")
			}
			break
		}

		var msg models.InboundEvent
		if err := json.Unmarshal(message, &msg); err != nil {
			c.Send(errorEvent("", fmt.Errorf("malformed event: %w", apperr.ErrInvalid)))
			continue
		}
		metrics.InboundEvents.WithLabelValues(string(msg.Type)).Inc()

		ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
		err = h.dispatch(ctx, c.UserID, msg)
		cancel()

		if err != nil {
			if apperr.Internal(err) {
				c.logger.Error().Err(err).Str("event", string(msg.Type)).Msg("event failed")
			}
			c.Send(errorEvent(msg.Type, err))
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteJSON(event); err != nil {
				c.logger.Warn().Err(err).Msg("failed to write message")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// dispatch routes one inbound event on behalf of userID
func (h *Handler) dispatch(ctx context.Context, userID string, msg models.InboundEvent) error {
	switch msg.Type {
	case models.EventCallRequest:
		var p models.CallRequestPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, _, err := h.calls.Initiate(ctx, userID, p.RecipientID)
		return err

	case models.EventCallAccepted:
		var p models.CallAnswerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, _, err := h.calls.Accept(ctx, p.CallerID, userID)
		return err

	case models.EventCallRejected:
		var p models.CallAnswerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, _, err := h.calls.Reject(ctx, p.CallerID, userID)
		return err

	case models.EventCallEnded:
		var p models.CallEndPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, _, err := h.calls.End(ctx, userID, p.PeerID)
		return err

	case models.EventCreateRoom:
		var p models.CreateRoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := h.rooms.CreateRoom(ctx, p.RoomName, userID)
		return err

	case models.EventJoinRoom:
		var p models.RoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := h.rooms.JoinRoom(ctx, p.RoomID, userID)
		return err

	case models.EventLeaveRoom:
		var p models.RoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := h.rooms.LeaveRoom(ctx, p.RoomID, userID)
		return err

	case models.EventSendMessage:
		var p models.SendMessagePayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		_, err := h.rooms.BroadcastMessage(ctx, p.RoomID, userID, p.Message, p.Durable)
		return err

	case models.EventStartScreenShare:
		var p models.RoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return h.rooms.StartScreenShare(ctx, p.RoomID, userID)

	case models.EventStopScreenShare:
		var p models.RoomPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		return h.rooms.StopScreenShare(ctx, p.RoomID, userID)

	default:
		return fmt.Errorf("unknown event type %q: %w", msg.Type, apperr.ErrInvalid)
	}
}

func decode(msg models.InboundEvent, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: missing payload: %w", msg.Type, apperr.ErrInvalid)
	}
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("%s: %v: %w", msg.Type, err, apperr.ErrInvalid)
	}
	return nil
}

func errorEvent(eventType models.EventType, err error) models.Event {
	message := err.Error()
	if apperr.Internal(err) {
		message = "internal server error"
	}
	return models.Event{
		Type: models.EventError,
		Payload: models.ErrorPayload{
			Reason:  apperr.Reason(err),
			Event:   eventType,
			Message: message,
		},
	}
}

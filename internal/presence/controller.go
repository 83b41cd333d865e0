package presence

import (
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/messenger"
	"github.com/mossy-p/realtime-signaling/internal/metrics"
	"github.com/mossy-p/realtime-signaling/internal/models"
	"github.com/mossy-p/realtime-signaling/internal/registry"
)

// Controller registers connections and broadcasts the presence roster
// whenever the set of online users changes. Identity must already be
// verified by the caller.
type Controller struct {
	registry  *registry.Registry
	messenger messenger.Sender
	logger    zerolog.Logger
}

// NewController creates a lifecycle controller
func NewController(reg *registry.Registry, sender messenger.Sender, logger zerolog.Logger) *Controller {
	return &Controller{
		registry:  reg,
		messenger: sender,
		logger:    logger.With().Str("component", "presence").Logger(),
	}
}

// Connect registers conn for userID and broadcasts the roster to everyone,
// including the new connection. A previous connection for the same user is
// told it was superseded and closed.
func (c *Controller) Connect(userID string, conn registry.Conn) {
	if previous := c.registry.Register(userID, conn); previous != nil {
		previous.Send(models.Event{
			Type:    models.EventError,
			Payload: models.ErrorPayload{Reason: "superseded", Message: "connection replaced by a newer session"},
		})
		previous.Close()
		c.logger.Info().Str("user_id", userID).Str("conn_id", previous.ID()).Msg("previous connection superseded")
	}

	c.logger.Info().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("user connected")
	c.broadcastRoster()
}

// Disconnect removes conn and broadcasts the roster if the user went offline
func (c *Controller) Disconnect(userID string, conn registry.Conn) {
	if !c.registry.Release(userID, conn) {
		c.logger.Debug().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("stale connection closed")
		return
	}

	c.logger.Info().Str("user_id", userID).Str("conn_id", conn.ID()).Msg("user disconnected")
	c.broadcastRoster()
}

// CloseAll drops every registered connection without broadcasting.
// Used on shutdown.
func (c *Controller) CloseAll() int {
	n := 0
	for _, userID := range c.registry.Snapshot() {
		conn, ok := c.registry.Lookup(userID)
		if !ok {
			continue
		}
		c.registry.Unregister(userID)
		conn.Close()
		n++
	}
	metrics.OnlineUsers.Set(float64(c.registry.Len()))
	return n
}

// Online returns the current presence roster
func (c *Controller) Online() []string {
	return c.registry.Snapshot()
}

func (c *Controller) broadcastRoster() {
	roster := c.registry.Snapshot()
	metrics.OnlineUsers.Set(float64(len(roster)))
	c.messenger.Broadcast(models.EventOnlineUsers, models.OnlineUsersPayload{UserIDs: roster})
}

package messenger

import (
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/metrics"
	"github.com/mossy-p/realtime-signaling/internal/models"
	"github.com/mossy-p/realtime-signaling/internal/registry"
)

// Sender is the delivery contract the room and call components depend on.
// Delivery is best effort and at most once: an offline target drops the event.
type Sender interface {
	SendTo(userID string, eventType models.EventType, payload any) bool
	SendToMany(userIDs []string, eventType models.EventType, payload any) map[string]bool
	Broadcast(eventType models.EventType, payload any) int
}

// Messenger delivers events to connections found in the registry
type Messenger struct {
	registry *registry.Registry
	logger   zerolog.Logger
}

// New creates a Messenger backed by reg
func New(reg *registry.Registry, logger zerolog.Logger) *Messenger {
	return &Messenger{
		registry: reg,
		logger:   logger.With().Str("component", "messenger").Logger(),
	}
}

// SendTo pushes the event to userID's connection if it is online.
// It returns false when the user is offline or the connection refused the event.
func (m *Messenger) SendTo(userID string, eventType models.EventType, payload any) bool {
	conn, ok := m.registry.Lookup(userID)
	if !ok {
		metrics.Deliveries.WithLabelValues(string(eventType), "unreachable").Inc()
		m.logger.Debug().Str("user_id", userID).Str("event", string(eventType)).Msg("target offline, event dropped")
		return false
	}

	if !conn.Send(models.Event{Type: eventType, Payload: payload}) {
		metrics.Deliveries.WithLabelValues(string(eventType), "unreachable").Inc()
		m.logger.Warn().Str("user_id", userID).Str("conn_id", conn.ID()).Str("event", string(eventType)).
			Msg("send buffer full, event dropped")
		return false
	}

	metrics.Deliveries.WithLabelValues(string(eventType), "delivered").Inc()
	return true
}

// SendToMany fans the event out to each user and reports the per-user outcome
func (m *Messenger) SendToMany(userIDs []string, eventType models.EventType, payload any) map[string]bool {
	outcome := make(map[string]bool, len(userIDs))
	for _, id := range userIDs {
		if _, seen := outcome[id]; seen {
			continue
		}
		outcome[id] = m.SendTo(id, eventType, payload)
	}
	return outcome
}

// Broadcast pushes the event to every live connection and returns how many accepted it
func (m *Messenger) Broadcast(eventType models.EventType, payload any) int {
	event := models.Event{Type: eventType, Payload: payload}

	sent := 0
	for _, conn := range m.registry.Conns() {
		if conn.Send(event) {
			sent++
			continue
		}
		m.logger.Warn().Str("conn_id", conn.ID()).Str("event", string(eventType)).Msg("send buffer full, broadcast dropped")
	}
	return sent
}

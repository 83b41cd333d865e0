package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/messenger"
	"github.com/mossy-p/realtime-signaling/internal/metrics"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

const (
	maxRoomNameLength = 100
	maxMessageLength  = 4000
	defaultHistory    = 50
)

// Options tunes the room manager
type Options struct {
	// RequireMembership rejects messages and screen share signals from non-members
	RequireMembership bool
}

// Manager owns room membership and fans room events out to online members
type Manager struct {
	store     Store
	messenger messenger.Sender
	opts      Options
	logger    zerolog.Logger
	now       func() time.Time
}

// NewManager creates a room manager
func NewManager(store Store, sender messenger.Sender, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		store:     store,
		messenger: sender,
		opts:      opts,
		logger:    logger.With().Str("component", "rooms").Logger(),
		now:       time.Now,
	}
}

// CreateRoom persists a new room whose only member is its creator and
// announces it to every connected user.
func (m *Manager) CreateRoom(ctx context.Context, name, creatorID string) (*models.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomNameLength {
		return nil, fmt.Errorf("room name must be 1-%d characters: %w", maxRoomNameLength, apperr.ErrInvalid)
	}
	if creatorID == "" {
		return nil, fmt.Errorf("creator is required: %w", apperr.ErrInvalid)
	}

	room := &models.Room{
		ID:        uuid.New().String(),
		Name:      name,
		CreatorID: creatorID,
		Members:   []string{creatorID},
		CreatedAt: m.now().UTC(),
	}

	if err := m.store.CreateRoom(ctx, room); err != nil {
		return nil, fmt.Errorf("store.CreateRoom: %w", err)
	}

	m.logger.Info().Str("room_id", room.ID).Str("creator_id", creatorID).Msg("room created")
	m.messenger.Broadcast(models.EventRoomCreated, room)

	return room, nil
}

// GetRoom returns the room with its current member set
func (m *Manager) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	room, err := m.store.GetRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.GetRoom: %w", err)
	}
	return room, nil
}

// ListRooms returns every room
func (m *Manager) ListRooms(ctx context.Context) ([]*models.Room, error) {
	rooms, err := m.store.ListRooms(ctx)
	if err != nil {
		return nil, fmt.Errorf("store.ListRooms: %w", err)
	}
	return rooms, nil
}

// JoinRoom adds userID to the room. Joining twice is a no-op that neither
// writes nor broadcasts. On a real join every online member, the joiner
// included, receives userJoined.
func (m *Manager) JoinRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasMember(userID) {
		return room, nil
	}

	added, err := m.store.AddMember(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("store.AddMember: %w", err)
	}

	members, err := m.store.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.Members: %w", err)
	}
	room.Members = members

	// a concurrent join may have landed first
	if !added {
		return room, nil
	}

	m.logger.Info().Str("room_id", roomID).Str("user_id", userID).Msg("user joined room")
	m.fanOut(room, models.EventUserJoined, models.MembershipPayload{UserID: userID, RoomID: roomID})

	return room, nil
}

// LeaveRoom removes userID from the room and notifies the remaining online
// members. Leaving a room one is not a member of is a no-op. The creator
// always stays a member.
func (m *Manager) LeaveRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasMember(userID) {
		return room, nil
	}
	if userID == room.CreatorID {
		return nil, fmt.Errorf("creator cannot leave room %s: %w", roomID, apperr.ErrConflict)
	}

	removed, err := m.store.RemoveMember(ctx, roomID, userID)
	if err != nil {
		return nil, fmt.Errorf("store.RemoveMember: %w", err)
	}

	members, err := m.store.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.Members: %w", err)
	}
	room.Members = members

	if !removed {
		return room, nil
	}

	m.logger.Info().Str("room_id", roomID).Str("user_id", userID).Msg("user left room")
	m.fanOut(room, models.EventUserLeft, models.MembershipPayload{UserID: userID, RoomID: roomID})

	return room, nil
}

// BroadcastMessage sends text to every online member, the sender included.
// A durable message is stored before it is broadcast.
func (m *Manager) BroadcastMessage(ctx context.Context, roomID, senderID, text string, durable bool) (*models.RoomMessage, error) {
	if strings.TrimSpace(text) == "" || len(text) > maxMessageLength {
		return nil, fmt.Errorf("message must be 1-%d characters: %w", maxMessageLength, apperr.ErrInvalid)
	}

	room, err := m.authorizedRoom(ctx, roomID, senderID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	msg := &models.RoomMessage{
		ID:        ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		Timestamp: now.UnixMilli(),
	}

	kind := "ephemeral"
	if durable {
		kind = "durable"
		if err := m.store.AppendMessage(ctx, msg); err != nil {
			return nil, fmt.Errorf("store.AppendMessage: %w", err)
		}
	}
	metrics.RoomMessages.WithLabelValues(kind).Inc()

	m.fanOut(room, models.EventNewMessage, models.NewMessagePayload{
		ID:        msg.ID,
		RoomID:    roomID,
		Sender:    senderID,
		Text:      text,
		Timestamp: msg.Timestamp,
	})

	return msg, nil
}

// ListMessages returns up to limit durable messages, oldest first
func (m *Manager) ListMessages(ctx context.Context, roomID string, limit int) ([]*models.RoomMessage, error) {
	if _, err := m.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistory
	}

	msgs, err := m.store.ListMessages(ctx, roomID, limit)
	if err != nil {
		return nil, fmt.Errorf("store.ListMessages: %w", err)
	}
	return msgs, nil
}

// StartScreenShare announces that userID started sharing their screen
func (m *Manager) StartScreenShare(ctx context.Context, roomID, userID string) error {
	return m.screenShare(ctx, roomID, userID, models.EventStartScreenShare)
}

// StopScreenShare announces that userID stopped sharing their screen
func (m *Manager) StopScreenShare(ctx context.Context, roomID, userID string) error {
	return m.screenShare(ctx, roomID, userID, models.EventStopScreenShare)
}

func (m *Manager) screenShare(ctx context.Context, roomID, userID string, eventType models.EventType) error {
	room, err := m.authorizedRoom(ctx, roomID, userID)
	if err != nil {
		return err
	}

	m.fanOut(room, eventType, models.MembershipPayload{UserID: userID, RoomID: roomID})
	return nil
}

// ListParticipants returns the persisted member set, online or not
func (m *Manager) ListParticipants(ctx context.Context, roomID string) ([]string, error) {
	if _, err := m.GetRoom(ctx, roomID); err != nil {
		return nil, err
	}

	members, err := m.store.Members(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("store.Members: %w", err)
	}
	return members, nil
}

func (m *Manager) authorizedRoom(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := m.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if m.opts.RequireMembership && !room.HasMember(userID) {
		return nil, fmt.Errorf("user %s is not a member of room %s: %w", userID, roomID, apperr.ErrUnauthorized)
	}
	return room, nil
}

func (m *Manager) fanOut(room *models.Room, eventType models.EventType, payload any) {
	outcome := m.messenger.SendToMany(room.Members, eventType, payload)

	delivered := 0
	for _, ok := range outcome {
		if ok {
			delivered++
		}
	}
	m.logger.Debug().
		Str("room_id", room.ID).
		Str("event", string(eventType)).
		Int("members", len(outcome)).
		Int("delivered", delivered).
		Msg("room fan-out")
}

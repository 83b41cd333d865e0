package rooms

import (
	"context"

	"github.com/mossy-p/realtime-signaling/internal/models"
)

// Store persists rooms, their member sets and durable room messages.
// Member writes must be set operations so that interleaved joins never
// produce duplicates.
type Store interface {
	CreateRoom(ctx context.Context, room *models.Room) error
	GetRoom(ctx context.Context, roomID string) (*models.Room, error)
	ListRooms(ctx context.Context) ([]*models.Room, error)

	// AddMember reports whether userID was newly added
	AddMember(ctx context.Context, roomID, userID string) (bool, error)
	// RemoveMember reports whether userID was a member
	RemoveMember(ctx context.Context, roomID, userID string) (bool, error)
	Members(ctx context.Context, roomID string) ([]string, error)

	AppendMessage(ctx context.Context, msg *models.RoomMessage) error
	ListMessages(ctx context.Context, roomID string, limit int) ([]*models.RoomMessage, error)
}

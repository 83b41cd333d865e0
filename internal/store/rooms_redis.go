package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mossy-p/realtime-signaling/internal/apperr"
	"github.com/mossy-p/realtime-signaling/internal/models"
)

const (
	roomIndexKey          = "rooms"
	defaultRoomMessageTTL = 24 * time.Hour
)

// RoomStore keeps rooms in Redis: metadata as JSON, members as a set and
// durable messages in a sorted set scored by timestamp.
type RoomStore struct {
	client     *redis.Client
	messageTTL time.Duration
}

// NewRoomStore creates a Redis room store. messageTTL bounds how long
// durable room messages are kept; zero uses the default.
func NewRoomStore(client *redis.Client, messageTTL time.Duration) *RoomStore {
	if messageTTL <= 0 {
		messageTTL = defaultRoomMessageTTL
	}
	return &RoomStore{client: client, messageTTL: messageTTL}
}

// roomKey returns the key holding a room's metadata
func roomKey(roomID string) string {
	return "room:" + roomID
}

// membersKey returns the key of a room's member set
func membersKey(roomID string) string {
	return "room:" + roomID + ":members"
}

// messagesKey returns the key of a room's message sorted set
func messagesKey(roomID string) string {
	return "room:" + roomID + ":messages"
}

// roomRecord is the stored form of a room; members live in their own set
type roomRecord struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creatorId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateRoom stores the room and its initial members atomically
func (s *RoomStore) CreateRoom(ctx context.Context, room *models.Room) error {
	data, err := json.Marshal(roomRecord{
		ID:        room.ID,
		Name:      room.Name,
		CreatorID: room.CreatorID,
		CreatedAt: room.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	members := make([]any, 0, len(room.Members))
	for _, m := range room.Members {
		members = append(members, m)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, roomKey(room.ID), data, 0)
		if len(members) > 0 {
			pipe.SAdd(ctx, membersKey(room.ID), members...)
		}
		pipe.ZAdd(ctx, roomIndexKey, redis.Z{
			Score:  float64(room.CreatedAt.UnixMilli()),
			Member: room.ID,
		})
		return nil
	})
	if err != nil {
		return fmt.Errorf("client.TxPipelined: %w", err)
	}

	return nil
}

// GetRoom loads a room and its member set
func (s *RoomStore) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	var (
		getCmd     *redis.StringCmd
		membersCmd *redis.StringSliceCmd
	)

	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, roomKey(roomID))
		membersCmd = pipe.SMembers(ctx, membersKey(roomID))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("client.Pipelined: %w", err)
	}

	return decodeRoom(roomID, getCmd, membersCmd)
}

// ListRooms returns every room ordered by creation time
func (s *RoomStore) ListRooms(ctx context.Context) ([]*models.Room, error) {
	ids, err := s.client.ZRange(ctx, roomIndexKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("client.ZRange: %w", err)
	}
	if len(ids) == 0 {
		return []*models.Room{}, nil
	}

	getCmds := make([]*redis.StringCmd, len(ids))
	membersCmds := make([]*redis.StringSliceCmd, len(ids))

	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			getCmds[i] = pipe.Get(ctx, roomKey(id))
			membersCmds[i] = pipe.SMembers(ctx, membersKey(id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("client.Pipelined: %w", err)
	}

	rooms := make([]*models.Room, 0, len(ids))
	for i, id := range ids {
		room, err := decodeRoom(id, getCmds[i], membersCmds[i])
		if errors.Is(err, apperr.ErrNotFound) {
			// index entry outlived its room
			continue
		}
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	return rooms, nil
}

// AddMember adds userID to the member set
func (s *RoomStore) AddMember(ctx context.Context, roomID, userID string) (bool, error) {
	n, err := s.client.SAdd(ctx, membersKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("client.SAdd: %w", err)
	}
	return n > 0, nil
}

// RemoveMember removes userID from the member set
func (s *RoomStore) RemoveMember(ctx context.Context, roomID, userID string) (bool, error) {
	n, err := s.client.SRem(ctx, membersKey(roomID), userID).Result()
	if err != nil {
		return false, fmt.Errorf("client.SRem: %w", err)
	}
	return n > 0, nil
}

// Members returns the sorted member set
func (s *RoomStore) Members(ctx context.Context, roomID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, membersKey(roomID)).Result()
	if err != nil {
		return nil, fmt.Errorf("client.SMembers: %w", err)
	}
	sort.Strings(members)
	return members, nil
}

// AppendMessage stores a durable room message and refreshes the history TTL
func (s *RoomStore) AppendMessage(ctx context.Context, msg *models.RoomMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("json.Marshal: %w", err)
	}

	key := messagesKey(msg.RoomID)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{
			Score:  float64(msg.Timestamp),
			Member: data,
		})
		pipe.Expire(ctx, key, s.messageTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("client.TxPipelined: %w", err)
	}

	return nil
}

// ListMessages returns the newest limit messages, oldest first
func (s *RoomStore) ListMessages(ctx context.Context, roomID string, limit int) ([]*models.RoomMessage, error) {
	results, err := s.client.ZRevRange(ctx, messagesKey(roomID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("client.ZRevRange: %w", err)
	}

	msgs := make([]*models.RoomMessage, 0, len(results))
	for i := len(results) - 1; i >= 0; i-- {
		var msg models.RoomMessage
		if err := json.Unmarshal([]byte(results[i]), &msg); err != nil {
			return nil, fmt.Errorf("json.Unmarshal: %w", err)
		}
		msgs = append(msgs, &msg)
	}

	return msgs, nil
}

func decodeRoom(roomID string, getCmd *redis.StringCmd, membersCmd *redis.StringSliceCmd) (*models.Room, error) {
	data, err := getCmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("room %s: %w", roomID, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}

	var record roomRecord
	if err := json.Unmarshal([]byte(data), &record); err != nil {
		return nil, fmt.Errorf("json.Unmarshal: %w", err)
	}

	members, err := membersCmd.Result()
	if err != nil {
		return nil, fmt.Errorf("smembers room %s: %w", roomID, err)
	}
	sort.Strings(members)

	return &models.Room{
		ID:        record.ID,
		Name:      record.Name,
		CreatorID: record.CreatorID,
		Members:   members,
		CreatedAt: record.CreatedAt,
	}, nil
}

package models

import "time"

// Room is a named group with a persistent member set
type Room struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatorID string    `json:"creatorId"`
	Members   []string  `json:"members"`
	CreatedAt time.Time `json:"createdAt"`
}

// HasMember reports whether userID is in the member set
func (r *Room) HasMember(userID string) bool {
	for _, m := range r.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// RoomMessage is a chat line posted to a room. Timestamp is unix millis.
type RoomMessage struct {
	ID        string `json:"id"`
	RoomID    string `json:"roomId"`
	SenderID  string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

// CreateRoomRequest is the request body for creating a room
type CreateRoomRequest struct {
	RoomName string `json:"roomName" binding:"required,max=100"`
}

// SendMessageRequest is the request body for posting to a room
type SendMessageRequest struct {
	Message string `json:"message" binding:"required,max=4000"`
	// Ephemeral skips the durable write; REST callers get history by default
	Ephemeral bool `json:"ephemeral,omitempty"`
}

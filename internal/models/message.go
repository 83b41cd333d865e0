package models

import "encoding/json"

// EventType names an event exchanged over a signaling connection
type EventType string

// Inbound and outbound event names. Several names are used in both
// directions with different payloads (e.g. voiceCallRequest).
const (
	EventOnlineUsers      EventType = "getOnlineUsers"
	EventCallRequest      EventType = "voiceCallRequest"
	EventCallAccepted     EventType = "voiceCallAccepted"
	EventCallRejected     EventType = "voiceCallRejected"
	EventCallEnded        EventType = "voiceCallEnded"
	EventCreateRoom       EventType = "createRoom"
	EventRoomCreated      EventType = "roomCreated"
	EventJoinRoom         EventType = "joinRoom"
	EventUserJoined       EventType = "userJoined"
	EventLeaveRoom        EventType = "leaveRoom"
	EventUserLeft         EventType = "userLeft"
	EventSendMessage      EventType = "sendMessage"
	EventNewMessage       EventType = "newMessage"
	EventStartScreenShare EventType = "startScreenShare"
	EventStopScreenShare  EventType = "stopScreenShare"
	EventError            EventType = "error"
)

// Event is an outbound message pushed to one connection
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload,omitempty"`
}

// InboundEvent is a client message; the payload is decoded once the type is known
type InboundEvent struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ErrorPayload is sent with EventError
type ErrorPayload struct {
	Reason  string    `json:"reason"`
	Event   EventType `json:"event,omitempty"`
	Message string    `json:"message,omitempty"`
}

// OnlineUsersPayload is the presence roster snapshot
type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

// Inbound payloads

// CallRequestPayload is sent by a caller to ring recipientId
type CallRequestPayload struct {
	RecipientID string `json:"recipientId"`
}

// CallAnswerPayload is sent by the recipient to accept or reject a call from callerId
type CallAnswerPayload struct {
	CallerID string `json:"callerId"`
}

// CallEndPayload is sent by either party to hang up
type CallEndPayload struct {
	PeerID string `json:"peerId"`
}

// CreateRoomPayload names a room to create
type CreateRoomPayload struct {
	RoomName string `json:"roomName"`
}

// RoomPayload addresses a room for join, leave and screen share events
type RoomPayload struct {
	RoomID string `json:"roomId"`
}

// SendMessagePayload posts a chat line; durable messages are kept in the room history
type SendMessagePayload struct {
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
	Durable bool   `json:"durable,omitempty"`
}

// Outbound payloads

// IncomingCallPayload is sent to the recipient of a call request
type IncomingCallPayload struct {
	CallerID       string `json:"callerId"`
	CallerName     string `json:"callerName,omitempty"`
	CallerUsername string `json:"callerUsername,omitempty"`
}

// CallAnsweredPayload is sent to the caller when the recipient accepts or rejects
type CallAnsweredPayload struct {
	RecipientID       string `json:"recipientId"`
	RecipientName     string `json:"recipientName,omitempty"`
	RecipientUsername string `json:"recipientUsername,omitempty"`
	Reason            string `json:"reason,omitempty"`
}

// CallEndedPayload is sent to the peer of the user hanging up
type CallEndedPayload struct {
	UserID       string `json:"userId"`
	UserName     string `json:"userName,omitempty"`
	UserUsername string `json:"userUsername,omitempty"`
}

// MembershipPayload is used for userJoined, userLeft and the screen share events
type MembershipPayload struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
}

// NewMessagePayload is the room chat fan-out
type NewMessagePayload struct {
	ID        string `json:"id,omitempty"`
	RoomID    string `json:"roomId"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

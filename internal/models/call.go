package models

import "time"

// CallStatus is the lifecycle state of a call record
type CallStatus string

const (
	CallStatusInitiated CallStatus = "initiated"
	CallStatusAccepted  CallStatus = "accepted"
	CallStatusRejected  CallStatus = "rejected"
	CallStatusEnded     CallStatus = "ended"
)

// Terminal reports whether no further transition is allowed
func (s CallStatus) Terminal() bool {
	return s == CallStatusRejected || s == CallStatusEnded
}

// Call is the audit record of one call attempt between two users
type Call struct {
	ID          string     `json:"id"`
	CallerID    string     `json:"callerId"`
	RecipientID string     `json:"recipientId"`
	Status      CallStatus `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Peer returns the other party of the call
func (c *Call) Peer(userID string) string {
	if c.CallerID == userID {
		return c.RecipientID
	}
	return c.CallerID
}

// CallRequest is the REST body for initiating a call
type CallRequest struct {
	RecipientID string `json:"recipientId" binding:"required"`
}

// CallAnswerRequest is the REST body for accepting or rejecting a call
type CallAnswerRequest struct {
	CallerID string `json:"callerId" binding:"required"`
}

// CallEndRequest is the REST body for hanging up
type CallEndRequest struct {
	PeerID string `json:"peerId" binding:"required"`
}

// CallResponse wraps a call record with the delivery outcome of its signal
type CallResponse struct {
	Call      *Call `json:"call"`
	Delivered bool  `json:"delivered"`
}

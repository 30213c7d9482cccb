package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is the lifecycle state of a FriendRequest.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusAccepted RequestStatus = "accepted"
	StatusRejected RequestStatus = "rejected"
)

// ParseStatus accepts the three wire values; an empty string means pending.
func ParseStatus(s string) (RequestStatus, error) {
	switch RequestStatus(s) {
	case "", StatusPending:
		return StatusPending, nil
	case StatusAccepted:
		return StatusAccepted, nil
	case StatusRejected:
		return StatusRejected, nil
	}
	return "", fmt.Errorf("unknown request status %q", s)
}

// FriendRequest is a proposal from Sender to Receiver.
type FriendRequest struct {
	ID         uuid.UUID     `json:"requestId"`
	SenderID   uuid.UUID     `json:"senderId"`
	ReceiverID uuid.UUID     `json:"receiverId"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"createdAt"`
	UpdatedAt  time.Time     `json:"updatedAt"`
}

// PairKey identifies the request's unordered {sender, receiver} pair.
func (r FriendRequest) PairKey() string {
	return PairKey(r.SenderID, r.ReceiverID)
}

// Involves reports whether id is the sender or the receiver.
func (r FriendRequest) Involves(id uuid.UUID) bool {
	return r.SenderID == id || r.ReceiverID == id
}

// Other returns the participant that is not id.
func (r FriendRequest) Other(id uuid.UUID) uuid.UUID {
	if r.SenderID == id {
		return r.ReceiverID
	}
	return r.SenderID
}

// PairKey is the canonical key of an unordered account pair: the same value
// for (a, b) and (b, a).
func PairKey(a, b uuid.UUID) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return x + ":" + y
}

package friends

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
)

var (
	ErrSelfRequest     = fmt.Errorf("%w: you cannot send a friend request to yourself", errs.ErrInvalidInput)
	ErrAlreadyFriends  = fmt.Errorf("%w: users are already friends", errs.ErrConflict)
	ErrAlreadyPending  = fmt.Errorf("%w: friend request already pending", errs.ErrConflict)
	ErrRequestNotFound = fmt.Errorf("%w: friend request not found", errs.ErrNotFound)
	ErrAlreadyResolved = fmt.Errorf("%w: friend request already handled", errs.ErrInvalidState)
	ErrInvalidOutcome  = fmt.Errorf("%w: outcome must be accepted or rejected", errs.ErrInvalidInput)
	ErrNotFriends      = fmt.Errorf("%w: users are not friends", errs.ErrNotFound)
	ErrConsistency     = fmt.Errorf("%w: friendship and request state diverged", errs.ErrConsistency)
)

// RequestView is a received friend request joined with its sender's
// public details.
type RequestView struct {
	RequestID    uuid.UUID            `json:"requestId"`
	UserID       uuid.UUID            `json:"userId"`
	Name         string               `json:"name"`
	ProfileImage string               `json:"profileImage"`
	Status       models.RequestStatus `json:"status"`
	CreatedAt    time.Time            `json:"createdAt"`
}

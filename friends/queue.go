package friends

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/sirupsen/logrus"
)

// Queue stores friend requests. It owns the one-pending-request-per-pair
// rule; the store's unique index on the pair is what enforces it.
type Queue struct {
	store store.Store
	now   func() time.Time
}

func NewQueue(s store.Store, now func() time.Time) *Queue {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Queue{store: s, now: now}
}

func (q *Queue) in(tx store.Store) *Queue {
	return &Queue{store: tx, now: q.now}
}

// Create files a pending request from sender to receiver. Checks run in
// this order: self request, both accounts exist, not already friends, no
// pending request in either direction.
func (q *Queue) Create(ctx context.Context, sender, receiver uuid.UUID) (models.FriendRequest, error) {
	if sender == receiver {
		return models.FriendRequest{}, ErrSelfRequest
	}

	now := q.now()
	req := models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Status:     models.StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := q.store.InTx(ctx, func(tx store.Store) error {
		for _, id := range []uuid.UUID{sender, receiver} {
			if _, err := tx.GetAccount(ctx, id); err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return accounts.ErrAccountNotFound
				}
				return err
			}
		}

		friends, err := NewLedger(tx).AreFriends(ctx, sender, receiver)
		if err != nil {
			return err
		}
		if friends {
			return ErrAlreadyFriends
		}

		if _, err := tx.PendingBetween(ctx, sender, receiver); err == nil {
			return ErrAlreadyPending
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		if err := tx.InsertRequest(ctx, &req); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return ErrAlreadyPending
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.FriendRequest{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Create",
		"request_id":  req.ID,
		"sender_id":   sender,
		"receiver_id": receiver,
	}).Info("Friend request queued")
	return req, nil
}

func (q *Queue) FindByID(ctx context.Context, id uuid.UUID) (models.FriendRequest, error) {
	req, err := q.store.GetRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.FriendRequest{}, ErrRequestNotFound
	}
	return req, err
}

// ListByReceiver returns requests addressed to receiver with status, oldest
// first. The zero id matches nothing.
func (q *Queue) ListByReceiver(ctx context.Context, receiver uuid.UUID, status models.RequestStatus) ([]models.FriendRequest, error) {
	if receiver == uuid.Nil {
		return []models.FriendRequest{}, nil
	}
	return q.store.ListRequests(ctx, store.RequestFilter{ReceiverID: receiver, Status: status})
}

// ListInvolving returns requests user sent or received with status.
func (q *Queue) ListInvolving(ctx context.Context, user uuid.UUID, status models.RequestStatus) ([]models.FriendRequest, error) {
	if user == uuid.Nil {
		return []models.FriendRequest{}, nil
	}
	return q.store.ListRequests(ctx, store.RequestFilter{Involving: user, Status: status})
}

// Resolve settles a pending request and removes it. The returned copy
// carries the final status; resolved requests are not kept.
func (q *Queue) Resolve(ctx context.Context, id uuid.UUID, outcome models.RequestStatus) (models.FriendRequest, error) {
	if outcome != models.StatusAccepted && outcome != models.StatusRejected {
		return models.FriendRequest{}, ErrInvalidOutcome
	}

	var req models.FriendRequest
	err := q.store.InTx(ctx, func(tx store.Store) error {
		var err error
		req, err = tx.GetRequest(ctx, id)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRequestNotFound
		}
		if err != nil {
			return err
		}
		if req.Status != models.StatusPending {
			return ErrAlreadyResolved
		}
		if err := tx.DeleteRequest(ctx, id); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.FriendRequest{}, err
	}

	req.Status = outcome
	req.UpdatedAt = q.now()

	logrus.WithFields(logrus.Fields{
		"function":   "Resolve",
		"request_id": id,
		"outcome":    outcome,
	}).Info("Friend request resolved")
	return req, nil
}

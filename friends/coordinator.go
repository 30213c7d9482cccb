// Package friends implements the friendship state machine.
//
// For an unordered account pair the only legal transitions are
//
//	Unrelated -> Pending (either direction)   SendRequest
//	Pending   -> Friends                      AcceptRequest
//	Pending   -> Unrelated                    RejectRequest
//	Friends   -> Unrelated                    RemoveFriend
//
// The Ledger holds friendships, the Queue holds requests and the
// Coordinator moves a pair between states, one store transaction per step.
package friends

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/metrics"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/sirupsen/logrus"
)

// AccountReader is the part of the account directory the coordinator reads.
type AccountReader interface {
	Find(ctx context.Context, id uuid.UUID) (models.Account, error)
	List(ctx context.Context) ([]models.Account, error)
}

type Coordinator struct {
	store    store.Store
	accounts AccountReader
	ledger   *Ledger
	queue    *Queue
	locks    *pairLocks

	now            func() time.Time
	reconcileTries int
	reconcileDelay time.Duration
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock replaces time.Now for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) { c.now = now }
}

// WithReconcile sets how often and how far apart a failed accept is
// re-examined before it is declared a consistency failure.
func WithReconcile(tries int, delay time.Duration) Option {
	return func(c *Coordinator) {
		c.reconcileTries = tries
		c.reconcileDelay = delay
	}
}

func NewCoordinator(s store.Store, accounts AccountReader, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:          s,
		accounts:       accounts,
		locks:          newPairLocks(),
		now:            func() time.Time { return time.Now().UTC() },
		reconcileTries: 3,
		reconcileDelay: 50 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.ledger = NewLedger(s)
	c.queue = NewQueue(s, c.now)
	return c
}

func (c *Coordinator) Ledger() *Ledger { return c.ledger }
func (c *Coordinator) Queue() *Queue   { return c.queue }

func observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = errs.Code(err)
	}
	metrics.FriendOps.WithLabelValues(op, outcome).Inc()
}

// SendRequest files a request from sender to receiver and returns its id.
func (c *Coordinator) SendRequest(ctx context.Context, sender, receiver uuid.UUID) (id uuid.UUID, err error) {
	defer func() { observe("send", err) }()

	unlock, err := c.locks.lock(ctx, sender, receiver)
	if err != nil {
		return uuid.Nil, err
	}
	defer unlock()

	req, err := c.queue.Create(ctx, sender, receiver)
	if err != nil {
		return uuid.Nil, err
	}
	return req.ID, nil
}

// pendingRequest loads a request that may still be acted on.
func (c *Coordinator) pendingRequest(ctx context.Context, id uuid.UUID) (models.FriendRequest, error) {
	req, err := c.queue.FindByID(ctx, id)
	if err != nil {
		return models.FriendRequest{}, err
	}
	if req.Status != models.StatusPending {
		return models.FriendRequest{}, ErrAlreadyResolved
	}
	return req, nil
}

// AcceptRequest makes sender and receiver friends and removes the request,
// both in one transaction.
func (c *Coordinator) AcceptRequest(ctx context.Context, id uuid.UUID) (resolved models.FriendRequest, err error) {
	defer func() { observe("accept", err) }()

	req, err := c.pendingRequest(ctx, id)
	if err != nil {
		return models.FriendRequest{}, err
	}

	unlock, err := c.locks.lock(ctx, req.SenderID, req.ReceiverID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer unlock()

	err = c.store.InTx(ctx, func(tx store.Store) error {
		if err := NewLedger(tx).AddEdge(ctx, req.SenderID, req.ReceiverID); err != nil {
			return err
		}
		var err error
		resolved, err = c.queue.in(tx).Resolve(ctx, id, models.StatusAccepted)
		return err
	})
	if errors.Is(err, errs.ErrUnavailable) {
		return c.reconcileAccept(ctx, req, err)
	}
	if err != nil {
		return models.FriendRequest{}, err
	}

	logrus.WithFields(logrus.Fields{
		"function":    "AcceptRequest",
		"request_id":  id,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
	}).Info("Friend request accepted")
	return resolved, nil
}

// reconcileAccept runs after the accept transaction reported a store
// failure. A failed commit may still have been applied, and a store without
// real transactions may have applied half of it, so the outcome is read
// back and the missing half retried.
func (c *Coordinator) reconcileAccept(ctx context.Context, req models.FriendRequest, cause error) (models.FriendRequest, error) {
	fields := logrus.Fields{
		"function":    "reconcileAccept",
		"request_id":  req.ID,
		"sender_id":   req.SenderID,
		"receiver_id": req.ReceiverID,
		"cause":       cause.Error(),
	}
	logrus.WithFields(fields).Warn("Accept transaction failed, reconciling")

	accepted := req
	accepted.Status = models.StatusAccepted
	accepted.UpdatedAt = c.now()

	for attempt := 0; attempt < c.reconcileTries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				attempt = c.reconcileTries
				continue
			case <-time.After(c.reconcileDelay):
			}
		}

		friends, err := c.ledger.AreFriends(ctx, req.SenderID, req.ReceiverID)
		if err != nil {
			continue
		}
		_, err = c.store.GetRequest(ctx, req.ID)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			continue
		}
		pending := err == nil

		switch {
		case !friends && pending:
			// Nothing was applied; the caller may retry the accept.
			metrics.Reconciliations.WithLabelValues("rolled_back").Inc()
			return models.FriendRequest{}, cause
		case friends && !pending:
			metrics.Reconciliations.WithLabelValues("applied").Inc()
			logrus.WithFields(fields).Info("Accept was applied despite the error")
			return accepted, nil
		case friends && pending:
			err = c.store.DeleteRequest(ctx, req.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				continue
			}
		default:
			if err := c.ledger.AddEdge(ctx, req.SenderID, req.ReceiverID); err != nil {
				continue
			}
		}
		metrics.Reconciliations.WithLabelValues("repaired").Inc()
		logrus.WithFields(fields).Info("Repaired partially applied accept")
		return accepted, nil
	}

	metrics.Reconciliations.WithLabelValues("failed").Inc()
	logrus.WithFields(fields).Error("Could not reconcile friendship with friend request")
	return models.FriendRequest{}, ErrConsistency
}

// RejectRequest discards a pending request without touching the ledger.
func (c *Coordinator) RejectRequest(ctx context.Context, id uuid.UUID) (resolved models.FriendRequest, err error) {
	defer func() { observe("reject", err) }()

	req, err := c.pendingRequest(ctx, id)
	if err != nil {
		return models.FriendRequest{}, err
	}

	unlock, err := c.locks.lock(ctx, req.SenderID, req.ReceiverID)
	if err != nil {
		return models.FriendRequest{}, err
	}
	defer unlock()

	return c.queue.Resolve(ctx, id, models.StatusRejected)
}

// RemoveFriend ends the friendship between a and b. It fails with
// ErrNotFriends when there was none, in either argument order.
func (c *Coordinator) RemoveFriend(ctx context.Context, a, b uuid.UUID) (err error) {
	defer func() { observe("remove", err) }()

	if a == b {
		return ErrSelfRequest
	}

	unlock, err := c.locks.lock(ctx, a, b)
	if err != nil {
		return err
	}
	defer unlock()

	existed, err := c.ledger.RemoveEdge(ctx, a, b)
	if err != nil {
		return err
	}
	if !existed {
		return ErrNotFriends
	}

	logrus.WithFields(logrus.Fields{
		"function":  "RemoveFriend",
		"user_id":   a,
		"friend_id": b,
	}).Info("Friendship removed")
	return nil
}

// Friends returns the public view of user's friends.
func (c *Coordinator) Friends(ctx context.Context, user uuid.UUID) ([]models.Excerpt, error) {
	if _, err := c.accounts.Find(ctx, user); err != nil {
		return nil, err
	}
	ids, err := c.ledger.ListFriends(ctx, user)
	if err != nil {
		return nil, err
	}

	out := make([]models.Excerpt, 0, len(ids))
	for _, id := range ids {
		acc, err := c.accounts.Find(ctx, id)
		if errors.Is(err, errs.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"function":  "Friends",
				"user_id":   user,
				"friend_id": id,
			}).Warn("Friend edge points at a missing account")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, acc.Excerpt())
	}
	return out, nil
}

// Recommend returns every account except user, user's friends and anyone
// with a pending request to or from user, in creation order.
func (c *Coordinator) Recommend(ctx context.Context, user uuid.UUID) (out []models.Excerpt, err error) {
	defer func() { observe("recommend", err) }()

	if _, err := c.accounts.Find(ctx, user); err != nil {
		return nil, err
	}

	excluded := map[uuid.UUID]bool{user: true}
	friendIDs, err := c.ledger.ListFriends(ctx, user)
	if err != nil {
		return nil, err
	}
	for _, id := range friendIDs {
		excluded[id] = true
	}
	pending, err := c.queue.ListInvolving(ctx, user, models.StatusPending)
	if err != nil {
		return nil, err
	}
	for _, req := range pending {
		excluded[req.Other(user)] = true
	}

	all, err := c.accounts.List(ctx)
	if err != nil {
		return nil, err
	}
	out = make([]models.Excerpt, 0, len(all))
	for _, acc := range all {
		if !excluded[acc.ID] {
			out = append(out, acc.Excerpt())
		}
	}
	return out, nil
}

// ListRequestsFor returns requests received by user with status, each
// joined with the sender's name and profile picture.
func (c *Coordinator) ListRequestsFor(ctx context.Context, user uuid.UUID, status models.RequestStatus) ([]RequestView, error) {
	if _, err := c.accounts.Find(ctx, user); err != nil {
		return nil, err
	}
	reqs, err := c.queue.ListByReceiver(ctx, user, status)
	if err != nil {
		return nil, err
	}

	out := make([]RequestView, 0, len(reqs))
	for _, req := range reqs {
		sender, err := c.accounts.Find(ctx, req.SenderID)
		if errors.Is(err, errs.ErrNotFound) {
			logrus.WithFields(logrus.Fields{
				"function":   "ListRequestsFor",
				"request_id": req.ID,
				"sender_id":  req.SenderID,
			}).Warn("Skipping request from a missing account")
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, RequestView{
			RequestID:    req.ID,
			UserID:       sender.ID,
			Name:         sender.Name,
			ProfileImage: sender.ProfilePic,
			Status:       req.Status,
			CreatedAt:    req.CreatedAt,
		})
	}
	return out, nil
}

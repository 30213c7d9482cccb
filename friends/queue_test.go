package friends

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store/memory"
	"github.com/hike-social/hike/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerSymmetry(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := storetest.Account(t, s, "a")
	b := storetest.Account(t, s, "b")
	l := NewLedger(s)

	assert.ErrorIs(t, l.AddEdge(ctx, a.ID, a.ID), ErrSelfRequest)

	require.NoError(t, l.AddEdge(ctx, a.ID, b.ID))
	require.NoError(t, l.AddEdge(ctx, b.ID, a.ID))

	for _, id := range []uuid.UUID{a.ID, b.ID} {
		friends, err := l.ListFriends(ctx, id)
		require.NoError(t, err)
		assert.Len(t, friends, 1, "edge is stored once per direction")
	}

	existed, err := l.RemoveEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = l.RemoveEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	ok, err := l.AreFriends(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestQueueCreateAndResolve(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := storetest.Account(t, s, "a")
	b := storetest.Account(t, s, "b")
	c := storetest.Account(t, s, "c")

	created := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	clock := created
	q := NewQueue(s, func() time.Time { return clock })

	req, err := q.Create(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, created, req.CreatedAt)

	_, err = q.Create(ctx, c.ID, b.ID)
	require.NoError(t, err)

	toB, err := q.ListByReceiver(ctx, b.ID, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, toB, 2)
	assert.Equal(t, req.ID, toB[0].ID)

	withA, err := q.ListInvolving(ctx, a.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, withA, 1)

	none, err := q.ListByReceiver(ctx, uuid.Nil, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, none)
	none, err = q.ListInvolving(ctx, uuid.Nil, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = q.Resolve(ctx, req.ID, models.StatusPending)
	assert.ErrorIs(t, err, ErrInvalidOutcome)

	clock = created.Add(time.Hour)
	resolved, err := q.Resolve(ctx, req.ID, models.StatusRejected)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)
	assert.Equal(t, clock, resolved.UpdatedAt)
	assert.Equal(t, created, resolved.CreatedAt)

	_, err = q.Resolve(ctx, req.ID, models.StatusAccepted)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = q.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestQueueRejectsNonPendingRecord(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	a := storetest.Account(t, s, "a")
	b := storetest.Account(t, s, "b")

	old := models.FriendRequest{SenderID: a.ID, ReceiverID: b.ID, Status: models.StatusAccepted}
	require.NoError(t, s.InsertRequest(ctx, &old))

	q := NewQueue(s, nil)
	_, err := q.Resolve(ctx, old.ID, models.StatusRejected)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
	assert.ErrorIs(t, err, errs.ErrInvalidState)
}

func TestPairLock(t *testing.T) {
	locks := newPairLocks()
	a, b := uuid.New(), uuid.New()

	unlock, err := locks.lock(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, 1, locks.size())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = locks.lock(ctx, b, a)
	assert.ErrorIs(t, err, errs.ErrUnavailable, "reversed pair shares the lock")

	other, err := locks.lock(context.Background(), a, uuid.New())
	require.NoError(t, err, "other pairs are independent")
	other()

	acquired := make(chan func())
	go func() {
		next, err := locks.lock(context.Background(), b, a)
		if err == nil {
			acquired <- next
		}
	}()

	select {
	case <-acquired:
		t.Fatal("lock acquired while held")
	case <-time.After(10 * time.Millisecond):
	}

	unlock()
	select {
	case next := <-acquired:
		next()
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}
	assert.Zero(t, locks.size())
}

// Package storetest is a conformance suite run against every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises s. newStore must return an empty store for every call.
func Run(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("accounts", func(t *testing.T) { testAccounts(t, newStore(t)) })
	t.Run("edges", func(t *testing.T) { testEdges(t, newStore(t)) })
	t.Run("requests", func(t *testing.T) { testRequests(t, newStore(t)) })
	t.Run("pending pair is unique under concurrency", func(t *testing.T) { testConcurrentPending(t, newStore(t)) })
	t.Run("posts", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("transaction rollback", func(t *testing.T) { testRollback(t, newStore(t)) })
	t.Run("nested transaction", func(t *testing.T) { testNested(t, newStore(t)) })
}

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// Account inserts an account named name and returns it.
func Account(t *testing.T, s store.Store, name string) models.Account {
	t.Helper()
	acc := models.Account{
		ID:        uuid.New(),
		Name:      name,
		Email:     name + "@example.com",
		CreatedAt: base,
		UpdatedAt: base,
	}
	require.NoError(t, s.InsertAccount(context.Background(), &acc))
	return acc
}

func testAccounts(t *testing.T, s store.Store) {
	ctx := context.Background()
	alice := Account(t, s, "alice")
	bob := Account(t, s, "bob")

	got, err := s.GetAccount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Name)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = s.GetAccount(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrNotFound)

	found, err := s.FindAccount(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)
	found, err = s.FindAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, bob.ID, found.ID)
	_, err = s.FindAccount(ctx, "carol")
	assert.ErrorIs(t, err, store.ErrNotFound)

	dupEmail := models.Account{ID: uuid.New(), Name: "alice2", Email: "alice@example.com", CreatedAt: base}
	assert.ErrorIs(t, s.InsertAccount(ctx, &dupEmail), store.ErrDuplicate)
	dupName := models.Account{ID: uuid.New(), Name: "alice", Email: "other@example.com", CreatedAt: base}
	assert.ErrorIs(t, s.InsertAccount(ctx, &dupName), store.ErrDuplicate)

	bob.Email = "alice@example.com"
	assert.ErrorIs(t, s.UpdateAccount(ctx, &bob), store.ErrDuplicate)
	bob.Email = "robert@example.com"
	bob.ProfilePic = "https://cdn.example.com/bob.png"
	require.NoError(t, s.UpdateAccount(ctx, &bob))
	got, err = s.GetAccount(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "robert@example.com", got.Email)
	assert.Equal(t, "https://cdn.example.com/bob.png", got.ProfilePic)

	ghost := models.Account{ID: uuid.New(), Name: "ghost", Email: "ghost@example.com"}
	assert.ErrorIs(t, s.UpdateAccount(ctx, &ghost), store.ErrNotFound)

	all, err := s.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, alice.ID, all[0].ID)
	assert.Equal(t, bob.ID, all[1].ID)

	require.NoError(t, s.DeleteAccount(ctx, alice.ID))
	assert.ErrorIs(t, s.DeleteAccount(ctx, alice.ID), store.ErrNotFound)
	all, err = s.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testEdges(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")
	c := Account(t, s, "c")

	require.NoError(t, s.InsertEdge(ctx, a.ID, b.ID))
	require.NoError(t, s.InsertEdge(ctx, b.ID, a.ID), "inserting an existing edge is a no-op")
	require.NoError(t, s.InsertEdge(ctx, a.ID, c.ID))

	for _, pair := range [][2]uuid.UUID{{a.ID, b.ID}, {b.ID, a.ID}, {a.ID, c.ID}, {c.ID, a.ID}} {
		ok, err := s.HasEdge(ctx, pair[0], pair[1])
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := s.HasEdge(ctx, b.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	friends, err := s.ListFriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{b.ID, c.ID}, friends)
	friends, err = s.ListFriendIDs(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, friends)

	existed, err := s.DeleteEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, existed)
	existed, err = s.DeleteEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, existed)

	ok, err = s.HasEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = s.HasEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func newRequest(sender, receiver uuid.UUID, at time.Time) models.FriendRequest {
	return models.FriendRequest{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Status:     models.StatusPending,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
}

func testRequests(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")
	c := Account(t, s, "c")

	ab := newRequest(a.ID, b.ID, base)
	require.NoError(t, s.InsertRequest(ctx, &ab))

	reverse := newRequest(b.ID, a.ID, base.Add(time.Second))
	assert.ErrorIs(t, s.InsertRequest(ctx, &reverse), store.ErrDuplicate)

	cb := newRequest(c.ID, b.ID, base.Add(2*time.Second))
	require.NoError(t, s.InsertRequest(ctx, &cb))

	got, err := s.GetRequest(ctx, ab.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.SenderID)
	assert.Equal(t, b.ID, got.ReceiverID)
	assert.Equal(t, models.StatusPending, got.Status)

	pending, err := s.PendingBetween(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, ab.ID, pending.ID)
	_, err = s.PendingBetween(ctx, a.ID, c.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	toB, err := s.ListRequests(ctx, store.RequestFilter{ReceiverID: b.ID, Status: models.StatusPending})
	require.NoError(t, err)
	require.Len(t, toB, 2)
	assert.Equal(t, ab.ID, toB[0].ID)
	assert.Equal(t, cb.ID, toB[1].ID)

	withA, err := s.ListRequests(ctx, store.RequestFilter{Involving: a.ID})
	require.NoError(t, err)
	require.Len(t, withA, 1)

	accepted, err := s.ListRequests(ctx, store.RequestFilter{ReceiverID: b.ID, Status: models.StatusAccepted})
	require.NoError(t, err)
	assert.Empty(t, accepted)

	require.NoError(t, s.DeleteRequest(ctx, ab.ID))
	assert.ErrorIs(t, s.DeleteRequest(ctx, ab.ID), store.ErrNotFound)
	_, err = s.GetRequest(ctx, ab.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.InsertRequest(ctx, &reverse), "pair is free again once the pending request is gone")
}

func testConcurrentPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := newRequest(a.ID, b.ID, base)
			if i%2 == 1 {
				req = newRequest(b.ID, a.ID, base)
			}
			results <- s.InsertRequest(ctx, &req)
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, dup int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, store.ErrDuplicate):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, dup)
}

func testPosts(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")

	older := models.Post{ID: uuid.New(), UserID: a.ID, Content: "first", CreatedAt: base, UpdatedAt: base}
	newer := models.Post{ID: uuid.New(), UserID: b.ID, Content: "second", CreatedAt: base.Add(time.Minute), UpdatedAt: base}
	require.NoError(t, s.InsertPost(ctx, &older))
	require.NoError(t, s.InsertPost(ctx, &newer))

	all, err := s.ListPosts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, newer.ID, all[0].ID)
	assert.Equal(t, older.ID, all[1].ID)

	byA, err := s.ListPosts(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, byA, 1)
	assert.Equal(t, "first", byA[0].Content)

	older.Content = "edited"
	require.NoError(t, s.UpdatePost(ctx, &older))
	got, err := s.GetPost(ctx, older.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", got.Content)

	require.NoError(t, s.DeletePost(ctx, newer.ID))
	assert.ErrorIs(t, s.DeletePost(ctx, newer.ID), store.ErrNotFound)

	require.NoError(t, s.DeletePostsBy(ctx, a.ID))
	all, err = s.ListPosts(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

var errAbort = errors.New("abort")

func testRollback(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")
	req := newRequest(a.ID, b.ID, base)
	require.NoError(t, s.InsertRequest(ctx, &req))

	err := s.InTx(ctx, func(tx store.Store) error {
		require.NoError(t, tx.InsertEdge(ctx, a.ID, b.ID))
		require.NoError(t, tx.DeleteRequest(ctx, req.ID))
		return errAbort
	})
	assert.ErrorIs(t, err, errAbort)

	ok, err := s.HasEdge(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok, "edge must be rolled back")
	ok, err = s.HasEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.False(t, ok, "mirrored edge must be rolled back")
	_, err = s.GetRequest(ctx, req.ID)
	assert.NoError(t, err, "request must be restored")
	_, err = s.PendingBetween(ctx, a.ID, b.ID)
	assert.NoError(t, err, "pending index must be restored")

	err = s.InTx(ctx, func(tx store.Store) error {
		if err := tx.InsertEdge(ctx, a.ID, b.ID); err != nil {
			return err
		}
		return tx.DeleteRequest(ctx, req.ID)
	})
	require.NoError(t, err)
	ok, err = s.HasEdge(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = s.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func testNested(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := Account(t, s, "a")
	b := Account(t, s, "b")
	c := Account(t, s, "c")

	err := s.InTx(ctx, func(tx store.Store) error {
		if err := tx.InsertEdge(ctx, a.ID, b.ID); err != nil {
			return err
		}
		inner := tx.InTx(ctx, func(tx store.Store) error {
			if err := tx.InsertEdge(ctx, a.ID, c.ID); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, inner, errAbort)
		return nil
	})
	require.NoError(t, err)

	friends, err := s.ListFriendIDs(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, friends)
}

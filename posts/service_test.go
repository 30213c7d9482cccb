package posts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/store/memory"
	"github.com/hike-social/hike/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ticker struct{ t time.Time }

func (c *ticker) now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func strPtr(s string) *string { return &s }

func TestCreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	alice := storetest.Account(t, s, "alice")
	clock := &ticker{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(s, clock.now)

	_, err := svc.Create(ctx, alice.ID, "  ", "")
	assert.ErrorIs(t, err, ErrEmptyPost)

	_, err = svc.Create(ctx, uuid.New(), "hello", "")
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)

	post, err := svc.Create(ctx, alice.ID, "hello", "")
	require.NoError(t, err)

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Content)

	updated, err := svc.Update(ctx, post.ID, PostUpdate{Image: strPtr("https://pics.example.com/1.png")})
	require.NoError(t, err)
	assert.Equal(t, "hello", updated.Content)
	assert.True(t, updated.UpdatedAt.After(post.UpdatedAt))

	_, err = svc.Update(ctx, post.ID, PostUpdate{Content: strPtr(""), Image: strPtr("")})
	assert.ErrorIs(t, err, ErrEmptyPost)

	_, err = svc.Update(ctx, uuid.New(), PostUpdate{Content: strPtr("x")})
	assert.ErrorIs(t, err, ErrPostNotFound)

	require.NoError(t, svc.Delete(ctx, post.ID))
	assert.ErrorIs(t, svc.Delete(ctx, post.ID), ErrPostNotFound)
}

func TestFeedShowsFriendsOnly(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	alice := storetest.Account(t, s, "alice")
	bob := storetest.Account(t, s, "bob")
	carol := storetest.Account(t, s, "carol")
	require.NoError(t, s.InsertEdge(ctx, alice.ID, bob.ID))

	clock := &ticker{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(s, clock.now)

	own, err := svc.Create(ctx, alice.ID, "mine", "")
	require.NoError(t, err)
	fromBob, err := svc.Create(ctx, bob.ID, "from bob", "")
	require.NoError(t, err)
	_, err = svc.Create(ctx, carol.ID, "from carol", "")
	require.NoError(t, err)

	feed, err := svc.Feed(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, fromBob.ID, feed[0].ID, "newest first")
	assert.Equal(t, own.ID, feed[1].ID)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = svc.Feed(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

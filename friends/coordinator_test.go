package friends

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hike-social/hike/accounts"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
	"github.com/hike-social/hike/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store store.Store
	dir   *accounts.Directory
	c     *Coordinator
}

func newFixture(t *testing.T, s store.Store) *fixture {
	t.Helper()
	dir := accounts.NewDirectory(s)
	return &fixture{
		store: s,
		dir:   dir,
		c:     NewCoordinator(s, dir, WithReconcile(3, time.Millisecond)),
	}
}

func (f *fixture) account(t *testing.T, name string) models.Account {
	t.Helper()
	acc, err := f.dir.Create(context.Background(), name, name+"@example.com", "hash")
	require.NoError(t, err)
	return acc
}

func (f *fixture) assertFriends(t *testing.T, a, b uuid.UUID, want bool) {
	t.Helper()
	ctx := context.Background()
	ab, err := f.c.Ledger().AreFriends(ctx, a, b)
	require.NoError(t, err)
	ba, err := f.c.Ledger().AreFriends(ctx, b, a)
	require.NoError(t, err)
	assert.Equal(t, want, ab)
	assert.Equal(t, ab, ba, "friendship must be symmetric")
}

func excerptIDs(xs []models.Excerpt) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(xs))
	for _, x := range xs {
		ids = append(ids, x.ID)
	}
	return ids
}

func TestSendRequestThenInverseConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")

	id, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	req, err := f.c.Queue().FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, a.ID, req.SenderID)

	_, err = f.c.SendRequest(ctx, b.ID, a.ID)
	assert.ErrorIs(t, err, ErrAlreadyPending)
	assert.ErrorIs(t, err, errs.ErrConflict)

	_, err = f.c.SendRequest(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyPending)
}

func TestAcceptRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")

	id, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	resolved, err := f.c.AcceptRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAccepted, resolved.Status)

	_, err = f.c.Queue().FindByID(ctx, id)
	assert.ErrorIs(t, err, ErrRequestNotFound, "resolved requests are discarded")
	f.assertFriends(t, a.ID, b.ID, true)

	_, err = f.c.AcceptRequest(ctx, id)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = f.c.RejectRequest(ctx, id)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSendToFriendConflicts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")
	require.NoError(t, f.c.Ledger().AddEdge(ctx, a.ID, b.ID))

	_, err := f.c.SendRequest(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrAlreadyFriends)
	assert.ErrorIs(t, err, errs.ErrConflict)

	friends, err := f.c.Ledger().ListFriends(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, friends)
}

func TestRejectRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")

	id, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	resolved, err := f.c.RejectRequest(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, resolved.Status)

	_, err = f.c.Queue().FindByID(ctx, id)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	f.assertFriends(t, a.ID, b.ID, false)

	_, err = f.c.SendRequest(ctx, b.ID, a.ID)
	assert.NoError(t, err, "pair is free after a rejection")
}

func TestRecommend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b, c := f.account(t, "alice"), f.account(t, "bob"), f.account(t, "carol")
	d, e := f.account(t, "dave"), f.account(t, "erin")
	require.NoError(t, f.c.Ledger().AddEdge(ctx, a.ID, b.ID))

	recs, err := f.c.Recommend(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID, d.ID, e.ID}, excerptIDs(recs))

	_, err = f.c.SendRequest(ctx, a.ID, d.ID)
	require.NoError(t, err)
	_, err = f.c.SendRequest(ctx, e.ID, a.ID)
	require.NoError(t, err)

	recs, err = f.c.Recommend(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{c.ID}, excerptIDs(recs), "pending counterparts in either direction are excluded")

	_, err = f.c.Recommend(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestSendRequestValidationOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a := f.account(t, "alice")
	ghost := uuid.New()

	testCases := []struct {
		name     string
		sender   uuid.UUID
		receiver uuid.UUID
		want     error
	}{
		{"self request", a.ID, a.ID, ErrSelfRequest},
		{"self request beats missing account", ghost, ghost, ErrSelfRequest},
		{"missing receiver", a.ID, ghost, accounts.ErrAccountNotFound},
		{"missing sender", ghost, a.ID, accounts.ErrAccountNotFound},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.c.SendRequest(ctx, tc.sender, tc.receiver)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestRemoveFriend(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")

	assert.ErrorIs(t, f.c.RemoveFriend(ctx, a.ID, b.ID), ErrNotFriends)
	assert.ErrorIs(t, f.c.RemoveFriend(ctx, a.ID, a.ID), ErrSelfRequest)

	id, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = f.c.AcceptRequest(ctx, id)
	require.NoError(t, err)

	require.NoError(t, f.c.RemoveFriend(ctx, b.ID, a.ID))
	f.assertFriends(t, a.ID, b.ID, false)

	err = f.c.RemoveFriend(ctx, a.ID, b.ID)
	assert.ErrorIs(t, err, ErrNotFriends, "second unfriend in the other direction")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestFriendsAndRequestViews(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b, c := f.account(t, "alice"), f.account(t, "bob"), f.account(t, "carol")

	_, err := f.dir.Update(ctx, b.ID, accounts.AccountUpdate{ProfilePic: strPtr("https://pics.example.com/bob.png")})
	require.NoError(t, err)

	fromB, err := f.c.SendRequest(ctx, b.ID, a.ID)
	require.NoError(t, err)
	fromC, err := f.c.SendRequest(ctx, c.ID, a.ID)
	require.NoError(t, err)

	views, err := f.c.ListRequestsFor(ctx, a.ID, models.StatusPending)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, fromB, views[0].RequestID)
	assert.Equal(t, b.ID, views[0].UserID)
	assert.Equal(t, "bob", views[0].Name)
	assert.Equal(t, "https://pics.example.com/bob.png", views[0].ProfileImage)
	assert.Equal(t, fromC, views[1].RequestID)

	views, err = f.c.ListRequestsFor(ctx, b.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, views, "only received requests are listed")

	_, err = f.c.AcceptRequest(ctx, fromB)
	require.NoError(t, err)

	friends, err := f.c.Friends(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].Name)

	friends, err = f.c.Friends(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a.ID}, excerptIDs(friends))

	accepted, err := f.c.ListRequestsFor(ctx, a.ID, models.StatusAccepted)
	require.NoError(t, err)
	assert.Empty(t, accepted)

	_, err = f.c.Friends(ctx, uuid.New())
	assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
}

func TestListRequestsForUnknownUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")
	_, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	for name, user := range map[string]uuid.UUID{"nil": uuid.Nil, "unknown": uuid.New()} {
		t.Run(name, func(t *testing.T) {
			views, err := f.c.ListRequestsFor(ctx, user, models.StatusPending)
			assert.ErrorIs(t, err, accounts.ErrAccountNotFound)
			assert.Empty(t, views)
		})
	}
}

func TestConcurrentSendsCreateOneRequest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")

	const workers = 10
	var wg sync.WaitGroup
	errc := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender, receiver := a.ID, b.ID
			if i%2 == 1 {
				sender, receiver = b.ID, a.ID
			}
			_, err := f.c.SendRequest(ctx, sender, receiver)
			errc <- err
		}(i)
	}
	wg.Wait()
	close(errc)

	var ok int
	for err := range errc {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyPending)
	}
	assert.Equal(t, 1, ok)

	pending, err := f.c.Queue().ListInvolving(ctx, a.ID, models.StatusPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Zero(t, f.c.locks.size())
}

func TestConcurrentAcceptsApplyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")
	id, err := f.c.SendRequest(ctx, a.ID, b.ID)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	errc := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.c.AcceptRequest(ctx, id)
			errc <- err
		}()
	}
	wg.Wait()
	close(errc)

	var ok int
	for err := range errc {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, errs.ErrNotFound)
	}
	assert.Equal(t, 1, ok)

	friends, err := f.c.Ledger().ListFriends(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{b.ID}, friends)
}

// faultyStore wraps a real store and injects failures into the accept
// path. Without atomic it runs transactions straight against itself, so a
// failure part way leaves earlier writes applied.
type faultyStore struct {
	store.Store

	mu             sync.Mutex
	atomic         bool
	commitFails    bool
	txFails        bool
	deleteFailures int
}

var errInjected = errors.New("injected")

func (s *faultyStore) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	if s.txFails {
		return errs.Unavailable("faulty store", errInjected)
	}
	if s.atomic {
		if err := s.Store.InTx(ctx, fn); err != nil {
			return err
		}
		if s.commitFails {
			return errs.Unavailable("faulty store commit", errInjected)
		}
		return nil
	}
	return fn(s)
}

func (s *faultyStore) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	fail := s.deleteFailures > 0
	if fail {
		s.deleteFailures--
	}
	s.mu.Unlock()
	if fail {
		return errs.Unavailable("faulty store", errInjected)
	}
	return s.Store.DeleteRequest(ctx, id)
}

func TestAcceptReconciliation(t *testing.T) {
	testCases := []struct {
		name           string
		atomic         bool
		commitFails    bool
		txFails        bool
		deleteFailures int
		wantErr        error
		wantFriends    bool
		wantPending    bool
	}{
		{
			name:        "commit reported failure but applied",
			atomic:      true,
			commitFails: true,
			wantFriends: true,
		},
		{
			name:           "half applied then repaired",
			deleteFailures: 1,
			wantFriends:    true,
		},
		{
			name:        "nothing applied",
			txFails:     true,
			wantErr:     errs.ErrUnavailable,
			wantPending: true,
		},
		{
			name:           "repair keeps failing",
			deleteFailures: 100,
			wantErr:        ErrConsistency,
			wantFriends:    true,
			wantPending:    true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			mem := memory.New()
			fs := &faultyStore{Store: mem, atomic: true}
			f := newFixture(t, fs)
			a, b := f.account(t, "alice"), f.account(t, "bob")
			id, err := f.c.SendRequest(ctx, a.ID, b.ID)
			require.NoError(t, err)

			fs.atomic = tc.atomic
			fs.commitFails = tc.commitFails
			fs.txFails = tc.txFails
			fs.deleteFailures = tc.deleteFailures

			resolved, err := f.c.AcceptRequest(ctx, id)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, models.StatusAccepted, resolved.Status)
			}

			friends, err := mem.HasEdge(ctx, b.ID, a.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantFriends, friends)
			_, err = mem.GetRequest(ctx, id)
			assert.Equal(t, tc.wantPending, err == nil)
		})
	}
}

func TestAcceptHonoursCancelledContext(t *testing.T) {
	f := newFixture(t, memory.New())
	a, b := f.account(t, "alice"), f.account(t, "bob")
	id, err := f.c.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = f.c.AcceptRequest(ctx, id)
	assert.ErrorIs(t, err, errs.ErrUnavailable)

	_, err = f.c.Queue().FindByID(context.Background(), id)
	assert.NoError(t, err, "request is still pending")
}

func strPtr(s string) *string { return &s }

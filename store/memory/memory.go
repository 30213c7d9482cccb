// Package memory is an in-process store.Store. A single mutex guards all
// state; transactions hold it for their whole duration and keep an undo log
// so a failed transaction leaves no trace.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
)

type state struct {
	seq      uint64
	order    map[uuid.UUID]uint64
	accounts map[uuid.UUID]models.Account
	edges    map[uuid.UUID]map[uuid.UUID]struct{}
	requests map[uuid.UUID]models.FriendRequest
	// pending maps a pair key to the id of its pending request.
	pending map[string]uuid.UUID
	posts   map[uuid.UUID]models.Post
}

// Store keeps every record in maps.
type Store struct {
	mu     sync.Mutex
	st     *state
	closed bool
}

var _ store.Store = (*Store)(nil)

// New creates an empty Store.
func New() *Store {
	return &Store{st: &state{
		order:    make(map[uuid.UUID]uint64),
		accounts: make(map[uuid.UUID]models.Account),
		edges:    make(map[uuid.UUID]map[uuid.UUID]struct{}),
		requests: make(map[uuid.UUID]models.FriendRequest),
		pending:  make(map[string]uuid.UUID),
		posts:    make(map[uuid.UUID]models.Post),
	}}
}

// do runs fn under the lock as a one-statement transaction.
func (s *Store) do(ctx context.Context, fn func(t *tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errs.Unavailable("memory store", errClosed)
	}
	if err := ctx.Err(); err != nil {
		return errs.Unavailable("memory store", err)
	}
	t := &tx{st: s.st}
	if err := fn(t); err != nil {
		t.rollbackTo(0)
		return err
	}
	return nil
}

func (s *Store) InTx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.do(ctx, func(t *tx) error { return fn(t) })
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Store) InsertAccount(ctx context.Context, acc *models.Account) error {
	return s.do(ctx, func(t *tx) error { return t.InsertAccount(ctx, acc) })
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (acc models.Account, err error) {
	err = s.do(ctx, func(t *tx) error {
		acc, err = t.GetAccount(ctx, id)
		return err
	})
	return acc, err
}

func (s *Store) FindAccount(ctx context.Context, emailOrName string) (acc models.Account, err error) {
	err = s.do(ctx, func(t *tx) error {
		acc, err = t.FindAccount(ctx, emailOrName)
		return err
	})
	return acc, err
}

func (s *Store) UpdateAccount(ctx context.Context, acc *models.Account) error {
	return s.do(ctx, func(t *tx) error { return t.UpdateAccount(ctx, acc) })
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeleteAccount(ctx, id) })
}

func (s *Store) ListAccounts(ctx context.Context) (out []models.Account, err error) {
	err = s.do(ctx, func(t *tx) error {
		out, err = t.ListAccounts(ctx)
		return err
	})
	return out, err
}

func (s *Store) HasEdge(ctx context.Context, a, b uuid.UUID) (ok bool, err error) {
	err = s.do(ctx, func(t *tx) error {
		ok, err = t.HasEdge(ctx, a, b)
		return err
	})
	return ok, err
}

func (s *Store) ListFriendIDs(ctx context.Context, a uuid.UUID) (out []uuid.UUID, err error) {
	err = s.do(ctx, func(t *tx) error {
		out, err = t.ListFriendIDs(ctx, a)
		return err
	})
	return out, err
}

func (s *Store) InsertEdge(ctx context.Context, a, b uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.InsertEdge(ctx, a, b) })
}

func (s *Store) DeleteEdge(ctx context.Context, a, b uuid.UUID) (existed bool, err error) {
	err = s.do(ctx, func(t *tx) error {
		existed, err = t.DeleteEdge(ctx, a, b)
		return err
	})
	return existed, err
}

func (s *Store) InsertRequest(ctx context.Context, req *models.FriendRequest) error {
	return s.do(ctx, func(t *tx) error { return t.InsertRequest(ctx, req) })
}

func (s *Store) GetRequest(ctx context.Context, id uuid.UUID) (req models.FriendRequest, err error) {
	err = s.do(ctx, func(t *tx) error {
		req, err = t.GetRequest(ctx, id)
		return err
	})
	return req, err
}

func (s *Store) PendingBetween(ctx context.Context, a, b uuid.UUID) (req models.FriendRequest, err error) {
	err = s.do(ctx, func(t *tx) error {
		req, err = t.PendingBetween(ctx, a, b)
		return err
	})
	return req, err
}

func (s *Store) ListRequests(ctx context.Context, filter store.RequestFilter) (out []models.FriendRequest, err error) {
	err = s.do(ctx, func(t *tx) error {
		out, err = t.ListRequests(ctx, filter)
		return err
	})
	return out, err
}

func (s *Store) DeleteRequest(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeleteRequest(ctx, id) })
}

func (s *Store) InsertPost(ctx context.Context, post *models.Post) error {
	return s.do(ctx, func(t *tx) error { return t.InsertPost(ctx, post) })
}

func (s *Store) GetPost(ctx context.Context, id uuid.UUID) (post models.Post, err error) {
	err = s.do(ctx, func(t *tx) error {
		post, err = t.GetPost(ctx, id)
		return err
	})
	return post, err
}

func (s *Store) UpdatePost(ctx context.Context, post *models.Post) error {
	return s.do(ctx, func(t *tx) error { return t.UpdatePost(ctx, post) })
}

func (s *Store) DeletePost(ctx context.Context, id uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeletePost(ctx, id) })
}

func (s *Store) ListPosts(ctx context.Context, authors ...uuid.UUID) (out []models.Post, err error) {
	err = s.do(ctx, func(t *tx) error {
		out, err = t.ListPosts(ctx, authors...)
		return err
	})
	return out, err
}

func (s *Store) DeletePostsBy(ctx context.Context, author uuid.UUID) error {
	return s.do(ctx, func(t *tx) error { return t.DeletePostsBy(ctx, author) })
}

func (st *state) next(id uuid.UUID) {
	st.seq++
	st.order[id] = st.seq
}

func (st *state) sortBySeq(ids []uuid.UUID) {
	sort.Slice(ids, func(i, j int) bool { return st.order[ids[i]] < st.order[ids[j]] })
}

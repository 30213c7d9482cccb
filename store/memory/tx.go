package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"github.com/hike-social/hike/models"
	"github.com/hike-social/hike/store"
)

var errClosed = errors.New("store closed")

// tx is a view of the state that records how to undo each write. The
// owning Store holds its mutex for as long as a tx is alive.
type tx struct {
	st   *state
	undo []func()
}

var _ store.Store = (*tx)(nil)

func (t *tx) rollbackTo(mark int) {
	for i := len(t.undo) - 1; i >= mark; i-- {
		t.undo[i]()
	}
	t.undo = t.undo[:mark]
}

// InTx on a tx is a savepoint: fn's writes are undone if it fails, the
// enclosing transaction carries on.
func (t *tx) InTx(_ context.Context, fn func(tx store.Store) error) error {
	mark := len(t.undo)
	if err := fn(t); err != nil {
		t.rollbackTo(mark)
		return err
	}
	return nil
}

func (t *tx) Close() error { return nil }

func put[K comparable, V any](t *tx, m map[K]V, k K, v V) {
	prev, had := m[k]
	m[k] = v
	t.undo = append(t.undo, func() {
		if had {
			m[k] = prev
		} else {
			delete(m, k)
		}
	})
}

func del[K comparable, V any](t *tx, m map[K]V, k K) bool {
	prev, had := m[k]
	if !had {
		return false
	}
	delete(m, k)
	t.undo = append(t.undo, func() { m[k] = prev })
	return true
}

func (t *tx) track(id uuid.UUID) {
	t.st.seq++
	put(t, t.st.order, id, t.st.seq)
}

func (t *tx) accountTaken(acc *models.Account) bool {
	for id, other := range t.st.accounts {
		if id == acc.ID {
			continue
		}
		if other.Email == acc.Email || other.Name == acc.Name {
			return true
		}
	}
	return false
}

func (t *tx) InsertAccount(_ context.Context, acc *models.Account) error {
	if acc.ID == uuid.Nil {
		acc.ID = uuid.New()
	}
	if _, ok := t.st.accounts[acc.ID]; ok || t.accountTaken(acc) {
		return store.ErrDuplicate
	}
	put(t, t.st.accounts, acc.ID, *acc)
	t.track(acc.ID)
	return nil
}

func (t *tx) GetAccount(_ context.Context, id uuid.UUID) (models.Account, error) {
	acc, ok := t.st.accounts[id]
	if !ok {
		return models.Account{}, store.ErrNotFound
	}
	return acc, nil
}

func (t *tx) FindAccount(_ context.Context, emailOrName string) (models.Account, error) {
	for _, id := range t.accountIDs() {
		acc := t.st.accounts[id]
		if acc.Email == emailOrName || acc.Name == emailOrName {
			return acc, nil
		}
	}
	return models.Account{}, store.ErrNotFound
}

func (t *tx) UpdateAccount(_ context.Context, acc *models.Account) error {
	if _, ok := t.st.accounts[acc.ID]; !ok {
		return store.ErrNotFound
	}
	if t.accountTaken(acc) {
		return store.ErrDuplicate
	}
	put(t, t.st.accounts, acc.ID, *acc)
	return nil
}

func (t *tx) DeleteAccount(_ context.Context, id uuid.UUID) error {
	if !del(t, t.st.accounts, id) {
		return store.ErrNotFound
	}
	del(t, t.st.order, id)
	return nil
}

func (t *tx) accountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(t.st.accounts))
	for id := range t.st.accounts {
		ids = append(ids, id)
	}
	t.st.sortBySeq(ids)
	return ids
}

func (t *tx) ListAccounts(_ context.Context) ([]models.Account, error) {
	ids := t.accountIDs()
	out := make([]models.Account, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.accounts[id])
	}
	return out, nil
}

func (t *tx) HasEdge(_ context.Context, a, b uuid.UUID) (bool, error) {
	_, ok := t.st.edges[a][b]
	return ok, nil
}

func (t *tx) ListFriendIDs(_ context.Context, a uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(t.st.edges[a]))
	for id := range t.st.edges[a] {
		ids = append(ids, id)
	}
	t.st.sortBySeq(ids)
	return ids, nil
}

func (t *tx) friendSet(a uuid.UUID) map[uuid.UUID]struct{} {
	set, ok := t.st.edges[a]
	if !ok {
		set = make(map[uuid.UUID]struct{})
		t.st.edges[a] = set
	}
	return set
}

func (t *tx) InsertEdge(_ context.Context, a, b uuid.UUID) error {
	put(t, t.friendSet(a), b, struct{}{})
	put(t, t.friendSet(b), a, struct{}{})
	return nil
}

func (t *tx) DeleteEdge(_ context.Context, a, b uuid.UUID) (bool, error) {
	ab := del(t, t.friendSet(a), b)
	ba := del(t, t.friendSet(b), a)
	return ab || ba, nil
}

func (t *tx) InsertRequest(_ context.Context, req *models.FriendRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if _, ok := t.st.requests[req.ID]; ok {
		return store.ErrDuplicate
	}
	key := req.PairKey()
	if req.Status == models.StatusPending {
		if _, ok := t.st.pending[key]; ok {
			return store.ErrDuplicate
		}
		put(t, t.st.pending, key, req.ID)
	}
	put(t, t.st.requests, req.ID, *req)
	t.track(req.ID)
	return nil
}

func (t *tx) GetRequest(_ context.Context, id uuid.UUID) (models.FriendRequest, error) {
	req, ok := t.st.requests[id]
	if !ok {
		return models.FriendRequest{}, store.ErrNotFound
	}
	return req, nil
}

func (t *tx) PendingBetween(ctx context.Context, a, b uuid.UUID) (models.FriendRequest, error) {
	id, ok := t.st.pending[models.PairKey(a, b)]
	if !ok {
		return models.FriendRequest{}, store.ErrNotFound
	}
	return t.GetRequest(ctx, id)
}

func (t *tx) ListRequests(_ context.Context, filter store.RequestFilter) ([]models.FriendRequest, error) {
	var ids []uuid.UUID
	for id, req := range t.st.requests {
		if filter.ReceiverID != uuid.Nil && req.ReceiverID != filter.ReceiverID {
			continue
		}
		if filter.Involving != uuid.Nil && !req.Involves(filter.Involving) {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		ids = append(ids, id)
	}
	t.st.sortBySeq(ids)
	out := make([]models.FriendRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.st.requests[id])
	}
	return out, nil
}

func (t *tx) DeleteRequest(_ context.Context, id uuid.UUID) error {
	req, ok := t.st.requests[id]
	if !ok {
		return store.ErrNotFound
	}
	del(t, t.st.requests, id)
	del(t, t.st.order, id)
	if t.st.pending[req.PairKey()] == id {
		del(t, t.st.pending, req.PairKey())
	}
	return nil
}

func (t *tx) InsertPost(_ context.Context, post *models.Post) error {
	if post.ID == uuid.Nil {
		post.ID = uuid.New()
	}
	if _, ok := t.st.posts[post.ID]; ok {
		return store.ErrDuplicate
	}
	put(t, t.st.posts, post.ID, *post)
	t.track(post.ID)
	return nil
}

func (t *tx) GetPost(_ context.Context, id uuid.UUID) (models.Post, error) {
	post, ok := t.st.posts[id]
	if !ok {
		return models.Post{}, store.ErrNotFound
	}
	return post, nil
}

func (t *tx) UpdatePost(_ context.Context, post *models.Post) error {
	if _, ok := t.st.posts[post.ID]; !ok {
		return store.ErrNotFound
	}
	put(t, t.st.posts, post.ID, *post)
	return nil
}

func (t *tx) DeletePost(_ context.Context, id uuid.UUID) error {
	if !del(t, t.st.posts, id) {
		return store.ErrNotFound
	}
	del(t, t.st.order, id)
	return nil
}

func (t *tx) ListPosts(_ context.Context, authors ...uuid.UUID) ([]models.Post, error) {
	wanted := make(map[uuid.UUID]bool, len(authors))
	for _, a := range authors {
		wanted[a] = true
	}
	out := make([]models.Post, 0)
	for _, post := range t.st.posts {
		if len(wanted) > 0 && !wanted[post.UserID] {
			continue
		}
		out = append(out, post)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return t.st.order[out[i].ID] > t.st.order[out[j].ID]
	})
	return out, nil
}

func (t *tx) DeletePostsBy(ctx context.Context, author uuid.UUID) error {
	posts, _ := t.ListPosts(ctx, author)
	for _, post := range posts {
		del(t, t.st.posts, post.ID)
		del(t, t.st.order, post.ID)
	}
	return nil
}

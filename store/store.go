// Package store declares the persistence interfaces the domain packages
// depend on. Implementations live in store/memory and store/sqlstore.
//
// Every implementation reports a missing record with errs.ErrNotFound
// (wrapped with ErrNotFound below), a uniqueness violation with ErrDuplicate
// and any I/O failure with errs.ErrUnavailable.
package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
)

var (
	ErrNotFound = fmt.Errorf("%w: record", errs.ErrNotFound)
	// ErrDuplicate is returned when a unique constraint rejects a write: a
	// taken account name/email or a second pending request for a pair.
	ErrDuplicate = fmt.Errorf("%w: duplicate record", errs.ErrConflict)
)

type AccountStore interface {
	InsertAccount(ctx context.Context, acc *models.Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (models.Account, error)
	// FindAccount looks an account up by exact email or exact name.
	FindAccount(ctx context.Context, emailOrName string) (models.Account, error)
	UpdateAccount(ctx context.Context, acc *models.Account) error
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	// ListAccounts returns every account in creation order.
	ListAccounts(ctx context.Context) ([]models.Account, error)
}

// EdgeStore holds the friendship relation as two mirrored rows per pair.
type EdgeStore interface {
	HasEdge(ctx context.Context, a, b uuid.UUID) (bool, error)
	ListFriendIDs(ctx context.Context, a uuid.UUID) ([]uuid.UUID, error)
	// InsertEdge writes both directions; an existing edge is left alone.
	InsertEdge(ctx context.Context, a, b uuid.UUID) error
	// DeleteEdge removes both directions and reports whether anything existed.
	DeleteEdge(ctx context.Context, a, b uuid.UUID) (bool, error)
}

// RequestFilter selects friend requests. Zero fields match anything.
type RequestFilter struct {
	ReceiverID uuid.UUID
	// Involving matches requests where the id is sender or receiver.
	Involving uuid.UUID
	Status    models.RequestStatus
}

type RequestStore interface {
	// InsertRequest fails with ErrDuplicate when a pending request already
	// exists for the same unordered pair.
	InsertRequest(ctx context.Context, req *models.FriendRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (models.FriendRequest, error)
	// PendingBetween returns the pending request for the unordered pair.
	PendingBetween(ctx context.Context, a, b uuid.UUID) (models.FriendRequest, error)
	// ListRequests returns matching requests in creation order.
	ListRequests(ctx context.Context, filter RequestFilter) ([]models.FriendRequest, error)
	DeleteRequest(ctx context.Context, id uuid.UUID) error
}

type PostStore interface {
	InsertPost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id uuid.UUID) (models.Post, error)
	UpdatePost(ctx context.Context, post *models.Post) error
	DeletePost(ctx context.Context, id uuid.UUID) error
	// ListPosts returns posts newest first; no authors means every post.
	ListPosts(ctx context.Context, authors ...uuid.UUID) ([]models.Post, error)
	DeletePostsBy(ctx context.Context, author uuid.UUID) error
}

// Store is the whole persistent state.
type Store interface {
	AccountStore
	EdgeStore
	RequestStore
	PostStore

	// InTx runs fn against a transactional view of the store. Every write
	// made through tx is committed when fn returns nil and discarded otherwise.
	InTx(ctx context.Context, fn func(tx Store) error) error
	Close() error
}

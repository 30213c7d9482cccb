package friends

import (
	"context"

	"github.com/google/uuid"
	"github.com/hike-social/hike/store"
)

// Ledger is the authoritative friendship relation. The store keeps both
// directions of every edge and writes them together.
type Ledger struct {
	edges store.EdgeStore
}

func NewLedger(edges store.EdgeStore) *Ledger {
	return &Ledger{edges: edges}
}

func (l *Ledger) AreFriends(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return l.edges.HasEdge(ctx, a, b)
}

func (l *Ledger) ListFriends(ctx context.Context, a uuid.UUID) ([]uuid.UUID, error) {
	return l.edges.ListFriendIDs(ctx, a)
}

// AddEdge makes a and b friends. Adding an existing edge is a no-op.
func (l *Ledger) AddEdge(ctx context.Context, a, b uuid.UUID) error {
	if a == b {
		return ErrSelfRequest
	}
	return l.edges.InsertEdge(ctx, a, b)
}

// RemoveEdge unfriends a and b and reports whether they were friends.
// Removing a missing edge is a no-op.
func (l *Ledger) RemoveEdge(ctx context.Context, a, b uuid.UUID) (bool, error) {
	return l.edges.DeleteEdge(ctx, a, b)
}

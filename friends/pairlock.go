package friends

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/hike-social/hike/errs"
	"github.com/hike-social/hike/models"
)

// pairLocks serializes coordinator calls on the same unordered account pair.
// Entries are reference counted and dropped when nobody holds or waits.
type pairLocks struct {
	mu    sync.Mutex
	locks map[string]*pairLock
}

type pairLock struct {
	ch   chan struct{}
	refs int
}

func newPairLocks() *pairLocks {
	return &pairLocks{locks: make(map[string]*pairLock)}
}

// lock blocks until the pair is free or ctx is done.
func (p *pairLocks) lock(ctx context.Context, a, b uuid.UUID) (func(), error) {
	key := models.PairKey(a, b)

	p.mu.Lock()
	l, ok := p.locks[key]
	if !ok {
		l = &pairLock{ch: make(chan struct{}, 1)}
		p.locks[key] = l
	}
	l.refs++
	p.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			p.release(key, l)
		}, nil
	case <-ctx.Done():
		p.release(key, l)
		return nil, errs.Unavailable("pair lock", ctx.Err())
	}
}

func (p *pairLocks) release(key string, l *pairLock) {
	p.mu.Lock()
	defer p.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(p.locks, key)
	}
}

func (p *pairLocks) size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.locks)
}

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/simaogato/papertrade-backend/internal/domain"
)

type accountLock struct {
	ch   chan struct{}
	refs int
}

// accountLocks hands out one mutex per account. Waiting is bounded by a
// timeout and by the caller's context; idle entries are dropped.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*accountLock)}
}

func (l *accountLocks) acquire(ctx context.Context, id uuid.UUID, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &accountLock{ch: make(chan struct{}, 1)}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case lk.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-lk.ch
				l.drop(id)
			})
		}, nil
	case <-ctx.Done():
		l.drop(id)
		return nil, ctx.Err()
	case <-timer.C:
		l.drop(id)
		return nil, fmt.Errorf("account %s locked for more than %s: %w", id, timeout, domain.ErrAccountBusy)
	}
}

func (l *accountLocks) drop(id uuid.UUID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lk := l.locks[id]
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *accountLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

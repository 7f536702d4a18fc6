package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

var _ port.ItemLocker = (*LocalLocker)(nil)

// LocalLocker serializes work per item inside one process. Each item gets a
// one-slot channel, dropped again once nobody holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*itemLock
	wait  time.Duration
}

type itemLock struct {
	slot chan struct{}
	refs int
}

// NewLocalLocker returns a locker whose Lock gives up after wait. A zero wait
// means wait until ctx is done.
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{locks: make(map[string]*itemLock), wait: wait}
}

func (l *LocalLocker) Lock(ctx context.Context, itemID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.locks[itemID]
	if !ok {
		lk = &itemLock{slot: make(chan struct{}, 1)}
		l.locks[itemID] = lk
	}
	lk.refs++
	l.mu.Unlock()

	var timeout <-chan time.Time
	if l.wait > 0 {
		timer := time.NewTimer(l.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case lk.slot <- struct{}{}:
	case <-timeout:
		l.release(itemID, lk, false)
		return nil, fmt.Errorf("item %s: %w", itemID, port.ErrLockTimeout)
	case <-ctx.Done():
		l.release(itemID, lk, false)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(itemID, lk, true) })
	}, nil
}

func (l *LocalLocker) release(itemID string, lk *itemLock, held bool) {
	if held {
		<-lk.slot
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, itemID)
	}
}

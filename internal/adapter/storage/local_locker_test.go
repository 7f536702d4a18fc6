package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aaronpeter20/InventoryManagementSystem/internal/port"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	ctx := context.Background()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "item-1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			counter++
			unlock()
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("expected counter 100, got %d", counter)
	}
	if len(locker.locks) != 0 {
		t.Errorf("expected lock table to be empty, got %d entries", len(locker.locks))
	}
}

func TestLocalLocker_IndependentItems(t *testing.T) {
	locker := NewLocalLocker(50 * time.Millisecond)
	ctx := context.Background()

	unlockA, err := locker.Lock(ctx, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unlockA()

	unlockB, err := locker.Lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock on another item should not wait: %v", err)
	}
	unlockB()
}

func TestLocalLocker_Timeout(t *testing.T) {
	locker := NewLocalLocker(20 * time.Millisecond)
	ctx := context.Background()

	unlock, _ := locker.Lock(ctx, "item-1")
	defer unlock()

	_, err := locker.Lock(ctx, "item-1")
	if !errors.Is(err, port.ErrLockTimeout) {
		t.Errorf("expected ErrLockTimeout, got %v", err)
	}
}

func TestLocalLocker_ContextCancel(t *testing.T) {
	locker := NewLocalLocker(0)

	unlock, _ := locker.Lock(context.Background(), "item-1")
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := locker.Lock(ctx, "item-1")
		errCh <- err
	}()

	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestLocalLocker_DoubleUnlock(t *testing.T) {
	locker := NewLocalLocker(time.Second)
	ctx := context.Background()

	unlock, _ := locker.Lock(ctx, "item-1")
	unlock()
	unlock()

	unlock2, err := locker.Lock(ctx, "item-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	unlock2()
}

package conversation

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLocker_AcquireAndRelease(t *testing.T) {
	locker := NewMemoryLocker()

	lock, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))

	// Released lock can be re-acquired immediately.
	lock, err = locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)
	require.NoError(t, lock.Release(context.Background()))
}

func TestMemoryLocker_DifferentCustomersDoNotContend(t *testing.T) {
	locker := NewMemoryLocker()

	lock1, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	defer func() { _ = lock1.Release(context.Background()) }()

	lock2, err := locker.TryAcquire(context.Background(), "cust-2", time.Second, 10*time.Millisecond)
	require.NoError(t, err)
	_ = lock2.Release(context.Background())
}

func TestMemoryLocker_WaitExceededReturnsTimeout(t *testing.T) {
	locker := NewMemoryLocker()

	lock, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)
	defer func() { _ = lock.Release(context.Background()) }()

	_, err = locker.TryAcquire(context.Background(), "cust-1", time.Second, 20*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
}

func TestMemoryLocker_WaitsForRelease(t *testing.T) {
	locker := NewMemoryLocker()

	lock, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		waited, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
		assert.NoError(t, err)
		if waited != nil {
			_ = waited.Release(context.Background())
		}
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, lock.Release(context.Background()))
	wg.Wait()
}

func TestMemoryLocker_CancelledContextAborts(t *testing.T) {
	locker := NewMemoryLocker()

	lock, err := locker.TryAcquire(context.Background(), "cust-1", time.Second, time.Second)
	require.NoError(t, err)
	defer func() { _ = lock.Release(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = locker.TryAcquire(ctx, "cust-1", time.Second, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Ramsey-B/clover/pkg/redis"
)

// ErrLockTimeout is returned when a per-customer lock could not be acquired
// within the bounded wait.
var ErrLockTimeout = errors.New("customer lock wait exceeded")

// Unlocker releases a held per-customer lock.
type Unlocker interface {
	Release(ctx context.Context) error
}

// CustomerLocker serializes the read-decide-write sequence per customer.
// Different customers never contend.
type CustomerLocker interface {
	TryAcquire(ctx context.Context, customerID string, ttl, wait time.Duration) (Unlocker, error)
}

// RedisLocker adapts the distributed Redis lock, for deployments where
// multiple instances consume the same customer's messages.
type RedisLocker struct {
	locker *redis.Locker
}

// NewRedisLocker wraps a Redis locker as a CustomerLocker.
func NewRedisLocker(locker *redis.Locker) *RedisLocker {
	return &RedisLocker{locker: locker}
}

func (r *RedisLocker) TryAcquire(ctx context.Context, customerID string, ttl, wait time.Duration) (Unlocker, error) {
	lock, err := r.locker.TryAcquire(ctx, customerID, ttl, wait)
	if err != nil {
		if errors.Is(err, redis.ErrLockNotAcquired) {
			return nil, ErrLockTimeout
		}
		return nil, err
	}
	return lock, nil
}

// MemoryLocker is an in-process CustomerLocker for single-instance
// deployments and tests. Lock TTL is not enforced; the holder's context
// timeout bounds the critical section instead.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		locks: make(map[string]*sync.Mutex),
	}
}

func (m *MemoryLocker) lockFor(customerID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[customerID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[customerID] = l
	}
	return l
}

func (m *MemoryLocker) TryAcquire(ctx context.Context, customerID string, ttl, wait time.Duration) (Unlocker, error) {
	l := m.lockFor(customerID)

	deadline := time.Now().Add(wait)
	backoff := time.Millisecond

	for {
		if l.TryLock() {
			return memoryUnlocker{l}, nil
		}
		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff = backoff * 2
			if backoff > 50*time.Millisecond {
				backoff = 50 * time.Millisecond
			}
		}
	}
}

type memoryUnlocker struct {
	l *sync.Mutex
}

func (u memoryUnlocker) Release(ctx context.Context) error {
	u.l.Unlock()
	return nil
}

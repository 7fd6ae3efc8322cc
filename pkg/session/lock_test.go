package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/ttystep/pkg/adapters/memory"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.WithLock(ctx, sid, func(context.Context) error { return nil })
		_ = mgr.Delete(ctx, sid)
	}

	lockCount := len(mgr.locks)
	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}

type countingLocker struct {
	mu     sync.Mutex
	held   map[string]bool
	locks  int
	ttl    time.Duration
	broken bool
}

func (c *countingLocker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.broken {
		return nil, fmt.Errorf("backend down")
	}
	if c.held[key] {
		return nil, fmt.Errorf("already held: %s", key)
	}
	c.held[key] = true
	c.locks++
	c.ttl = ttl
	return func(context.Context) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.held, key)
		return nil
	}, nil
}

func TestManager_DistributedLock(t *testing.T) {
	locker := &countingLocker{held: map[string]bool{}}
	mgr := NewManager(memory.NewStore(), WithLocker(locker), WithLockTTL(5*time.Second))
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := mgr.WithLock(ctx, "shared", func(context.Context) error {
				time.Sleep(time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 8, locker.locks)
	assert.Equal(t, 5*time.Second, locker.ttl)
	assert.Empty(t, locker.held)
}

func TestManager_DistributedLockFailure(t *testing.T) {
	locker := &countingLocker{held: map[string]bool{}, broken: true}
	mgr := NewManager(memory.NewStore(), WithLocker(locker))

	called := false
	err := mgr.WithLock(context.Background(), "s", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, mgr.locks)
}

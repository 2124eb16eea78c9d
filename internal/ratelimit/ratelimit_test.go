package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(limit int, window time.Duration) (*Limiter, *MemoryStore) {
	store := NewMemoryStore()
	limiter := New(store, map[string]Limit{
		"search": {Requests: limit, Window: window},
	})
	return limiter, store
}

func TestCheckAllowsUpToLimit(t *testing.T) {
	limiter, _ := newTestLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := limiter.Check(ctx, "10.0.0.1", "search")
		require.NoError(t, err)
		assert.True(t, res.Allowed, "request %d should pass", i+1)
		assert.Equal(t, 3, res.Limit)
		assert.Equal(t, 2-i, res.Remaining)
	}

	res, err := limiter.Check(ctx, "10.0.0.1", "search")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.False(t, res.ResetAt.IsZero())
}

func TestRejectionIsIdempotent(t *testing.T) {
	limiter, store := newTestLimiter(2, time.Minute)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := limiter.Check(ctx, "c1", "search")
		require.NoError(t, err)
	}

	// Counter must sit at the limit, not at ten.
	for _, w := range store.windows {
		assert.Equal(t, 2, w.count)
	}
}

func TestWindowResets(t *testing.T) {
	limiter, store := newTestLimiter(1, time.Minute)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 12, 0, 30, 0, time.UTC)
	limiter.now = func() time.Time { return base }
	store.now = limiter.now

	res, err := limiter.Check(ctx, "c1", "search")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, base.Truncate(time.Minute).Add(time.Minute), res.ResetAt)

	res, err = limiter.Check(ctx, "c1", "search")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// Next fixed window.
	limiter.now = func() time.Time { return base.Add(time.Minute) }
	store.now = limiter.now
	res, err = limiter.Check(ctx, "c1", "search")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestClientsAndEndpointsAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	limiter := New(store, map[string]Limit{
		"search":   {Requests: 1, Window: time.Minute},
		"delegate": {Requests: 1, Window: time.Minute},
	})
	ctx := context.Background()

	res, _ := limiter.Check(ctx, "a", "search")
	assert.True(t, res.Allowed)
	res, _ = limiter.Check(ctx, "b", "search")
	assert.True(t, res.Allowed, "second client has its own counter")
	res, _ = limiter.Check(ctx, "a", "delegate")
	assert.True(t, res.Allowed, "second endpoint has its own counter")
	res, _ = limiter.Check(ctx, "a", "search")
	assert.False(t, res.Allowed)
}

func TestUnknownEndpointIsUnlimited(t *testing.T) {
	limiter, _ := newTestLimiter(1, time.Minute)
	for i := 0; i < 5; i++ {
		res, err := limiter.Check(context.Background(), "c1", "healthz")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}
}

func TestConcurrentChecksNeverOverAdmit(t *testing.T) {
	limiter, _ := newTestLimiter(50, time.Minute)
	ctx := context.Background()

	var mu sync.Mutex
	allowed := 0
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := limiter.Check(ctx, "burst-client", "search")
			if err != nil {
				t.Errorf("check: %v", err)
				return
			}
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, allowed)
}

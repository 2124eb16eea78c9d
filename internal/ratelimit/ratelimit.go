package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limit is the per-endpoint quota: Requests per fixed Window.
type Limit struct {
	Requests int
	Window   time.Duration
}

type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
	Window    time.Duration
}

// Store is the counting backend. Incr must atomically increment the counter
// for the given window unless the increment would push it past limit, in
// which case it returns the unchanged count with allowed=false. Rejected
// calls never corrupt the count.
type Store interface {
	Incr(ctx context.Context, key string, window time.Duration, limit int) (count int, allowed bool, err error)
}

// Limiter enforces fixed-window quotas per (client identity, endpoint).
// Windows are aligned to window-length boundaries so ResetAt is derivable
// from the clock alone.
type Limiter struct {
	store  Store
	limits map[string]Limit
	now    func() time.Time
}

func New(store Store, limits map[string]Limit) *Limiter {
	return &Limiter{store: store, limits: limits, now: time.Now}
}

func (l *Limiter) Check(ctx context.Context, clientID, endpoint string) (Result, error) {
	limit, ok := l.limits[endpoint]
	if !ok || limit.Requests <= 0 {
		return Result{Allowed: true, Limit: 0, Remaining: 0}, nil
	}

	now := l.now()
	windowStart := now.Truncate(limit.Window)
	resetAt := windowStart.Add(limit.Window)
	key := fmt.Sprintf("ratelimit:%s:%s:%d", endpoint, clientID, windowStart.Unix())

	count, allowed, err := l.store.Incr(ctx, key, limit.Window, limit.Requests)
	if err != nil {
		return Result{}, err
	}

	remaining := limit.Requests - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{
		Allowed:   allowed,
		Limit:     limit.Requests,
		Remaining: remaining,
		ResetAt:   resetAt,
		Window:    limit.Window,
	}, nil
}

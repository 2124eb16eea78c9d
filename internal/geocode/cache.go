package geocode

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/bookline/backend/internal/models"
)

const DefaultTTL = 90 * 24 * time.Hour

// Store persists geocode entries keyed by normalized query. Get returns
// (nil, nil) on a miss; Upsert keeps at most one live entry per key.
type Store interface {
	Get(ctx context.Context, key string) (*models.GeocodeEntry, error)
	Upsert(ctx context.Context, entry models.GeocodeEntry) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Cache gives Resolve get-or-fetch semantics over a Store and a provider
// chain. Concurrent resolves for the same normalized query collapse into a
// single in-flight provider call.
type Cache struct {
	store  Store
	chain  *Chain
	ttl    time.Duration
	logger zerolog.Logger
	group  singleflight.Group
	now    func() time.Time
}

func NewCache(store Store, chain *Chain, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:  store,
		chain:  chain,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

func (c *Cache) Resolve(ctx context.Context, query string) (models.Coordinate, error) {
	key := NormalizeQuery(query)

	entry, err := c.store.Get(ctx, key)
	if err != nil {
		return models.Coordinate{}, err
	}
	if entry != nil && entry.ExpiresAt.After(c.now()) {
		return entry.Coord, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		res, err := c.chain.Resolve(ctx, query)
		if err != nil {
			// No negative caching: the next call retries the provider.
			return models.Coordinate{}, err
		}
		now := c.now()
		entry := models.GeocodeEntry{
			Query:     key,
			Coord:     res.Coord,
			Provider:  res.Provider,
			CreatedAt: now,
			ExpiresAt: now.Add(c.ttl),
		}
		if err := c.store.Upsert(ctx, entry); err != nil {
			c.logger.Warn().Err(err).Str("query", key).Msg("geocode cache write failed")
		}
		return res.Coord, nil
	})
	if err != nil {
		return models.Coordinate{}, err
	}
	return v.(models.Coordinate), nil
}

// Sweep bulk-deletes expired entries. Safe to run concurrently with Resolve.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	return c.store.DeleteExpired(ctx, c.now())
}

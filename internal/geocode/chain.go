package geocode

import (
	"context"
	"errors"

	"github.com/bookline/backend/internal/models"
)

// Chain tries Primary first and falls back to Fallback on any primary
// failure, including not-found. Result reports which provider answered so
// the cache can tag the entry.
type Chain struct {
	Primary  Geocoder
	Fallback Geocoder
}

type Result struct {
	Coord    models.Coordinate
	Provider string
}

func (c *Chain) Resolve(ctx context.Context, query string) (Result, error) {
	coord, primaryErr := c.Primary.Geocode(ctx, query)
	if primaryErr == nil {
		return Result{Coord: coord, Provider: c.Primary.Name()}, nil
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	if c.Fallback == nil {
		return Result{}, primaryErr
	}
	coord, fallbackErr := c.Fallback.Geocode(ctx, query)
	if fallbackErr != nil {
		return Result{}, errors.Join(primaryErr, fallbackErr)
	}
	return Result{Coord: coord, Provider: c.Fallback.Name()}, nil
}

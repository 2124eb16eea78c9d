package models

import (
	"errors"
	"time"
)

var ErrInvalidCoordinate = errors.New("coordinate out of range")

// Coordinate is a validated latitude/longitude pair. Build one through
// NewCoordinate; out-of-range values never make it past the boundary.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func NewCoordinate(lat, lon float64) (Coordinate, error) {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return Coordinate{}, ErrInvalidCoordinate
	}
	return Coordinate{Lat: lat, Lon: lon}, nil
}

type Business struct {
	ID       string            `json:"id"`
	Slug     string            `json:"slug"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Address  string            `json:"address"`
	Coord    *Coordinate       `json:"coord,omitempty"`
	Phone    string            `json:"phone"`
	Timezone string            `json:"timezone"`
	Services []BookableService `json:"services"`
}

type BookableService struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DurationMins int    `json:"duration_mins"`
	PriceCents   int    `json:"price_cents"`
}

// CustomerContext is the schema-light bag clients attach to a delegation.
// Only intent, location, and preferences are contracted on; everything else
// the client sends is dropped at the boundary.
type CustomerContext struct {
	Intent      string            `json:"intent,omitempty"`
	Coord       *Coordinate       `json:"coord,omitempty"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

type DelegationSession struct {
	ID        string          `json:"id"`
	ShopSlug  string          `json:"shop_slug"`
	Context   CustomerContext `json:"context"`
	CreatedAt time.Time       `json:"created_at"`
}

type GeocodeEntry struct {
	Query     string     `json:"query"`
	Coord     Coordinate `json:"coord"`
	Provider  string     `json:"provider"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
}

const (
	EventSearch           = "search"
	EventDelegate         = "delegate"
	EventBookingCompleted = "booking_completed"
)

// Aggregate rows are read-only projections over the event stream; they are
// recomputed from raw events, never stored as a source of truth.
type UsageRow struct {
	Day   time.Time `json:"day"`
	Type  string    `json:"type"`
	Count int64     `json:"count"`
}

type LeaderboardRow struct {
	ShopSlug    string `json:"shop_slug"`
	Delegations int64  `json:"delegations"`
}

type FunnelRow struct {
	Day       time.Time `json:"day"`
	Searches  int64     `json:"searches"`
	Delegates int64     `json:"delegates"`
	Bookings  int64     `json:"bookings"`
}

type AnalyticsEvent struct {
	ID          string    `json:"id"`
	Type        string    `json:"type"`
	SessionID   string    `json:"session_id,omitempty"`
	ShopSlug    string    `json:"shop_slug,omitempty"`
	Intent      string    `json:"intent,omitempty"`
	Lat         *float64  `json:"lat,omitempty"`
	Lon         *float64  `json:"lon,omitempty"`
	RadiusMiles *float64  `json:"radius_miles,omitempty"`
	Category    string    `json:"category,omitempty"`
	ResultCount *int      `json:"result_count,omitempty"`
	DistMiles   *float64  `json:"dist_miles,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

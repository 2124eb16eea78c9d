package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookline/backend/internal/db"
	"github.com/bookline/backend/internal/models"
)

type fakeDirectory struct {
	businesses []models.Business
	err        error
}

func (d *fakeDirectory) GetBySlug(_ context.Context, slug string) (models.Business, error) {
	if d.err != nil {
		return models.Business{}, d.err
	}
	for _, b := range d.businesses {
		if b.Slug == slug {
			return b, nil
		}
	}
	return models.Business{}, db.ErrNotFound
}

func (d *fakeDirectory) SearchCandidates(_ context.Context, category, text string) ([]models.Business, error) {
	if d.err != nil {
		return nil, d.err
	}
	var out []models.Business
	for _, b := range d.businesses {
		if b.Coord == nil {
			continue
		}
		if category != "" && !strings.EqualFold(b.Category, category) {
			continue
		}
		if text != "" && !matchesText(b, text) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func matchesText(b models.Business, text string) bool {
	needle := strings.ToLower(text)
	if strings.Contains(strings.ToLower(b.Name), needle) {
		return true
	}
	for _, sv := range b.Services {
		if strings.Contains(strings.ToLower(sv.Name), needle) {
			return true
		}
	}
	return false
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions []models.DelegationSession
	err      error
}

func (s *fakeSessionStore) InsertSession(_ context.Context, session models.DelegationSession) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = append(s.sessions, session)
	return nil
}

type fakeEventStore struct {
	mu     sync.Mutex
	events []models.AnalyticsEvent
	err    error

	usage   []models.UsageRow
	board   []models.LeaderboardRow
	funnel  []models.FunnelRow
	viewErr error
}

func (s *fakeEventStore) AppendEvent(_ context.Context, e models.AnalyticsEvent) error {
	if s.err != nil {
		return s.err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *fakeEventStore) UsageSummary(_ context.Context, _ time.Time) ([]models.UsageRow, error) {
	return s.usage, s.viewErr
}

func (s *fakeEventStore) Leaderboard(_ context.Context, _ int) ([]models.LeaderboardRow, error) {
	return s.board, s.viewErr
}

func (s *fakeEventStore) Funnel(_ context.Context, _ time.Time) ([]models.FunnelRow, error) {
	return s.funnel, s.viewErr
}

func (s *fakeEventStore) recorded() []models.AnalyticsEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.AnalyticsEvent, len(s.events))
	copy(out, s.events)
	return out
}

var errStoreDown = errors.New("event store down")

func tempeFixture() []models.Business {
	quarter := models.Coordinate{Lat: 33.4291, Lon: -111.9400}  // ~0.25 mi north
	farther := models.Coordinate{Lat: 33.4791, Lon: -111.9400}  // ~3.7 mi north
	ungeocoded := models.Business{
		ID: "b3", Slug: "mystery-cuts", Name: "Mystery Cuts", Category: "barbershop",
	}
	return []models.Business{
		{
			ID: "b1", Slug: "bishops-barbershop-tempe", Name: "Bishops Barbershop Tempe",
			Category: "barbershop", Address: "21 E 6th St, Tempe, AZ",
			Coord: &quarter, Phone: "+1-480-555-0101", Timezone: "America/Phoenix",
			Services: []models.BookableService{
				{ID: "s1", Name: "Haircut", DurationMins: 30, PriceCents: 3500},
				{ID: "s2", Name: "Beard Trim", DurationMins: 15, PriceCents: 1500},
				{ID: "s3", Name: "Haircut + Beard", DurationMins: 45, PriceCents: 4500},
			},
		},
		{
			ID: "b2", Slug: "fade-factory-tempe", Name: "Fade Factory",
			Category: "barbershop", Address: "800 N Scottsdale Rd, Tempe, AZ",
			Coord: &farther, Phone: "+1-480-555-0102", Timezone: "America/Phoenix",
			Services: []models.BookableService{
				{ID: "s4", Name: "Fade", DurationMins: 30, PriceCents: 3000},
			},
		},
		ungeocoded,
	}
}

func newTestAnalytics(store EventStore) *Analytics {
	return NewAnalytics(store, 1024, zerolog.Nop())
}

package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bookline/backend/internal/models"
)

// EventStore is the append-only event log plus its derived projections.
type EventStore interface {
	AppendEvent(ctx context.Context, e models.AnalyticsEvent) error
	UsageSummary(ctx context.Context, since time.Time) ([]models.UsageRow, error)
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error)
	Funnel(ctx context.Context, since time.Time) ([]models.FunnelRow, error)
}

// Analytics hands events off to a single writer goroutine through a bounded
// queue so the request path never waits on the event store. A full queue
// drops the event with a warning; a slow or failing sink can degrade
// analytics, never a search or delegate response.
type Analytics struct {
	store  EventStore
	logger zerolog.Logger
	queue  chan models.AnalyticsEvent
	wg     sync.WaitGroup
	once   sync.Once
}

func NewAnalytics(store EventStore, queueSize int, logger zerolog.Logger) *Analytics {
	if queueSize <= 0 {
		queueSize = 256
	}
	a := &Analytics{
		store:  store,
		logger: logger,
		queue:  make(chan models.AnalyticsEvent, queueSize),
	}
	a.wg.Add(1)
	go a.run()
	return a
}

func (a *Analytics) run() {
	defer a.wg.Done()
	for e := range a.queue {
		// Fresh context: the originating request may already be gone.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.store.AppendEvent(ctx, e); err != nil {
			a.logger.Warn().Err(err).Str("type", e.Type).Msg("analytics event dropped")
		}
		cancel()
	}
}

// Record enqueues an event without blocking. Best effort by contract.
func (a *Analytics) Record(e models.AnalyticsEvent) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	select {
	case a.queue <- e:
	default:
		a.logger.Warn().Str("type", e.Type).Msg("analytics queue full, event dropped")
	}
}

// Close drains the queue and stops the writer. Safe to call twice.
func (a *Analytics) Close() {
	a.once.Do(func() {
		close(a.queue)
	})
	a.wg.Wait()
}

func (a *Analytics) Usage(ctx context.Context, days int) ([]models.UsageRow, error) {
	return a.store.UsageSummary(ctx, daysAgo(days))
}

func (a *Analytics) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error) {
	return a.store.Leaderboard(ctx, limit)
}

// FunnelView is a funnel row with the stage-to-stage ratios filled in.
type FunnelView struct {
	Day          time.Time `json:"day"`
	Searches     int64     `json:"searches"`
	Delegates    int64     `json:"delegates"`
	Bookings     int64     `json:"bookings"`
	DelegateRate float64   `json:"delegate_rate"`
	BookingRate  float64   `json:"booking_rate"`
}

func (a *Analytics) Funnel(ctx context.Context, days int) ([]FunnelView, error) {
	rows, err := a.store.Funnel(ctx, daysAgo(days))
	if err != nil {
		return nil, err
	}
	out := make([]FunnelView, 0, len(rows))
	for _, r := range rows {
		v := FunnelView{
			Day:       r.Day,
			Searches:  r.Searches,
			Delegates: r.Delegates,
			Bookings:  r.Bookings,
		}
		if r.Searches > 0 {
			v.DelegateRate = float64(r.Delegates) / float64(r.Searches)
		}
		if r.Delegates > 0 {
			v.BookingRate = float64(r.Bookings) / float64(r.Delegates)
		}
		out = append(out, v)
	}
	return out, nil
}

func daysAgo(days int) time.Time {
	if days <= 0 {
		days = 30
	}
	return time.Now().UTC().AddDate(0, 0, -days).Truncate(24 * time.Hour)
}

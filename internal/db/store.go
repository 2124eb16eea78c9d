package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bookline/backend/internal/models"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	s.Pool.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS businesses (
			id TEXT PRIMARY KEY,
			slug TEXT UNIQUE NOT NULL,
			name TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT '',
			address TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			phone TEXT NOT NULL DEFAULT '',
			timezone TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS business_services (
			id TEXT PRIMARY KEY,
			business_id TEXT NOT NULL REFERENCES businesses(id),
			name TEXT NOT NULL,
			duration_mins INT NOT NULL DEFAULT 0,
			price_cents INT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS geocode_entries (
			query TEXT PRIMARY KEY,
			lat DOUBLE PRECISION NOT NULL,
			lon DOUBLE PRECISION NOT NULL,
			provider TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS delegation_sessions (
			id TEXT PRIMARY KEY,
			shop_slug TEXT NOT NULL,
			context JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS analytics_events (
			id BIGSERIAL PRIMARY KEY,
			type TEXT NOT NULL,
			session_id TEXT,
			shop_slug TEXT,
			intent TEXT,
			lat DOUBLE PRECISION,
			lon DOUBLE PRECISION,
			radius_miles DOUBLE PRECISION,
			category TEXT,
			result_count INT,
			dist_miles DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_analytics_events_type_day ON analytics_events (type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_geocode_entries_expiry ON geocode_entries (expires_at)`,
	}
	for _, stmt := range stmts {
		if _, err := s.Pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// --- business directory (read path) ---

func (s *Store) GetBySlug(ctx context.Context, slug string) (models.Business, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, slug, name, category, address, lat, lon, phone, timezone
		FROM businesses WHERE slug = $1
	`, slug)

	b, err := scanBusiness(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Business{}, ErrNotFound
		}
		return models.Business{}, err
	}
	services, err := s.listServices(ctx, []string{b.ID})
	if err != nil {
		return models.Business{}, err
	}
	b.Services = services[b.ID]
	return b, nil
}

func (s *Store) SearchCandidates(ctx context.Context, category, text string) ([]models.Business, error) {
	query := `
		SELECT b.id, b.slug, b.name, b.category, b.address, b.lat, b.lon, b.phone, b.timezone
		FROM businesses b
		WHERE b.lat IS NOT NULL AND b.lon IS NOT NULL`
	var args []any
	if category != "" {
		args = append(args, category)
		query += fmt.Sprintf(" AND LOWER(b.category) = LOWER($%d)", len(args))
	}
	if text != "" {
		args = append(args, "%"+text+"%")
		query += fmt.Sprintf(` AND (b.name ILIKE $%d OR EXISTS (
			SELECT 1 FROM business_services sv
			WHERE sv.business_id = b.id AND sv.name ILIKE $%d))`, len(args), len(args))
	}
	query += " ORDER BY b.id ASC"

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Business
	var ids []string
	for rows.Next() {
		b, err := scanBusiness(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	services, err := s.listServices(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Services = services[out[i].ID]
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBusiness(row rowScanner) (models.Business, error) {
	var (
		b   models.Business
		lat *float64
		lon *float64
	)
	if err := row.Scan(&b.ID, &b.Slug, &b.Name, &b.Category, &b.Address, &lat, &lon, &b.Phone, &b.Timezone); err != nil {
		return models.Business{}, err
	}
	if lat != nil && lon != nil {
		b.Coord = &models.Coordinate{Lat: *lat, Lon: *lon}
	}
	return b, nil
}

func (s *Store) listServices(ctx context.Context, businessIDs []string) (map[string][]models.BookableService, error) {
	out := map[string][]models.BookableService{}
	if len(businessIDs) == 0 {
		return out, nil
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, business_id, name, duration_mins, price_cents
		FROM business_services WHERE business_id = ANY($1) ORDER BY id ASC
	`, businessIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			sv  models.BookableService
			bid string
		)
		if err := rows.Scan(&sv.ID, &bid, &sv.Name, &sv.DurationMins, &sv.PriceCents); err != nil {
			return nil, err
		}
		out[bid] = append(out[bid], sv)
	}
	return out, rows.Err()
}

// --- delegation sessions ---

func (s *Store) InsertSession(ctx context.Context, session models.DelegationSession) error {
	contextJSON, err := json.Marshal(session.Context)
	if err != nil {
		return err
	}
	_, err = s.Pool.Exec(ctx, `
		INSERT INTO delegation_sessions (id, shop_slug, context, created_at)
		VALUES ($1, $2, $3, $4)
	`, session.ID, session.ShopSlug, contextJSON, session.CreatedAt)
	return err
}

// --- geocode cache entries ---

// GeocodeStore adapts the pool to the geocode cache's store interface.
type GeocodeStore struct {
	s *Store
}

func (s *Store) Geocode() *GeocodeStore {
	return &GeocodeStore{s: s}
}

func (g *GeocodeStore) Get(ctx context.Context, key string) (*models.GeocodeEntry, error) {
	row := g.s.Pool.QueryRow(ctx, `
		SELECT query, lat, lon, provider, created_at, expires_at
		FROM geocode_entries WHERE query = $1
	`, key)

	var e models.GeocodeEntry
	if err := row.Scan(&e.Query, &e.Coord.Lat, &e.Coord.Lon, &e.Provider, &e.CreatedAt, &e.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func (g *GeocodeStore) Upsert(ctx context.Context, entry models.GeocodeEntry) error {
	_, err := g.s.Pool.Exec(ctx, `
		INSERT INTO geocode_entries (query, lat, lon, provider, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (query) DO UPDATE SET
			lat = EXCLUDED.lat,
			lon = EXCLUDED.lon,
			provider = EXCLUDED.provider,
			created_at = EXCLUDED.created_at,
			expires_at = EXCLUDED.expires_at
	`, entry.Query, entry.Coord.Lat, entry.Coord.Lon, entry.Provider, entry.CreatedAt, entry.ExpiresAt)
	return err
}

func (g *GeocodeStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := g.s.Pool.Exec(ctx, `DELETE FROM geocode_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- analytics events ---

func (s *Store) AppendEvent(ctx context.Context, e models.AnalyticsEvent) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO analytics_events
			(type, session_id, shop_slug, intent, lat, lon, radius_miles, category, result_count, dist_miles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.Type, nullString(e.SessionID), nullString(e.ShopSlug), nullString(e.Intent),
		e.Lat, e.Lon, e.RadiusMiles, nullString(e.Category), e.ResultCount, e.DistMiles, e.CreatedAt)
	return err
}

func (s *Store) UsageSummary(ctx context.Context, since time.Time) ([]models.UsageRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day, type, COUNT(*)
		FROM analytics_events
		WHERE created_at >= $1
		GROUP BY day, type
		ORDER BY day DESC, type ASC
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.UsageRow
	for rows.Next() {
		var r models.UsageRow
		if err := rows.Scan(&r.Day, &r.Type, &r.Count); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardRow, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT shop_slug, COUNT(*) AS delegations
		FROM analytics_events
		WHERE type = $1 AND shop_slug IS NOT NULL
		GROUP BY shop_slug
		ORDER BY delegations DESC, shop_slug ASC
		LIMIT $2
	`, models.EventDelegate, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.LeaderboardRow
	for rows.Next() {
		var r models.LeaderboardRow
		if err := rows.Scan(&r.ShopSlug, &r.Delegations); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Funnel(ctx context.Context, since time.Time) ([]models.FunnelRow, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT date_trunc('day', created_at) AS day,
			COUNT(*) FILTER (WHERE type = $1) AS searches,
			COUNT(*) FILTER (WHERE type = $2) AS delegates,
			COUNT(*) FILTER (WHERE type = $3) AS bookings
		FROM analytics_events
		WHERE created_at >= $4
		GROUP BY day
		ORDER BY day DESC
	`, models.EventSearch, models.EventDelegate, models.EventBookingCompleted, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FunnelRow
	for rows.Next() {
		var r models.FunnelRow
		if err := rows.Scan(&r.Day, &r.Searches, &r.Delegates, &r.Bookings); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func nullString(v string) *string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return &v
}

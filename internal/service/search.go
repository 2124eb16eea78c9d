package service

import (
	"context"
	"errors"
	"sort"

	"github.com/bookline/backend/internal/geo"
	"github.com/bookline/backend/internal/models"
)

const MaxRadiusMiles = 50.0

var ErrInvalidRadius = errors.New("radius must be in (0, 50] miles")

// Directory is the business-directory collaborator. SearchCandidates returns
// only records that can be placed on the map, optionally pre-filtered by
// category equality and a case-insensitive match of text against business or
// service names.
type Directory interface {
	GetBySlug(ctx context.Context, slug string) (models.Business, error)
	SearchCandidates(ctx context.Context, category, text string) ([]models.Business, error)
}

type SearchParams struct {
	Center      models.Coordinate
	RadiusMiles float64
	Category    string
	Query       string
}

type Match struct {
	Business      models.Business `json:"business"`
	DistanceMiles float64         `json:"distance_miles"`
	Confidence    float64         `json:"confidence"`
}

type Search struct {
	directory Directory
	analytics *Analytics
}

func NewSearch(directory Directory, analytics *Analytics) *Search {
	return &Search{directory: directory, analytics: analytics}
}

func (s *Search) ByLocation(ctx context.Context, p SearchParams) ([]Match, error) {
	if p.RadiusMiles <= 0 || p.RadiusMiles > MaxRadiusMiles {
		return nil, ErrInvalidRadius
	}

	candidates, err := s.directory.SearchCandidates(ctx, p.Category, p.Query)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(candidates))
	for _, b := range candidates {
		if b.Coord == nil {
			continue
		}
		dist := geo.Distance(p.Center, *b.Coord)
		if dist > p.RadiusMiles {
			continue
		}
		matches = append(matches, Match{
			Business:      b,
			DistanceMiles: dist,
			Confidence:    geo.Confidence(dist, p.RadiusMiles),
		})
	}

	// Ascending distance is the only ordering callers may rely on; the ID
	// tie-break keeps equal distances deterministic.
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].DistanceMiles == matches[j].DistanceMiles {
			return matches[i].Business.ID < matches[j].Business.ID
		}
		return matches[i].DistanceMiles < matches[j].DistanceMiles
	})

	count := len(matches)
	s.analytics.Record(models.AnalyticsEvent{
		Type:        models.EventSearch,
		Lat:         &p.Center.Lat,
		Lon:         &p.Center.Lon,
		RadiusMiles: &p.RadiusMiles,
		Category:    p.Category,
		ResultCount: &count,
	})

	return matches, nil
}

package geocode

import (
	"context"
	"errors"
	"strings"

	"github.com/bookline/backend/internal/models"
)

var ErrNotFound = errors.New("geocode not found")

type Geocoder interface {
	Name() string
	Geocode(ctx context.Context, query string) (models.Coordinate, error)
}

// NormalizeQuery canonicalizes a geocoding input before it is used as a
// cache key: case-folded, trimmed, inner whitespace collapsed.
func NormalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

package geo

import (
	"math"
	"testing"

	"github.com/bookline/backend/internal/models"
)

func TestDistanceZeroForSamePoint(t *testing.T) {
	points := []models.Coordinate{
		{Lat: 0, Lon: 0},
		{Lat: 33.4255, Lon: -111.9400},
		{Lat: -89.9, Lon: 179.9},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Fatalf("expected zero distance for %+v, got %f", p, d)
		}
	}
}

func TestDistanceSymmetric(t *testing.T) {
	a := models.Coordinate{Lat: 33.4255, Lon: -111.9400}
	b := models.Coordinate{Lat: 33.4942, Lon: -111.9261}
	if Distance(a, b) != Distance(b, a) {
		t.Fatalf("expected symmetric distance")
	}
}

func TestDistanceKnownPair(t *testing.T) {
	// Tempe to downtown Phoenix, roughly 9 miles.
	a := models.Coordinate{Lat: 33.4255, Lon: -111.9400}
	b := models.Coordinate{Lat: 33.4484, Lon: -112.0740}
	d := Distance(a, b)
	if d < 7 || d > 10 {
		t.Fatalf("expected ~8-9 miles, got %f", d)
	}
}

func TestConfidenceEndpoints(t *testing.T) {
	if c := Confidence(0, 5); c != 1 {
		t.Fatalf("expected 1 at center, got %f", c)
	}
	if c := Confidence(5, 5); c != 0 {
		t.Fatalf("expected 0 at radius, got %f", c)
	}
	if c := Confidence(7, 5); c != 0 {
		t.Fatalf("expected 0 beyond radius, got %f", c)
	}
}

func TestConfidenceObservedPoints(t *testing.T) {
	if c := Confidence(0.25, 5); math.Abs(c-0.95) > 1e-9 {
		t.Fatalf("expected 0.95, got %f", c)
	}
	if c := Confidence(3.7, 5); math.Abs(c-0.26) > 1e-9 {
		t.Fatalf("expected 0.26, got %f", c)
	}
}

func TestConfidenceMonotonic(t *testing.T) {
	prev := 1.1
	for d := 0.0; d <= 6.0; d += 0.1 {
		c := Confidence(d, 5)
		if c > prev {
			t.Fatalf("confidence increased at distance %f: %f > %f", d, c, prev)
		}
		prev = c
	}
}

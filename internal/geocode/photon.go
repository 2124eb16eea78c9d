package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/bookline/backend/internal/models"
)

// PhotonGeocoder is the fallback provider. Photon speaks GeoJSON and, unlike
// the public Nominatim instance, tolerates bursts, so no request spacing.
type PhotonGeocoder struct {
	BaseURL string
	Client  *http.Client
}

type photonResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (g *PhotonGeocoder) Name() string { return "photon" }

func (g *PhotonGeocoder) Geocode(ctx context.Context, query string) (models.Coordinate, error) {
	if g.Client == nil {
		g.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if g.BaseURL == "" {
		g.BaseURL = "https://photon.komoot.io"
	}

	endpoint := fmt.Sprintf("%s/api?q=%s&limit=1", g.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinate{}, err
	}

	resp, err := g.Client.Do(req)
	if err != nil {
		return models.Coordinate{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Coordinate{}, fmt.Errorf("photon http error: %s", resp.Status)
	}

	var body photonResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return models.Coordinate{}, err
	}
	if len(body.Features) == 0 || len(body.Features[0].Geometry.Coordinates) < 2 {
		return models.Coordinate{}, ErrNotFound
	}
	// GeoJSON positions are [lon, lat].
	coords := body.Features[0].Geometry.Coordinates
	return models.NewCoordinate(coords[1], coords[0])
}

package maps

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"qibla/internal/modules/location"
	"qibla/internal/types"
)

// GeocodeService handles interactions with the Google Geocoding API.
type GeocodeService struct {
	client *maps.Client
}

// NewGeocodeService creates a new GeocodeService with the given API Key.
func NewGeocodeService(apiKey string) (*GeocodeService, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GeocodeService{client: client}, nil
}

// Geocode resolves a free-text place name to its best-matching coordinate.
func (s *GeocodeService) Geocode(ctx context.Context, query string) (location.Place, error) {
	r := &maps.GeocodingRequest{
		Address:  query,
		Language: "en",
	}

	results, err := s.client.Geocode(ctx, r)
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return location.Place{}, location.ErrNoMatch
		}
		return location.Place{}, fmt.Errorf("geocoding api error: %w", err)
	}

	if len(results) == 0 {
		return location.Place{}, location.ErrNoMatch
	}

	best := results[0]
	return location.Place{
		Name: best.FormattedAddress,
		Point: types.Point{
			Lat: best.Geometry.Location.Lat,
			Lng: best.Geometry.Location.Lng,
		},
		Source: location.SourceGoogle,
	}, nil
}

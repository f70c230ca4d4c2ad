package geo

import (
	"context"
	"fmt"
	"strings"

	"googlemaps.github.io/maps"

	"collateral-backend/internal/shared/telemetry"
)

type geocodeAPI interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
}

// Google geocodes through the Google Maps Geocoding API.
type Google struct {
	client geocodeAPI
}

// NewGoogle builds a geocoder for the given API key.
func NewGoogle(apiKey string) (*Google, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("google maps api key is required")
	}
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("google maps client: %w", err)
	}
	return &Google{client: client}, nil
}

// Geocode returns the location of the first result for address.
func (g *Google) Geocode(ctx context.Context, address string) (Point, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Point{}, ErrNoResults
	}
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		if strings.Contains(err.Error(), "ZERO_RESULTS") {
			return Point{}, ErrNoResults
		}
		telemetry.Error("geocode.failed", map[string]any{"error": err.Error()})
		return Point{}, fmt.Errorf("geocode: %w", err)
	}
	if len(results) == 0 {
		return Point{}, ErrNoResults
	}
	loc := results[0].Geometry.Location
	return Point{Lat: loc.Lat, Lon: loc.Lng}, nil
}

var _ Geocoder = (*Google)(nil)

package geo

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"fleetlink/pkg/model"

	"googlemaps.github.io/maps"
)

type mapsClient interface {
	Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error)
	DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error)
}

type googleMapper struct {
	client  mapsClient
	timeout time.Duration
}

// NewGoogleMapper returns a Mapper backed by the Google Maps web services.
func NewGoogleMapper(apiKey string, timeout time.Duration) (Mapper, error) {
	client, err := maps.NewClient(
		maps.WithAPIKey(apiKey),
		maps.WithHTTPClient(&http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &googleMapper{client: client, timeout: timeout}, nil
}

func (m *googleMapper) Geocode(ctx context.Context, address string) (*model.MapLocation, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results, err := m.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return nil, classify("geocode", err)
	}
	if len(results) == 0 {
		return nil, ErrNotFound
	}

	r := results[0]
	return &model.MapLocation{
		Address: r.FormattedAddress,
		Lat:     r.Geometry.Location.Lat,
		Lng:     r.Geometry.Location.Lng,
		PlaceID: r.PlaceID,
	}, nil
}

func (m *googleMapper) ReverseGeocode(ctx context.Context, lat, lng float64) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	results, err := m.client.ReverseGeocode(ctx, &maps.GeocodingRequest{
		LatLng: &maps.LatLng{Lat: lat, Lng: lng},
	})
	if err != nil {
		return "", classify("reverse geocode", err)
	}
	if len(results) == 0 {
		return "", ErrNotFound
	}
	return results[0].FormattedAddress, nil
}

func (m *googleMapper) Distance(ctx context.Context, origin, destination string) (Route, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	resp, err := m.client.DistanceMatrix(ctx, &maps.DistanceMatrixRequest{
		Origins:      []string{origin},
		Destinations: []string{destination},
		Mode:         maps.TravelModeDriving,
		Units:        maps.UnitsMetric,
	})
	if err != nil {
		return Route{}, classify("distance matrix", err)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return Route{}, ErrNoRoute
	}

	el := resp.Rows[0].Elements[0]
	if el.Status != "OK" {
		return Route{}, fmt.Errorf("%w: %s", ErrNoRoute, el.Status)
	}
	return Route{DistanceMeters: el.Distance.Meters, Duration: el.Duration}, nil
}

// classify turns the provider's ZERO_RESULTS status into ErrNotFound.
func classify(op string, err error) error {
	if strings.Contains(err.Error(), "ZERO_RESULTS") {
		return ErrNotFound
	}
	return fmt.Errorf("maps %s failed: %w", op, err)
}

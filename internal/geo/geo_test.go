package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetlink/pkg/config"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"googlemaps.github.io/maps"
)

type fakeMapsClient struct {
	geocode  []maps.GeocodingResult
	matrix   *maps.DistanceMatrixResponse
	err      error
	requests []*maps.DistanceMatrixRequest
}

func (f *fakeMapsClient) Geocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	return f.geocode, f.err
}

func (f *fakeMapsClient) ReverseGeocode(ctx context.Context, r *maps.GeocodingRequest) ([]maps.GeocodingResult, error) {
	return f.geocode, f.err
}

func (f *fakeMapsClient) DistanceMatrix(ctx context.Context, r *maps.DistanceMatrixRequest) (*maps.DistanceMatrixResponse, error) {
	f.requests = append(f.requests, r)
	return f.matrix, f.err
}

type fakeMapper struct {
	route Route
	err   error
}

func (f fakeMapper) Geocode(context.Context, string) (*model.MapLocation, error) { return nil, f.err }
func (f fakeMapper) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", f.err
}
func (f fakeMapper) Distance(context.Context, string, string) (Route, error) { return f.route, f.err }

func matrix(status string, meters int, d time.Duration) *maps.DistanceMatrixResponse {
	return &maps.DistanceMatrixResponse{Rows: []maps.DistanceMatrixElementsRow{{
		Elements: []*maps.DistanceMatrixElement{{Status: status, Distance: maps.Distance{Meters: meters}, Duration: d}},
	}}}
}

func TestGoogleMapper_Geocode(t *testing.T) {
	result := maps.GeocodingResult{FormattedAddress: "Kharadi, Pune, Maharashtra, India", PlaceID: "ChIJ123"}
	result.Geometry.Location = maps.LatLng{Lat: 18.5515, Lng: 73.9348}
	m := &googleMapper{client: &fakeMapsClient{geocode: []maps.GeocodingResult{result}}, timeout: time.Second}

	loc, err := m.Geocode(context.Background(), "Kharadi")
	require.NoError(t, err)
	assert.Equal(t, &model.MapLocation{Address: "Kharadi, Pune, Maharashtra, India", Lat: 18.5515, Lng: 73.9348, PlaceID: "ChIJ123"}, loc)

	empty := &googleMapper{client: &fakeMapsClient{}, timeout: time.Second}
	_, err = empty.Geocode(context.Background(), "nowhere")
	assert.ErrorIs(t, err, ErrNotFound)

	zero := &googleMapper{client: &fakeMapsClient{err: errors.New("maps: ZERO_RESULTS - ")}, timeout: time.Second}
	_, err = zero.ReverseGeocode(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGoogleMapper_Distance(t *testing.T) {
	client := &fakeMapsClient{matrix: matrix("OK", 12400, 31*time.Minute)}
	m := &googleMapper{client: client, timeout: time.Second}

	route, err := m.Distance(context.Background(), "18.5,73.8", "18.6,73.9")
	require.NoError(t, err)
	assert.Equal(t, 12400, route.DistanceMeters)
	assert.Equal(t, 1860, route.DurationSeconds())
	require.Len(t, client.requests, 1)
	assert.Equal(t, maps.TravelModeDriving, client.requests[0].Mode)

	noRoute := &googleMapper{client: &fakeMapsClient{matrix: matrix("NOT_FOUND", 0, 0)}, timeout: time.Second}
	_, err = noRoute.Distance(context.Background(), "a", "b")
	assert.ErrorIs(t, err, ErrNoRoute)
}

func TestEstimator_Trip(t *testing.T) {
	located := &model.Stop{MapLocation: &model.MapLocation{Address: "Hinjewadi", Lat: 18.59, Lng: 73.73}}
	other := &model.Stop{MapLocation: &model.MapLocation{Address: "Kharadi", Lat: 18.55, Lng: 73.93}}
	manual := &model.Stop{ManualAddress: "Shop 4, MG Road"}

	newEstimator := func(m Mapper) *Estimator {
		e := NewEstimator(m, config.DefaultTariff(), logger.Discard())
		e.intN = func(n int) int {
			assert.Equal(t, 50, n)
			return 5
		}
		return e
	}

	t.Run("maps route", func(t *testing.T) {
		trip := newEstimator(fakeMapper{route: Route{DistanceMeters: 23600, Duration: 65*time.Minute + 10*time.Second}}).Trip(context.Background(), located, other)
		assert.Equal(t, Trip{DistanceKm: 24, DurationMinutes: 66, EstimatedTime: "1h 6m", Source: SourceMaps}, trip)
	})

	t.Run("manual address falls back", func(t *testing.T) {
		trip := newEstimator(fakeMapper{err: errors.New("unused")}).Trip(context.Background(), manual, other)
		assert.Equal(t, Trip{DistanceKm: 10, DurationMinutes: 24, EstimatedTime: "24m", Source: SourceFallback}, trip)
	})

	t.Run("mapper failure falls back", func(t *testing.T) {
		trip := newEstimator(Unconfigured()).Trip(context.Background(), located, other)
		assert.Equal(t, SourceFallback, trip.Source)
	})
}

func TestEstimator_FallbackRange(t *testing.T) {
	e := NewEstimator(Unconfigured(), config.DefaultTariff(), logger.Discard())
	for i := 0; i < 200; i++ {
		trip := e.fallback()
		assert.GreaterOrEqual(t, trip.DistanceKm, 5)
		assert.Less(t, trip.DistanceKm, 55)
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "42m", FormatDuration(42*60))
	assert.Equal(t, "1m", FormatDuration(10))
	assert.Equal(t, "2h 1m", FormatDuration(2*3600+30))
}

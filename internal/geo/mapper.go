// Package geo resolves addresses and road distances, and falls back to a
// randomized estimate when no route is available.
package geo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetlink/pkg/model"
)

var (
	ErrNotConfigured = errors.New("maps provider is not configured")
	ErrNotFound      = errors.New("no result for location")
	ErrNoRoute       = errors.New("no route between locations")
)

// Route is a driving distance between two points.
type Route struct {
	DistanceMeters int           `json:"distanceMeters"`
	Duration       time.Duration `json:"-"`
}

func (r Route) DurationSeconds() int {
	return int(r.Duration / time.Second)
}

// Mapper is the maps provider. Origins and destinations are addresses or
// "lat,lng" pairs.
type Mapper interface {
	Geocode(ctx context.Context, address string) (*model.MapLocation, error)
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
	Distance(ctx context.Context, origin, destination string) (Route, error)
}

// Point renders a map location as a "lat,lng" waypoint.
func Point(loc *model.MapLocation) string {
	return fmt.Sprintf("%f,%f", loc.Lat, loc.Lng)
}

type unconfigured struct{}

// Unconfigured is used when no maps API key is set. Every call fails with
// ErrNotConfigured, so estimates always use the fallback.
func Unconfigured() Mapper {
	return unconfigured{}
}

func (unconfigured) Geocode(context.Context, string) (*model.MapLocation, error) {
	return nil, ErrNotConfigured
}

func (unconfigured) ReverseGeocode(context.Context, float64, float64) (string, error) {
	return "", ErrNotConfigured
}

func (unconfigured) Distance(context.Context, string, string) (Route, error) {
	return Route{}, ErrNotConfigured
}

package geo

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"fleetlink/pkg/config"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"
)

const (
	SourceMaps     = "maps"
	SourceFallback = "fallback"
)

// Trip is the distance and travel time between two stops.
type Trip struct {
	DistanceKm      int
	DurationMinutes int
	EstimatedTime   string
	Source          string
}

// Estimator measures trips with the Mapper when both stops carry map
// coordinates and falls back to a random distance otherwise.
type Estimator struct {
	mapper Mapper
	tariff config.Tariff
	intN   func(n int) int
	log    *logger.Logger
}

func NewEstimator(mapper Mapper, tariff config.Tariff, log *logger.Logger) *Estimator {
	return &Estimator{
		mapper: mapper,
		tariff: tariff,
		intN:   rand.Intn,
		log:    log.Component("estimator"),
	}
}

func (e *Estimator) Trip(ctx context.Context, pickup, drop *model.Stop) Trip {
	if pickup.MapLocation == nil || drop.MapLocation == nil {
		return e.fallback()
	}

	route, err := e.mapper.Distance(ctx, Point(pickup.MapLocation), Point(drop.MapLocation))
	if err != nil {
		e.log.Warn("Distance lookup failed, using fallback estimate",
			"pickup", pickup.Address(),
			"drop", drop.Address(),
			"error", err,
		)
		return e.fallback()
	}

	seconds := route.DurationSeconds()
	return Trip{
		DistanceKm:      int(math.Round(float64(route.DistanceMeters) / 1000)),
		DurationMinutes: int(math.Ceil(float64(seconds) / 60)),
		EstimatedTime:   FormatDuration(seconds),
		Source:          SourceMaps,
	}
}

// fallback picks a distance in [FallbackMinKm, FallbackMaxKm) and drives it
// at FallbackSpeedKmh.
func (e *Estimator) fallback() Trip {
	metrics.EstimateFallbacks.Inc()

	km := e.tariff.FallbackMinKm + e.intN(e.tariff.FallbackMaxKm-e.tariff.FallbackMinKm)
	minutes := int(math.Ceil(float64(km) * 60 / e.tariff.FallbackSpeedKmh))
	return Trip{
		DistanceKm:      km,
		DurationMinutes: minutes,
		EstimatedTime:   fmt.Sprintf("%dm", minutes),
		Source:          SourceFallback,
	}
}

// FormatDuration renders seconds as "1h 5m" or "42m".
func FormatDuration(seconds int) string {
	hours := seconds / 3600
	minutes := int(math.Ceil(float64(seconds%3600) / 60))
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

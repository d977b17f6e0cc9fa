// Package availability decides whether a vehicle is free for a requested
// window by comparing it against the vehicle's active bookings.
package availability

import (
	"context"
	"fmt"
	"time"

	"fleetlink/pkg/logger"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"
)

// BookingSource returns the stored bookings of a vehicle whose status still
// holds the vehicle (pending, confirmed, in-progress).
type BookingSource interface {
	ActiveWindows(ctx context.Context, vehicleID string) ([]model.BookingWindow, error)
}

// Conflict is the first active booking found to overlap the request.
type Conflict struct {
	BookingID string    `json:"bookingId"`
	Status    string    `json:"status"`
	Start     time.Time `json:"startDate"`
	End       time.Time `json:"endDate"`
}

type Result struct {
	Available bool      `json:"available"`
	Conflict  *Conflict `json:"conflictingBooking,omitempty"`
}

// Checker is safe for concurrent use.
type Checker interface {
	Check(ctx context.Context, vehicleID string, start, end time.Time) (Result, error)
	// CheckExcluding ignores the stored booking with id bookingID, so an
	// existing booking can be checked against the others.
	CheckExcluding(ctx context.Context, vehicleID, bookingID string, start, end time.Time) (Result, error)
}

type checker struct {
	source   BookingSource
	fallback time.Duration
	log      *logger.Logger
}

// NewChecker returns a Checker reading from source. Bookings without an end
// are treated as lasting fallback.
func NewChecker(source BookingSource, fallback time.Duration, log *logger.Logger) Checker {
	return &checker{
		source:   source,
		fallback: fallback,
		log:      log.Component("availability"),
	}
}

func (c *checker) Check(ctx context.Context, vehicleID string, start, end time.Time) (Result, error) {
	return c.CheckExcluding(ctx, vehicleID, "", start, end)
}

func (c *checker) CheckExcluding(ctx context.Context, vehicleID, bookingID string, start, end time.Time) (Result, error) {
	windows, err := c.source.ActiveWindows(ctx, vehicleID)
	if err != nil {
		metrics.AvailabilityChecks.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("failed to load bookings for vehicle %s: %w", vehicleID, err)
	}

	for _, w := range windows {
		if !model.IsActiveStatus(w.Status) || (bookingID != "" && w.ID == bookingID) {
			continue
		}
		bStart, bEnd, ok := EffectiveInterval(w, c.fallback)
		if !ok {
			metrics.SkippedBookings.Inc()
			c.log.Warn("Skipping booking without start time",
				"booking_id", w.ID,
				"vehicle_id", vehicleID,
			)
			continue
		}
		if Overlaps(start, end, bStart, bEnd) {
			metrics.AvailabilityChecks.WithLabelValues("conflict").Inc()
			c.log.Debug("Booking conflict found",
				"vehicle_id", vehicleID,
				"booking_id", w.ID,
				"requested_start", start,
				"requested_end", end,
			)
			return Result{
				Available: false,
				Conflict: &Conflict{
					BookingID: w.ID,
					Status:    w.Status,
					Start:     bStart,
					End:       bEnd,
				},
			}, nil
		}
	}

	metrics.AvailabilityChecks.WithLabelValues("available").Inc()
	return Result{Available: true}, nil
}

// EffectiveInterval resolves the interval a stored booking occupies. The end
// defaults to start + fallback. ok is false when the booking has no start.
func EffectiveInterval(w model.BookingWindow, fallback time.Duration) (start, end time.Time, ok bool) {
	if w.Start == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *w.Start
	if w.End != nil {
		return start, *w.End, true
	}
	return start, start.Add(fallback), true
}

// Overlaps reports whether the half-open intervals [a1, a2) and [b1, b2)
// intersect. Touching intervals do not overlap.
func Overlaps(a1, a2, b1, b2 time.Time) bool {
	return a1.Before(b2) && a2.After(b1)
}

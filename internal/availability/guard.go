package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetlink/internal/locks"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
)

// ErrUnavailable is matched by UnavailableError.
var ErrUnavailable = errors.New("vehicle is not available for the selected dates")

type UnavailableError struct {
	Conflict *Conflict
}

func (e *UnavailableError) Error() string {
	if e.Conflict == nil {
		return ErrUnavailable.Error()
	}
	return fmt.Sprintf("%s: conflicts with booking %s", ErrUnavailable, e.Conflict.BookingID)
}

func (e *UnavailableError) Is(target error) bool {
	return target == ErrUnavailable
}

// Locker is the per-vehicle lock held around check-then-insert.
type Locker interface {
	Acquire(ctx context.Context, vehicleID string) (token string, err error)
	Release(ctx context.Context, vehicleID, token string) error
}

// Guard runs booking writes under the vehicle lock, after the conflict
// check has passed. Two writers for the same vehicle never interleave
// between check and insert.
type Guard struct {
	locker  Locker
	checker Checker
	log     *logger.Logger
}

func NewGuard(locker Locker, checker Checker, log *logger.Logger) *Guard {
	return &Guard{
		locker:  locker,
		checker: checker,
		log:     log.Component("reservation"),
	}
}

// Reserve acquires the lock, checks [start, end) and calls write. Lock
// errors are returned as is; a conflict is returned as *UnavailableError.
func (g *Guard) Reserve(ctx context.Context, vehicleID string, start, end time.Time, write func(ctx context.Context) error) error {
	return g.reserve(ctx, vehicleID, "", start, end, write)
}

// Reactivate is Reserve for a stored booking moving back to an active
// status. The booking itself is left out of the check.
func (g *Guard) Reactivate(ctx context.Context, vehicleID, bookingID string, start, end time.Time, write func(ctx context.Context) error) error {
	return g.reserve(ctx, vehicleID, bookingID, start, end, write)
}

func (g *Guard) reserve(ctx context.Context, vehicleID, bookingID string, start, end time.Time, write func(ctx context.Context) error) error {
	token, err := g.locker.Acquire(ctx, vehicleID)
	if err != nil {
		return err
	}
	defer func() {
		if err := g.locker.Release(context.WithoutCancel(ctx), vehicleID, token); err != nil {
			g.log.Warn("Failed to release vehicle lock", "vehicle_id", vehicleID, "error", err)
		}
	}()

	result, err := g.checker.CheckExcluding(ctx, vehicleID, bookingID, start, end)
	if err != nil {
		return err
	}
	if !result.Available {
		return &UnavailableError{Conflict: result.Conflict}
	}
	return write(ctx)
}

// ConflictError maps the reservation failures to a 409. It returns nil for
// any other error.
func ConflictError(err error) *apperrors.AppError {
	if errors.Is(err, locks.ErrLocked) {
		return apperrors.Conflict("Vehicle is currently being booked, please try again")
	}
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		appErr := apperrors.Conflict("Vehicle is not available for the selected dates")
		if unavailable.Conflict != nil {
			appErr = appErr.WithDetail("conflictingBooking", unavailable.Conflict)
		}
		return appErr
	}
	return nil
}

package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionVehicles        = "vehicles"
	CollectionBookings        = "bookings"
	CollectionPackageBookings = "package_bookings"
	CollectionVehicleLocks    = "vehicle_locks"
)

// WithTimeout bounds ctx by timeout unless it already expires sooner.
// A SessionContext is returned unchanged; wrapping it would detach the
// operation from its transaction.
func WithTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < timeout {
		return context.WithDeadline(ctx, deadline)
	}
	return context.WithTimeout(ctx, timeout)
}

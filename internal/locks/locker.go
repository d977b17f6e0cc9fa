// Package locks serializes booking writes per vehicle.
package locks

import (
	"context"
	"errors"

	"fleetlink/pkg/config"

	"github.com/google/uuid"
)

// ErrLocked is returned by Acquire when another request holds the vehicle.
var ErrLocked = errors.New("vehicle is currently being booked")

// VehicleLocker hands out short-lived exclusive locks keyed by vehicle id.
// Release only removes the lock when token still matches, so a request whose
// lock already expired cannot free a lock taken by someone else.
type VehicleLocker interface {
	Acquire(ctx context.Context, vehicleID string) (token string, err error)
	Release(ctx context.Context, vehicleID, token string) error
}

// New returns the Redis locker when Redis is connected, otherwise the Mongo
// one.
func New(cfg *config.Config) VehicleLocker {
	if cfg.Client.Redis != nil {
		return NewRedisLocker(cfg.Client.Redis, cfg.VehicleLockTTL)
	}
	return NewMongoLocker(cfg)
}

func newToken() string {
	return uuid.NewString()
}

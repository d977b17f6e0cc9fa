package locks

import (
	"context"
	"fmt"
	"time"

	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// lockCollection is the part of *mongo.Collection the locker uses.
type lockCollection interface {
	InsertOne(ctx context.Context, document interface{}, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter interface{}, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

type mongoLocker struct {
	cfg        *config.Config
	collection lockCollection
	newToken   func() string
	now        func() time.Time
}

// NewMongoLocker stores locks in the vehicle_locks collection. The _id is the
// vehicle id, so a concurrent insert fails with a duplicate key error. A TTL
// index on expires_at reaps abandoned locks.
func NewMongoLocker(cfg *config.Config) VehicleLocker {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLocker{
		cfg:        cfg,
		collection: db.Collection(mongotx.CollectionVehicleLocks),
		newToken:   newToken,
		now:        time.Now,
	}
}

func (l *mongoLocker) Acquire(ctx context.Context, vehicleID string) (string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	token := l.newToken()
	err := l.insert(ctx, vehicleID, token)
	if mongo.IsDuplicateKeyError(err) {
		// The TTL monitor only runs once a minute; steal a lock that is
		// already past its expiry before reporting contention.
		if l.reapExpired(ctx, vehicleID) {
			err = l.insert(ctx, vehicleID, token)
		}
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			metrics.LockContention.WithLabelValues("mongo").Inc()
			return "", ErrLocked
		}
		return "", fmt.Errorf("failed to acquire vehicle lock: %w", err)
	}
	return token, nil
}

func (l *mongoLocker) insert(ctx context.Context, vehicleID, token string) error {
	now := l.now().UTC()
	lock := &model.VehicleLock{
		VehicleID: vehicleID,
		Token:     token,
		ExpiresAt: now.Add(l.cfg.VehicleLockTTL),
		CreatedAt: now,
	}
	_, err := l.collection.InsertOne(ctx, lock)
	return err
}

func (l *mongoLocker) reapExpired(ctx context.Context, vehicleID string) bool {
	res, err := l.collection.DeleteOne(ctx, bson.M{
		"_id":        vehicleID,
		"expires_at": bson.M{"$lt": l.now().UTC()},
	})
	return err == nil && res.DeletedCount > 0
}

func (l *mongoLocker) Release(ctx context.Context, vehicleID, token string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, l.cfg.WriteTimeout)
	defer cancel()

	if _, err := l.collection.DeleteOne(ctx, bson.M{"_id": vehicleID, "token": token}); err != nil {
		return fmt.Errorf("failed to release vehicle lock: %w", err)
	}
	return nil
}

package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fleetlink/internal/migrations/mongo/validators"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/logger"
)

var (
	VehiclesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "vehicle_number", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "city_key", Value: 1},
			{Key: "vehicle_type", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	BookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{
			{Key: "vehicle_id", Value: 1},
			{Key: "status", Value: 1},
			{Key: "start_date", Value: 1},
		}},
		{Keys: bson.D{{Key: "package_booking_id", Value: 1}}},
		{Keys: bson.D{{Key: "customer_email", Value: 1}}},
		{Keys: bson.D{{Key: "booking_date", Value: -1}}},
	}

	PackageBookingsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_ref", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "pickup.mobile", Value: 1}}},
		{Keys: bson.D{{Key: "drop.mobile", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	// Expired locks are also rejected at acquire time; the TTL index only
	// keeps the collection small.
	VehicleLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDef {
	return map[string]collectionDef{
		mongotx.CollectionVehicles: {
			Indexes:   VehiclesIndexes,
			Validator: validators.VehicleValidator,
		},
		mongotx.CollectionBookings: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		mongotx.CollectionPackageBookings: {
			Indexes:   PackageBookingsIndexes,
			Validator: validators.PackageBookingValidator,
		},
		mongotx.CollectionVehicleLocks: {
			Indexes: VehicleLocksIndexes,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}
	log.Info("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}

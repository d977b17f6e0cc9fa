package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	deliverieserrors "fleetlink/internal/deliveries/errors"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DeliveryRepository interface {
	// Create stores the package booking and its linked vehicle booking
	// atomically.
	Create(ctx context.Context, delivery *model.PackageBooking, vehicleBooking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.PackageBooking, error)
	FindAll(ctx context.Context, filter model.DeliveryFilter, limit int, skip int64) ([]*model.PackageBooking, error)
	Count(ctx context.Context, filter model.DeliveryFilter) (int64, error)
	// Cancel marks the package booking and its vehicle booking cancelled.
	Cancel(ctx context.Context, delivery *model.PackageBooking) error
}

type mongoDeliveryRepository struct {
	cfg        *config.Config
	tx         mongotx.TransactionManager
	deliveries *mongo.Collection
	bookings   *mongo.Collection
}

func NewMongoDeliveryRepository(cfg *config.Config) DeliveryRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoDeliveryRepository{
		cfg:        cfg,
		tx:         mongotx.NewTransactionManager(cfg.Client.Mongo),
		deliveries: db.Collection(mongotx.CollectionPackageBookings),
		bookings:   db.Collection(mongotx.CollectionBookings),
	}
}

func (r *mongoDeliveryRepository) Create(ctx context.Context, delivery *model.PackageBooking, vehicleBooking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	delivery.CreatedAt, delivery.UpdatedAt = now, now
	vehicleBooking.CreatedAt, vehicleBooking.UpdatedAt = now, now

	return r.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		delivery.ID = ""
		result, err := r.deliveries.InsertOne(sessCtx, delivery)
		if err != nil {
			return fmt.Errorf("failed to create package booking: %w", err)
		}
		deliveryOID, _ := result.InsertedID.(primitive.ObjectID)
		delivery.ID = deliveryOID.Hex()

		vehicleBooking.ID = ""
		vehicleBooking.PackageBookingID = delivery.ID
		result, err = r.bookings.InsertOne(sessCtx, vehicleBooking)
		if err != nil {
			return fmt.Errorf("failed to create vehicle booking: %w", err)
		}
		bookingOID, _ := result.InsertedID.(primitive.ObjectID)
		vehicleBooking.ID = bookingOID.Hex()

		_, err = r.deliveries.UpdateByID(sessCtx, deliveryOID, bson.M{"$set": bson.M{"vehicle_booking_id": vehicleBooking.ID}})
		if err != nil {
			return fmt.Errorf("failed to link vehicle booking: %w", err)
		}
		delivery.VehicleBookingID = vehicleBooking.ID
		return nil
	})
}

func (r *mongoDeliveryRepository) FindByID(ctx context.Context, id string) (*model.PackageBooking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var delivery model.PackageBooking
	err := r.deliveries.FindOne(ctx, referenceFilter(id)).Decode(&delivery)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", deliverieserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find package booking: %w", err)
	}
	return &delivery, nil
}

func (r *mongoDeliveryRepository) FindAll(ctx context.Context, filter model.DeliveryFilter, limit int, skip int64) ([]*model.PackageBooking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.deliveries.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find package bookings: %w", err)
	}
	defer cursor.Close(ctx)

	deliveries := []*model.PackageBooking{}
	if err = cursor.All(ctx, &deliveries); err != nil {
		return nil, fmt.Errorf("failed to decode package bookings: %w", err)
	}
	return deliveries, nil
}

func (r *mongoDeliveryRepository) Count(ctx context.Context, filter model.DeliveryFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.deliveries.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count package bookings: %w", err)
	}
	return count, nil
}

func (r *mongoDeliveryRepository) Cancel(ctx context.Context, delivery *model.PackageBooking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(delivery.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", deliverieserrors.ErrInvalidID, delivery.ID)
	}
	now := time.Now().UTC()
	set := bson.M{"$set": bson.M{"status": config.Cancelled, "updated_at": now}}

	return r.tx.ExecuteTransaction(ctx, func(sessCtx mongo.SessionContext) error {
		result, err := r.deliveries.UpdateOne(sessCtx, cancellableFilter(oid), set)
		if err != nil {
			return fmt.Errorf("failed to cancel package booking: %w", err)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: %s", deliverieserrors.ErrNotCancellable, delivery.ID)
		}

		if err := r.cancelVehicleBooking(sessCtx, delivery, set); err != nil {
			return err
		}
		delivery.Status = config.Cancelled
		delivery.UpdatedAt = now
		return nil
	})
}

// cancelVehicleBooking frees the vehicle. Older package bookings carry no
// vehicle_booking_id, so the link back from the vehicle booking is used too.
func (r *mongoDeliveryRepository) cancelVehicleBooking(ctx context.Context, delivery *model.PackageBooking, set bson.M) error {
	filter := bson.M{"package_booking_id": delivery.ID}
	if oid, err := primitive.ObjectIDFromHex(delivery.VehicleBookingID); err == nil {
		filter = bson.M{"$or": bson.A{bson.M{"_id": oid}, filter}}
	}
	filter["status"] = bson.M{"$in": config.ActiveBookingStatuses}

	if _, err := r.bookings.UpdateMany(ctx, filter, set); err != nil {
		return fmt.Errorf("failed to cancel vehicle booking: %w", err)
	}
	return nil
}

// --- Helpers ---

func buildFilter(f model.DeliveryFilter) bson.M {
	filter := bson.M{}
	if f.CustomerMobile != "" {
		filter["$or"] = bson.A{
			bson.M{"pickup.mobile": f.CustomerMobile},
			bson.M{"drop.mobile": f.CustomerMobile},
		}
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

func cancellableFilter(oid primitive.ObjectID) bson.M {
	return bson.M{
		"_id":    oid,
		"status": bson.M{"$nin": bson.A{config.Cancelled, config.Completed}},
	}
}

// referenceFilter matches a document id or the public PKG reference.
func referenceFilter(idOrRef string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(idOrRef); err == nil {
		return bson.M{"_id": oid}
	}
	return bson.M{"booking_ref": idOrRef}
}

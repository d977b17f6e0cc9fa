package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	bookingserrors "fleetlink/internal/bookings/errors"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id string) (*model.Booking, error)
	FindAll(ctx context.Context, filter model.BookingFilter, limit int, skip int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	Summary(ctx context.Context) (*model.BookingSummary, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	RecordPayment(ctx context.Context, idOrRef string, details model.PaymentDetails) error
	UpdateStatus(ctx context.Context, ids []string, status string) (int64, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type mongoBookingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		collection: db.Collection(mongotx.CollectionBookings),
	}
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	if booking.BookingDate.IsZero() {
		booking.BookingDate = now
	}

	result, err := r.collection.InsertOne(ctx, booking)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		booking.ID = oid.Hex()
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id string) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	var booking model.Booking
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) FindAll(ctx context.Context, filter model.BookingFilter, limit int, skip int64) ([]*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(buildSort(filter.SortBy, filter.SortOrder)).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	bookings := []*model.Booking{}
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}
	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// Summary counts every booking per status, independent of list filters.
func (r *mongoBookingRepository) Summary(ctx context.Context) (*model.BookingSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var buckets []model.CountBucket
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("failed to decode booking summary: %w", err)
	}

	summary := &model.BookingSummary{}
	for _, b := range buckets {
		summary.Add(b.Key, b.Count)
	}
	return summary, nil
}

// Update applies the non-empty fields of updates and returns the stored
// booking after the change.
func (r *mongoBookingRepository) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var booking model.Booking
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, bson.M{"$set": buildUpdate(updates)}, opts).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return &booking, nil
}

func (r *mongoBookingRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, id)
	}
	return nil
}

// RecordPayment marks a booking paid. idOrRef is matched against both the
// document id and the public BK reference.
func (r *mongoBookingRepository) RecordPayment(ctx context.Context, idOrRef string, details model.PaymentDetails) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"payment_status":  config.PaymentPaid,
		"payment_details": details,
		"updated_at":      time.Now().UTC(),
	}}

	result, err := r.collection.UpdateOne(ctx, referenceFilter(idOrRef), update)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", bookingserrors.ErrNotFound, idOrRef)
	}
	return nil
}

func (r *mongoBookingRepository) UpdateStatus(ctx context.Context, ids []string, status string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oids, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	result, err := r.collection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to update booking status: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoBookingRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	oids, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete bookings: %w", err)
	}
	return result.DeletedCount, nil
}

// --- Helpers ---

func buildFilter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.CustomerEmail != "" {
		filter["customer_email"] = f.CustomerEmail
	}
	if f.VehicleID != "" {
		filter["vehicle_id"] = f.VehicleID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.BookingType != "" {
		filter["booking_type"] = f.BookingType
	}
	return filter
}

var sortFields = map[string]string{
	"bookingDate":  "booking_date",
	"booking_date": "booking_date",
	"startDate":    "start_date",
	"start_date":   "start_date",
	"endDate":      "end_date",
	"end_date":     "end_date",
	"createdAt":    "created_at",
	"created_at":   "created_at",
	"totalPrice":   "total_price",
	"total_price":  "total_price",
	"customerName": "customer_name",
	"status":       "status",
}

func buildSort(sortBy, sortOrder string) bson.D {
	field, ok := sortFields[sortBy]
	if !ok {
		field = "booking_date"
	}
	order := -1
	if sortOrder == "asc" {
		order = 1
	}
	return bson.D{{Key: field, Value: order}, {Key: "_id", Value: order}}
}

func buildUpdate(u *model.BookingUpdate) bson.M {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Status != "" {
		set["status"] = u.Status
	}
	if u.Purpose != nil {
		set["purpose"] = *u.Purpose
	}
	if u.PickupLocation != "" {
		set["pickup_location"] = u.PickupLocation
	}
	if u.DropoffLocation != "" {
		set["dropoff_location"] = u.DropoffLocation
	}
	if u.PaymentStatus != "" {
		set["payment_status"] = u.PaymentStatus
	}
	if u.PaymentDetails != nil {
		set["payment_details"] = u.PaymentDetails
	}
	return set
}

func referenceFilter(idOrRef string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(idOrRef); err == nil {
		return bson.M{"$or": bson.A{bson.M{"_id": oid}, bson.M{"booking_ref": idOrRef}}}
	}
	return bson.M{"booking_ref": idOrRef}
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", bookingserrors.ErrInvalidID, id)
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

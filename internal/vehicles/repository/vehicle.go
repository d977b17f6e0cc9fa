package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *model.Vehicle) error
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
	FindAll(ctx context.Context, filter model.VehicleFilter, limit int, skip int64) ([]*model.Vehicle, error)
	Count(ctx context.Context, filter model.VehicleFilter) (int64, error)
	Summary(ctx context.Context, filter model.VehicleFilter) (*model.VehicleSummary, error)
	NextBookings(ctx context.Context, vehicleIDs []string, now time.Time) (map[string]*model.UpcomingBooking, error)
	FindPaidByCity(ctx context.Context, city string) ([]*model.Vehicle, error)
	PaidCities(ctx context.Context) ([]string, error)
	UpdateStatus(ctx context.Context, ids []string, status string) (int64, error)
	UpdateCity(ctx context.Context, ids []string, city string) (int64, error)
	DeleteMany(ctx context.Context, ids []string) (int64, error)
}

type mongoVehicleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	bookings   *mongo.Collection
}

func NewMongoVehicleRepository(cfg *config.Config) VehicleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoVehicleRepository{
		cfg:        cfg,
		collection: db.Collection(mongotx.CollectionVehicles),
		bookings:   db.Collection(mongotx.CollectionBookings),
	}
}

func (r *mongoVehicleRepository) Create(ctx context.Context, vehicle *model.Vehicle) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	vehicle.CreatedAt = now
	vehicle.UpdatedAt = now
	if vehicle.RegistrationDate.IsZero() {
		vehicle.RegistrationDate = now
	}

	result, err := r.collection.InsertOne(ctx, vehicle)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", vehicleserrors.ErrDuplicateNumber, vehicle.VehicleNumber)
		}
		return fmt.Errorf("failed to create vehicle: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		vehicle.ID = oid.Hex()
	}
	return nil
}

func (r *mongoVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", vehicleserrors.ErrInvalidID, id)
	}

	var vehicle model.Vehicle
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&vehicle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", vehicleserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find vehicle: %w", err)
	}
	return &vehicle, nil
}

func (r *mongoVehicleRepository) FindAll(ctx context.Context, filter model.VehicleFilter, limit int, skip int64) ([]*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(buildSort(filter.SortBy, filter.SortOrder)).
		SetSkip(skip).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, buildFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles: %w", err)
	}
	defer cursor.Close(ctx)

	vehicles := []*model.Vehicle{}
	if err = cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *mongoVehicleRepository) Count(ctx context.Context, filter model.VehicleFilter) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return count, nil
}

type summaryFacets struct {
	Total     []struct{ Count int64 } `bson:"total"`
	ByType    []model.CountBucket     `bson:"by_type"`
	TopCities []model.CountBucket     `bson:"top_cities"`
	ByStatus  []model.CountBucket     `bson:"by_status"`
}

// Summary computes every statistic in a single $facet pass over the
// filtered vehicles.
func (r *mongoVehicleRepository) Summary(ctx context.Context, filter model.VehicleFilter) (*model.VehicleSummary, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	countBy := func(field string) bson.A {
		return bson.A{
			bson.M{"$group": bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}},
			bson.M{"$sort": bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}},
		}
	}
	topCities := append(countBy("city"), bson.M{"$limit": 10})

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildFilter(filter)}},
		{{Key: "$facet", Value: bson.M{
			"total":      bson.A{bson.M{"$count": "count"}},
			"by_type":    countBy("vehicle_type"),
			"top_cities": topCities,
			"by_status":  countBy("status"),
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate vehicle summary: %w", err)
	}
	defer cursor.Close(ctx)

	var facets []summaryFacets
	if err := cursor.All(ctx, &facets); err != nil {
		return nil, fmt.Errorf("failed to decode vehicle summary: %w", err)
	}

	summary := &model.VehicleSummary{
		ByType:    []model.CountBucket{},
		TopCities: []model.CountBucket{},
		ByStatus:  []model.CountBucket{},
	}
	if len(facets) == 0 {
		return summary, nil
	}
	f := facets[0]
	if len(f.Total) > 0 {
		summary.Total = f.Total[0].Count
	}
	if f.ByType != nil {
		summary.ByType = f.ByType
	}
	if f.TopCities != nil {
		summary.TopCities = f.TopCities
	}
	if f.ByStatus != nil {
		summary.ByStatus = f.ByStatus
	}
	return summary, nil
}

// NextBookings returns, per vehicle, the earliest pending or confirmed
// booking starting at or after now.
func (r *mongoVehicleRepository) NextBookings(ctx context.Context, vehicleIDs []string, now time.Time) (map[string]*model.UpcomingBooking, error) {
	next := make(map[string]*model.UpcomingBooking, len(vehicleIDs))
	if len(vehicleIDs) == 0 {
		return next, nil
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"vehicle_id": bson.M{"$in": vehicleIDs},
			"status":     bson.M{"$in": bson.A{config.Confirmed, config.Pending}},
			"start_date": bson.M{"$gte": now},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "start_date", Value: 1}}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$vehicle_id",
			"booking": bson.M{"$first": "$$ROOT"},
		}}},
	}

	cursor, err := r.bookings.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate upcoming bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		VehicleID string                `bson:"_id"`
		Booking   model.UpcomingBooking `bson:"booking"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode upcoming bookings: %w", err)
	}
	for i := range rows {
		next[rows[i].VehicleID] = &rows[i].Booking
	}
	return next, nil
}

// FindPaidByCity matches the normalized city key or a case-insensitive
// substring of the stored city, so legacy documents without a key are found.
func (r *mongoVehicleRepository) FindPaidByCity(ctx context.Context, city string) ([]*model.Vehicle, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"status": config.VehicleStatusPaid,
		"$or": bson.A{
			bson.M{"city_key": sanitizer.SanitizeCityKey(city)},
			bson.M{"city": containsInsensitive(city)},
		},
	}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "vehicle_number", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to find vehicles by city: %w", err)
	}
	defer cursor.Close(ctx)

	vehicles := []*model.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, fmt.Errorf("failed to decode vehicles: %w", err)
	}
	return vehicles, nil
}

func (r *mongoVehicleRepository) PaidCities(ctx context.Context) ([]string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	values, err := r.collection.Distinct(ctx, "city", bson.M{"status": config.VehicleStatusPaid})
	if err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	cities := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			cities = append(cities, s)
		}
	}
	return cities, nil
}

func (r *mongoVehicleRepository) UpdateStatus(ctx context.Context, ids []string, status string) (int64, error) {
	return r.updateMany(ctx, ids, bson.M{"status": status})
}

func (r *mongoVehicleRepository) UpdateCity(ctx context.Context, ids []string, city string) (int64, error) {
	return r.updateMany(ctx, ids, bson.M{"city": city, "city_key": sanitizer.SanitizeCityKey(city)})
}

func (r *mongoVehicleRepository) updateMany(ctx context.Context, ids []string, set bson.M) (int64, error) {
	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	set["updated_at"] = time.Now().UTC().Truncate(time.Millisecond)
	result, err := r.collection.UpdateMany(ctx, bson.M{"_id": bson.M{"$in": objectIDs}}, bson.M{"$set": set})
	if err != nil {
		return 0, fmt.Errorf("failed to update vehicles: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *mongoVehicleRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	objectIDs, err := toObjectIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": objectIDs}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete vehicles: %w", err)
	}
	return result.DeletedCount, nil
}

func toObjectIDs(ids []string) ([]primitive.ObjectID, error) {
	objectIDs := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", vehicleserrors.ErrInvalidID, id)
		}
		objectIDs = append(objectIDs, oid)
	}
	return objectIDs, nil
}

func buildFilter(f model.VehicleFilter) bson.M {
	filter := bson.M{}
	if f.City != "" {
		filter["city"] = containsInsensitive(f.City)
	}
	if f.VehicleType != "" {
		filter["vehicle_type"] = containsInsensitive(f.VehicleType)
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.VehicleNumber != "" {
		filter["vehicle_number"] = containsInsensitive(f.VehicleNumber)
	}
	return filter
}

func containsInsensitive(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

var sortFields = map[string]string{
	"registration_date": "registration_date",
	"registrationDate":  "registration_date",
	"created_at":        "created_at",
	"createdAt":         "created_at",
	"city":              "city",
	"vehicle_type":      "vehicle_type",
	"vehicleType":       "vehicle_type",
	"vehicle_number":    "vehicle_number",
	"vehicleNumber":     "vehicle_number",
}

// buildSort falls back to registration_date desc. _id breaks ties so pages
// are stable.
func buildSort(sortBy, sortOrder string) bson.D {
	field, ok := sortFields[sortBy]
	if !ok {
		field = "registration_date"
	}
	order := -1
	if sortOrder == "asc" {
		order = 1
	}
	return bson.D{{Key: field, Value: order}, {Key: "_id", Value: order}}
}

package availability

import (
	"context"
	"fmt"
	"time"

	"fleetlink/pkg/config"
	mongotx "fleetlink/pkg/db/mongo"
	"fleetlink/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type mongoBookingSource struct {
	cfg        *config.Config
	collection *mongo.Collection
}

// NewMongoBookingSource reads booking windows straight from the bookings
// collection. Documents are decoded field by field so that legacy records
// with string dates or a missing start do not fail the whole query.
func NewMongoBookingSource(cfg *config.Config) BookingSource {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingSource{
		cfg:        cfg,
		collection: db.Collection(mongotx.CollectionBookings),
	}
}

func (s *mongoBookingSource) ActiveWindows(ctx context.Context, vehicleID string) ([]model.BookingWindow, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, s.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"vehicle_id": vehicleID,
		"status":     bson.M{"$in": config.ActiveBookingStatuses},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "start_date", Value: 1}}).
		SetProjection(bson.M{"_id": 1, "status": 1, "start_date": 1, "end_date": 1, "pickup_time": 1})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var windows []model.BookingWindow
	for cursor.Next(ctx) {
		windows = append(windows, decodeWindow(cursor.Current))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to read active bookings: %w", err)
	}
	return windows, nil
}

func decodeWindow(doc bson.Raw) model.BookingWindow {
	w := model.BookingWindow{
		ID:     rawID(doc),
		Status: rawString(doc, "status"),
		Start:  rawTime(doc, "start_date"),
		End:    rawTime(doc, "end_date"),
	}
	if w.Start == nil {
		w.Start = rawTime(doc, "pickup_time")
	}
	return w
}

func rawID(doc bson.Raw) string {
	value, err := doc.LookupErr("_id")
	if err != nil {
		return ""
	}
	if oid, ok := value.ObjectIDOK(); ok {
		return oid.Hex()
	}
	if s, ok := value.StringValueOK(); ok {
		return s
	}
	return value.String()
}

func rawString(doc bson.Raw, key string) string {
	value, err := doc.LookupErr(key)
	if err != nil {
		return ""
	}
	s, _ := value.StringValueOK()
	return s
}

// rawTime accepts BSON dates and RFC 3339 strings. Anything else, including
// an unparseable string, is reported as missing.
func rawTime(doc bson.Raw, key string) *time.Time {
	value, err := doc.LookupErr(key)
	if err != nil {
		return nil
	}
	if t, ok := value.TimeOK(); ok {
		t = t.UTC()
		return &t
	}
	if s, ok := value.StringValueOK(); ok && s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil
		}
		t = t.UTC()
		return &t
	}
	return nil
}

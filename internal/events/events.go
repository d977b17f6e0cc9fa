// Package events publishes booking and payment domain events to Kafka and
// consumes them back.
package events

import (
	"context"
	"time"

	"fleetlink/pkg/model"
)

const (
	TypeBookingCreated   = "booking.created"
	TypeBookingCancelled = "booking.cancelled"
	TypePaymentVerified  = "payment.verified"

	SchemaVersion = "1"
)

type BookingEvent struct {
	ID               string     `json:"id"`
	Reference        string     `json:"bookingId"`
	VehicleID        string     `json:"vehicleId"`
	BookingType      string     `json:"bookingType"`
	Status           string     `json:"status"`
	CustomerEmail    string     `json:"customerEmail,omitempty"`
	StartDate        time.Time  `json:"startDate"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	TotalPrice       float64    `json:"totalPrice"`
	PackageBookingID string     `json:"packageBookingId,omitempty"`
	OccurredAt       time.Time  `json:"occurredAt"`
}

func NewBookingEvent(b *model.Booking) BookingEvent {
	return BookingEvent{
		ID:               b.ID,
		Reference:        b.Reference,
		VehicleID:        b.VehicleID,
		BookingType:      b.BookingType,
		Status:           b.Status,
		CustomerEmail:    b.CustomerEmail,
		StartDate:        b.StartDate,
		EndDate:          b.EndDate,
		TotalPrice:       b.TotalPrice,
		PackageBookingID: b.PackageBookingID,
		OccurredAt:       time.Now().UTC(),
	}
}

// PaymentEvent.Source is "verify" for checkout callbacks and "webhook" for
// gateway notifications.
type PaymentEvent struct {
	BookingID  string    `json:"bookingId,omitempty"`
	OrderID    string    `json:"orderId"`
	PaymentID  string    `json:"paymentId"`
	Signature  string    `json:"signature,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	Currency   string    `json:"currency,omitempty"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher never fails the caller: delivery problems are logged.
type Publisher interface {
	BookingCreated(ctx context.Context, booking *model.Booking)
	BookingCancelled(ctx context.Context, booking *model.Booking)
	PaymentVerified(ctx context.Context, event PaymentEvent)
	Close() error
}

type noopPublisher struct{}

// Noop is used when events are disabled.
func Noop() Publisher {
	return noopPublisher{}
}

func (noopPublisher) BookingCreated(context.Context, *model.Booking)   {}
func (noopPublisher) BookingCancelled(context.Context, *model.Booking) {}
func (noopPublisher) PaymentVerified(context.Context, PaymentEvent)    {}
func (noopPublisher) Close() error                                     { return nil }

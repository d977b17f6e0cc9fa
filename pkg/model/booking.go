package model

import (
	"slices"
	"time"

	"fleetlink/pkg/config"
)

type Booking struct {
	ID               string           `json:"id,omitempty" bson:"_id,omitempty"`
	Reference        string           `json:"bookingId" bson:"booking_ref"`
	VehicleID        string           `json:"vehicleId" bson:"vehicle_id" validate:"required,mongodb"`
	CustomerName     string           `json:"customerName" bson:"customer_name" validate:"required,min=2,max=100"`
	CustomerEmail    string           `json:"customerEmail" bson:"customer_email" validate:"required,email"`
	CustomerPhone    string           `json:"customerPhone" bson:"customer_phone" validate:"required,e164"`
	Purpose          string           `json:"purpose,omitempty" bson:"purpose,omitempty" validate:"max=500"`
	PickupLocation   string           `json:"pickupLocation" bson:"pickup_location" validate:"required,min=2,max=300"`
	DropoffLocation  string           `json:"dropoffLocation" bson:"dropoff_location" validate:"required,min=2,max=300"`
	TotalPrice       float64          `json:"totalPrice,omitempty" bson:"total_price" validate:"gte=0"`
	Vehicle          *VehicleSnapshot `json:"vehicleDetails,omitempty" bson:"vehicle,omitempty"`
	StartDate        time.Time        `json:"startDate" bson:"start_date" validate:"required"`
	EndDate          *time.Time       `json:"endDate,omitempty" bson:"end_date,omitempty"`
	PickupTime       *time.Time       `json:"pickupTime,omitempty" bson:"pickup_time,omitempty"`
	Status           string           `json:"status" bson:"status" validate:"required,booking_status"`
	PaymentStatus    string           `json:"paymentStatus" bson:"payment_status" validate:"required,oneof=pending paid failed"`
	PaymentDetails   *PaymentDetails  `json:"paymentDetails,omitempty" bson:"payment_details,omitempty"`
	BookingType      string           `json:"bookingType" bson:"booking_type" validate:"required,oneof=vehicle package_delivery"`
	PackageBookingID string           `json:"packageBookingId,omitempty" bson:"package_booking_id,omitempty"`
	BookingDate      time.Time        `json:"bookingDate" bson:"booking_date"`
	CreatedAt        time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt        time.Time        `json:"updatedAt" bson:"updated_at"`
}

func (b *Booking) IsActive() bool {
	return IsActiveStatus(b.Status)
}

func IsActiveStatus(status string) bool {
	return slices.Contains(config.ActiveBookingStatuses, status)
}

// BookingUpdate carries the mutable booking fields. The interval is fixed at creation.
type BookingUpdate struct {
	Status          string          `json:"status,omitempty" validate:"omitempty,booking_status"`
	Purpose         *string         `json:"purpose,omitempty" validate:"omitempty,max=500"`
	PickupLocation  string          `json:"pickupLocation,omitempty" validate:"omitempty,min=2,max=300"`
	DropoffLocation string          `json:"dropoffLocation,omitempty" validate:"omitempty,min=2,max=300"`
	PaymentStatus   string          `json:"paymentStatus,omitempty" validate:"omitempty,oneof=pending paid failed"`
	PaymentDetails  *PaymentDetails `json:"paymentDetails,omitempty"`
}

func (u *BookingUpdate) IsEmpty() bool {
	return u.Status == "" && u.Purpose == nil && u.PickupLocation == "" &&
		u.DropoffLocation == "" && u.PaymentStatus == "" && u.PaymentDetails == nil
}

// BookingWindow is the part of a stored booking the conflict checker reads.
// Start and End are nil when the stored value was missing or unparseable.
type BookingWindow struct {
	ID     string
	Status string
	Start  *time.Time
	End    *time.Time
}

type BookingFilter struct {
	CustomerEmail string
	VehicleID     string
	Status        string
	BookingType   string
	SortBy        string
	SortOrder     string
}

type BookingSummary struct {
	Confirmed  int64 `json:"confirmed"`
	Pending    int64 `json:"pending"`
	InProgress int64 `json:"inProgress"`
	Completed  int64 `json:"completed"`
	Cancelled  int64 `json:"cancelled"`
}

// Add folds an aggregation bucket into the summary.
func (s *BookingSummary) Add(status string, count int64) {
	switch status {
	case config.Confirmed:
		s.Confirmed += count
	case config.Pending:
		s.Pending += count
	case config.InProgress:
		s.InProgress += count
	case config.Completed:
		s.Completed += count
	case config.Cancelled:
		s.Cancelled += count
	}
}

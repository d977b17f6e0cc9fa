package model

import (
	"strings"
	"time"
)

type MapLocation struct {
	Address string  `json:"address" bson:"address"`
	Lat     float64 `json:"lat" bson:"lat" validate:"latitude"`
	Lng     float64 `json:"lng" bson:"lng" validate:"longitude"`
	PlaceID string  `json:"placeId,omitempty" bson:"place_id,omitempty"`
}

type Stop struct {
	ManualAddress string       `json:"manualAddress,omitempty" bson:"manual_address,omitempty" validate:"max=300"`
	MapLocation   *MapLocation `json:"mapLocation,omitempty" bson:"map_location,omitempty"`
	Name          string       `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Mobile        string       `json:"mobile" bson:"mobile" validate:"required,e164"`
	PickupTime    *time.Time   `json:"pickupTime,omitempty" bson:"pickup_time,omitempty"`
}

func (s *Stop) HasAddress() bool {
	return strings.TrimSpace(s.ManualAddress) != "" || (s.MapLocation != nil && s.MapLocation.Address != "")
}

// Address returns the address used for distance lookups.
func (s *Stop) Address() string {
	if s.MapLocation != nil && s.MapLocation.Address != "" {
		return s.MapLocation.Address
	}
	return s.ManualAddress
}

type Package struct {
	Type        string  `json:"type" bson:"type" validate:"required,max=50"`
	Weight      float64 `json:"weight" bson:"weight" validate:"gt=0"`
	WeightUnit  string  `json:"weightUnit" bson:"weight_unit" validate:"omitempty,oneof=kg grams"`
	Description string  `json:"description,omitempty" bson:"description,omitempty" validate:"max=500"`
}

// WeightKg normalizes the package weight to kilograms.
func (p *Package) WeightKg() float64 {
	if p.WeightUnit == "grams" {
		return p.Weight / 1000
	}
	return p.Weight
}

type Estimation struct {
	DistanceKm      int     `json:"distance" bson:"distance_km"`
	DurationMinutes int     `json:"durationMinutes" bson:"duration_minutes"`
	EstimatedTime   string  `json:"estimatedTime" bson:"estimated_time"`
	ShippingCharges float64 `json:"shippingCharges" bson:"shipping_charges"`
	GST             float64 `json:"gst" bson:"gst"`
	TotalAmount     float64 `json:"totalAmount" bson:"total_amount"`
	Source          string  `json:"source" bson:"source"`
}

type PackageBooking struct {
	ID                  string           `json:"id,omitempty" bson:"_id,omitempty"`
	Reference           string           `json:"bookingId" bson:"booking_ref"`
	Pickup              Stop             `json:"pickup" bson:"pickup"`
	Drop                Stop             `json:"drop" bson:"drop"`
	Package             Package          `json:"package" bson:"package"`
	Estimation          Estimation       `json:"estimation" bson:"estimation"`
	QuoteToken          string           `json:"quoteToken,omitempty" bson:"-"`
	AssignedVehicleID   string           `json:"assignedVehicleId" bson:"assigned_vehicle_id" validate:"required,mongodb"`
	AssignedVehicle     *VehicleSnapshot `json:"assignedVehicle,omitempty" bson:"assigned_vehicle,omitempty"`
	RequiredVehicleType string           `json:"requiredVehicleType,omitempty" bson:"required_vehicle_type,omitempty" validate:"max=50"`
	PaymentDetails      *PaymentDetails  `json:"paymentDetails,omitempty" bson:"payment_details,omitempty"`
	PaymentStatus       string           `json:"paymentStatus" bson:"payment_status" validate:"required,oneof=pending paid failed"`
	DeliveryType        string           `json:"deliveryType" bson:"delivery_type" validate:"required,oneof=standard express"`
	EstimatedStartTime  time.Time        `json:"estimatedStartTime" bson:"estimated_start_time" validate:"required"`
	EstimatedEndTime    *time.Time       `json:"estimatedEndTime,omitempty" bson:"estimated_end_time,omitempty"`
	Status              string           `json:"status" bson:"status" validate:"required,booking_status"`
	VehicleBookingID    string           `json:"vehicleBookingId,omitempty" bson:"vehicle_booking_id,omitempty"`
	CreatedAt           time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time        `json:"updatedAt" bson:"updated_at"`
}

type QuoteRequest struct {
	Pickup       Stop    `json:"pickup"`
	Drop         Stop    `json:"drop"`
	Package      Package `json:"package"`
	DeliveryType string  `json:"deliveryType,omitempty" validate:"omitempty,oneof=standard express"`
}

type Quote struct {
	Estimation Estimation `json:"estimation"`
	Currency   string     `json:"currency"`
	Token      string     `json:"quoteToken,omitempty"`
	ExpiresAt  time.Time  `json:"expiresAt"`
}

type DeliveryFilter struct {
	CustomerMobile string
	Status         string
}

type CancellationCheck struct {
	BookingID       string `json:"bookingId"`
	Status          string `json:"status"`
	CanCancel       bool   `json:"canCancel"`
	HoursUntilStart *int   `json:"timeUntilPickup"`
	Reason          string `json:"reason"`
}

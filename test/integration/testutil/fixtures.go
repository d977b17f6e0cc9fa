package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"fleetlink/pkg/config"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
)

var vehicleSeq atomic.Int64

type VehicleBuilder struct {
	v model.Vehicle
}

// NewVehicleBuilder returns a paid vehicle in Mumbai with a unique number.
func NewVehicleBuilder() *VehicleBuilder {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &VehicleBuilder{
		v: model.Vehicle{
			VehicleNumber:       fmt.Sprintf("MH01AB%04d", vehicleSeq.Add(1)),
			VehicleRC:           "https://files.example.com/rc.pdf",
			City:                "Mumbai",
			VehicleType:         "truck",
			TyreCondition:       "good",
			LoadCapacity:        "5 tons",
			DriverName:          "Ravi Kumar",
			DriverLicenceNumber: "MH0120190001",
			DriverLicence:       "https://files.example.com/dl.pdf",
			DriverPhone:         "+919876543210",
			RegistrationDate:    now,
			Status:              config.VehicleStatusPaid,
			CreatedAt:           now,
			UpdatedAt:           now,
		},
	}
}

func (b *VehicleBuilder) WithCity(city string) *VehicleBuilder {
	b.v.City = city
	return b
}

func (b *VehicleBuilder) WithType(vehicleType string) *VehicleBuilder {
	b.v.VehicleType = vehicleType
	return b
}

func (b *VehicleBuilder) WithStatus(status string) *VehicleBuilder {
	b.v.Status = status
	return b
}

func (b *VehicleBuilder) Build() model.Vehicle {
	v := b.v
	v.CityKey = sanitizer.SanitizeCityKey(v.City)
	return v
}

// BookingRequest is a vehicle booking body for vehicleID starting at start.
func BookingRequest(vehicleID string, start, end time.Time) map[string]any {
	return map[string]any{
		"vehicleId":       vehicleID,
		"customerName":    "Asha Patel",
		"customerEmail":   "asha@example.com",
		"customerPhone":   "+919812345678",
		"pickupLocation":  "Andheri East",
		"dropoffLocation": "Navi Mumbai",
		"startDate":       start.Format(time.RFC3339),
		"endDate":         end.Format(time.RFC3339),
	}
}

func stop(name, mobile, address string, pickup *time.Time) map[string]any {
	s := map[string]any{
		"name":          name,
		"mobile":        mobile,
		"manualAddress": address,
	}
	if pickup != nil {
		s["pickupTime"] = pickup.Format(time.RFC3339)
	}
	return s
}

// QuoteRequest is a delivery quote body between two manual addresses.
func QuoteRequest() map[string]any {
	return map[string]any{
		"pickup": stop("Asha Patel", "+919812345678", "Andheri East, Mumbai", nil),
		"drop":   stop("Vikram Rao", "+919898989898", "Vashi, Navi Mumbai", nil),
		"package": map[string]any{
			"type":   "documents",
			"weight": 2,
		},
	}
}

// DeliveryRequest is a package booking body for vehicleID picked up at start.
func DeliveryRequest(vehicleID string, start time.Time) map[string]any {
	body := QuoteRequest()
	body["pickup"] = stop("Asha Patel", "+919812345678", "Andheri East, Mumbai", &start)
	body["assignedVehicleId"] = vehicleID
	body["estimatedStartTime"] = start.Format(time.RFC3339)
	return body
}

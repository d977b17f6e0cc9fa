package model

import (
	"testing"

	"fleetlink/pkg/config"
)

func TestIsActiveStatus(t *testing.T) {
	tests := []struct {
		status string
		want   bool
	}{
		{config.Pending, true},
		{config.Confirmed, true},
		{config.InProgress, true},
		{config.Completed, false},
		{config.Cancelled, false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			b := &Booking{Status: tt.status}
			if got := b.IsActive(); got != tt.want {
				t.Errorf("IsActive(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestBookingUpdate_IsEmpty(t *testing.T) {
	if !(&BookingUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}
	purpose := ""
	if (&BookingUpdate{Purpose: &purpose}).IsEmpty() {
		t.Error("explicitly clearing purpose is a change")
	}
	if (&BookingUpdate{Status: config.Cancelled}).IsEmpty() {
		t.Error("status change is not empty")
	}
}

func TestBookingSummary_Add(t *testing.T) {
	var s BookingSummary
	s.Add(config.Confirmed, 3)
	s.Add(config.Cancelled, 1)
	s.Add("unknown", 9)
	s.Add(config.Confirmed, 2)

	if s.Confirmed != 5 || s.Cancelled != 1 || s.Pending != 0 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestStop_Address(t *testing.T) {
	manual := Stop{ManualAddress: "12 MG Road"}
	if !manual.HasAddress() || manual.Address() != "12 MG Road" {
		t.Errorf("manual stop address not used: %+v", manual)
	}

	mapped := Stop{ManualAddress: "near the temple", MapLocation: &MapLocation{Address: "Shivaji Nagar, Pune"}}
	if mapped.Address() != "Shivaji Nagar, Pune" {
		t.Errorf("map address should win, got %q", mapped.Address())
	}

	empty := Stop{ManualAddress: "   ", MapLocation: &MapLocation{}}
	if empty.HasAddress() {
		t.Error("blank stop should have no address")
	}
}

func TestPackage_WeightKg(t *testing.T) {
	if got := (&Package{Weight: 2500, WeightUnit: "grams"}).WeightKg(); got != 2.5 {
		t.Errorf("grams not converted: %v", got)
	}
	if got := (&Package{Weight: 4}).WeightKg(); got != 4 {
		t.Errorf("kg default broken: %v", got)
	}
}

func TestPaymentDetails_Complete(t *testing.T) {
	var nilDetails *PaymentDetails
	if nilDetails.Complete() {
		t.Error("nil details are not complete")
	}
	if (&PaymentDetails{OrderID: "order_1", PaymentID: "pay_1"}).Complete() {
		t.Error("missing signature should be incomplete")
	}
	if !(&PaymentDetails{OrderID: "order_1", PaymentID: "pay_1", Signature: "abc"}).Complete() {
		t.Error("all fields set should be complete")
	}
}

func TestVehicle_Snapshot(t *testing.T) {
	v := &Vehicle{ID: "v1", VehicleNumber: "MH12AB1234", VehicleType: "Truck", City: "Pune", DriverName: "Ravi"}
	s := v.Snapshot()
	if s.ID != "v1" || s.VehicleNumber != "MH12AB1234" || s.DriverName != "Ravi" {
		t.Errorf("snapshot mismatch: %+v", s)
	}
}

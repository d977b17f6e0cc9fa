package model

import "time"

type Vehicle struct {
	ID                  string          `json:"id,omitempty" bson:"_id,omitempty"`
	VehicleNumber       string          `json:"vehicleNumber" bson:"vehicle_number" validate:"required,min=4,max=20"`
	VehicleRC           string          `json:"vehicleRC" bson:"vehicle_rc" validate:"required,max=500"`
	City                string          `json:"city" bson:"city" validate:"required,min=2,max=100"`
	CityKey             string          `json:"-" bson:"city_key"`
	VehicleType         string          `json:"vehicleType" bson:"vehicle_type" validate:"required,min=2,max=50"`
	TyreCondition       string          `json:"tyreCondition" bson:"tyre_condition" validate:"required,max=50"`
	LoadCapacity        string          `json:"loadCapacity" bson:"load_capacity" validate:"required,max=50"`
	DriverName          string          `json:"driverName" bson:"driver_name" validate:"required,min=2,max=100"`
	DriverLicenceNumber string          `json:"driverLicenceNumber" bson:"driver_licence_number" validate:"required,min=5,max=30"`
	DriverLicence       string          `json:"driverLicence" bson:"driver_licence" validate:"required,max=500"`
	DriverPhone         string          `json:"driverPhone,omitempty" bson:"driver_phone,omitempty" validate:"e164_or_empty"`
	OneTimeRegistration bool            `json:"oneTimeRegistration" bson:"one_time_registration"`
	PaymentDetails      *PaymentDetails `json:"paymentDetails,omitempty" bson:"payment_details,omitempty"`
	RegistrationDate    time.Time       `json:"registrationDate" bson:"registration_date"`
	Status              string          `json:"status" bson:"status" validate:"required,vehicle_status"`
	CreatedAt           time.Time       `json:"createdAt" bson:"created_at"`
	UpdatedAt           time.Time       `json:"updatedAt" bson:"updated_at"`

	NextBooking *UpcomingBooking `json:"nextBooking,omitempty" bson:"-"`
}

// VehicleSnapshot is the copy of vehicle data stored on a booking.
type VehicleSnapshot struct {
	ID            string `json:"id" bson:"id"`
	VehicleNumber string `json:"vehicleNumber" bson:"vehicle_number"`
	VehicleType   string `json:"vehicleType" bson:"vehicle_type"`
	City          string `json:"city" bson:"city"`
	DriverName    string `json:"driverName" bson:"driver_name"`
	DriverPhone   string `json:"driverPhone,omitempty" bson:"driver_phone,omitempty"`
}

func (v *Vehicle) Snapshot() *VehicleSnapshot {
	return &VehicleSnapshot{
		ID:            v.ID,
		VehicleNumber: v.VehicleNumber,
		VehicleType:   v.VehicleType,
		City:          v.City,
		DriverName:    v.DriverName,
		DriverPhone:   v.DriverPhone,
	}
}

type UpcomingBooking struct {
	ID           string     `json:"id" bson:"_id"`
	Reference    string     `json:"bookingId" bson:"booking_ref"`
	CustomerName string     `json:"customerName" bson:"customer_name"`
	StartDate    time.Time  `json:"startDate" bson:"start_date"`
	EndDate      *time.Time `json:"endDate,omitempty" bson:"end_date,omitempty"`
	Status       string     `json:"status" bson:"status"`
}

type VehicleFilter struct {
	City          string
	VehicleType   string
	Status        string
	VehicleNumber string
	SortBy        string
	SortOrder     string
}

// CountBucket is one group of an aggregation count.
type CountBucket struct {
	Key   string `json:"key" bson:"_id"`
	Count int64  `json:"count" bson:"count"`
}

type VehicleSummary struct {
	Total     int64         `json:"total"`
	ByType    []CountBucket `json:"byType"`
	TopCities []CountBucket `json:"topCities"`
	ByStatus  []CountBucket `json:"byStatus"`
}

type BulkRequest struct {
	Action     string            `json:"action" validate:"required"`
	IDs        []string          `json:"ids" validate:"required,min=1,max=500,dive,mongodb"`
	UpdateData map[string]string `json:"updateData,omitempty"`
}

type BulkResult struct {
	Action   string `json:"action"`
	Affected int64  `json:"affected"`
}

// AvailableVehicle is the public view of a vehicle returned by search.
type AvailableVehicle struct {
	ID            string `json:"id"`
	VehicleNumber string `json:"vehicleNumber"`
	VehicleType   string `json:"vehicleType"`
	LoadCapacity  string `json:"loadCapacity"`
	City          string `json:"city"`
	DriverName    string `json:"driverName"`
	Status        string `json:"status"`
	IsAvailable   bool   `json:"isAvailable"`
}

func (v *Vehicle) Available() *AvailableVehicle {
	return &AvailableVehicle{
		ID:            v.ID,
		VehicleNumber: v.VehicleNumber,
		VehicleType:   v.VehicleType,
		LoadCapacity:  v.LoadCapacity,
		City:          v.City,
		DriverName:    v.DriverName,
		Status:        v.Status,
		IsAvailable:   true,
	}
}

type SearchCriteria struct {
	City      string    `json:"city"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// SearchResult lists the available vehicles of a city. AvailableCities is
// only filled when no vehicle matched the city at all.
type SearchResult struct {
	Vehicles        []*AvailableVehicle `json:"vehicles"`
	SearchCriteria  SearchCriteria      `json:"searchCriteria"`
	TotalFound      int                 `json:"totalFound"`
	TotalAvailable  int                 `json:"totalAvailable"`
	Message         string              `json:"message,omitempty"`
	AvailableCities []string            `json:"availableCities,omitempty"`
}

package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "fleetlink"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultRedisDB = 0

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingFallbackDuration = 6 * time.Hour
	DefaultVehicleLockTTL          = 10 * time.Second
	DefaultSearchConcurrency       = 16
	DefaultQuoteTTL                = 30 * time.Minute
	DefaultMapsTimeout             = 5 * time.Second

	DefaultPageLimit = 50
	MaxPageLimit     = 100

	DefaultEventsEnabled = false
	DefaultBookingsTopic = "fleetlink.bookings"
	DefaultPaymentsTopic = "fleetlink.payments"
)

// Tariff defaults, in rupees.
const (
	DefaultBaseFare         = 50.0
	DefaultPerKmRate        = 8.0
	DefaultPerKgRate        = 3.0
	DefaultGSTRate          = 0.18
	DefaultFallbackMinKm    = 5
	DefaultFallbackMaxKm    = 55
	DefaultFallbackSpeedKmh = 25.0
	DefaultCurrency         = "INR"
)

// Status values stored on vehicles and bookings.
const (
	VehicleStatusPaid        = "paid"
	VehicleStatusFree        = "free"
	VehicleStatusActive      = "active"
	VehicleStatusInactive    = "inactive"
	VehicleStatusMaintenance = "maintenance"

	Pending    = "pending"
	Confirmed  = "confirmed"
	InProgress = "in-progress"
	Completed  = "completed"
	Cancelled  = "cancelled"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentFailed  = "failed"

	BookingTypeVehicle         = "vehicle"
	BookingTypePackageDelivery = "package_delivery"
)

// ActiveBookingStatuses are the statuses that hold a vehicle.
var ActiveBookingStatuses = []string{Pending, Confirmed, InProgress}

// Bulk admin actions.
const (
	BulkActionUpdateStatus = "updateStatus"
	BulkActionUpdateCity   = "updateCity"
	BulkActionDelete       = "delete"
)

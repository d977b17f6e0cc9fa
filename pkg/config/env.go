package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvRedisDB       = "REDIS_DB"

	EnvPort      = "PORT"
	EnvLogLevel  = "LOG_LEVEL"
	EnvLogFormat = "LOG_FORMAT"
	EnvEnvFile   = "FLEETLINK_ENV_FILE"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvRazorpayKeyID         = "RAZORPAY_KEY_ID"
	EnvRazorpayKeySecret     = "RAZORPAY_KEY_SECRET"
	EnvRazorpayWebhookSecret = "RAZORPAY_WEBHOOK_SECRET"

	EnvGoogleMapsAPIKey = "GOOGLE_MAPS_API_KEY"
	EnvMapsTimeout      = "MAPS_TIMEOUT"

	EnvQuoteSecret = "QUOTE_SECRET"
	EnvQuoteTTL    = "QUOTE_TTL"

	EnvBookingFallbackDuration = "BOOKING_FALLBACK_DURATION"
	EnvVehicleLockTTL          = "VEHICLE_LOCK_TTL"
	EnvSearchConcurrency       = "SEARCH_CONCURRENCY"
	EnvTariffFile              = "TARIFF_FILE"

	EnvEventsEnabled = "EVENTS_ENABLED"
	EnvBookingsTopic = "KAFKA_BOOKINGS_TOPIC"
	EnvPaymentsTopic = "KAFKA_PAYMENTS_TOPIC"
)

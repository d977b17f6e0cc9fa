package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"fleetlink/pkg/client"
	"fleetlink/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Port string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string

	GoogleMapsAPIKey string
	MapsTimeout      time.Duration

	QuoteSecret string
	QuoteTTL    time.Duration

	BookingFallbackDuration time.Duration
	VehicleLockTTL          time.Duration
	SearchConcurrency       int
	TariffFile              string
	Tariff                  Tariff

	EventsEnabled bool
	BookingsTopic string
	PaymentsTopic string

	Log    *logger.Logger
	Client *client.Client
}

// Load reads the optional .env file, then the environment, and exits on
// invalid configuration.
func Load(serviceName string) *Config {
	envFile := getEnvStr(EnvEnvFile, ".env")
	envErr := godotenv.Load(envFile)

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		RedisAddr:     getEnvStr(EnvRedisAddr, ""),
		RedisPassword: getEnvStr(EnvRedisPassword, ""),
		RedisDB:       getEnvNum(EnvRedisDB, DefaultRedisDB),

		Port: getEnvStr(EnvPort, DefaultPort),

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		RazorpayKeyID:         getEnvStr(EnvRazorpayKeyID, ""),
		RazorpayKeySecret:     getEnvStr(EnvRazorpayKeySecret, ""),
		RazorpayWebhookSecret: getEnvStr(EnvRazorpayWebhookSecret, ""),

		GoogleMapsAPIKey: getEnvStr(EnvGoogleMapsAPIKey, ""),
		MapsTimeout:      getEnvDuration(EnvMapsTimeout, DefaultMapsTimeout),

		QuoteSecret: getEnvStr(EnvQuoteSecret, ""),
		QuoteTTL:    getEnvDuration(EnvQuoteTTL, DefaultQuoteTTL),

		BookingFallbackDuration: getEnvDuration(EnvBookingFallbackDuration, DefaultBookingFallbackDuration),
		VehicleLockTTL:          getEnvDuration(EnvVehicleLockTTL, DefaultVehicleLockTTL),
		SearchConcurrency:       getEnvNum(EnvSearchConcurrency, DefaultSearchConcurrency),
		TariffFile:              getEnvStr(EnvTariffFile, ""),

		EventsEnabled: getEnvBool(EnvEventsEnabled, DefaultEventsEnabled),
		BookingsTopic: getEnvStr(EnvBookingsTopic, DefaultBookingsTopic),
		PaymentsTopic: getEnvStr(EnvPaymentsTopic, DefaultPaymentsTopic),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    getEnvStr(EnvLogFormat, logger.JSON),
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	if envErr != nil && !os.IsNotExist(envErr) {
		cfg.Log.Warn("Failed to load env file", "file", envFile, "error", envErr)
	}

	tariff, err := LoadTariff(cfg.TariffFile)
	if err != nil {
		cfg.Log.Fatal("Failed to load tariff", "error", err)
	}
	cfg.Tariff = tariff

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects Redis when an address is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisAddr == "" {
		cfg.Log.Info("Redis address not set, using Mongo-backed locks and in-memory idempotency")
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.MongoConnTimeout)
}

func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}
	if cfg.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("RedisDB cannot be negative, got: %d", cfg.RedisDB))
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"MongoConnTimeout", cfg.MongoConnTimeout},
		{"RateLimitWindow", cfg.RateLimitWindow},
		{"RequestTimeout", cfg.RequestTimeout},
		{"IdempotencyTTL", cfg.IdempotencyTTL},
		{"ReadTimeout", cfg.ReadTimeout},
		{"WriteTimeout", cfg.WriteTimeout},
		{"IdleTimeout", cfg.IdleTimeout},
		{"ShutdownTimeout", cfg.ShutdownTimeout},
		{"MapsTimeout", cfg.MapsTimeout},
		{"QuoteTTL", cfg.QuoteTTL},
		{"BookingFallbackDuration", cfg.BookingFallbackDuration},
		{"VehicleLockTTL", cfg.VehicleLockTTL},
	}
	for _, d := range durations {
		if d.value <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", d.name, d.value))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.SearchConcurrency <= 0 {
		errors = append(errors, fmt.Sprintf("SearchConcurrency must be positive, got: %d", cfg.SearchConcurrency))
	}

	if (cfg.RazorpayKeyID == "") != (cfg.RazorpayKeySecret == "") {
		errors = append(errors, "RazorpayKeyID and RazorpayKeySecret must be set together")
	}
	if cfg.QuoteSecret != "" {
		if key, err := base64.StdEncoding.DecodeString(cfg.QuoteSecret); err != nil || len(key) != 32 {
			errors = append(errors, "QuoteSecret must be a base64 encoded 32 byte key")
		}
	}
	if cfg.EventsEnabled && (cfg.BookingsTopic == "" || cfg.PaymentsTopic == "") {
		errors = append(errors, "BookingsTopic and PaymentsTopic are required when events are enabled")
	}

	errors = append(errors, cfg.Tariff.validate()...)

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"redis_addr", cfg.RedisAddr,
		"port", cfg.Port,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"razorpay_configured", cfg.RazorpayKeyID != "",
		"razorpay_webhook_secret_set", cfg.RazorpayWebhookSecret != "",
		"google_maps_configured", cfg.GoogleMapsAPIKey != "",
		"quote_secret_set", cfg.QuoteSecret != "",
		"booking_fallback_duration", cfg.BookingFallbackDuration,
		"vehicle_lock_ttl", cfg.VehicleLockTTL,
		"search_concurrency", cfg.SearchConcurrency,
		"tariff_file", cfg.TariffFile,
		"events_enabled", cfg.EventsEnabled,
	)
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func NormalizePaginationLimit(limit int) int {
	if limit <= 0 {
		return DefaultPageLimit
	}
	return min(limit, MaxPageLimit)
}

func NormalizePage(page int) int {
	return max(1, page)
}

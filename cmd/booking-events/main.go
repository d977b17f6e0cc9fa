package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"fleetlink/internal/availability"
	"fleetlink/internal/bookings/repository"
	"fleetlink/internal/bookings/service"
	"fleetlink/internal/bookings/validator"
	"fleetlink/internal/events"
	"fleetlink/internal/locks"
	"fleetlink/internal/payments/gateway"
	vehiclerepository "fleetlink/internal/vehicles/repository"
	"fleetlink/pkg/config"
	"fleetlink/pkg/kafka"
	kafka_config "fleetlink/pkg/kafka/config"
	kafka_middleware "fleetlink/pkg/kafka/middleware"
	"fleetlink/pkg/validation"
)

const ServiceName = "booking-events"

// booking-events applies payment.verified events to bookings.
func main() {
	cfg := config.Load(ServiceName)
	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kcfg.LogConfiguration(cfg.Log)

	cfg.SetMongo()
	cfg.SetRedis()
	defer cfg.GracefulShutdown()

	bookingService := initServices(cfg)

	consumer, err := kafka.NewConsumer(
		kcfg,
		cfg.PaymentsTopic,
		cfg.PaymentsTopic+kafka_config.DLQSuffix,
		events.PaymentVerifiedHandler(bookingService, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg.Log.Info("Starting booking events consumer", "topic", cfg.PaymentsTopic)
	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Consumer stopped", "error", err)
	}

	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Booking events consumer stopped")
}

func initServices(cfg *config.Config) service.BookingService {
	checker := availability.NewChecker(availability.NewMongoBookingSource(cfg), cfg.BookingFallbackDuration, cfg.Log)
	guard := availability.NewGuard(locks.New(cfg), checker, cfg.Log)

	bookingService := service.NewBookingService(
		repository.NewMongoBookingRepository(cfg),
		vehiclerepository.NewMongoVehicleRepository(cfg),
		guard,
		gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret),
		events.Noop(),
		validator.NewBookingValidator(validation.New(cfg.Log)),
		cfg,
	)

	cfg.Log.Info("Booking service initialized", "database", cfg.MongoDatabaseName)
	return bookingService
}

package main

import (
	"fleetlink/internal/availability"
	bookinghandler "fleetlink/internal/bookings/handler"
	bookingrepository "fleetlink/internal/bookings/repository"
	bookingservice "fleetlink/internal/bookings/service"
	bookingvalidator "fleetlink/internal/bookings/validator"
	deliveryhandler "fleetlink/internal/deliveries/handler"
	deliveryrepository "fleetlink/internal/deliveries/repository"
	deliveryservice "fleetlink/internal/deliveries/service"
	deliveryvalidator "fleetlink/internal/deliveries/validator"
	"fleetlink/internal/events"
	"fleetlink/internal/geo"
	geohandler "fleetlink/internal/geo/handler"
	"fleetlink/internal/locks"
	"fleetlink/internal/payments/gateway"
	paymenthandler "fleetlink/internal/payments/handler"
	paymentservice "fleetlink/internal/payments/service"
	vehiclehandler "fleetlink/internal/vehicles/handler"
	vehiclerepository "fleetlink/internal/vehicles/repository"
	vehicleservice "fleetlink/internal/vehicles/service"
	vehiclevalidator "fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/app"
	"fleetlink/pkg/config"
	"fleetlink/pkg/contracts"
	kafka_config "fleetlink/pkg/kafka/config"
	"fleetlink/pkg/sealer"
	"fleetlink/pkg/validation"
)

const ServiceName = "fleetlink"

func main() {
	cfg := config.Load(ServiceName)

	if err := cfg.Validate(); err != nil {
		cfg.Log.Fatal("Invalid configuration", "error", err)
	}
	cfg.LogConfiguration()

	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting FleetLink service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg)
	serverApp.OnShutdown("events", publisher)

	serverApp.SetApp(initHandlers(cfg, publisher)...)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Event publishing disabled")
		return events.Noop()
	}

	kcfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	publisher, err := events.NewKafkaPublisher(kcfg, cfg, ServiceName)
	if err != nil {
		cfg.Log.Fatal("Failed to create event publisher", "error", err)
	}
	cfg.Log.Info("Event publishing enabled", "bookings_topic", cfg.BookingsTopic, "payments_topic", cfg.PaymentsTopic)
	return publisher
}

func initMapper(cfg *config.Config) geo.Mapper {
	if cfg.GoogleMapsAPIKey == "" {
		cfg.Log.Warn("Google Maps API key not set, estimates use fallback distances")
		return geo.Unconfigured()
	}
	mapper, err := geo.NewGoogleMapper(cfg.GoogleMapsAPIKey, cfg.MapsTimeout)
	if err != nil {
		cfg.Log.Fatal("Failed to create Google Maps client", "error", err)
	}
	return mapper
}

func initHandlers(cfg *config.Config, publisher events.Publisher) []contracts.Handler {
	v := validation.New(cfg.Log)

	checker := availability.NewChecker(availability.NewMongoBookingSource(cfg), cfg.BookingFallbackDuration, cfg.Log)
	guard := availability.NewGuard(locks.New(cfg), checker, cfg.Log)
	payments := gateway.NewRazorpay(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret)

	mapper := initMapper(cfg)
	estimator := geo.NewEstimator(mapper, cfg.Tariff, cfg.Log)

	quoteSealer, err := sealer.New(cfg.QuoteSecret)
	if err != nil {
		cfg.Log.Fatal("Invalid quote secret", "error", err)
	}
	if cfg.QuoteSecret == "" {
		cfg.Log.Warn("Quote secret not set, quote tokens do not survive a restart")
	}

	vehicleRepo := vehiclerepository.NewMongoVehicleRepository(cfg)
	vehicleService := vehicleservice.NewVehicleService(
		vehicleRepo,
		checker,
		payments,
		vehiclevalidator.NewVehicleValidator(v),
		cfg,
	)

	bookingService := bookingservice.NewBookingService(
		bookingrepository.NewMongoBookingRepository(cfg),
		vehicleRepo,
		guard,
		payments,
		publisher,
		bookingvalidator.NewBookingValidator(v),
		cfg,
	)

	deliveryService := deliveryservice.NewDeliveryService(
		deliveryrepository.NewMongoDeliveryRepository(cfg),
		vehicleRepo,
		guard,
		estimator,
		quoteSealer,
		payments,
		publisher,
		deliveryvalidator.NewDeliveryValidator(v),
		cfg,
	)

	paymentService := paymentservice.NewPaymentService(payments, publisher, v, cfg)

	cfg.Log.Info("Services initialized", "database", cfg.MongoDatabaseName)
	return []contracts.Handler{
		vehiclehandler.NewVehicleHandler(vehicleService, cfg.Log),
		bookinghandler.NewBookingHandler(bookingService, cfg.Log),
		deliveryhandler.NewDeliveryHandler(deliveryService, cfg.Log),
		paymenthandler.NewPaymentHandler(paymentService, payments.VerifyWebhook, cfg.Log),
		geohandler.NewGeoHandler(mapper, cfg.Log),
	}
}

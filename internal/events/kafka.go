package events

import (
	"context"
	"errors"
	"time"

	"fleetlink/pkg/config"
	"fleetlink/pkg/kafka"
	kafka_config "fleetlink/pkg/kafka/config"
	kafka_middleware "fleetlink/pkg/kafka/middleware"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/middleware"
	"fleetlink/pkg/model"
)

type producer interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	bookings producer
	payments producer
	source   string
	timeout  time.Duration
	log      *logger.Logger
}

// NewKafkaPublisher opens one producer per topic, each with a DLQ.
func NewKafkaPublisher(kcfg *kafka_config.Config, cfg *config.Config, source string) (Publisher, error) {
	log := cfg.Log.Component("events")

	bookings, err := newProducer(kcfg, cfg.BookingsTopic, log)
	if err != nil {
		return nil, err
	}
	payments, err := newProducer(kcfg, cfg.PaymentsTopic, log)
	if err != nil {
		_ = bookings.Close()
		return nil, err
	}

	return &kafkaPublisher{
		bookings: bookings,
		payments: payments,
		source:   source,
		timeout:  cfg.WriteTimeout,
		log:      log,
	}, nil
}

func newProducer(kcfg *kafka_config.Config, topic string, log *logger.Logger) (*kafka.Producer, error) {
	p, err := kafka.NewProducer(kcfg, topic, topic+kafka_config.DLQSuffix, log)
	if err != nil {
		return nil, err
	}
	p.Use(kafka_middleware.LoggingProducerMiddleware(log))
	p.Use(kafka_middleware.MetricsProducerMiddleware())
	return p, nil
}

func (p *kafkaPublisher) BookingCreated(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, p.bookings, TypeBookingCreated, booking.VehicleID, NewBookingEvent(booking))
}

func (p *kafkaPublisher) BookingCancelled(ctx context.Context, booking *model.Booking) {
	p.publish(ctx, p.bookings, TypeBookingCancelled, booking.VehicleID, NewBookingEvent(booking))
}

func (p *kafkaPublisher) PaymentVerified(ctx context.Context, event PaymentEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	p.publish(ctx, p.payments, TypePaymentVerified, event.OrderID, event)
}

// Bookings are keyed by vehicle so a vehicle's events stay ordered.
func (p *kafkaPublisher) publish(ctx context.Context, to producer, eventType, key string, payload any) {
	msg, err := kafka.NewMessage().
		WithKey(key).
		WithValue(payload).
		WithEventType(eventType).
		WithSchemaVersion(SchemaVersion).
		WithSource(p.source).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		Build()
	if err != nil {
		p.log.Error("Failed to build event", "event_type", eventType, "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := to.Publish(ctx, msg); err != nil {
		p.log.Error("Failed to publish event",
			"event_type", eventType,
			"event_id", msg.GetEventID(),
			"key", key,
			"error", err,
		)
	}
}

func (p *kafkaPublisher) Close() error {
	return errors.Join(p.bookings.Close(), p.payments.Close())
}

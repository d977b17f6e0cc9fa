package kafka_middleware

import (
	"context"
	"time"

	"fleetlink/pkg/kafka"
	"fleetlink/pkg/metrics"
)

const (
	directionPublished = "published"
	directionConsumed  = "consumed"
)

func MetricsProducerMiddleware() kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionPublished, start, err)
		return err
	}
}

func MetricsConsumerMiddleware() kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()
		err := next(ctx, msg)
		observe(directionConsumed, start, err)
		return err
	}
}

func observe(direction string, start time.Time, err error) {
	metrics.KafkaDuration.WithLabelValues(direction).Observe(time.Since(start).Seconds())
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.KafkaMessages.WithLabelValues(direction, result).Inc()
}

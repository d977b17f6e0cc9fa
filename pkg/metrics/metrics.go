package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "fleetlink"

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	AvailabilityChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_checks_total",
		Help:      "Conflict checks by outcome (available, conflict, error)",
	}, []string{"outcome"})

	SkippedBookings = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "availability_skipped_bookings_total",
		Help:      "Stored bookings ignored by the conflict checker because they have no usable start",
	})

	BookingsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bookings_created_total",
		Help:      "Bookings created by booking type",
	}, []string{"type"})

	LockContention = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "vehicle_lock_contention_total",
		Help:      "Vehicle lock acquisitions rejected because the lock was held",
	}, []string{"backend"})

	EstimateFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "estimate_fallbacks_total",
		Help:      "Delivery estimates served from the random fallback",
	})

	PaymentVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_verifications_total",
		Help:      "Payment signature verifications by result",
	}, []string{"result"})

	KafkaMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "kafka_messages_total",
		Help:      "Kafka messages by direction (published, consumed) and result",
	}, []string{"direction", "result"})

	KafkaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "kafka_operation_duration_seconds",
		Help:      "Kafka publish and handle latency",
		Buckets:   prometheus.DefBuckets,
	}, []string{"direction"})
)

package events

import (
	"context"
	"errors"

	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/kafka"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
)

// PaymentRecorder marks the booking identified by bookingID (its id or its
// reference) as paid.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, bookingID string, details model.PaymentDetails) error
}

// PaymentVerifiedHandler applies payment.verified events to bookings. Other
// event types on the topic are acknowledged and ignored.
func PaymentVerifiedHandler(recorder PaymentRecorder, log *logger.Logger) kafka.MessageHandler {
	log = log.Component("payment-events")

	return func(ctx context.Context, msg kafka.Message) error {
		if msg.GetEventType() != TypePaymentVerified {
			return nil
		}

		var event PaymentEvent
		if err := msg.DecodeValue(&event); err != nil {
			return err
		}
		if event.BookingID == "" {
			log.Warn("Payment event without booking id", "order_id", event.OrderID, "event_id", msg.GetEventID())
			return nil
		}

		err := recorder.RecordPayment(ctx, event.BookingID, model.PaymentDetails{
			OrderID:   event.OrderID,
			PaymentID: event.PaymentID,
			Signature: event.Signature,
		})
		if err == nil {
			log.Info("Payment applied to booking", "booking_id", event.BookingID, "order_id", event.OrderID)
			return nil
		}

		if apperrors.HasCode(err, apperrors.CodeNotFound) || apperrors.HasCode(err, apperrors.CodeInvalidInput) {
			return kafka.NewPermanentError("booking not found for payment", err)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return kafka.NewTransientError("failed to record payment", err)
		}
		return err
	}
}

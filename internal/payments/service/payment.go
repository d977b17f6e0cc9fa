package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"fleetlink/internal/events"
	"fleetlink/internal/payments/gateway"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/validation"
)

const (
	// maxReceiptLength is the gateway's limit on order receipts.
	maxReceiptLength = 40

	webhookPaymentCaptured = "payment.captured"

	defaultOrderDescription = "FleetLink Booking Payment"
)

type PaymentService interface {
	CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.PaymentOrder, error)
	Verify(ctx context.Context, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResult, error)
	// HandleWebhook processes a webhook body whose signature has already
	// been checked.
	HandleWebhook(ctx context.Context, body []byte) error
}

type paymentService struct {
	gateway   gateway.Gateway
	publisher events.Publisher
	validator *validation.Validator
	cfg       *config.Config
	log       *logger.Logger
	now       func() time.Time
}

func NewPaymentService(gw gateway.Gateway, publisher events.Publisher, v *validation.Validator, cfg *config.Config) PaymentService {
	return &paymentService{
		gateway:   gw,
		publisher: publisher,
		validator: v,
		cfg:       cfg,
		log:       cfg.Log.Component("payments"),
		now:       time.Now,
	}
}

func (s *paymentService) CreateOrder(ctx context.Context, req *model.CreateOrderRequest) (*model.PaymentOrder, error) {
	if s.cfg.RazorpayKeyID == "" {
		return nil, apperrors.Unavailable("Payments")
	}

	req.BookingID = strings.TrimSpace(req.BookingID)
	req.CustomerName = sanitizer.SanitizeText(req.CustomerName)
	req.CustomerMobile = sanitizer.SanitizePhone(req.CustomerMobile)
	req.VehicleNumber = sanitizer.SanitizeVehicleNumber(req.VehicleNumber)
	req.Description = sanitizer.SanitizeText(req.Description)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = s.cfg.Tariff.Currency
	}

	if err := s.validator.Struct(req); err != nil {
		var fieldErrs validation.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperrors.Validation("Invalid payment order request", fieldErrs.Details())
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	description := req.Description
	if description == "" {
		description = defaultOrderDescription
	}
	params := gateway.OrderParams{
		Amount:   ToMinorUnits(req.Amount),
		Currency: req.Currency,
		Receipt:  Receipt(req.BookingID, s.now()),
		Notes: map[string]string{
			"bookingId":      req.BookingID,
			"customerName":   req.CustomerName,
			"customerMobile": req.CustomerMobile,
			"vehicleNumber":  req.VehicleNumber,
			"description":    description,
		},
	}

	order, err := s.gateway.CreateOrder(ctx, params)
	if err != nil {
		s.log.Error("Failed to create payment order", "booking_id", req.BookingID, "amount", params.Amount, "error", err)
		return nil, apperrors.BadGateway("Payment gateway", err)
	}

	s.log.Info("Payment order created", "order_id", order.ID, "booking_id", req.BookingID, "amount", order.Amount)
	return order, nil
}

func (s *paymentService) Verify(ctx context.Context, req *model.VerifyPaymentRequest) (*model.VerifyPaymentResult, error) {
	req.OrderID = strings.TrimSpace(req.OrderID)
	req.PaymentID = strings.TrimSpace(req.PaymentID)
	req.Signature = strings.TrimSpace(req.Signature)
	if !req.PaymentDetails.Complete() {
		return nil, apperrors.InvalidInput("Missing payment verification parameters")
	}

	if !s.gateway.VerifyPayment(&req.PaymentDetails) {
		metrics.PaymentVerifications.WithLabelValues("invalid").Inc()
		s.log.Warn("Payment signature mismatch", "order_id", req.OrderID, "payment_id", req.PaymentID)
		return nil, apperrors.InvalidInput("Payment verification failed")
	}
	metrics.PaymentVerifications.WithLabelValues("valid").Inc()

	s.publisher.PaymentVerified(ctx, events.PaymentEvent{
		BookingID:  strings.TrimSpace(req.BookingID),
		OrderID:    req.OrderID,
		PaymentID:  req.PaymentID,
		Signature:  req.Signature,
		Source:     "verify",
		OccurredAt: s.now().UTC(),
	})

	s.log.Info("Payment verified", "order_id", req.OrderID, "payment_id", req.PaymentID, "booking_id", req.BookingID)
	return &model.VerifyPaymentResult{Verified: true, OrderID: req.OrderID, PaymentID: req.PaymentID}, nil
}

// webhookBody is the subset of the gateway webhook envelope that is read.
type webhookBody struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID       string         `json:"id"`
				OrderID  string         `json:"order_id"`
				Amount   int64          `json:"amount"`
				Currency string         `json:"currency"`
				Notes    map[string]any `json:"notes"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (s *paymentService) HandleWebhook(ctx context.Context, body []byte) error {
	var hook webhookBody
	if err := json.Unmarshal(body, &hook); err != nil {
		return apperrors.InvalidInput("Invalid webhook payload")
	}

	if hook.Event != webhookPaymentCaptured {
		s.log.Debug("Ignoring webhook event", "event", hook.Event)
		return nil
	}

	entity := hook.Payload.Payment.Entity
	if entity.ID == "" || entity.OrderID == "" {
		return apperrors.InvalidInput("Webhook payment is missing its id or order id")
	}

	s.publisher.PaymentVerified(ctx, events.PaymentEvent{
		BookingID:  noteString(entity.Notes, "bookingId"),
		OrderID:    entity.OrderID,
		PaymentID:  entity.ID,
		Amount:     entity.Amount,
		Currency:   entity.Currency,
		Source:     "webhook",
		OccurredAt: s.now().UTC(),
	})
	metrics.PaymentVerifications.WithLabelValues("webhook").Inc()

	s.log.Info("Payment captured", "order_id", entity.OrderID, "payment_id", entity.ID, "amount", entity.Amount)
	return nil
}

func noteString(notes map[string]any, key string) string {
	switch v := notes[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return ""
	}
}

// ToMinorUnits converts rupees to paise.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Receipt builds the order receipt booking_<id>_<unix ms>, shortening the
// booking id so the receipt fits the gateway limit.
func Receipt(bookingID string, now time.Time) string {
	suffix := fmt.Sprintf("_%d", now.UnixMilli())
	prefix := "booking_" + bookingID
	if limit := maxReceiptLength - len(suffix); len(prefix) > limit {
		prefix = prefix[:limit]
	}
	return prefix + suffix
}

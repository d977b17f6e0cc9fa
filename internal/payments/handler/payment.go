package handler

import (
	"io"
	"net/http"

	"fleetlink/internal/payments/service"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/middleware"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const SignatureHeader = "X-Razorpay-Signature"

type PaymentHandler struct {
	service       service.PaymentService
	verifyWebhook middleware.SignatureVerifier
	log           *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, verifyWebhook middleware.SignatureVerifier, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:       service,
		verifyWebhook: verifyWebhook,
		log:           log,
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.CreateOrderRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req)
	if err != nil {
		h.writeError(w, "CreateOrder", err)
		return
	}

	if err := httputil.WriteCreated(w, order); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateOrder", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) Verify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.VerifyPaymentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	result, err := h.service.Verify(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Verify", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Verify", "operation", "WriteSuccess", "error", err)
	}
}

// Webhook runs behind the signature middleware, so the body is trusted.
func (h *PaymentHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.writeError(w, "Webhook", apperrors.InvalidInput("Failed to read request body"))
		return
	}

	if err := h.service.HandleWebhook(r.Context(), body); err != nil {
		h.writeError(w, "Webhook", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"status": "ok"}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/orders", h.CreateOrder)
	router.POST("/api/v1/payments/verify", h.Verify)

	webhook := middleware.WebhookSignature(SignatureHeader, h.verifyWebhook, h.log)(http.HandlerFunc(h.Webhook))
	router.Handler(http.MethodPost, "/api/v1/payments/webhook", webhook)
}

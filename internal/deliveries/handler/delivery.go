package handler

import (
	"net/http"
	"strings"

	"fleetlink/internal/deliveries/service"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type DeliveryHandler struct {
	service service.DeliveryService
	log     *logger.Logger
}

func NewDeliveryHandler(service service.DeliveryService, log *logger.Logger) *DeliveryHandler {
	return &DeliveryHandler{
		service: service,
		log:     log,
	}
}

func (h *DeliveryHandler) Quote(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.QuoteRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Quote", err)
		return
	}

	if err := httputil.WriteSuccess(w, quote); err != nil {
		h.log.Error("failed to write success response", "handler", "Quote", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeliveryHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var delivery model.PackageBooking
	if err := httputil.DecodeJSON(r, &delivery); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &delivery); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, delivery); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *DeliveryHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.DeliveryFilter{
		CustomerMobile: strings.TrimSpace(query.Get("customerMobile")),
		Status:         strings.TrimSpace(query.Get("status")),
	}

	deliveries, total, err := h.service.GetAll(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, deliveries, page, total, nil); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *DeliveryHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	delivery, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, delivery); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeliveryHandler) CancellationCheck(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	check, err := h.service.CancellationCheck(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "CancellationCheck", err)
		return
	}

	if err := httputil.WriteSuccess(w, check); err != nil {
		h.log.Error("failed to write success response", "handler", "CancellationCheck", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeliveryHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	delivery, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "Cancel", err)
		return
	}

	if err := httputil.WriteSuccess(w, delivery); err != nil {
		h.log.Error("failed to write success response", "handler", "Cancel", "operation", "WriteSuccess", "error", err)
	}
}

func (h *DeliveryHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *DeliveryHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/deliveries/quote", h.Quote)
	router.POST("/api/v1/deliveries", h.Create)
	router.GET("/api/v1/deliveries", h.GetAll)
	router.GET("/api/v1/deliveries/id/:id", h.GetByID)
	router.GET("/api/v1/deliveries/id/:id/cancellation", h.CancellationCheck)
	router.POST("/api/v1/deliveries/id/:id/cancel", h.Cancel)
}

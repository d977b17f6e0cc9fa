package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fleetlink/internal/bookings/export"
	"fleetlink/internal/bookings/service"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service service.BookingService
	log     *logger.Logger
}

func NewBookingHandler(service service.BookingService, log *logger.Logger) *BookingHandler {
	return &BookingHandler{
		service: service,
		log:     log,
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var booking model.Booking
	if err := httputil.DecodeJSON(r, &booking); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := h.service.Create(r.Context(), &booking); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, booking); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	bookings, total, summary, err := h.service.GetAll(r.Context(), filterFromQuery(r), page)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, bookings, page, total, summary); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var updates model.BookingUpdate
	if err := httputil.DecodeJSON(r, &updates); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	booking, err := h.service.Update(r.Context(), ps.ByName("id"), &updates)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.service.Delete(r.Context(), ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}
	httputil.WriteNoContent(w)
}

func (h *BookingHandler) Bulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BulkRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Bulk", err)
		return
	}

	result, err := h.service.Bulk(r.Context(), &req)
	if err != nil {
		h.writeError(w, "Bulk", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Bulk", "operation", "WriteSuccess", "error", err)
	}
}

// Export streams the filtered bookings as an XLSX attachment. The workbook
// is rendered into memory first so a failure can still produce a JSON error.
func (h *BookingHandler) Export(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.Export(r.Context(), filterFromQuery(r))
	if err != nil {
		h.writeError(w, "Export", err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, bookings); err != nil {
		h.log.Error("failed to render bookings export", "handler", "Export", "error", err)
		h.writeError(w, "Export", err)
		return
	}

	filename := fmt.Sprintf("bookings_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.log.Error("failed to write export", "handler", "Export", "error", err)
	}
}

func filterFromQuery(r *http.Request) model.BookingFilter {
	query := r.URL.Query()
	bookingType := strings.TrimSpace(query.Get("bookingType"))
	if bookingType == "" {
		bookingType = strings.TrimSpace(query.Get("deliveryType"))
	}
	return model.BookingFilter{
		CustomerEmail: strings.TrimSpace(query.Get("customerEmail")),
		VehicleID:     strings.TrimSpace(query.Get("vehicleId")),
		Status:        strings.TrimSpace(query.Get("status")),
		BookingType:   bookingType,
		SortBy:        query.Get("sortBy"),
		SortOrder:     query.Get("sortOrder"),
	}
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.Create)
	router.GET("/api/v1/bookings", h.GetAll)
	router.GET("/api/v1/bookings/export", h.Export)
	router.POST("/api/v1/bookings/bulk", h.Bulk)
	router.GET("/api/v1/bookings/id/:id", h.GetByID)
	router.PATCH("/api/v1/bookings/id/:id", h.Update)
	router.DELETE("/api/v1/bookings/id/:id", h.Delete)
}

package handler

import (
	"net/http"
	"strings"

	"fleetlink/internal/vehicles/service"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type VehicleHandler struct {
	service service.VehicleService
	log     *logger.Logger
}

func NewVehicleHandler(service service.VehicleService, log *logger.Logger) *VehicleHandler {
	return &VehicleHandler{
		service: service,
		log:     log,
	}
}

func (h *VehicleHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var vehicle model.Vehicle
	if err := httputil.DecodeJSON(r, &vehicle); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := h.service.Register(r.Context(), &vehicle); err != nil {
		h.writeError(w, "Register", err)
		return
	}

	if err := httputil.WriteCreated(w, vehicle); err != nil {
		h.log.Error("failed to write created response", "handler", "Register", "operation", "WriteCreated", "error", err)
	}
}

func (h *VehicleHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	vehicle, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, vehicle); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VehicleHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	page, err := httputil.ExtractPage(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	query := r.URL.Query()
	filter := model.VehicleFilter{
		City:          strings.TrimSpace(query.Get("city")),
		VehicleType:   strings.TrimSpace(query.Get("vehicleType")),
		Status:        strings.TrimSpace(query.Get("status")),
		VehicleNumber: strings.TrimSpace(query.Get("vehicleNumber")),
		SortBy:        query.Get("sortBy"),
		SortOrder:     query.Get("sortOrder"),
	}

	vehicles, total, summary, err := h.service.GetAll(r.Context(), filter, page)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, vehicles, page, total, summary); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *VehicleHandler) Bulk(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
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

func (h *VehicleHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	city := strings.TrimSpace(query.Get("city"))
	startStr := query.Get("startDate")
	endStr := query.Get("endDate")

	if city == "" || startStr == "" || endStr == "" {
		h.writeError(w, "Search", apperrors.InvalidInput("Missing required parameters: city, startDate, endDate"))
		return
	}

	start, err := httputil.ParseTime("startDate", startStr)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}
	end, err := httputil.ParseTime("endDate", endStr)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	result, err := h.service.Search(r.Context(), city, start, end)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, result); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func (h *VehicleHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *VehicleHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/vehicles", h.Register)
	router.GET("/api/v1/vehicles", h.GetAll)
	router.GET("/api/v1/vehicles/id/:id", h.GetByID)
	router.POST("/api/v1/vehicles/bulk", h.Bulk)
	router.GET("/api/v1/vehicles/search", h.Search)
}

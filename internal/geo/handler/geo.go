package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"fleetlink/internal/geo"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type GeoHandler struct {
	mapper geo.Mapper
	log    *logger.Logger
}

func NewGeoHandler(mapper geo.Mapper, log *logger.Logger) *GeoHandler {
	return &GeoHandler{
		mapper: mapper,
		log:    log,
	}
}

func (h *GeoHandler) Geocode(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	address := strings.TrimSpace(r.URL.Query().Get("address"))
	if address == "" {
		h.writeError(w, "Geocode", apperrors.InvalidInput("address is required"))
		return
	}

	location, err := h.mapper.Geocode(r.Context(), address)
	if err != nil {
		h.writeError(w, "Geocode", h.mapError(err, "Geocode"))
		return
	}

	if err := httputil.WriteSuccess(w, location); err != nil {
		h.log.Error("failed to write success response", "handler", "Geocode", "operation", "WriteSuccess", "error", err)
	}
}

func (h *GeoHandler) Reverse(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	query := r.URL.Query()
	lat, errLat := strconv.ParseFloat(query.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(query.Get("lng"), 64)
	if errLat != nil || errLng != nil || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		h.writeError(w, "Reverse", apperrors.InvalidInput("lat and lng must be valid coordinates"))
		return
	}

	address, err := h.mapper.ReverseGeocode(r.Context(), lat, lng)
	if err != nil {
		h.writeError(w, "Reverse", h.mapError(err, "Reverse"))
		return
	}

	if err := httputil.WriteSuccess(w, map[string]any{"address": address, "lat": lat, "lng": lng}); err != nil {
		h.log.Error("failed to write success response", "handler", "Reverse", "operation", "WriteSuccess", "error", err)
	}
}

func (h *GeoHandler) mapError(err error, handler string) error {
	switch {
	case errors.Is(err, geo.ErrNotConfigured):
		return apperrors.Unavailable("maps")
	case errors.Is(err, geo.ErrNotFound):
		return apperrors.NotFound("Location")
	default:
		h.log.Error("maps lookup failed", "handler", handler, "error", err)
		return apperrors.BadGateway("maps", err)
	}
}

func (h *GeoHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *GeoHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/geo/geocode", h.Geocode)
	router.GET("/api/v1/geo/reverse", h.Reverse)
}

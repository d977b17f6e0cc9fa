package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"fleetlink/internal/bookings/export"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// Mock service for testing
type mockBookingService struct {
	createFunc func(ctx context.Context, b *model.Booking) error
	getAllFunc func(ctx context.Context, f model.BookingFilter, page httputil.Page) ([]*model.Booking, int64, *model.BookingSummary, error)
	updateFunc func(ctx context.Context, id string, u *model.BookingUpdate) (*model.Booking, error)
	deleteFunc func(ctx context.Context, id string) error
	exportFunc func(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error)
}

func (m *mockBookingService) Create(ctx context.Context, b *model.Booking) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, b)
	}
	return nil
}

func (m *mockBookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	return &model.Booking{ID: id, Reference: "BK1"}, nil
}

func (m *mockBookingService) GetAll(ctx context.Context, f model.BookingFilter, page httputil.Page) ([]*model.Booking, int64, *model.BookingSummary, error) {
	if m.getAllFunc != nil {
		return m.getAllFunc(ctx, f, page)
	}
	return []*model.Booking{}, 0, &model.BookingSummary{}, nil
}

func (m *mockBookingService) Update(ctx context.Context, id string, u *model.BookingUpdate) (*model.Booking, error) {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, u)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockBookingService) Bulk(ctx context.Context, req *model.BulkRequest) (*model.BulkResult, error) {
	return &model.BulkResult{Action: req.Action, Affected: int64(len(req.IDs))}, nil
}

func (m *mockBookingService) Export(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
	if m.exportFunc != nil {
		return m.exportFunc(ctx, f)
	}
	return nil, nil
}

func (m *mockBookingService) RecordPayment(ctx context.Context, bookingID string, details model.PaymentDetails) error {
	return nil
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, logger.Discard()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCreate(t *testing.T) {
	router := newRouter(&mockBookingService{createFunc: func(ctx context.Context, b *model.Booking) error {
		if b.VehicleID == "busy" {
			return apperrors.Conflict("Vehicle is not available for the selected dates")
		}
		b.Reference = "BK1717236000000A1B2C"
		return nil
	}})

	w := serve(router, http.MethodPost, "/api/v1/bookings", `{"vehicleId":"v1","startDate":"2025-06-01T09:00:00Z"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var resp struct {
		Data model.Booking `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "BK1717236000000A1B2C", resp.Data.Reference)

	conflict := serve(router, http.MethodPost, "/api/v1/bookings", `{"vehicleId":"busy"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)

	malformed := serve(router, http.MethodPost, "/api/v1/bookings", `{"startDate":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, malformed.Code)
}

func TestGetAll_Filters(t *testing.T) {
	var got model.BookingFilter
	router := newRouter(&mockBookingService{getAllFunc: func(ctx context.Context, f model.BookingFilter, page httputil.Page) ([]*model.Booking, int64, *model.BookingSummary, error) {
		got = f
		return []*model.Booking{}, 0, &model.BookingSummary{}, nil
	}})

	w := serve(router, http.MethodGet, "/api/v1/bookings?customerEmail=asha@example.com&status=confirmed&deliveryType=package_delivery&sortBy=startDate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.BookingFilter{
		CustomerEmail: "asha@example.com",
		Status:        "confirmed",
		BookingType:   "package_delivery",
		SortBy:        "startDate",
	}, got)
}

func TestUpdateAndDelete(t *testing.T) {
	router := newRouter(&mockBookingService{
		updateFunc: func(ctx context.Context, id string, u *model.BookingUpdate) (*model.Booking, error) {
			if u.IsEmpty() {
				return nil, apperrors.InvalidInput("No fields to update")
			}
			return &model.Booking{ID: id, Status: u.Status}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			return apperrors.InvalidInput("Cannot delete completed bookings")
		},
	})

	ok := serve(router, http.MethodPatch, "/api/v1/bookings/id/665f1c2e9b1e8a3d4c2b1a01", `{"status":"cancelled"}`)
	assert.Equal(t, http.StatusOK, ok.Code)

	empty := serve(router, http.MethodPatch, "/api/v1/bookings/id/665f1c2e9b1e8a3d4c2b1a01", `{}`)
	assert.Equal(t, http.StatusBadRequest, empty.Code)

	del := serve(router, http.MethodDelete, "/api/v1/bookings/id/665f1c2e9b1e8a3d4c2b1a01", "")
	assert.Equal(t, http.StatusBadRequest, del.Code)
}

func TestExport(t *testing.T) {
	var got model.BookingFilter
	router := newRouter(&mockBookingService{exportFunc: func(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
		got = f
		return []*model.Booking{{Reference: "BK1", Status: "confirmed"}}, nil
	}})

	w := serve(router, http.MethodGet, "/api/v1/bookings/export?status=confirmed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "confirmed", got.Status)
	assert.Equal(t, export.ContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=\"bookings_")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(export.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestExport_ServiceError(t *testing.T) {
	router := newRouter(&mockBookingService{exportFunc: func(ctx context.Context, f model.BookingFilter) ([]*model.Booking, error) {
		return nil, apperrors.InvalidInput("invalid status filter: archived")
	}})

	w := serve(router, http.MethodGet, "/api/v1/bookings/export?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
}

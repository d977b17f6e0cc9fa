package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"fleetlink/internal/availability"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
	"fleetlink/pkg/validation"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

type mockVehicleRepository struct {
	createFunc         func(ctx context.Context, v *model.Vehicle) error
	findByIDFunc       func(ctx context.Context, id string) (*model.Vehicle, error)
	findAllFunc        func(ctx context.Context, f model.VehicleFilter, limit int, skip int64) ([]*model.Vehicle, error)
	countFunc          func(ctx context.Context, f model.VehicleFilter) (int64, error)
	nextBookingsFunc   func(ctx context.Context, ids []string, now time.Time) (map[string]*model.UpcomingBooking, error)
	findPaidByCityFunc func(ctx context.Context, city string) ([]*model.Vehicle, error)
	paidCitiesFunc     func(ctx context.Context) ([]string, error)
	updateStatusFunc   func(ctx context.Context, ids []string, status string) (int64, error)
	deleteManyFunc     func(ctx context.Context, ids []string) (int64, error)
}

func (m *mockVehicleRepository) Create(ctx context.Context, v *model.Vehicle) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, v)
	}
	v.ID = "665f1c2e9b1e8a3d4c2b1a00"
	return nil
}

func (m *mockVehicleRepository) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, vehicleserrors.ErrNotFound
}

func (m *mockVehicleRepository) FindAll(ctx context.Context, f model.VehicleFilter, limit int, skip int64) ([]*model.Vehicle, error) {
	if m.findAllFunc != nil {
		return m.findAllFunc(ctx, f, limit, skip)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockVehicleRepository) Count(ctx context.Context, f model.VehicleFilter) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, f)
	}
	return 0, nil
}

func (m *mockVehicleRepository) Summary(ctx context.Context, f model.VehicleFilter) (*model.VehicleSummary, error) {
	return &model.VehicleSummary{}, nil
}

func (m *mockVehicleRepository) NextBookings(ctx context.Context, ids []string, now time.Time) (map[string]*model.UpcomingBooking, error) {
	if m.nextBookingsFunc != nil {
		return m.nextBookingsFunc(ctx, ids, now)
	}
	return map[string]*model.UpcomingBooking{}, nil
}

func (m *mockVehicleRepository) FindPaidByCity(ctx context.Context, city string) ([]*model.Vehicle, error) {
	if m.findPaidByCityFunc != nil {
		return m.findPaidByCityFunc(ctx, city)
	}
	return []*model.Vehicle{}, nil
}

func (m *mockVehicleRepository) PaidCities(ctx context.Context) ([]string, error) {
	if m.paidCitiesFunc != nil {
		return m.paidCitiesFunc(ctx)
	}
	return []string{}, nil
}

func (m *mockVehicleRepository) UpdateStatus(ctx context.Context, ids []string, status string) (int64, error) {
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, ids, status)
	}
	return int64(len(ids)), nil
}

func (m *mockVehicleRepository) UpdateCity(ctx context.Context, ids []string, city string) (int64, error) {
	return int64(len(ids)), nil
}

func (m *mockVehicleRepository) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if m.deleteManyFunc != nil {
		return m.deleteManyFunc(ctx, ids)
	}
	return int64(len(ids)), nil
}

type mockChecker struct {
	checkFunc func(ctx context.Context, vehicleID string, start, end time.Time) (availability.Result, error)
}

func (m *mockChecker) Check(ctx context.Context, vehicleID string, start, end time.Time) (availability.Result, error) {
	if m.checkFunc != nil {
		return m.checkFunc(ctx, vehicleID, start, end)
	}
	return availability.Result{Available: true}, nil
}

func (m *mockChecker) CheckExcluding(ctx context.Context, vehicleID, bookingID string, start, end time.Time) (availability.Result, error) {
	return m.Check(ctx, vehicleID, start, end)
}

type stubVerifier bool

func (s stubVerifier) VerifyPayment(*model.PaymentDetails) bool { return bool(s) }

type windowSource map[string][]model.BookingWindow

func (s windowSource) ActiveWindows(ctx context.Context, vehicleID string) ([]model.BookingWindow, error) {
	return s[vehicleID], nil
}

var fixedNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Log:               logger.Discard(),
		ReadTimeout:       5 * time.Second,
		SearchConcurrency: 4,
	}
}

func newTestService(repo *mockVehicleRepository, checker availability.Checker, verified bool) *vehicleService {
	cfg := testConfig()
	svc := NewVehicleService(repo, checker, stubVerifier(verified), validator.NewVehicleValidator(validation.New(cfg.Log)), cfg).(*vehicleService)
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func validVehicle() *model.Vehicle {
	return &model.Vehicle{
		VehicleNumber:       "mh 12 ab 1234",
		VehicleRC:           "https://files.example.com/rc/1234.pdf",
		City:                "  New   Delhi ",
		VehicleType:         "Mini Truck",
		TyreCondition:       "Good",
		LoadCapacity:        "1.5 tonnes",
		DriverName:          "Ravi Kumar",
		DriverLicenceNumber: "DL-0420110012345",
		DriverLicence:       "https://files.example.com/dl/12345.pdf",
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s, got %v", code, err)
	}
}

// ────────────────────────────────────────────────
// Register
// ────────────────────────────────────────────────

func TestRegister_AppliesDefaultsAndSanitizes(t *testing.T) {
	var stored *model.Vehicle
	repo := &mockVehicleRepository{createFunc: func(ctx context.Context, v *model.Vehicle) error {
		stored = v
		v.ID = "665f1c2e9b1e8a3d4c2b1a00"
		return nil
	}}
	svc := newTestService(repo, &mockChecker{}, true)

	v := validVehicle()
	if err := svc.Register(context.Background(), v); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != config.VehicleStatusFree {
		t.Errorf("expected default status free, got %s", stored.Status)
	}
	if stored.VehicleNumber != "MH12AB1234" {
		t.Errorf("vehicle number not normalized: %s", stored.VehicleNumber)
	}
	if stored.City != "New Delhi" || stored.CityKey != "new_delhi" {
		t.Errorf("unexpected city %q key %q", stored.City, stored.CityKey)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	repo := &mockVehicleRepository{createFunc: func(ctx context.Context, v *model.Vehicle) error {
		return fmt.Errorf("%w: %s", vehicleserrors.ErrDuplicateNumber, v.VehicleNumber)
	}}
	svc := newTestService(repo, &mockChecker{}, true)

	assertCode(t, svc.Register(context.Background(), validVehicle()), apperrors.CodeConflict)
}

func TestRegister_MissingFields(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)
	v := validVehicle()
	v.DriverLicence = ""

	err := svc.Register(context.Background(), v)
	assertCode(t, err, apperrors.CodeValidation)
}

func TestRegister_PaymentSignature(t *testing.T) {
	payment := &model.PaymentDetails{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}

	t.Run("invalid signature", func(t *testing.T) {
		svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, false)
		v := validVehicle()
		v.OneTimeRegistration = true
		v.PaymentDetails = payment
		assertCode(t, svc.Register(context.Background(), v), apperrors.CodeInvalidInput)
	})

	t.Run("verified one time registration is paid", func(t *testing.T) {
		svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)
		v := validVehicle()
		v.OneTimeRegistration = true
		v.PaymentDetails = payment
		if err := svc.Register(context.Background(), v); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v.Status != config.VehicleStatusPaid {
			t.Errorf("expected paid status, got %s", v.Status)
		}
	})

	t.Run("paid status without payment", func(t *testing.T) {
		svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)
		v := validVehicle()
		v.Status = config.VehicleStatusPaid
		assertCode(t, svc.Register(context.Background(), v), apperrors.CodeInvalidInput)
	})
}

// ────────────────────────────────────────────────
// GetByID / GetAll
// ────────────────────────────────────────────────

func TestGetByID_NotFound(t *testing.T) {
	repo := &mockVehicleRepository{findByIDFunc: func(ctx context.Context, id string) (*model.Vehicle, error) {
		return nil, fmt.Errorf("%w: %s", vehicleserrors.ErrNotFound, id)
	}}
	svc := newTestService(repo, &mockChecker{}, true)

	_, err := svc.GetByID(context.Background(), "665f1c2e9b1e8a3d4c2b1a00")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestGetAll_AttachesNextBooking(t *testing.T) {
	start := fixedNow.Add(24 * time.Hour)
	repo := &mockVehicleRepository{
		countFunc: func(ctx context.Context, f model.VehicleFilter) (int64, error) { return 2, nil },
		findAllFunc: func(ctx context.Context, f model.VehicleFilter, limit int, skip int64) ([]*model.Vehicle, error) {
			if limit != 20 || skip != 20 {
				t.Errorf("expected limit 20 skip 20, got %d %d", limit, skip)
			}
			return []*model.Vehicle{{ID: "a"}, {ID: "b"}}, nil
		},
		nextBookingsFunc: func(ctx context.Context, ids []string, now time.Time) (map[string]*model.UpcomingBooking, error) {
			if !now.Equal(fixedNow) {
				t.Errorf("expected now %v, got %v", fixedNow, now)
			}
			return map[string]*model.UpcomingBooking{"b": {Reference: "BK1", StartDate: start}}, nil
		},
	}
	svc := newTestService(repo, &mockChecker{}, true)

	vehicles, total, summary, err := svc.GetAll(context.Background(), model.VehicleFilter{}, httputil.Page{Page: 2, Limit: 20})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 || summary == nil {
		t.Errorf("unexpected total %d summary %v", total, summary)
	}
	if vehicles[0].NextBooking != nil || vehicles[1].NextBooking == nil || vehicles[1].NextBooking.Reference != "BK1" {
		t.Errorf("next bookings not attached correctly: %+v %+v", vehicles[0].NextBooking, vehicles[1].NextBooking)
	}
}

func TestGetAll_InvalidStatus(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)
	_, _, _, err := svc.GetAll(context.Background(), model.VehicleFilter{Status: "sold"}, httputil.Page{Page: 1, Limit: 50})
	assertCode(t, err, apperrors.CodeInvalidInput)
}

func TestGetAll_RepositoryFailure(t *testing.T) {
	repo := &mockVehicleRepository{countFunc: func(ctx context.Context, f model.VehicleFilter) (int64, error) {
		return 0, errors.New("connection reset")
	}}
	svc := newTestService(repo, &mockChecker{}, true)
	_, _, _, err := svc.GetAll(context.Background(), model.VehicleFilter{}, httputil.Page{Page: 1, Limit: 50})
	assertCode(t, err, apperrors.CodeInternal)
}

// ────────────────────────────────────────────────
// Bulk
// ────────────────────────────────────────────────

func TestBulk(t *testing.T) {
	ids := []string{"665f1c2e9b1e8a3d4c2b1a00", "665f1c2e9b1e8a3d4c2b1a01"}

	tests := []struct {
		name     string
		req      model.BulkRequest
		wantCode string
		affected int64
	}{
		{"unknown action", model.BulkRequest{Action: "archive", IDs: ids}, apperrors.CodeInvalidInput, 0},
		{"status missing", model.BulkRequest{Action: config.BulkActionUpdateStatus, IDs: ids}, apperrors.CodeInvalidInput, 0},
		{"bad status", model.BulkRequest{Action: config.BulkActionUpdateStatus, IDs: ids, UpdateData: map[string]string{"status": "sold"}}, apperrors.CodeInvalidInput, 0},
		{"city missing", model.BulkRequest{Action: config.BulkActionUpdateCity, IDs: ids, UpdateData: map[string]string{"city": " "}}, apperrors.CodeInvalidInput, 0},
		{"no ids", model.BulkRequest{Action: config.BulkActionDelete}, apperrors.CodeValidation, 0},
		{"bad id", model.BulkRequest{Action: config.BulkActionDelete, IDs: []string{"nope"}}, apperrors.CodeValidation, 0},
		{"update status", model.BulkRequest{Action: config.BulkActionUpdateStatus, IDs: ids, UpdateData: map[string]string{"status": "maintenance"}}, "", 2},
		{"update city", model.BulkRequest{Action: config.BulkActionUpdateCity, IDs: ids, UpdateData: map[string]string{"city": "Pune"}}, "", 2},
		{"delete", model.BulkRequest{Action: config.BulkActionDelete, IDs: ids[:1]}, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)
			result, err := svc.Bulk(context.Background(), &tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Affected != tt.affected || result.Action != tt.req.Action {
				t.Errorf("unexpected result %+v", result)
			}
		})
	}
}

// ────────────────────────────────────────────────
// Search
// ────────────────────────────────────────────────

func paidVehicles(ids ...string) func(ctx context.Context, city string) ([]*model.Vehicle, error) {
	return func(ctx context.Context, city string) ([]*model.Vehicle, error) {
		vehicles := make([]*model.Vehicle, len(ids))
		for i, id := range ids {
			vehicles[i] = &model.Vehicle{ID: id, VehicleNumber: "MH12AB000" + id, City: city, Status: config.VehicleStatusPaid}
		}
		return vehicles, nil
	}
}

func TestSearch_UsesConflictChecker(t *testing.T) {
	existingStart := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	existingEnd := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	source := windowSource{
		"1": {{ID: "bk-1", Status: config.Confirmed, Start: &existingStart, End: &existingEnd}},
	}
	checker := availability.NewChecker(source, config.DefaultBookingFallbackDuration, logger.Discard())
	repo := &mockVehicleRepository{findPaidByCityFunc: paidVehicles("1", "2")}
	svc := newTestService(repo, checker, true)

	overlapping, err := svc.Search(context.Background(), "Pune",
		time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if overlapping.TotalFound != 2 || overlapping.TotalAvailable != 1 || overlapping.Vehicles[0].ID != "2" {
		t.Errorf("expected only vehicle 2 available, got %+v", overlapping)
	}

	touching, err := svc.Search(context.Background(), "Pune",
		time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if touching.TotalAvailable != 2 {
		t.Errorf("back to back window should leave both vehicles available, got %d", touching.TotalAvailable)
	}
	if touching.Vehicles[0].ID != "1" || touching.Vehicles[1].ID != "2" {
		t.Error("result order must follow the repository order")
	}
}

func TestSearch_NoVehiclesListsCities(t *testing.T) {
	repo := &mockVehicleRepository{
		paidCitiesFunc: func(ctx context.Context) ([]string, error) { return []string{"Mumbai", "Pune"}, nil },
	}
	svc := newTestService(repo, &mockChecker{}, true)

	result, err := svc.Search(context.Background(), "Atlantis",
		time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.AvailableCities) != 2 || result.Message == "" || len(result.Vehicles) != 0 {
		t.Errorf("unexpected result %+v", result)
	}
}

func TestSearch_InvalidWindow(t *testing.T) {
	svc := newTestService(&mockVehicleRepository{}, &mockChecker{}, true)

	tests := []struct {
		name       string
		city       string
		start, end time.Time
	}{
		{"past start", "Pune", fixedNow.Add(-48 * time.Hour), fixedNow.Add(time.Hour)},
		{"end equals start", "Pune", fixedNow.Add(time.Hour), fixedNow.Add(time.Hour)},
		{"blank city", "  ", fixedNow.Add(time.Hour), fixedNow.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Search(context.Background(), tt.city, tt.start, tt.end)
			assertCode(t, err, apperrors.CodeInvalidInput)
		})
	}
}

func TestSearch_BoundedConcurrency(t *testing.T) {
	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprint(i)
	}

	var inFlight, peak atomic.Int32
	var mu sync.Mutex
	checked := map[string]bool{}
	checker := &mockChecker{checkFunc: func(ctx context.Context, vehicleID string, start, end time.Time) (availability.Result, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)

		mu.Lock()
		checked[vehicleID] = true
		mu.Unlock()
		return availability.Result{Available: true}, nil
	}}
	svc := newTestService(&mockVehicleRepository{findPaidByCityFunc: paidVehicles(ids...)}, checker, true)

	result, err := svc.Search(context.Background(), "Pune", fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalAvailable != 20 || len(checked) != 20 {
		t.Errorf("expected all 20 vehicles checked and available, got %d/%d", len(checked), result.TotalAvailable)
	}
	if peak.Load() > 4 {
		t.Errorf("expected at most 4 concurrent checks, saw %d", peak.Load())
	}
}

func TestSearch_CheckerFailure(t *testing.T) {
	checker := &mockChecker{checkFunc: func(ctx context.Context, vehicleID string, start, end time.Time) (availability.Result, error) {
		if vehicleID == "2" {
			return availability.Result{}, errors.New("server selection error")
		}
		return availability.Result{Available: true}, nil
	}}
	svc := newTestService(&mockVehicleRepository{findPaidByCityFunc: paidVehicles("1", "2")}, checker, true)

	_, err := svc.Search(context.Background(), "Pune", fixedNow.Add(time.Hour), fixedNow.Add(2*time.Hour))
	assertCode(t, err, apperrors.CodeInternal)
}

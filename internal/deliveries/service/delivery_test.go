package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"fleetlink/internal/availability"
	deliverieserrors "fleetlink/internal/deliveries/errors"
	"fleetlink/internal/deliveries/validator"
	"fleetlink/internal/events"
	"fleetlink/internal/geo"
	"fleetlink/internal/locks"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sealer"
	"fleetlink/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ────────────────────────────────────────────────
// Mocks
// ────────────────────────────────────────────────

// memDeliveryRepository keeps package bookings and vehicle bookings in
// memory. It is also the availability source for the guard.
type memDeliveryRepository struct {
	mu         sync.Mutex
	deliveries map[string]*model.PackageBooking
	bookings   map[string]*model.Booking
	seq        int
	lastFilter model.DeliveryFilter
}

func newMemRepo(bookings ...*model.Booking) *memDeliveryRepository {
	r := &memDeliveryRepository{
		deliveries: map[string]*model.PackageBooking{},
		bookings:   map[string]*model.Booking{},
	}
	for _, b := range bookings {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *memDeliveryRepository) nextID() string {
	r.seq++
	return fmt.Sprintf("665f1c2e9b1e8a3d4c2b1a%02d", r.seq)
}

func (r *memDeliveryRepository) Create(ctx context.Context, d *model.PackageBooking, b *model.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	d.ID = r.nextID()
	b.ID = r.nextID()
	b.PackageBookingID = d.ID
	d.VehicleBookingID = b.ID
	r.deliveries[d.ID] = d
	r.bookings[b.ID] = b
	return nil
}

func (r *memDeliveryRepository) FindByID(ctx context.Context, id string) (*model.PackageBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.deliveries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", deliverieserrors.ErrNotFound, id)
	}
	return d, nil
}

func (r *memDeliveryRepository) FindAll(ctx context.Context, f model.DeliveryFilter, limit int, skip int64) ([]*model.PackageBooking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastFilter = f
	out := []*model.PackageBooking{}
	for _, d := range r.deliveries {
		if f.CustomerMobile != "" && d.Pickup.Mobile != f.CustomerMobile && d.Drop.Mobile != f.CustomerMobile {
			continue
		}
		if f.Status != "" && d.Status != f.Status {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *memDeliveryRepository) Count(ctx context.Context, f model.DeliveryFilter) (int64, error) {
	all, _ := r.FindAll(ctx, f, 0, 0)
	return int64(len(all)), nil
}

func (r *memDeliveryRepository) Cancel(ctx context.Context, d *model.PackageBooking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !cancellable(d.Status) {
		return fmt.Errorf("%w: %s", deliverieserrors.ErrNotCancellable, d.ID)
	}
	d.Status = config.Cancelled
	if b, ok := r.bookings[d.VehicleBookingID]; ok {
		b.Status = config.Cancelled
	}
	return nil
}

func (r *memDeliveryRepository) ActiveWindows(ctx context.Context, vehicleID string) ([]model.BookingWindow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var windows []model.BookingWindow
	for _, b := range r.bookings {
		if b.VehicleID != vehicleID || !b.IsActive() {
			continue
		}
		start := b.StartDate
		windows = append(windows, model.BookingWindow{ID: b.ID, Status: b.Status, Start: &start, End: b.EndDate})
	}
	return windows, nil
}

type tripFunc func(pickup, drop *model.Stop) geo.Trip

func (f tripFunc) Trip(ctx context.Context, pickup, drop *model.Stop) geo.Trip {
	return f(pickup, drop)
}

type vehicleFinderFunc func(ctx context.Context, id string) (*model.Vehicle, error)

func (f vehicleFinderFunc) FindByID(ctx context.Context, id string) (*model.Vehicle, error) {
	return f(ctx, id)
}

type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *memLocker) Acquire(ctx context.Context, vehicleID string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[vehicleID] {
		return "", locks.ErrLocked
	}
	l.held[vehicleID] = true
	return vehicleID, nil
}

func (l *memLocker) Release(ctx context.Context, vehicleID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, vehicleID)
	return nil
}

type recordingPublisher struct {
	events.Publisher
	mu        sync.Mutex
	created   []*model.Booking
	cancelled []*model.Booking
}

func (p *recordingPublisher) BookingCreated(ctx context.Context, b *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, b)
}

func (p *recordingPublisher) BookingCancelled(ctx context.Context, b *model.Booking) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelled = append(p.cancelled, b)
}

type stubVerifier bool

func (s stubVerifier) VerifyPayment(*model.PaymentDetails) bool { return bool(s) }

// ────────────────────────────────────────────────
// Fixtures
// ────────────────────────────────────────────────

const vehicleID = "665f1c2e9b1e8a3d4c2b1aff"

var fixedNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

// tenKm is the trip every fixture estimator returns.
var tenKm = geo.Trip{DistanceKm: 10, DurationMinutes: 24, EstimatedTime: "24m", Source: geo.SourceFallback}

type fixture struct {
	svc       *deliveryService
	repo      *memDeliveryRepository
	locker    *memLocker
	publisher *recordingPublisher
}

func newFixture(t *testing.T, repo *memDeliveryRepository) *fixture {
	t.Helper()
	cfg := &config.Config{
		Log:                     logger.Discard(),
		ReadTimeout:             5 * time.Second,
		QuoteTTL:                config.DefaultQuoteTTL,
		BookingFallbackDuration: config.DefaultBookingFallbackDuration,
		Tariff:                  config.DefaultTariff(),
	}
	vehicles := vehicleFinderFunc(func(ctx context.Context, id string) (*model.Vehicle, error) {
		if id != vehicleID {
			return nil, fmt.Errorf("%w: %s", vehicleserrors.ErrNotFound, id)
		}
		return &model.Vehicle{ID: vehicleID, VehicleNumber: "MH12AB1234", City: "Pune", VehicleType: "Mini Truck"}, nil
	})
	s, err := sealer.New("")
	require.NoError(t, err)

	locker := &memLocker{}
	checker := availability.NewChecker(repo, cfg.BookingFallbackDuration, cfg.Log)
	publisher := &recordingPublisher{}

	svc := NewDeliveryService(
		repo,
		vehicles,
		availability.NewGuard(locker, checker, cfg.Log),
		tripFunc(func(_, _ *model.Stop) geo.Trip { return tenKm }),
		s,
		stubVerifier(true),
		publisher,
		validator.NewDeliveryValidator(validation.New(cfg.Log)),
		cfg,
	).(*deliveryService)
	svc.now = func() time.Time { return fixedNow }
	return &fixture{svc: svc, repo: repo, locker: locker, publisher: publisher}
}

func at(day, hour int) time.Time {
	return time.Date(2025, 6, day, hour, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func newDelivery(start time.Time) *model.PackageBooking {
	return &model.PackageBooking{
		Pickup: model.Stop{
			ManualAddress: "Shop 4, FC Road, Pune",
			Name:          "Asha Rao",
			Mobile:        "+91 98765 43210",
		},
		Drop: model.Stop{
			MapLocation: &model.MapLocation{Address: "Kharadi, Pune", Lat: 18.55, Lng: 73.94},
			Name:        "Vikram",
			Mobile:      "+919812345678",
		},
		Package:            model.Package{Type: "Documents", Weight: 5},
		AssignedVehicleID:  vehicleID,
		EstimatedStartTime: start,
	}
}

func quoteRequest() *model.QuoteRequest {
	d := newDelivery(at(1, 9))
	return &model.QuoteRequest{Pickup: d.Pickup, Drop: d.Drop, Package: d.Package}
}

// ────────────────────────────────────────────────
// Pricing and quotes
// ────────────────────────────────────────────────

func TestPrice(t *testing.T) {
	tests := []struct {
		name                 string
		km                   int
		kg                   float64
		shipping, gst, total float64
	}{
		{"ten km five kg", 10, 5, 145, 26, 171},
		{"fractional weight rounds", 12, 2.5, 154, 28, 182},
		{"minimum fallback distance", 5, 0.2, 91, 16, 107},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			est := Price(config.DefaultTariff(), geo.Trip{DistanceKm: tt.km}, tt.kg)
			assert.Equal(t, tt.shipping, est.ShippingCharges)
			assert.Equal(t, tt.gst, est.GST)
			assert.Equal(t, tt.total, est.TotalAmount)
		})
	}
}

func TestQuote(t *testing.T) {
	f := newFixture(t, newMemRepo())

	quote, err := f.svc.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	assert.Equal(t, 171.0, quote.Estimation.TotalAmount)
	assert.Equal(t, 24, quote.Estimation.DurationMinutes)
	assert.Equal(t, "INR", quote.Currency)
	assert.Equal(t, fixedNow.Add(30*time.Minute), quote.ExpiresAt)

	var claims quoteClaims
	require.NoError(t, f.svc.sealer.OpenJSON(quote.Token, &claims))
	assert.Equal(t, quote.Estimation, claims.Estimation)
	assert.Equal(t, quote.ExpiresAt.Unix(), claims.ExpiresAt)
	assert.Len(t, claims.Digest, 64)
}

func TestQuote_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *model.QuoteRequest)
	}{
		{"no pickup address", func(r *model.QuoteRequest) { r.Pickup.ManualAddress = "" }},
		{"no drop address", func(r *model.QuoteRequest) { r.Drop.MapLocation = nil }},
		{"zero weight", func(r *model.QuoteRequest) { r.Package.Weight = 0 }},
		{"bad delivery type", func(r *model.QuoteRequest) { r.DeliveryType = "overnight" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newMemRepo())
			req := quoteRequest()
			tt.mutate(req)
			_, err := f.svc.Quote(context.Background(), req)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "got %v", err)
		})
	}
}

// ────────────────────────────────────────────────
// Create
// ────────────────────────────────────────────────

func TestCreate_Success(t *testing.T) {
	f := newFixture(t, newMemRepo())
	d := newDelivery(at(1, 9))
	d.Estimation = model.Estimation{TotalAmount: 1}

	require.NoError(t, f.svc.Create(context.Background(), d))

	assert.Regexp(t, `^PKG\d{13}[0-9A-F]{5}$`, d.Reference)
	assert.Equal(t, config.Confirmed, d.Status)
	assert.Equal(t, config.PaymentPending, d.PaymentStatus)
	assert.Equal(t, "standard", d.DeliveryType)
	assert.Equal(t, "+919876543210", d.Pickup.Mobile)
	assert.Equal(t, 171.0, d.Estimation.TotalAmount, "client estimation must be recomputed")
	require.NotNil(t, d.EstimatedEndTime)
	assert.Equal(t, at(1, 15), *d.EstimatedEndTime, "end defaults to start plus the fallback duration")
	require.NotNil(t, d.AssignedVehicle)
	assert.Equal(t, "MH12AB1234", d.AssignedVehicle.VehicleNumber)

	b := f.repo.bookings[d.VehicleBookingID]
	require.NotNil(t, b)
	assert.Equal(t, config.BookingTypePackageDelivery, b.BookingType)
	assert.Equal(t, config.Confirmed, b.Status)
	assert.Equal(t, d.ID, b.PackageBookingID)
	assert.Equal(t, "+919876543210@package.delivery", b.CustomerEmail)
	assert.Equal(t, "Package Delivery - Documents", b.Purpose)
	assert.Equal(t, "Kharadi, Pune", b.DropoffLocation)
	assert.Regexp(t, `^BK`, b.Reference)

	require.Len(t, f.publisher.created, 1)
	assert.Same(t, b, f.publisher.created[0])
	assert.Empty(t, f.locker.held)
}

func TestCreate_QuoteToken(t *testing.T) {
	f := newFixture(t, newMemRepo())
	quote, err := f.svc.Quote(context.Background(), quoteRequest())
	require.NoError(t, err)

	f.svc.estimator = tripFunc(func(_, _ *model.Stop) geo.Trip {
		return geo.Trip{DistanceKm: 40, Source: geo.SourceFallback}
	})

	d := newDelivery(at(1, 9))
	d.QuoteToken = quote.Token
	require.NoError(t, f.svc.Create(context.Background(), d))
	assert.Equal(t, quote.Estimation, d.Estimation, "a valid quote fixes the price")

	expired := newDelivery(at(2, 9))
	expired.QuoteToken = quote.Token
	f.svc.now = func() time.Time { return fixedNow.Add(31 * time.Minute) }
	err = f.svc.Create(context.Background(), expired)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "expired quote, got %v", err)

	forged := newDelivery(at(3, 9))
	forged.QuoteToken = quote.Token + "AA"
	err = f.svc.Create(context.Background(), forged)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "forged quote, got %v", err)
}

func TestCreate_QuoteTokenBoundToShipment(t *testing.T) {
	f := newFixture(t, newMemRepo())
	req := quoteRequest()
	req.Package.Weight = 100
	req.Package.WeightUnit = "grams"
	quote, err := f.svc.Quote(context.Background(), req)
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(d *model.PackageBooking)
	}{
		{"heavier package", func(d *model.PackageBooking) { d.Package.Weight = 900; d.Package.WeightUnit = "kg" }},
		{"different pickup", func(d *model.PackageBooking) { d.Pickup.ManualAddress = "Airport Road, Lohegaon" }},
		{"moved drop pin", func(d *model.PackageBooking) { d.Drop.MapLocation.Lat = 19.07 }},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDelivery(at(i+1, 9))
			d.Package = req.Package
			d.QuoteToken = quote.Token
			tt.mutate(d)
			err := f.svc.Create(context.Background(), d)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)
		})
	}
	assert.Empty(t, f.repo.deliveries)

	same := newDelivery(at(5, 9))
	same.Package = model.Package{Type: "Documents", Weight: 0.1}
	same.QuoteToken = quote.Token
	require.NoError(t, f.svc.Create(context.Background(), same), "100 grams and 0.1 kg are the same shipment")
	assert.Equal(t, quote.Estimation, same.Estimation)
}

func TestCreate_Conflicts(t *testing.T) {
	tests := []struct {
		name         string
		existing     *model.Booking
		wantConflict bool
	}{
		{
			name:         "overlapping vehicle booking",
			existing:     &model.Booking{ID: "b1", VehicleID: vehicleID, Status: config.Confirmed, StartDate: at(1, 12), EndDate: ptr(at(1, 18))},
			wantConflict: true,
		},
		{
			name:         "open ended booking uses fallback",
			existing:     &model.Booking{ID: "b1", VehicleID: vehicleID, Status: config.Pending, StartDate: at(1, 4)},
			wantConflict: true,
		},
		{
			name:     "ends when delivery starts",
			existing: &model.Booking{ID: "b1", VehicleID: vehicleID, Status: config.Confirmed, StartDate: at(1, 3), EndDate: ptr(at(1, 9))},
		},
		{
			name:     "completed booking ignored",
			existing: &model.Booking{ID: "b1", VehicleID: vehicleID, Status: config.Completed, StartDate: at(1, 9), EndDate: ptr(at(1, 12))},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newMemRepo(tt.existing))
			d := newDelivery(at(1, 9))
			err := f.svc.Create(context.Background(), d)
			if !tt.wantConflict {
				require.NoError(t, err)
				return
			}
			require.True(t, apperrors.HasCode(err, apperrors.CodeConflict), "expected conflict, got %v", err)
			assert.Empty(t, f.repo.deliveries)
			assert.Empty(t, f.publisher.created)
		})
	}
}

func TestCreate_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(d *model.PackageBooking)
		verifier stubVerifier
		wantCode string
	}{
		{"pickup in past", func(d *model.PackageBooking) { d.EstimatedStartTime = fixedNow.Add(-time.Minute) }, true, apperrors.CodeInvalidInput},
		{"end before start", func(d *model.PackageBooking) { d.EstimatedEndTime = ptr(at(1, 8)) }, true, apperrors.CodeInvalidInput},
		{"no drop address", func(d *model.PackageBooking) { d.Drop.MapLocation = nil }, true, apperrors.CodeValidation},
		{"missing pickup name", func(d *model.PackageBooking) { d.Pickup.Name = "" }, true, apperrors.CodeValidation},
		{"zero weight", func(d *model.PackageBooking) { d.Package.Weight = 0 }, true, apperrors.CodeValidation},
		{"bad vehicle id", func(d *model.PackageBooking) { d.AssignedVehicleID = "truck-7" }, true, apperrors.CodeValidation},
		{"unknown vehicle", func(d *model.PackageBooking) { d.AssignedVehicleID = "665f1c2e9b1e8a3d4c2b1a99" }, true, apperrors.CodeNotFound},
		{"vehicle type mismatch", func(d *model.PackageBooking) { d.RequiredVehicleType = "Trailer" }, true, apperrors.CodeInvalidInput},
		{"paid without details", func(d *model.PackageBooking) { d.PaymentStatus = config.PaymentPaid }, true, apperrors.CodeInvalidInput},
		{
			"forged signature",
			func(d *model.PackageBooking) {
				d.PaymentDetails = &model.PaymentDetails{OrderID: "order_1", PaymentID: "pay_1", Signature: "forged"}
			},
			false,
			apperrors.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, newMemRepo())
			f.svc.payments = tt.verifier
			d := newDelivery(at(1, 9))
			tt.mutate(d)
			err := f.svc.Create(context.Background(), d)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "expected %s, got %v", tt.wantCode, err)
			assert.Empty(t, f.repo.deliveries)
		})
	}
}

func TestCreate_Paid(t *testing.T) {
	f := newFixture(t, newMemRepo())
	d := newDelivery(at(1, 9))
	d.PaymentStatus = config.PaymentPaid
	d.PaymentDetails = &model.PaymentDetails{OrderID: "order_1", PaymentID: "pay_1", Signature: "sig"}

	require.NoError(t, f.svc.Create(context.Background(), d))
	assert.Equal(t, config.PaymentPaid, d.PaymentStatus)
	assert.Equal(t, config.PaymentPaid, f.repo.bookings[d.VehicleBookingID].PaymentStatus)
}

func TestCreate_VehicleLocked(t *testing.T) {
	f := newFixture(t, newMemRepo())
	f.locker.held = map[string]bool{vehicleID: true}

	err := f.svc.Create(context.Background(), newDelivery(at(1, 9)))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
	assert.Empty(t, f.repo.deliveries)
}

// ────────────────────────────────────────────────
// Listing and cancellation
// ────────────────────────────────────────────────

func TestGetAll(t *testing.T) {
	f := newFixture(t, newMemRepo())
	require.NoError(t, f.svc.Create(context.Background(), newDelivery(at(1, 9))))
	require.NoError(t, f.svc.Create(context.Background(), newDelivery(at(2, 9))))

	page := httputil.Page{Page: 1, Limit: 10}
	deliveries, total, err := f.svc.GetAll(context.Background(), model.DeliveryFilter{CustomerMobile: "+91 98123 45678"}, page)
	require.NoError(t, err)
	assert.Equal(t, "+919812345678", f.repo.lastFilter.CustomerMobile, "mobile filter is normalized")
	assert.Len(t, deliveries, 2)
	assert.EqualValues(t, 2, total)

	_, _, err = f.svc.GetAll(context.Background(), model.DeliveryFilter{Status: "lost"}, page)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestCancellationCheck(t *testing.T) {
	f := newFixture(t, newMemRepo())
	d := newDelivery(at(1, 9))
	require.NoError(t, f.svc.Create(context.Background(), d))

	check, err := f.svc.CancellationCheck(context.Background(), d.ID)
	require.NoError(t, err)
	assert.True(t, check.CanCancel)
	require.NotNil(t, check.HoursUntilStart)
	assert.Equal(t, 45, *check.HoursUntilStart)
	assert.Equal(t, "Booking can be cancelled", check.Reason)

	d.Status = config.Completed
	check, err = f.svc.CancellationCheck(context.Background(), d.ID)
	require.NoError(t, err)
	assert.False(t, check.CanCancel)
	assert.Equal(t, "Cannot cancel completed booking", check.Reason)

	_, err = f.svc.CancellationCheck(context.Background(), "665f1c2e9b1e8a3d4c2b1a99")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestCancel(t *testing.T) {
	f := newFixture(t, newMemRepo())
	d := newDelivery(at(1, 9))
	require.NoError(t, f.svc.Create(context.Background(), d))

	cancelled, err := f.svc.Cancel(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, config.Cancelled, cancelled.Status)
	assert.Equal(t, config.Cancelled, f.repo.bookings[d.VehicleBookingID].Status)
	require.Len(t, f.publisher.cancelled, 1)
	assert.Equal(t, config.Cancelled, f.publisher.cancelled[0].Status)

	require.NoError(t, f.svc.Create(context.Background(), newDelivery(at(1, 9))), "cancelling frees the vehicle")

	_, err = f.svc.Cancel(context.Background(), d.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "already cancelled")
}

func TestCancel_Completed(t *testing.T) {
	f := newFixture(t, newMemRepo())
	d := newDelivery(at(1, 9))
	require.NoError(t, f.svc.Create(context.Background(), d))
	d.Status = config.Completed

	_, err := f.svc.Cancel(context.Background(), d.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.Empty(t, f.publisher.cancelled)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"fleetlink/internal/availability"
	deliverieserrors "fleetlink/internal/deliveries/errors"
	"fleetlink/internal/deliveries/repository"
	"fleetlink/internal/deliveries/validator"
	"fleetlink/internal/events"
	"fleetlink/internal/geo"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/sealer"
	"fleetlink/pkg/validation"
)

type DeliveryService interface {
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error)
	Create(ctx context.Context, delivery *model.PackageBooking) error
	GetByID(ctx context.Context, id string) (*model.PackageBooking, error)
	GetAll(ctx context.Context, filter model.DeliveryFilter, page httputil.Page) ([]*model.PackageBooking, int64, error)
	CancellationCheck(ctx context.Context, id string) (*model.CancellationCheck, error)
	Cancel(ctx context.Context, id string) (*model.PackageBooking, error)
}

type TripEstimator interface {
	Trip(ctx context.Context, pickup, drop *model.Stop) geo.Trip
}

type VehicleFinder interface {
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
}

type PaymentVerifier interface {
	VerifyPayment(details *model.PaymentDetails) bool
}

// quoteClaims is the sealed content of a quote token. Digest binds the
// token to the stops and package it was priced for.
type quoteClaims struct {
	Estimation model.Estimation `json:"e"`
	ExpiresAt  int64            `json:"x"`
	Digest     string           `json:"d"`
}

type deliveryService struct {
	repo      repository.DeliveryRepository
	vehicles  VehicleFinder
	guard     *availability.Guard
	estimator TripEstimator
	sealer    *sealer.Sealer
	payments  PaymentVerifier
	publisher events.Publisher
	validator *validator.DeliveryValidator
	cfg       *config.Config
	log       *logger.Logger
	now       func() time.Time
}

func NewDeliveryService(
	repo repository.DeliveryRepository,
	vehicles VehicleFinder,
	guard *availability.Guard,
	estimator TripEstimator,
	sealer *sealer.Sealer,
	payments PaymentVerifier,
	publisher events.Publisher,
	validator *validator.DeliveryValidator,
	cfg *config.Config,
) DeliveryService {
	return &deliveryService{
		repo:      repo,
		vehicles:  vehicles,
		guard:     guard,
		estimator: estimator,
		sealer:    sealer,
		payments:  payments,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		log:       cfg.Log.Component("deliveries"),
		now:       time.Now,
	}
}

func (s *deliveryService) Quote(ctx context.Context, req *model.QuoteRequest) (*model.Quote, error) {
	sanitizeStop(&req.Pickup)
	sanitizeStop(&req.Drop)
	req.Package.Type = sanitizer.SanitizeText(req.Package.Type)
	if err := s.validator.ValidateQuote(req); err != nil {
		return nil, validationError("Invalid quote request", err)
	}

	estimation := s.estimate(ctx, &req.Pickup, &req.Drop, &req.Package)
	expiresAt := s.now().UTC().Add(s.cfg.QuoteTTL).Truncate(time.Second)

	token, err := s.sealer.SealJSON(quoteClaims{
		Estimation: estimation,
		ExpiresAt:  expiresAt.Unix(),
		Digest:     QuoteDigest(&req.Pickup, &req.Drop, &req.Package),
	})
	if err != nil {
		s.log.Error("Failed to seal quote", "error", err)
		return nil, apperrors.Internal("Failed to create quote", err)
	}

	return &model.Quote{
		Estimation: estimation,
		Currency:   s.cfg.Tariff.Currency,
		Token:      token,
		ExpiresAt:  expiresAt,
	}, nil
}

func (s *deliveryService) Create(ctx context.Context, delivery *model.PackageBooking) error {
	requestedPaid := delivery.PaymentStatus == config.PaymentPaid
	s.applyDefaults(delivery)
	s.sanitize(delivery)

	if requestedPaid && !delivery.PaymentDetails.Complete() {
		return apperrors.InvalidInput("Payment details required for paid bookings")
	}
	if err := s.validator.Validate(delivery); err != nil {
		s.log.Warn("Package booking validation failed", "error", err)
		return validationError("Package booking validation failed", err)
	}
	if delivery.PaymentDetails.Complete() {
		if !s.payments.VerifyPayment(delivery.PaymentDetails) {
			return apperrors.InvalidInput("Invalid payment signature")
		}
		delivery.PaymentStatus = config.PaymentPaid
	}

	start := delivery.EstimatedStartTime
	if start.Before(s.now()) {
		return apperrors.InvalidInput("Pickup time cannot be in the past")
	}
	if delivery.EstimatedEndTime == nil {
		end := start.Add(s.cfg.BookingFallbackDuration)
		delivery.EstimatedEndTime = &end
	}
	end := *delivery.EstimatedEndTime
	if !end.After(start) {
		return apperrors.InvalidInput("Estimated end time must be after estimated start time")
	}

	estimation, err := s.resolveEstimation(ctx, delivery)
	if err != nil {
		return err
	}
	delivery.Estimation = estimation

	vehicle, err := s.vehicles.FindByID(ctx, delivery.AssignedVehicleID)
	if err != nil {
		switch {
		case errors.Is(err, vehicleserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Vehicle", delivery.AssignedVehicleID)
		case errors.Is(err, vehicleserrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return apperrors.Internal("Failed to load vehicle", err)
	}
	if delivery.RequiredVehicleType != "" && !strings.EqualFold(delivery.RequiredVehicleType, vehicle.VehicleType) {
		return apperrors.InvalidInput(fmt.Sprintf("Assigned vehicle is a %s, %s required", vehicle.VehicleType, delivery.RequiredVehicleType))
	}
	delivery.AssignedVehicle = vehicle.Snapshot()

	booking := s.vehicleBooking(delivery, model.NewReference(model.BookingRefPrefix, s.now().UTC()))
	err = s.guard.Reserve(ctx, delivery.AssignedVehicleID, start, end, func(ctx context.Context) error {
		return s.repo.Create(ctx, delivery, booking)
	})
	if err != nil {
		if conflict := availability.ConflictError(err); conflict != nil {
			s.log.Info("Package booking rejected, vehicle unavailable",
				"vehicle_id", delivery.AssignedVehicleID,
				"start", start,
				"end", end,
				"reason", err,
			)
			return conflict
		}
		s.log.Error("Failed to create package booking", "vehicle_id", delivery.AssignedVehicleID, "error", err)
		return apperrors.Internal("Failed to create package booking", err)
	}

	metrics.BookingsCreated.WithLabelValues(config.BookingTypePackageDelivery).Inc()
	s.publisher.BookingCreated(ctx, booking)

	s.log.Info("Package booking created successfully",
		"id", delivery.ID,
		"booking_ref", delivery.Reference,
		"vehicle_booking_id", delivery.VehicleBookingID,
		"payment_status", delivery.PaymentStatus,
	)
	return nil
}

func (s *deliveryService) GetByID(ctx context.Context, id string) (*model.PackageBooking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID is required")
	}

	delivery, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve package booking")
	}
	return delivery, nil
}

func (s *deliveryService) GetAll(ctx context.Context, filter model.DeliveryFilter, page httputil.Page) ([]*model.PackageBooking, int64, error) {
	if filter.Status != "" && !validation.IsBookingStatus(filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}
	filter.CustomerMobile = sanitizer.SanitizePhone(filter.CustomerMobile)

	var count int64
	var deliveries []*model.PackageBooking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.log.Error("Failed to count package bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count package bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		deliveries, errFind = s.repo.FindAll(ctx, filter, page.Limit, page.Skip())
		if errFind != nil {
			s.log.Error("Failed to list package bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to fetch package bookings", errFind)
		}
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind); err != nil {
		return nil, 0, apperrors.AsAppError(err)
	}
	return deliveries, count, nil
}

// CancellationCheck reports whether a package booking may still be
// cancelled and how many hours remain until pickup.
func (s *deliveryService) CancellationCheck(ctx context.Context, id string) (*model.CancellationCheck, error) {
	delivery, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	check := &model.CancellationCheck{
		BookingID: delivery.ID,
		Status:    delivery.Status,
		CanCancel: cancellable(delivery.Status),
	}
	if pickup := pickupTime(delivery); !pickup.IsZero() {
		hours := int(math.Round(pickup.Sub(s.now()).Hours()))
		check.HoursUntilStart = &hours
	}
	if check.CanCancel {
		check.Reason = "Booking can be cancelled"
	} else {
		check.Reason = fmt.Sprintf("Cannot cancel %s booking", delivery.Status)
	}
	return check, nil
}

// Cancel marks the package booking cancelled and releases the vehicle by
// cancelling the linked vehicle booking.
func (s *deliveryService) Cancel(ctx context.Context, id string) (*model.PackageBooking, error) {
	delivery, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	switch delivery.Status {
	case config.Cancelled:
		return nil, apperrors.InvalidInput("Booking is already cancelled")
	case config.Completed:
		return nil, apperrors.InvalidInput("Cannot cancel a completed booking")
	}

	if err := s.repo.Cancel(ctx, delivery); err != nil {
		if errors.Is(err, deliverieserrors.ErrNotCancellable) {
			return nil, apperrors.Conflict("Booking status changed, please reload and try again")
		}
		return nil, mapRepoError(err, id, "Failed to cancel booking")
	}

	cancelled := s.vehicleBooking(delivery, "")
	cancelled.Status = config.Cancelled
	s.publisher.BookingCancelled(ctx, cancelled)
	s.log.Info("Package booking cancelled", "id", delivery.ID, "booking_ref", delivery.Reference)
	return delivery, nil
}

// --- Helpers ---

func (s *deliveryService) estimate(ctx context.Context, pickup, drop *model.Stop, pkg *model.Package) model.Estimation {
	trip := s.estimator.Trip(ctx, pickup, drop)
	return Price(s.cfg.Tariff, trip, pkg.WeightKg())
}

// resolveEstimation prefers the sealed quote so the customer pays what they
// were shown. Without a token the estimation is recomputed; a client-sent
// estimation is never trusted.
func (s *deliveryService) resolveEstimation(ctx context.Context, delivery *model.PackageBooking) (model.Estimation, error) {
	if delivery.QuoteToken == "" {
		return s.estimate(ctx, &delivery.Pickup, &delivery.Drop, &delivery.Package), nil
	}

	var claims quoteClaims
	if err := s.sealer.OpenJSON(delivery.QuoteToken, &claims); err != nil {
		return model.Estimation{}, apperrors.InvalidInput("Invalid quote token")
	}
	if s.now().Unix() > claims.ExpiresAt {
		return model.Estimation{}, apperrors.InvalidInput("Quote has expired, please request a new one")
	}
	if claims.Digest != QuoteDigest(&delivery.Pickup, &delivery.Drop, &delivery.Package) {
		s.log.Warn("Quote token used for a different shipment", "pickup", delivery.Pickup.Address(), "drop", delivery.Drop.Address())
		return model.Estimation{}, apperrors.InvalidInput("Quote does not match the pickup, drop or package, please request a new one")
	}
	return claims.Estimation, nil
}

// vehicleBooking builds the vehicle booking that holds the assigned vehicle
// for the delivery window.
func (s *deliveryService) vehicleBooking(d *model.PackageBooking, reference string) *model.Booking {
	return &model.Booking{
		ID:               d.VehicleBookingID,
		Reference:        reference,
		VehicleID:        d.AssignedVehicleID,
		CustomerName:     d.Pickup.Name,
		CustomerEmail:    d.Pickup.Mobile + "@package.delivery",
		CustomerPhone:    d.Pickup.Mobile,
		Purpose:          "Package Delivery - " + d.Package.Type,
		PickupLocation:   d.Pickup.Address(),
		DropoffLocation:  d.Drop.Address(),
		TotalPrice:       d.Estimation.TotalAmount,
		Vehicle:          d.AssignedVehicle,
		StartDate:        d.EstimatedStartTime,
		EndDate:          d.EstimatedEndTime,
		PickupTime:       d.Pickup.PickupTime,
		Status:           config.Confirmed,
		PaymentStatus:    d.PaymentStatus,
		PaymentDetails:   d.PaymentDetails,
		BookingType:      config.BookingTypePackageDelivery,
		PackageBookingID: d.ID,
		BookingDate:      s.now().UTC(),
	}
}

func (s *deliveryService) applyDefaults(d *model.PackageBooking) {
	d.ID = ""
	d.Reference = model.NewReference(model.PackageRefPrefix, s.now().UTC())
	d.Status = config.Confirmed
	d.PaymentStatus = config.PaymentPending
	d.VehicleBookingID = ""
	d.AssignedVehicle = nil
	if d.DeliveryType == "" {
		d.DeliveryType = "standard"
	}
	if d.Package.WeightUnit == "" {
		d.Package.WeightUnit = "kg"
	}
}

func (s *deliveryService) sanitize(d *model.PackageBooking) {
	sanitizeStop(&d.Pickup)
	sanitizeStop(&d.Drop)
	d.Package.Type = sanitizer.SanitizeText(d.Package.Type)
	d.Package.Description = sanitizer.SanitizeText(d.Package.Description)
	d.AssignedVehicleID = strings.TrimSpace(d.AssignedVehicleID)
	d.RequiredVehicleType = sanitizer.SanitizeText(d.RequiredVehicleType)
	d.QuoteToken = strings.TrimSpace(d.QuoteToken)
	d.EstimatedStartTime = d.EstimatedStartTime.UTC()
	if d.EstimatedEndTime != nil {
		end := d.EstimatedEndTime.UTC()
		d.EstimatedEndTime = &end
	}
}

func sanitizeStop(stop *model.Stop) {
	stop.Name = sanitizer.SanitizeText(stop.Name)
	stop.Mobile = sanitizer.SanitizePhone(stop.Mobile)
	stop.ManualAddress = sanitizer.SanitizeText(stop.ManualAddress)
	if stop.MapLocation != nil {
		stop.MapLocation.Address = sanitizer.SanitizeText(stop.MapLocation.Address)
	}
	if stop.PickupTime != nil {
		t := stop.PickupTime.UTC()
		stop.PickupTime = &t
	}
}

func cancellable(status string) bool {
	return status != config.Cancelled && status != config.Completed
}

func pickupTime(d *model.PackageBooking) time.Time {
	if d.Pickup.PickupTime != nil {
		return *d.Pickup.PickupTime
	}
	return d.EstimatedStartTime
}

func validationError(message string, err error) error {
	var fieldErrs validation.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return apperrors.Validation(message, fieldErrs.Details())
	}
	return apperrors.Validation(message, map[string]any{"error": err.Error()})
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, deliverieserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Package booking", id)
	case errors.Is(err, deliverieserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}

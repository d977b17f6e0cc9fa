package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleetlink/internal/availability"
	bookingserrors "fleetlink/internal/bookings/errors"
	"fleetlink/internal/bookings/repository"
	"fleetlink/internal/bookings/validator"
	"fleetlink/internal/events"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/metrics"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/validation"
)

// MaxExportRows caps a single spreadsheet export.
const MaxExportRows = 10000

type BookingService interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	GetAll(ctx context.Context, filter model.BookingFilter, page httputil.Page) ([]*model.Booking, int64, *model.BookingSummary, error)
	Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error)
	Delete(ctx context.Context, id string) error
	Bulk(ctx context.Context, req *model.BulkRequest) (*model.BulkResult, error)
	Export(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error)
	RecordPayment(ctx context.Context, bookingID string, details model.PaymentDetails) error
}

type VehicleFinder interface {
	FindByID(ctx context.Context, id string) (*model.Vehicle, error)
}

type PaymentVerifier interface {
	VerifyPayment(details *model.PaymentDetails) bool
}

type bookingService struct {
	repo      repository.BookingRepository
	vehicles  VehicleFinder
	guard     *availability.Guard
	payments  PaymentVerifier
	publisher events.Publisher
	validator *validator.BookingValidator
	cfg       *config.Config
	log       *logger.Logger
	now       func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	vehicles VehicleFinder,
	guard *availability.Guard,
	payments PaymentVerifier,
	publisher events.Publisher,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	return &bookingService{
		repo:      repo,
		vehicles:  vehicles,
		guard:     guard,
		payments:  payments,
		publisher: publisher,
		validator: validator,
		cfg:       cfg,
		log:       cfg.Log.Component("bookings"),
		now:       time.Now,
	}
}

func (s *bookingService) Create(ctx context.Context, booking *model.Booking) error {
	s.applyDefaults(booking)
	s.sanitize(booking)
	if err := s.validate(booking); err != nil {
		return err
	}
	if err := availability.ValidateWindow(booking.StartDate, *booking.EndDate, s.now()); err != nil {
		return apperrors.InvalidInput(capitalize(err.Error()))
	}
	if booking.PaymentDetails.Complete() {
		if !s.payments.VerifyPayment(booking.PaymentDetails) {
			return apperrors.InvalidInput("Invalid payment signature")
		}
		booking.PaymentStatus = config.PaymentPaid
	}

	vehicle, err := s.vehicles.FindByID(ctx, booking.VehicleID)
	if err != nil {
		switch {
		case errors.Is(err, vehicleserrors.ErrNotFound):
			return apperrors.NotFoundWithID("Vehicle", booking.VehicleID)
		case errors.Is(err, vehicleserrors.ErrInvalidID):
			return apperrors.InvalidInput("Invalid vehicle ID format")
		}
		return apperrors.Internal("Failed to load vehicle", err)
	}
	booking.Vehicle = vehicle.Snapshot()

	err = s.guard.Reserve(ctx, booking.VehicleID, booking.StartDate, *booking.EndDate, func(ctx context.Context) error {
		return s.repo.Create(ctx, booking)
	})
	if err != nil {
		if conflict := availability.ConflictError(err); conflict != nil {
			s.log.Info("Booking rejected, vehicle unavailable",
				"vehicle_id", booking.VehicleID,
				"start_date", booking.StartDate,
				"end_date", booking.EndDate,
				"reason", err,
			)
			return conflict
		}
		s.log.Error("Failed to create booking", "vehicle_id", booking.VehicleID, "error", err)
		return apperrors.Internal("Failed to create booking", err)
	}

	metrics.BookingsCreated.WithLabelValues(booking.BookingType).Inc()
	s.publisher.BookingCreated(ctx, booking)

	s.log.Info("Booking created successfully",
		"id", booking.ID,
		"booking_ref", booking.Reference,
		"vehicle_id", booking.VehicleID,
		"start_date", booking.StartDate,
	)
	return nil
}

func (s *bookingService) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}

	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve booking")
	}
	return booking, nil
}

func (s *bookingService) GetAll(ctx context.Context, filter model.BookingFilter, page httputil.Page) ([]*model.Booking, int64, *model.BookingSummary, error) {
	if filter.Status != "" && !validation.IsBookingStatus(filter.Status) {
		return nil, 0, nil, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}
	filter.CustomerEmail = sanitizer.SanitizeEmail(filter.CustomerEmail)

	var count int64
	var bookings []*model.Booking
	var summary *model.BookingSummary
	var errCount, errFind, errSummary error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.log.Error("Failed to count bookings", "error", errCount)
			errCount = apperrors.Internal("Failed to count bookings", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		bookings, errFind = s.repo.FindAll(ctx, filter, page.Limit, page.Skip())
		if errFind != nil {
			s.log.Error("Failed to list bookings", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve bookings", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		summary, errSummary = s.repo.Summary(ctx)
		if errSummary != nil {
			s.log.Error("Failed to summarize bookings", "error", errSummary)
			errSummary = apperrors.Internal("Failed to summarize bookings", errSummary)
		}
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind, errSummary); err != nil {
		return nil, 0, nil, apperrors.AsAppError(err)
	}
	return bookings, count, summary, nil
}

func (s *bookingService) Update(ctx context.Context, id string, updates *model.BookingUpdate) (*model.Booking, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Booking ID cannot be empty")
	}
	s.sanitizeUpdate(updates)
	if updates.IsEmpty() {
		return nil, apperrors.InvalidInput("No fields to update")
	}
	if err := s.validator.ValidateUpdate(updates); err != nil {
		s.log.Warn("Booking update validation failed", "id", id, "error", err)
		return nil, validationError("Invalid update input", err)
	}
	if updates.PaymentDetails != nil {
		if !s.payments.VerifyPayment(updates.PaymentDetails) {
			return nil, apperrors.InvalidInput("Invalid payment signature")
		}
		updates.PaymentStatus = config.PaymentPaid
	}

	var booking *model.Booking
	write := func(ctx context.Context) error {
		var err error
		booking, err = s.repo.Update(ctx, id, updates)
		return err
	}

	if model.IsActiveStatus(updates.Status) {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return nil, mapRepoError(err, id, "Failed to load booking")
		}
		if !existing.IsActive() {
			if err := s.reactivate(ctx, existing, write); err != nil {
				return nil, err
			}
			s.log.Info("Booking reactivated", "id", id, "status", booking.Status)
			return booking, nil
		}
	}

	if err := write(ctx); err != nil {
		return nil, mapRepoError(err, id, "Failed to update booking")
	}

	if updates.Status == config.Cancelled {
		s.publisher.BookingCancelled(ctx, booking)
	}
	s.log.Info("Booking updated successfully", "id", id, "status", booking.Status)
	return booking, nil
}

func (s *bookingService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return apperrors.InvalidInput("Booking ID cannot be empty")
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return mapRepoError(err, id, "Failed to check booking existence")
	}
	if existing.Status == config.Completed {
		return apperrors.InvalidInput("Cannot delete completed bookings")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return mapRepoError(err, id, "Failed to delete booking")
	}

	s.log.Info("Booking deleted successfully", "id", id, "booking_ref", existing.Reference)
	return nil
}

func (s *bookingService) Bulk(ctx context.Context, req *model.BulkRequest) (*model.BulkResult, error) {
	if err := s.validator.ValidateBulk(req); err != nil {
		var fieldErrs validation.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return nil, apperrors.Validation("Invalid bulk request", fieldErrs.Details())
		}
		return nil, apperrors.InvalidInput(err.Error())
	}

	var affected int64
	var err error
	switch req.Action {
	case config.BulkActionUpdateStatus:
		status := strings.TrimSpace(req.UpdateData["status"])
		if model.IsActiveStatus(status) {
			affected, err = s.bulkActivate(ctx, req.IDs, status)
		} else {
			affected, err = s.repo.UpdateStatus(ctx, req.IDs, status)
		}
	case config.BulkActionDelete:
		affected, err = s.repo.DeleteMany(ctx, req.IDs)
	}
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, bookingserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid booking ID format")
		}
		s.log.Error("Bulk booking operation failed", "action", req.Action, "error", err)
		return nil, apperrors.Internal("Failed to perform bulk operation", err)
	}

	s.log.Info("Bulk booking operation completed", "action", req.Action, "requested", len(req.IDs), "affected", affected)
	return &model.BulkResult{Action: req.Action, Affected: affected}, nil
}

// Export returns at most MaxExportRows bookings matching filter, in list
// order.
func (s *bookingService) Export(ctx context.Context, filter model.BookingFilter) ([]*model.Booking, error) {
	if filter.Status != "" && !validation.IsBookingStatus(filter.Status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}
	filter.CustomerEmail = sanitizer.SanitizeEmail(filter.CustomerEmail)

	bookings, err := s.repo.FindAll(ctx, filter, MaxExportRows, 0)
	if err != nil {
		s.log.Error("Failed to load bookings for export", "error", err)
		return nil, apperrors.Internal("Failed to export bookings", err)
	}
	return bookings, nil
}

// RecordPayment applies a verified payment to the booking with the given id
// or BK reference.
func (s *bookingService) RecordPayment(ctx context.Context, bookingID string, details model.PaymentDetails) error {
	if err := s.repo.RecordPayment(ctx, bookingID, details); err != nil {
		return mapRepoError(err, bookingID, "Failed to record payment")
	}
	s.log.Info("Booking payment recorded", "booking", bookingID, "order_id", details.OrderID)
	return nil
}

// bulkActivate moves each booking to an active status one at a time.
// Bookings that are not active yet go through the conflict check first.
// It stops at the first conflict; earlier rows stay updated.
func (s *bookingService) bulkActivate(ctx context.Context, ids []string, status string) (int64, error) {
	var affected int64
	for _, id := range ids {
		existing, err := s.repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, bookingserrors.ErrNotFound) {
				continue
			}
			return affected, err
		}

		var n int64
		write := func(ctx context.Context) error {
			var err error
			n, err = s.repo.UpdateStatus(ctx, []string{id}, status)
			return err
		}
		if existing.IsActive() {
			err = write(ctx)
		} else {
			err = s.reactivate(ctx, existing, write)
		}
		if err != nil {
			var appErr *apperrors.AppError
			if errors.As(err, &appErr) {
				return affected, appErr.WithDetail("affected", affected)
			}
			return affected, err
		}
		affected += n
	}
	return affected, nil
}

// reactivate runs write under the vehicle lock once the stored interval of
// b is known to be free of other active bookings.
func (s *bookingService) reactivate(ctx context.Context, b *model.Booking, write func(ctx context.Context) error) error {
	if b.StartDate.IsZero() {
		return apperrors.InvalidInput("Booking has no start date and cannot be reactivated")
	}
	start, end, _ := availability.EffectiveInterval(model.BookingWindow{
		ID:     b.ID,
		Status: b.Status,
		Start:  &b.StartDate,
		End:    b.EndDate,
	}, s.cfg.BookingFallbackDuration)

	err := s.guard.Reactivate(ctx, b.VehicleID, b.ID, start, end, write)
	if err == nil {
		return nil
	}
	if conflict := availability.ConflictError(err); conflict != nil {
		s.log.Info("Booking reactivation rejected, vehicle unavailable",
			"id", b.ID,
			"vehicle_id", b.VehicleID,
			"reason", err,
		)
		return conflict.WithDetail("bookingId", b.ID)
	}
	if errors.Is(err, bookingserrors.ErrNotFound) || errors.Is(err, bookingserrors.ErrInvalidID) {
		return mapRepoError(err, b.ID, "Failed to update booking")
	}
	s.log.Error("Failed to reactivate booking", "id", b.ID, "error", err)
	return apperrors.Internal("Failed to update booking", err)
}

// --- Helpers ---

func (s *bookingService) applyDefaults(b *model.Booking) {
	now := s.now().UTC()
	b.ID = ""
	b.Reference = model.NewReference(model.BookingRefPrefix, now)
	b.Status = config.Confirmed
	b.PaymentStatus = config.PaymentPending
	if b.BookingType == "" {
		b.BookingType = config.BookingTypeVehicle
	}
	b.BookingDate = now
	b.Vehicle = nil
}

func (s *bookingService) sanitize(b *model.Booking) {
	b.VehicleID = strings.TrimSpace(b.VehicleID)
	b.CustomerName = sanitizer.SanitizeText(b.CustomerName)
	b.CustomerEmail = sanitizer.SanitizeEmail(b.CustomerEmail)
	b.CustomerPhone = sanitizer.SanitizePhone(b.CustomerPhone)
	b.Purpose = sanitizer.SanitizeText(b.Purpose)
	b.PickupLocation = sanitizer.SanitizeText(b.PickupLocation)
	b.DropoffLocation = sanitizer.SanitizeText(b.DropoffLocation)
	b.StartDate = b.StartDate.UTC()
	if b.EndDate != nil {
		end := b.EndDate.UTC()
		b.EndDate = &end
	}
}

func (s *bookingService) sanitizeUpdate(u *model.BookingUpdate) {
	u.Status = strings.TrimSpace(u.Status)
	u.PickupLocation = sanitizer.SanitizeText(u.PickupLocation)
	u.DropoffLocation = sanitizer.SanitizeText(u.DropoffLocation)
	u.PaymentStatus = strings.TrimSpace(u.PaymentStatus)
	if u.Purpose != nil {
		purpose := sanitizer.SanitizeText(*u.Purpose)
		u.Purpose = &purpose
	}
}

func (s *bookingService) validate(b *model.Booking) error {
	if err := s.validator.Validate(b); err != nil {
		s.log.Warn("Booking validation failed", "error", err)
		return validationError("Booking validation failed", err)
	}
	return nil
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
	case errors.Is(err, bookingserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Booking", id)
	case errors.Is(err, bookingserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid booking ID format")
	default:
		return apperrors.Internal(message, err)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

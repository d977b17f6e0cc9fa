package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"fleetlink/internal/availability"
	vehicleserrors "fleetlink/internal/vehicles/errors"
	"fleetlink/internal/vehicles/repository"
	"fleetlink/internal/vehicles/validator"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	httputil "fleetlink/pkg/http"
	"fleetlink/pkg/limiter"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
	"fleetlink/pkg/sanitizer"
	"fleetlink/pkg/validation"
)

type VehicleService interface {
	Register(ctx context.Context, vehicle *model.Vehicle) error
	GetByID(ctx context.Context, id string) (*model.Vehicle, error)
	GetAll(ctx context.Context, filter model.VehicleFilter, page httputil.Page) ([]*model.Vehicle, int64, *model.VehicleSummary, error)
	Bulk(ctx context.Context, req *model.BulkRequest) (*model.BulkResult, error)
	Search(ctx context.Context, city string, start, end time.Time) (*model.SearchResult, error)
}

// PaymentVerifier checks a checkout signature returned by the gateway.
type PaymentVerifier interface {
	VerifyPayment(details *model.PaymentDetails) bool
}

type vehicleService struct {
	repo      repository.VehicleRepository
	checker   availability.Checker
	payments  PaymentVerifier
	validator *validator.VehicleValidator
	limiter   *limiter.Limiter
	cfg       *config.Config
	log       *logger.Logger
	now       func() time.Time
}

func NewVehicleService(
	repo repository.VehicleRepository,
	checker availability.Checker,
	payments PaymentVerifier,
	validator *validator.VehicleValidator,
	cfg *config.Config,
) VehicleService {
	return &vehicleService{
		repo:      repo,
		checker:   checker,
		payments:  payments,
		validator: validator,
		limiter:   limiter.New(cfg.SearchConcurrency),
		cfg:       cfg,
		log:       cfg.Log.Component("vehicles"),
		now:       time.Now,
	}
}

func (s *vehicleService) Register(ctx context.Context, vehicle *model.Vehicle) error {
	s.applyDefaults(vehicle)
	s.sanitize(vehicle)
	if err := s.validate(vehicle); err != nil {
		return err
	}

	paid := vehicle.PaymentDetails.Complete()
	if paid && !s.payments.VerifyPayment(vehicle.PaymentDetails) {
		s.log.Warn("Vehicle registration payment signature mismatch",
			"vehicle_number", vehicle.VehicleNumber,
			"order_id", vehicle.PaymentDetails.OrderID,
		)
		return apperrors.InvalidInput("Invalid payment signature")
	}
	if vehicle.Status == config.VehicleStatusPaid && !paid {
		return apperrors.InvalidInput("A paid registration requires payment details")
	}
	if vehicle.OneTimeRegistration && paid {
		vehicle.Status = config.VehicleStatusPaid
	}

	if err := s.repo.Create(ctx, vehicle); err != nil {
		if errors.Is(err, vehicleserrors.ErrDuplicateNumber) {
			return apperrors.Conflict("Vehicle number already registered")
		}
		s.log.Error("Failed to register vehicle", "vehicle_number", vehicle.VehicleNumber, "error", err)
		return apperrors.Internal("Failed to register vehicle", err)
	}

	s.log.Info("Vehicle registered successfully",
		"id", vehicle.ID,
		"vehicle_number", vehicle.VehicleNumber,
		"city", vehicle.City,
		"status", vehicle.Status,
	)
	return nil
}

func (s *vehicleService) GetByID(ctx context.Context, id string) (*model.Vehicle, error) {
	if id == "" {
		return nil, apperrors.InvalidInput("Vehicle ID cannot be empty")
	}

	vehicle, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapRepoError(err, id, "Failed to retrieve vehicle")
	}
	return vehicle, nil
}

func (s *vehicleService) GetAll(ctx context.Context, filter model.VehicleFilter, page httputil.Page) ([]*model.Vehicle, int64, *model.VehicleSummary, error) {
	if filter.Status != "" && !validation.IsVehicleStatus(filter.Status) {
		return nil, 0, nil, apperrors.InvalidInput(fmt.Sprintf("invalid status filter: %s", filter.Status))
	}

	var count int64
	var vehicles []*model.Vehicle
	var summary *model.VehicleSummary
	var errCount, errFind, errSummary error
	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		count, errCount = s.repo.Count(ctx, filter)
		if errCount != nil {
			s.log.Error("Failed to count vehicles", "error", errCount)
			errCount = apperrors.Internal("Failed to count vehicles", errCount)
		}
	}()

	go func() {
		defer wg.Done()
		vehicles, errFind = s.repo.FindAll(ctx, filter, page.Limit, page.Skip())
		if errFind != nil {
			s.log.Error("Failed to list vehicles", "error", errFind)
			errFind = apperrors.Internal("Failed to retrieve vehicles", errFind)
		}
	}()

	go func() {
		defer wg.Done()
		summary, errSummary = s.repo.Summary(ctx, filter)
		if errSummary != nil {
			s.log.Error("Failed to summarize vehicles", "error", errSummary)
			errSummary = apperrors.Internal("Failed to summarize vehicles", errSummary)
		}
	}()

	wg.Wait()
	if err := errors.Join(errCount, errFind, errSummary); err != nil {
		return nil, 0, nil, apperrors.AsAppError(err)
	}

	ids := make([]string, len(vehicles))
	for i, v := range vehicles {
		ids[i] = v.ID
	}
	next, err := s.repo.NextBookings(ctx, ids, s.now().UTC())
	if err != nil {
		s.log.Error("Failed to load upcoming bookings", "error", err)
		return nil, 0, nil, apperrors.Internal("Failed to retrieve vehicles", err)
	}
	for _, v := range vehicles {
		v.NextBooking = next[v.ID]
	}

	return vehicles, count, summary, nil
}

func (s *vehicleService) Bulk(ctx context.Context, req *model.BulkRequest) (*model.BulkResult, error) {
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
		affected, err = s.repo.UpdateStatus(ctx, req.IDs, strings.TrimSpace(req.UpdateData["status"]))
	case config.BulkActionUpdateCity:
		affected, err = s.repo.UpdateCity(ctx, req.IDs, sanitizer.SanitizeText(req.UpdateData["city"]))
	case config.BulkActionDelete:
		affected, err = s.repo.DeleteMany(ctx, req.IDs)
	}
	if err != nil {
		if errors.Is(err, vehicleserrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid vehicle ID format")
		}
		s.log.Error("Bulk vehicle operation failed", "action", req.Action, "error", err)
		return nil, apperrors.Internal("Failed to perform bulk operation", err)
	}

	s.log.Info("Bulk vehicle operation completed", "action", req.Action, "requested", len(req.IDs), "affected", affected)
	return &model.BulkResult{Action: req.Action, Affected: affected}, nil
}

// Search checks every paid vehicle of the city against the window, at most
// SearchConcurrency at a time. The result keeps the repository order.
func (s *vehicleService) Search(ctx context.Context, city string, start, end time.Time) (*model.SearchResult, error) {
	city = sanitizer.SanitizeText(city)
	if city == "" {
		return nil, apperrors.InvalidInput("city is required")
	}
	if err := availability.ValidateWindow(start, end, s.now()); err != nil {
		return nil, apperrors.InvalidInput(capitalize(err.Error()))
	}

	result := &model.SearchResult{
		Vehicles:       []*model.AvailableVehicle{},
		SearchCriteria: model.SearchCriteria{City: city, StartDate: start, EndDate: end},
	}

	candidates, err := s.repo.FindPaidByCity(ctx, city)
	if err != nil {
		s.log.Error("Failed to find vehicles for search", "city", city, "error", err)
		return nil, apperrors.Internal("Failed to search vehicles", err)
	}
	result.TotalFound = len(candidates)

	if len(candidates) == 0 {
		cities, err := s.repo.PaidCities(ctx)
		if err != nil {
			s.log.Error("Failed to list available cities", "error", err)
			return nil, apperrors.Internal("Failed to search vehicles", err)
		}
		result.Message = fmt.Sprintf("No vehicles found in %s", city)
		result.AvailableCities = cities
		return result, nil
	}

	available := make([]bool, len(candidates))
	checkErrs := make([]error, len(candidates))
	var wg sync.WaitGroup
	for i, vehicle := range candidates {
		i, vehicle := i, vehicle
		wg.Add(1)
		go func() {
			defer wg.Done()
			var checkErr error
			if err := s.limiter.Run(ctx, func() {
				var res availability.Result
				res, checkErr = s.checker.Check(ctx, vehicle.ID, start, end)
				available[i] = res.Available
			}); err != nil {
				checkErr = err
			}
			checkErrs[i] = checkErr
		}()
	}
	wg.Wait()

	if err := errors.Join(checkErrs...); err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.Timeout("Vehicle search timed out")
		}
		s.log.Error("Availability check failed during search", "city", city, "error", err)
		return nil, apperrors.Internal("Failed to search vehicles", err)
	}

	for i, vehicle := range candidates {
		if available[i] {
			result.Vehicles = append(result.Vehicles, vehicle.Available())
		}
	}
	result.TotalAvailable = len(result.Vehicles)

	s.log.Debug("Vehicle search completed",
		"city", city,
		"total_found", result.TotalFound,
		"total_available", result.TotalAvailable,
	)
	return result, nil
}

// --- Helpers ---

func (s *vehicleService) applyDefaults(v *model.Vehicle) {
	if v.Status == "" {
		v.Status = config.VehicleStatusFree
	}
	v.ID = ""
	v.RegistrationDate = time.Time{}
}

func (s *vehicleService) sanitize(v *model.Vehicle) {
	v.VehicleNumber = sanitizer.SanitizeVehicleNumber(v.VehicleNumber)
	v.City = sanitizer.SanitizeText(v.City)
	v.CityKey = sanitizer.SanitizeCityKey(v.City)
	v.VehicleType = sanitizer.SanitizeText(v.VehicleType)
	v.TyreCondition = sanitizer.SanitizeText(v.TyreCondition)
	v.LoadCapacity = sanitizer.SanitizeText(v.LoadCapacity)
	v.DriverName = sanitizer.SanitizeText(v.DriverName)
	v.DriverLicenceNumber = sanitizer.SanitizeVehicleNumber(v.DriverLicenceNumber)
	v.DriverPhone = sanitizer.SanitizePhone(v.DriverPhone)
}

func (s *vehicleService) validate(v *model.Vehicle) error {
	if err := s.validator.Validate(v); err != nil {
		s.log.Warn("Vehicle validation failed", "error", err)
		var fieldErrs validation.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return apperrors.Validation("Vehicle validation failed", fieldErrs.Details())
		}
		return apperrors.Validation("Vehicle validation failed", map[string]any{"error": err.Error()})
	}
	return nil
}

func mapRepoError(err error, id, message string) error {
	switch {
	case errors.Is(err, vehicleserrors.ErrNotFound):
		return apperrors.NotFoundWithID("Vehicle", id)
	case errors.Is(err, vehicleserrors.ErrInvalidID):
		return apperrors.InvalidInput("Invalid vehicle ID format")
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

// Package validation wraps go-playground/validator with the custom rules and
// error messages shared by the API modules.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strings"

	"fleetlink/pkg/config"
	"fleetlink/pkg/logger"

	"github.com/go-playground/validator/v10"
)

var (
	phoneRegex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

	vehicleStatuses = []string{
		config.VehicleStatusPaid,
		config.VehicleStatusFree,
		config.VehicleStatusActive,
		config.VehicleStatusInactive,
		config.VehicleStatusMaintenance,
	}
	bookingStatuses = []string{
		config.Pending,
		config.Confirmed,
		config.InProgress,
		config.Completed,
		config.Cancelled,
	}
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

// Details renders the errors as AppError details.
func (v ValidationErrors) Details() map[string]any {
	return map[string]any{"fields": []ValidationError(v)}
}

// Field builds a single-field error for rules the struct tags cannot express.
func Field(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

type Validator struct {
	validate *validator.Validate
}

// New registers the custom tags. Field names in errors follow the JSON names.
func New(log *logger.Logger) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	custom := map[string]validator.Func{
		"vehicle_status": validateVehicleStatus,
		"booking_status": validateBookingStatus,
		"e164_or_empty":  validateE164OrEmpty,
	}
	for tag, fn := range custom {
		if err := v.RegisterValidation(tag, fn); err != nil {
			log.Fatal("Failed to register validator", "tag", tag, "error", err)
		}
	}

	return &Validator{validate: v}
}

// Struct validates s and returns ValidationErrors for tag failures.
func (v *Validator) Struct(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func validateVehicleStatus(fl validator.FieldLevel) bool {
	return IsVehicleStatus(fl.Field().String())
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	return IsBookingStatus(fl.Field().String())
}

func validateE164OrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	return value == "" || phoneRegex.MatchString(value)
}

func translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "len":
			message = fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
		case "gt":
			message = fmt.Sprintf("%s must be greater than %s", err.Field(), err.Param())
		case "gte":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "mongodb":
			message = fmt.Sprintf("%s must be a valid MongoDB ObjectID", err.Field())
		case "e164", "e164_or_empty":
			message = fmt.Sprintf("%s must be in E.164 format (e.g., +919876543210)", err.Field())
		case "email":
			message = fmt.Sprintf("%s must be a valid email address", err.Field())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "vehicle_status":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(vehicleStatuses, " "))
		case "booking_status":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), strings.Join(bookingStatuses, " "))
		case "latitude", "longitude":
			message = fmt.Sprintf("%s must be a valid %s", err.Field(), err.Tag())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}

func IsVehicleStatus(status string) bool {
	return slices.Contains(vehicleStatuses, status)
}

func IsBookingStatus(status string) bool {
	return slices.Contains(bookingStatuses, status)
}

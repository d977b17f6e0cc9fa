package validator

import (
	"fmt"
	"strings"

	"fleetlink/pkg/config"
	"fleetlink/pkg/model"
	"fleetlink/pkg/validation"
)

type BookingValidator struct {
	validate *validation.Validator
}

func NewBookingValidator(v *validation.Validator) *BookingValidator {
	return &BookingValidator{validate: v}
}

func (v *BookingValidator) Validate(booking *model.Booking) error {
	if err := v.validate.Struct(booking); err != nil {
		return err
	}
	if booking.EndDate == nil {
		return validation.Field("endDate", "endDate is required")
	}
	if booking.PaymentDetails != nil && !booking.PaymentDetails.Complete() {
		return validation.Field("paymentDetails", "paymentDetails must carry order id, payment id and signature")
	}
	return nil
}

func (v *BookingValidator) ValidateUpdate(updates *model.BookingUpdate) error {
	if err := v.validate.Struct(updates); err != nil {
		return err
	}
	if updates.PaymentDetails != nil && !updates.PaymentDetails.Complete() {
		return validation.Field("paymentDetails", "paymentDetails must carry order id, payment id and signature")
	}
	return nil
}

// ValidateBulk mirrors the vehicle bulk rules for the booking actions.
func (v *BookingValidator) ValidateBulk(req *model.BulkRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return err
	}

	switch req.Action {
	case config.BulkActionUpdateStatus:
		status := strings.TrimSpace(req.UpdateData["status"])
		if status == "" {
			return fmt.Errorf("status is required for %s action", req.Action)
		}
		if !validation.IsBookingStatus(status) {
			return fmt.Errorf("invalid booking status: %s", status)
		}
	case config.BulkActionDelete:
	default:
		return fmt.Errorf("invalid action %q, supported actions: updateStatus, delete", req.Action)
	}
	return nil
}

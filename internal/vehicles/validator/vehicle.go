package validator

import (
	"fmt"
	"strings"

	"fleetlink/pkg/config"
	"fleetlink/pkg/model"
	"fleetlink/pkg/validation"
)

type VehicleValidator struct {
	validate *validation.Validator
}

func NewVehicleValidator(v *validation.Validator) *VehicleValidator {
	return &VehicleValidator{validate: v}
}

func (v *VehicleValidator) Validate(vehicle *model.Vehicle) error {
	if err := v.validate.Struct(vehicle); err != nil {
		return err
	}
	if vehicle.PaymentDetails != nil && !vehicle.PaymentDetails.Complete() {
		return validation.Field("paymentDetails", "paymentDetails must carry order id, payment id and signature")
	}
	return nil
}

// ValidateBulk checks the action and the update data it needs. Failures are
// request errors rather than field errors.
func (v *VehicleValidator) ValidateBulk(req *model.BulkRequest) error {
	if err := v.validate.Struct(req); err != nil {
		return err
	}

	switch req.Action {
	case config.BulkActionUpdateStatus:
		status := strings.TrimSpace(req.UpdateData["status"])
		if status == "" {
			return fmt.Errorf("status is required for %s action", req.Action)
		}
		if !validation.IsVehicleStatus(status) {
			return fmt.Errorf("invalid vehicle status: %s", status)
		}
	case config.BulkActionUpdateCity:
		if strings.TrimSpace(req.UpdateData["city"]) == "" {
			return fmt.Errorf("city is required for %s action", req.Action)
		}
	case config.BulkActionDelete:
	default:
		return fmt.Errorf("invalid action %q, supported actions: updateStatus, updateCity, delete", req.Action)
	}
	return nil
}

package validator

import (
	"fleetlink/pkg/model"
	"fleetlink/pkg/validation"
)

type DeliveryValidator struct {
	validate *validation.Validator
}

func NewDeliveryValidator(v *validation.Validator) *DeliveryValidator {
	return &DeliveryValidator{validate: v}
}

// Validate checks a package booking before any lookup is made.
func (v *DeliveryValidator) Validate(delivery *model.PackageBooking) error {
	if err := v.validate.Struct(delivery); err != nil {
		return err
	}
	if err := validateStops(&delivery.Pickup, &delivery.Drop); err != nil {
		return err
	}
	if delivery.PaymentDetails != nil && !delivery.PaymentDetails.Complete() {
		return validation.Field("paymentDetails", "paymentDetails must carry order id, payment id and signature")
	}
	return nil
}

// ValidateQuote only needs the locations and the package; contact details
// are collected at booking time.
func (v *DeliveryValidator) ValidateQuote(req *model.QuoteRequest) error {
	if err := v.validate.Struct(&req.Package); err != nil {
		return err
	}
	if req.DeliveryType != "" && req.DeliveryType != "standard" && req.DeliveryType != "express" {
		return validation.Field("deliveryType", "deliveryType must be one of: standard express")
	}
	return validateStops(&req.Pickup, &req.Drop)
}

func validateStops(pickup, drop *model.Stop) error {
	var errs validation.ValidationErrors
	if !pickup.HasAddress() {
		errs = append(errs, validation.ValidationError{
			Field:   "pickup",
			Message: "Pickup location is required (manual address or map location)",
		})
	}
	if !drop.HasAddress() {
		errs = append(errs, validation.ValidationError{
			Field:   "drop",
			Message: "Drop location is required (manual address or map location)",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

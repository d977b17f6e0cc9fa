// Package gateway talks to the payment provider.
package gateway

import (
	"context"

	"fleetlink/pkg/model"
)

// OrderParams describes a checkout order. Amount is in the smallest currency
// unit (paise for INR).
type OrderParams struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    map[string]string
}

type Gateway interface {
	CreateOrder(ctx context.Context, params OrderParams) (*model.PaymentOrder, error)
	// VerifyPayment checks the checkout signature over "orderId|paymentId".
	VerifyPayment(details *model.PaymentDetails) bool
	// VerifyWebhook checks the webhook signature over the raw request body.
	VerifyWebhook(body []byte, signature string) bool
}

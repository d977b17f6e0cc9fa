package gateway

import (
	"context"
	"fmt"

	"fleetlink/pkg/model"
	"fleetlink/pkg/signature"

	razorpay "github.com/razorpay/razorpay-go"
)

// orderCreator is the part of the Razorpay SDK used to create orders.
type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayGateway struct {
	keyID         string
	keySecret     string
	webhookSecret string
	orders        orderCreator
}

func NewRazorpay(keyID, keySecret, webhookSecret string) Gateway {
	client := razorpay.NewClient(keyID, keySecret)
	return &razorpayGateway{
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		orders:        client.Order,
	}
}

type orderResult struct {
	body map[string]interface{}
	err  error
}

// CreateOrder calls the SDK in a goroutine because it has no context support.
// A cancelled ctx abandons the call.
func (g *razorpayGateway) CreateOrder(ctx context.Context, params OrderParams) (*model.PaymentOrder, error) {
	notes := make(map[string]interface{}, len(params.Notes))
	for k, v := range params.Notes {
		notes[k] = v
	}
	data := map[string]interface{}{
		"amount":   params.Amount,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"notes":    notes,
	}

	done := make(chan orderResult, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- orderResult{body: body, err: err}
	}()

	var res orderResult
	select {
	case res = <-done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if res.err != nil {
		return nil, fmt.Errorf("razorpay create order: %w", res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("razorpay create order: response has no id")
	}
	order := &model.PaymentOrder{
		ID:       id,
		Amount:   params.Amount,
		Currency: params.Currency,
		Receipt:  params.Receipt,
		KeyID:    g.keyID,
	}
	if amount, ok := res.body["amount"].(float64); ok {
		order.Amount = int64(amount)
	}
	if currency, ok := res.body["currency"].(string); ok && currency != "" {
		order.Currency = currency
	}
	if status, ok := res.body["status"].(string); ok {
		order.Status = status
	}
	return order, nil
}

func (g *razorpayGateway) VerifyPayment(details *model.PaymentDetails) bool {
	if !details.Complete() {
		return false
	}
	return signature.Verify(g.keySecret, signature.PaymentPayload(details.OrderID, details.PaymentID), details.Signature)
}

func (g *razorpayGateway) VerifyWebhook(body []byte, sig string) bool {
	return signature.Verify(g.webhookSecret, body, sig)
}

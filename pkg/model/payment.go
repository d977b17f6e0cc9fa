package model

type PaymentDetails struct {
	OrderID   string `json:"razorpay_order_id" bson:"order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" bson:"payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" bson:"signature" validate:"required"`
}

func (p *PaymentDetails) Complete() bool {
	return p != nil && p.OrderID != "" && p.PaymentID != "" && p.Signature != ""
}

type CreateOrderRequest struct {
	Amount         float64 `json:"amount" validate:"gte=1"`
	BookingID      string  `json:"bookingId" validate:"required,max=64"`
	CustomerName   string  `json:"customerName" validate:"required,max=100"`
	CustomerMobile string  `json:"customerMobile" validate:"required,e164"`
	VehicleNumber  string  `json:"vehicleNumber,omitempty" validate:"max=20"`
	Description    string  `json:"description,omitempty" validate:"max=200"`
	Currency       string  `json:"currency,omitempty" validate:"omitempty,len=3"`
}

type PaymentOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	KeyID    string `json:"key"`
}

type VerifyPaymentRequest struct {
	PaymentDetails
	BookingID string `json:"bookingId,omitempty"`
}

type VerifyPaymentResult struct {
	Verified  bool   `json:"verified"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
}

package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"fleetlink/internal/events"
	"fleetlink/internal/payments/gateway"
	"fleetlink/pkg/config"
	apperrors "fleetlink/pkg/errors"
	"fleetlink/pkg/logger"
	"fleetlink/pkg/model"
	"fleetlink/pkg/signature"
	"fleetlink/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const keySecret = "key_secret"

type fakeGateway struct {
	params gateway.OrderParams
	err    error
}

func (g *fakeGateway) CreateOrder(ctx context.Context, params gateway.OrderParams) (*model.PaymentOrder, error) {
	g.params = params
	if g.err != nil {
		return nil, g.err
	}
	return &model.PaymentOrder{ID: "order_1", Amount: params.Amount, Currency: params.Currency, Receipt: params.Receipt, Status: "created"}, nil
}

func (g *fakeGateway) VerifyPayment(details *model.PaymentDetails) bool {
	return signature.Verify(keySecret, signature.PaymentPayload(details.OrderID, details.PaymentID), details.Signature)
}

func (g *fakeGateway) VerifyWebhook(body []byte, sig string) bool { return false }

type recordingPublisher struct {
	events.Publisher
	mu       sync.Mutex
	payments []events.PaymentEvent
}

func (p *recordingPublisher) PaymentVerified(ctx context.Context, e events.PaymentEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments = append(p.payments, e)
}

var fixedNow = time.Date(2025, 5, 30, 12, 0, 0, 0, time.UTC)

func newTestService(gw gateway.Gateway) (*paymentService, *recordingPublisher) {
	cfg := &config.Config{Log: logger.Discard(), RazorpayKeyID: "rzp_test_key", Tariff: config.DefaultTariff()}
	pub := &recordingPublisher{}
	svc := NewPaymentService(gw, pub, validation.New(cfg.Log), cfg).(*paymentService)
	svc.now = func() time.Time { return fixedNow }
	return svc, pub
}

func orderRequest() *model.CreateOrderRequest {
	return &model.CreateOrderRequest{
		Amount:         170.995,
		BookingID:      "PKG1748606400000AB12C",
		CustomerName:   " Asha  Rao ",
		CustomerMobile: "+91 98765 43210",
		VehicleNumber:  "mh-12 ab 1234",
	}
}

func TestCreateOrder(t *testing.T) {
	gw := &fakeGateway{}
	svc, _ := newTestService(gw)

	order, err := svc.CreateOrder(context.Background(), orderRequest())
	require.NoError(t, err)

	assert.Equal(t, "order_1", order.ID)
	assert.EqualValues(t, 17100, gw.params.Amount)
	assert.Equal(t, "INR", gw.params.Currency)
	assert.Equal(t, "booking_PKG1748606400000AB_1748606400000", gw.params.Receipt, "receipt is shortened to 40 characters")
	assert.Equal(t, map[string]string{
		"bookingId":      "PKG1748606400000AB12C",
		"customerName":   "Asha Rao",
		"customerMobile": "+919876543210",
		"vehicleNumber":  "MH12AB1234",
		"description":    "FleetLink Booking Payment",
	}, gw.params.Notes)
}

func TestCreateOrder_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *model.CreateOrderRequest)
		gwErr    error
		wantCode string
	}{
		{"amount below one rupee", func(r *model.CreateOrderRequest) { r.Amount = 0.5 }, nil, apperrors.CodeValidation},
		{"missing booking", func(r *model.CreateOrderRequest) { r.BookingID = " " }, nil, apperrors.CodeValidation},
		{"bad mobile", func(r *model.CreateOrderRequest) { r.CustomerMobile = "12" }, nil, apperrors.CodeValidation},
		{"gateway down", func(r *model.CreateOrderRequest) {}, errors.New("dial tcp: i/o timeout"), apperrors.CodeBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(&fakeGateway{err: tt.gwErr})
			req := orderRequest()
			tt.mutate(req)
			_, err := svc.CreateOrder(context.Background(), req)
			assert.True(t, apperrors.HasCode(err, tt.wantCode), "expected %s, got %v", tt.wantCode, err)
		})
	}
}

func TestCreateOrder_GatewayErrorHidden(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{err: errors.New("BAD_REQUEST_ERROR: key_secret invalid")})

	_, err := svc.CreateOrder(context.Background(), orderRequest())
	appErr := apperrors.AsAppError(err)
	require.NotNil(t, appErr)
	assert.NotContains(t, appErr.Message, "key_secret")
}

func TestCreateOrder_NotConfigured(t *testing.T) {
	svc, _ := newTestService(&fakeGateway{})
	svc.cfg.RazorpayKeyID = ""

	_, err := svc.CreateOrder(context.Background(), orderRequest())
	assert.Equal(t, 503, apperrors.AsAppError(err).StatusCode())
}

func TestReceipt(t *testing.T) {
	assert.Equal(t, "booking_abc_1748606400000", Receipt("abc", fixedNow))

	long := Receipt("665f1c2e9b1e8a3d4c2b1a01", fixedNow)
	assert.Len(t, long, 40)
	assert.Equal(t, "booking_665f1c2e9b1e8a3d4c_1748606400000", long)
}

func TestToMinorUnits(t *testing.T) {
	assert.EqualValues(t, 100, ToMinorUnits(1))
	assert.EqualValues(t, 17100, ToMinorUnits(171))
	assert.EqualValues(t, 1999, ToMinorUnits(19.99))
}

func TestVerify(t *testing.T) {
	svc, pub := newTestService(&fakeGateway{})
	valid := signature.Sign(keySecret, []byte("order_1|pay_1"))

	result, err := svc.Verify(context.Background(), &model.VerifyPaymentRequest{
		PaymentDetails: model.PaymentDetails{OrderID: "order_1", PaymentID: "pay_1", Signature: valid},
		BookingID:      "BK1748606400000AB12C",
	})
	require.NoError(t, err)
	assert.True(t, result.Verified)
	require.Len(t, pub.payments, 1)
	assert.Equal(t, "BK1748606400000AB12C", pub.payments[0].BookingID)
	assert.Equal(t, "verify", pub.payments[0].Source)

	_, err = svc.Verify(context.Background(), &model.VerifyPaymentRequest{
		PaymentDetails: model.PaymentDetails{OrderID: "order_1", PaymentID: "pay_2", Signature: valid},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "signature of another payment must not verify")

	_, err = svc.Verify(context.Background(), &model.VerifyPaymentRequest{
		PaymentDetails: model.PaymentDetails{OrderID: "order_1"},
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
	assert.Len(t, pub.payments, 1)
}

func TestHandleWebhook(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		wantErr     bool
		wantBooking string
		published   bool
	}{
		{
			name:        "captured",
			body:        `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1","amount":17100,"currency":"INR","notes":{"bookingId":"PKG1","attempt":2}}}}}`,
			wantBooking: "PKG1",
			published:   true,
		},
		{
			name: "other event ignored",
			body: `{"event":"order.paid","payload":{}}`,
		},
		{
			name:    "missing ids",
			body:    `{"event":"payment.captured","payload":{"payment":{"entity":{"amount":100}}}}`,
			wantErr: true,
		},
		{
			name:    "not json",
			body:    `event=payment.captured`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, pub := newTestService(&fakeGateway{})
			err := svc.HandleWebhook(context.Background(), []byte(tt.body))
			if tt.wantErr {
				assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput), "got %v", err)
				assert.Empty(t, pub.payments)
				return
			}
			require.NoError(t, err)
			if !tt.published {
				assert.Empty(t, pub.payments)
				return
			}
			require.Len(t, pub.payments, 1)
			assert.Equal(t, tt.wantBooking, pub.payments[0].BookingID)
			assert.EqualValues(t, 17100, pub.payments[0].Amount)
			assert.Equal(t, "webhook", pub.payments[0].Source)
		})
	}
}

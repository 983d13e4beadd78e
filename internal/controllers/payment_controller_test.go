package controllers_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"testing"

	"bus_portal/internal/models"
	"bus_portal/internal/payment"
	"bus_portal/internal/testutil"
)

func sign(orderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func pendingBooking(e *testEnv, amount float64) *models.Booking {
	return e.mem.AddBooking(models.Booking{
		StudentID: "3b1f5f0e-1111-4222-8333-444444444444", Status: models.BookingConfirmed,
		PaymentStatus: models.PaymentPending, Amount: amount,
	})
}

func TestCreateOrderThroughGateway(t *testing.T) {
	e := newTestEnv(t)
	b := pendingBooking(e, 450.5)

	w := e.do(http.MethodPost, "/api/payments/create-order", map[string]string{"bookingId": b.ID}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp struct {
		Order payment.Order `json:"order"`
		KeyID string        `json:"keyId"`
	}
	testutil.AssertJSON(t, w, &resp)
	if resp.Order.ID != "order_live_1" || resp.Order.Amount != 45050 || resp.KeyID != "rzp_test_key" {
		t.Errorf("unexpected order %+v key %q", resp.Order, resp.KeyID)
	}
	if got := e.mem.Booking(b.ID).PaymentOrderID; got == nil || *got != "order_live_1" {
		t.Errorf("payment_order_id = %v", got)
	}

	w = e.do(http.MethodPost, "/api/payments/create-order", map[string]interface{}{"bookingId": b.ID, "amount": -1}, nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = e.do(http.MethodPost, "/api/payments/create-order", map[string]string{"bookingId": "9a3c5a9e-0000-4000-8000-000000000000"}, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "Booking not found")
}

func TestVerifyPayment(t *testing.T) {
	e := newTestEnv(t)
	b := pendingBooking(e, 300)
	w := e.do(http.MethodPost, "/api/payments/create-order", map[string]string{"bookingId": b.ID}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.do(http.MethodPost, "/api/payments/verify", map[string]string{
		"bookingId": b.ID, "orderId": "order_live_1", "paymentId": "pay_1", "signature": "deadbeef",
	}, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "Invalid payment signature")
	if got := e.mem.Booking(b.ID).PaymentStatus; got != models.PaymentFailed {
		t.Errorf("payment_status = %q, want failed", got)
	}

	// a valid signature for another order is still rejected
	w = e.do(http.MethodPost, "/api/payments/verify", map[string]string{
		"bookingId": b.ID, "orderId": "order_other", "paymentId": "pay_1", "signature": sign("order_other", "pay_1"),
	}, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "Invalid payment signature")

	w = e.do(http.MethodPost, "/api/payments/verify", map[string]string{
		"bookingId": b.ID, "orderId": "order_live_1", "paymentId": "pay_1",
		"signature": strings.ToUpper(sign("order_live_1", "pay_1")),
	}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	got := e.mem.Booking(b.ID)
	if got.PaymentStatus != models.PaymentPaid || got.PaymentID == nil || *got.PaymentID != "pay_1" {
		t.Errorf("booking after verify: status=%q id=%v", got.PaymentStatus, got.PaymentID)
	}

	w = e.do(http.MethodPost, "/api/payments/create-order", map[string]string{"bookingId": b.ID}, nil)
	testutil.AssertError(t, w, http.StatusConflict, "Booking is already paid")
}

func TestPaymentsInDemoMode(t *testing.T) {
	e := newTestEnv(t, withDemo)
	b := pendingBooking(e, 120)

	w := e.do(http.MethodPost, "/api/payments/create-order", map[string]string{"bookingId": b.ID}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	var resp struct {
		Order payment.Order `json:"order"`
	}
	testutil.AssertJSON(t, w, &resp)
	if !resp.Order.Demo || !strings.HasPrefix(resp.Order.ID, payment.DemoOrderPrefix) {
		t.Fatalf("expected demo order, got %+v", resp.Order)
	}

	w = e.do(http.MethodPost, "/api/payments/verify", map[string]string{
		"bookingId": b.ID, "orderId": resp.Order.ID, "paymentId": "pay_demo", "signature": "anything",
	}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.do(http.MethodGet, "/api/test/razorpay", nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
}

func TestGatewayCheck(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(http.MethodGet, "/api/test/razorpay", nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	e.gateway.Close()
	w = e.do(http.MethodGet, "/api/test/razorpay", nil, nil)
	testutil.AssertStatus(t, w, http.StatusBadGateway)
}

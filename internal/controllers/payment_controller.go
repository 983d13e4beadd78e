package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/models"
	"bus_portal/internal/payment"
	"bus_portal/internal/store"
)

// PaymentGateway is the part of the gateway client the handlers use.
type PaymentGateway interface {
	Demo() bool
	KeyID() string
	CreateOrder(ctx context.Context, amount float64, receipt string) (*payment.Order, error)
	ListOrders(ctx context.Context, count int) (json.RawMessage, error)
	VerifySignature(orderID, paymentID, signature string) bool
}

type PaymentController struct {
	store   *store.Store
	gateway PaymentGateway
}

func NewPaymentController(st *store.Store, gateway PaymentGateway) *PaymentController {
	return &PaymentController{store: st, gateway: gateway}
}

type createOrderInput struct {
	BookingID string   `json:"bookingId"`
	Amount    *float64 `json:"amount"`
}

func (pc *PaymentController) booking(c *gin.Context, id string) (*models.Booking, bool) {
	booking, err := pc.store.Bookings.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return nil, false
		}
		respondServerError(c, err, "Failed to fetch booking")
		return nil, false
	}
	return booking, true
}

// CreateOrder handles POST /api/payments/create-order. The amount defaults
// to the booking's fare.
func (pc *PaymentController) CreateOrder(c *gin.Context) {
	var in createOrderInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.BookingID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking ID is required"})
		return
	}
	if !models.IsUUID(in.BookingID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	booking, ok := pc.booking(c, in.BookingID)
	if !ok {
		return
	}
	if booking.PaymentStatus == models.PaymentPaid {
		c.JSON(http.StatusConflict, gin.H{"error": "Booking is already paid"})
		return
	}

	amount := booking.Amount
	if in.Amount != nil {
		amount = *in.Amount
	}
	ctx := c.Request.Context()
	order, err := pc.gateway.CreateOrder(ctx, amount, "booking_"+booking.ID)
	if err != nil {
		switch {
		case errors.Is(err, payment.ErrNotConfigured):
			respondConfigError(c, "RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET")
		case errors.Is(err, payment.ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Amount must be greater than zero"})
		default:
			respondServerError(c, err, "Failed to create payment order")
		}
		return
	}

	if err := pc.store.Bookings.UpdatePayment(ctx, booking.ID, map[string]interface{}{
		"payment_order_id": order.ID,
		"payment_status":   models.PaymentPending,
	}); err != nil {
		respondServerError(c, err, "Failed to record payment order")
		return
	}
	logrus.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"order_id":   order.ID,
		"demo":       order.Demo,
	}).Info("Payment order created")
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order, "keyId": pc.gateway.KeyID()})
}

type verifyPaymentInput struct {
	BookingID string `json:"bookingId"`
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

// VerifyPayment handles POST /api/payments/verify.
func (pc *PaymentController) VerifyPayment(c *gin.Context) {
	var in verifyPaymentInput
	if err := c.ShouldBindJSON(&in); err != nil ||
		in.BookingID == "" || in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking ID, order ID, payment ID and signature are required"})
		return
	}
	if !models.IsUUID(in.BookingID) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	booking, ok := pc.booking(c, in.BookingID)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	orderMatches := booking.PaymentOrderID != nil && *booking.PaymentOrderID == in.OrderID
	if !orderMatches || !pc.gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		if err := pc.store.Bookings.UpdatePayment(ctx, booking.ID, map[string]interface{}{
			"payment_status": models.PaymentFailed,
		}); err != nil {
			logrus.WithError(err).WithField("booking_id", booking.ID).Error("Failed to mark payment as failed")
		}
		logrus.WithFields(logrus.Fields{
			"booking_id":    booking.ID,
			"order_id":      in.OrderID,
			"order_matches": orderMatches,
		}).Warn("Payment signature rejected")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment signature"})
		return
	}

	if err := pc.store.Bookings.UpdatePayment(ctx, booking.ID, map[string]interface{}{
		"payment_status": models.PaymentPaid,
		"payment_id":     in.PaymentID,
	}); err != nil {
		respondServerError(c, err, "Failed to record payment")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Payment verified", "paymentId": in.PaymentID})
}

// TestGateway handles GET /api/test/razorpay by listing one order.
func (pc *PaymentController) TestGateway(c *gin.Context) {
	raw, err := pc.gateway.ListOrders(c.Request.Context(), 1)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			respondConfigError(c, "RAZORPAY_KEY_ID/RAZORPAY_KEY_SECRET")
			return
		}
		logrus.WithError(err).Warn("Payment gateway test call failed")
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Payment gateway request failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "demo": pc.gateway.Demo(), "response": raw})
}

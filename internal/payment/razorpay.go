package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"bus_portal/internal/config"
)

// DemoOrderPrefix marks orders fabricated in demo mode.
const DemoOrderPrefix = "order_demo_"

var (
	ErrNotConfigured = errors.New("payment gateway credentials missing")
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Order is the subset of the gateway's order object the portal uses.
type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"` // paise
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
	Demo     bool   `json:"demo,omitempty"`
}

// Client talks to the Razorpay REST API with basic auth. In demo mode it
// never leaves the process.
type Client struct {
	cfg  config.PaymentConfig
	demo bool
	http *http.Client
	now  func() time.Time
}

func NewClient(cfg config.PaymentConfig, demo bool) *Client {
	return &Client{
		cfg:  cfg,
		demo: demo,
		http: &http.Client{Timeout: 15 * time.Second},
		now:  time.Now,
	}
}

// Demo reports whether fabricated responses are returned.
func (c *Client) Demo() bool { return c.demo }

func (c *Client) configured() bool {
	return c.cfg.KeyID != "" && c.cfg.KeySecret != ""
}

// KeyID is safe to hand to the browser checkout.
func (c *Client) KeyID() string { return c.cfg.KeyID }

// CreateOrder opens an order for amount rupees. The gateway works in paise.
func (c *Client) CreateOrder(ctx context.Context, amount float64, receipt string) (*Order, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	paise := int64(math.Round(amount * 100))
	if c.demo {
		return &Order{
			ID:       fmt.Sprintf("%s%d", DemoOrderPrefix, c.now().UnixMilli()),
			Amount:   paise,
			Currency: "INR",
			Receipt:  receipt,
			Status:   "created",
			Demo:     true,
		}, nil
	}
	if !c.configured() {
		return nil, ErrNotConfigured
	}

	body, err := json.Marshal(map[string]interface{}{
		"amount":   paise,
		"currency": "INR",
		"receipt":  receipt,
	})
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, http.MethodPost, "/orders", body)
	if err != nil {
		return nil, err
	}
	var o Order
	if err := json.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return &o, nil
}

// ListOrders fetches the most recent orders. Used to check the credentials.
func (c *Client) ListOrders(ctx context.Context, count int) (json.RawMessage, error) {
	if c.demo {
		return json.RawMessage(`{"entity":"collection","count":0,"items":[],"demo":true}`), nil
	}
	if !c.configured() {
		return nil, ErrNotConfigured
	}
	return c.do(ctx, http.MethodGet, fmt.Sprintf("/orders?count=%d", count), nil)
}

// VerifySignature checks the checkout signature, an HMAC-SHA256 of
// "orderID|paymentID" keyed by the secret. Demo orders always pass in demo
// mode.
func (c *Client) VerifySignature(orderID, paymentID, signature string) bool {
	if c.demo && strings.HasPrefix(orderID, DemoOrderPrefix) {
		return true
	}
	if !c.configured() {
		return false
	}
	return ValidSignature(c.cfg.KeySecret, orderID, paymentID, signature)
}

func ValidSignature(secret, orderID, paymentID, signature string) bool {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (json.RawMessage, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.BaseURL, "/")+path, rd)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.KeyID, c.cfg.KeySecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%s %s: http %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return raw, nil
}

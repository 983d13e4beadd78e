package controllers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"bus_portal/internal/config"
	"bus_portal/internal/controllers"
	"bus_portal/internal/middleware"
	"bus_portal/internal/models"
	"bus_portal/internal/payment"
	"bus_portal/internal/push"
	"bus_portal/internal/routes"
	"bus_portal/internal/testutil"
)

const (
	testAdminKey  = "admin-key"
	testKeySecret = "rzp_secret"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeNotifier struct {
	mu     sync.Mutex
	sent   []models.Notification
	result push.Result
}

func (f *fakeNotifier) Notify(_ context.Context, note models.Notification) (push.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, note)
	return f.result, nil
}

type testEnv struct {
	mem      *testutil.MemStore
	cfg      *config.Config
	sessions *middleware.Sessions
	hub      *controllers.LocationHub
	notifier *fakeNotifier
	gateway  *httptest.Server
	router   *gin.Engine
}

type envOption func(*config.Config)

func withDemo(cfg *config.Config) { cfg.DemoMode = true }

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/orders":
			var body struct {
				Amount  int64  `json:"amount"`
				Receipt string `json:"receipt"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			_ = json.NewEncoder(w).Encode(payment.Order{
				ID: "order_live_1", Amount: body.Amount, Currency: "INR", Receipt: body.Receipt, Status: "created",
			})
		case r.Method == http.MethodGet && r.URL.Path == "/orders":
			_, _ = w.Write([]byte(`{"entity":"collection","count":1,"items":[{"id":"order_live_1"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(gateway.Close)

	cfg := &config.Config{
		Env:           "test",
		Location:      time.UTC,
		AdminSetupKey: testAdminKey,
		Payment:       config.PaymentConfig{KeyID: "rzp_test_key", KeySecret: testKeySecret, BaseURL: gateway.URL},
		Push:          config.PushConfig{VAPIDPublicKey: "vapid-public"},
		Sessions:      config.SessionConfig{Secret: "test-secret", TTL: time.Hour},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	mem := testutil.NewMemStore()
	st := mem.Store()
	sessions := middleware.NewSessions(cfg.Sessions)
	hub := controllers.NewLocationHub()
	t.Cleanup(hub.Close)
	notifier := &fakeNotifier{}

	r := routes.SetupRouter(routes.Handlers{
		Auth:          controllers.NewAuthController(st, cfg, sessions),
		Routes:        controllers.NewRouteController(st, cfg),
		Bookings:      controllers.NewBookingController(st, cfg),
		Locations:     controllers.NewLocationController(st, hub, sessions),
		Drivers:       controllers.NewDriverController(st),
		Notifications: controllers.NewNotificationController(st, notifier),
		Push:          controllers.NewPushController(st, cfg.Push),
		Payments:      controllers.NewPaymentController(st, payment.NewClient(cfg.Payment, cfg.DemoMode)),
		Admin:         controllers.NewAdminController(st, cfg),
		System:        controllers.NewSystemController(st, cfg),
		Sessions:      sessions,
		AdminKey:      cfg.AdminSetupKey,
	}, middleware.CORS())

	return &testEnv{
		mem:      mem,
		cfg:      cfg,
		sessions: sessions,
		hub:      hub,
		notifier: notifier,
		gateway:  gateway,
		router:   r,
	}
}

func (e *testEnv) do(method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	return testutil.Serve(e.router, testutil.MakeRequest(method, path, body, headers))
}

func (e *testEnv) admin(method, path string, body interface{}) *httptest.ResponseRecorder {
	return e.do(method, path, body, map[string]string{middleware.AdminKeyHeader: testAdminKey})
}

func (e *testEnv) asDriver(t *testing.T, driverID string) map[string]string {
	t.Helper()
	token, _, err := e.sessions.Generate(driverID, middleware.RoleDriver)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return map[string]string{"Authorization": "Bearer " + token}
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(hash)
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(config.DateLayout, s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return d
}

func fptr(f float64) *float64 { return &f }

func sptr(s string) *string { return &s }

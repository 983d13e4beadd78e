package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"
)

// Config holds every setting the portal reads from the environment.
// It is built once at startup and handed to the components that need it.
type Config struct {
	HTTPAddr string
	Env      string // dev|prod
	LogLevel string
	LogFile  string
	Location *time.Location

	Store    StoreConfig
	Payment  PaymentConfig
	Push     PushConfig
	Sessions SessionConfig

	AdminSetupKey string
	DemoMode      bool
	SentryDSN     string
	AutoMigrate   bool
}

// StoreConfig describes how to reach the relational store.
type StoreConfig struct {
	URL            string
	ServiceRoleKey string
	AnonKey        string
	RestrictedRole string
}

type PaymentConfig struct {
	KeyID     string
	KeySecret string
	BaseURL   string
}

type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
}

type SessionConfig struct {
	Secret string
	TTL    time.Duration
}

var (
	// ErrMissingStore is returned when no store URL is configured.
	ErrMissingStore = errors.New("DATABASE_URL is not set")
	// ErrMissingSessionSecret is returned outside dev when SESSION_SECRET is unset.
	ErrMissingSessionSecret = errors.New("SESSION_SECRET is not set")
)

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, relying on env vars")
	}

	loc, err := time.LoadLocation(getEnv("TZ", "Asia/Kolkata"))
	if err != nil {
		loc = time.Local
	}

	cfg := &Config{
		HTTPAddr: getEnv("HTTP_ADDR", ":8080"),
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", "./logs/app.log"),
		Location: loc,
		Store: StoreConfig{
			URL:            os.Getenv("DATABASE_URL"),
			ServiceRoleKey: os.Getenv("STORE_SERVICE_ROLE_KEY"),
			AnonKey:        os.Getenv("STORE_ANON_KEY"),
			RestrictedRole: getEnv("STORE_RESTRICTED_ROLE", "anon"),
		},
		Payment: PaymentConfig{
			KeyID:     os.Getenv("RAZORPAY_KEY_ID"),
			KeySecret: os.Getenv("RAZORPAY_KEY_SECRET"),
			BaseURL:   getEnv("RAZORPAY_BASE_URL", "https://api.razorpay.com/v1"),
		},
		Push: PushConfig{
			VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
			VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
			Subject:         getEnv("VAPID_SUBJECT", "mailto:transport@example.edu"),
		},
		Sessions: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			TTL:    24 * time.Hour,
		},
		AdminSetupKey: os.Getenv("ADMIN_SETUP_KEY"),
		DemoMode:      getEnvBool("DEMO_MODE", false),
		SentryDSN:     os.Getenv("SENTRY_DSN"),
		AutoMigrate:   getEnvBool("AUTO_MIGRATE", false),
	}

	if cfg.Store.URL == "" {
		return nil, ErrMissingStore
	}
	if cfg.Sessions.Secret == "" {
		if !cfg.IsDev() {
			return nil, ErrMissingSessionSecret
		}
		secret, err := randomSecret()
		if err != nil {
			return nil, err
		}
		cfg.Sessions.Secret = secret
		logrus.Warn("SESSION_SECRET not set, using a per-process secret; sessions end on restart")
	}
	return cfg, nil
}

// IsDev reports whether the service runs in the dev environment.
func (c *Config) IsDev() bool {
	return strings.EqualFold(c.Env, "dev")
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Privileged reports whether the service-role key is configured. The
// privileged key wins when both are present.
func (s StoreConfig) Privileged() bool {
	return s.ServiceRoleKey != ""
}

// DSN returns the connection string. Without the service-role key every
// session starts in the restricted role so row-level policies apply.
func (s StoreConfig) DSN() string {
	if s.Privileged() || s.RestrictedRole == "" {
		return s.URL
	}
	if u, err := url.Parse(s.URL); err == nil && u.Scheme != "" {
		q := u.Query()
		q.Set("role", s.RestrictedRole)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return strings.TrimSpace(s.URL) + " role=" + s.RestrictedRole
}

// HasCredentials reports whether either store key is configured.
func (s StoreConfig) HasCredentials() bool {
	return s.ServiceRoleKey != "" || s.AnonKey != ""
}

// PaymentConfigured reports whether both gateway credentials are present.
func (c *Config) PaymentConfigured() bool {
	return c.Payment.KeyID != "" && c.Payment.KeySecret != ""
}

// PushConfigured reports whether VAPID keys are present.
func (c *Config) PushConfigured() bool {
	return c.Push.VAPIDPublicKey != "" && c.Push.VAPIDPrivateKey != ""
}

// Today returns the current calendar date in the configured time zone.
func (c *Config) Today() string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return time.Now().In(loc).Format(DateLayout)
}

// DateLayout is the calendar-date format used on the wire and in queries.
const DateLayout = "2006-01-02"

// getEnv reads an environment variable or returns the provided default
func getEnv(key, defaultValue string) string {
	if v, exists := os.LookupEnv(key); exists && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return defaultValue
	}
	return b
}

package config

import (
	"strings"
	"testing"
	"time"
)

func TestStoreDSN(t *testing.T) {
	tests := []struct {
		name       string
		cfg        StoreConfig
		privileged bool
		want       string
	}{
		{
			name:       "service role keeps url",
			cfg:        StoreConfig{URL: "postgres://u:p@db:5432/portal", ServiceRoleKey: "svc", AnonKey: "anon", RestrictedRole: "anon"},
			privileged: true,
			want:       "postgres://u:p@db:5432/portal",
		},
		{
			name: "anon key adds role to url",
			cfg:  StoreConfig{URL: "postgres://u:p@db:5432/portal?sslmode=disable", AnonKey: "anon", RestrictedRole: "anon"},
			want: "postgres://u:p@db:5432/portal?role=anon&sslmode=disable",
		},
		{
			name: "keyword dsn",
			cfg:  StoreConfig{URL: "host=db dbname=portal ", AnonKey: "anon", RestrictedRole: "portal_reader"},
			want: "host=db dbname=portal role=portal_reader",
		},
		{
			name: "no restricted role",
			cfg:  StoreConfig{URL: "postgres://db/portal", AnonKey: "anon"},
			want: "postgres://db/portal",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.Privileged(); got != tt.privileged {
				t.Errorf("Privileged() = %v, want %v", got, tt.privileged)
			}
			if got := tt.cfg.DSN(); got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/portal")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test")
	t.Setenv("RAZORPAY_KEY_SECRET", "")
	t.Setenv("DEMO_MODE", "true")
	t.Setenv("TZ", "UTC")
	t.Setenv("ENV", "dev")
	t.Setenv("SESSION_SECRET", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.DemoMode {
		t.Error("DEMO_MODE not read")
	}
	if cfg.PaymentConfigured() {
		t.Error("payment needs both key id and secret")
	}
	if cfg.HTTPAddr != ":8080" || !strings.HasPrefix(cfg.Payment.BaseURL, "https://") {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err != ErrMissingStore {
		t.Errorf("Load without DATABASE_URL: err = %v", err)
	}
}

func TestSessionSecret(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/portal")
	t.Setenv("SESSION_SECRET", "")

	t.Setenv("ENV", "prod")
	if _, err := Load(); err != ErrMissingSessionSecret {
		t.Errorf("prod without SESSION_SECRET: err = %v, want ErrMissingSessionSecret", err)
	}

	t.Setenv("ENV", "dev")
	a, err := Load()
	if err != nil {
		t.Fatalf("dev Load: %v", err)
	}
	b, err := Load()
	if err != nil {
		t.Fatalf("dev Load: %v", err)
	}
	if len(a.Sessions.Secret) != 64 || a.Sessions.Secret == b.Sessions.Secret {
		t.Errorf("dev secrets %q and %q should be random per load", a.Sessions.Secret, b.Sessions.Secret)
	}

	t.Setenv("ENV", "prod")
	t.Setenv("SESSION_SECRET", "configured")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("prod Load: %v", err)
	}
	if cfg.Sessions.Secret != "configured" {
		t.Errorf("secret = %q", cfg.Sessions.Secret)
	}
}

func TestToday(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	cfg := &Config{Location: loc}
	want := time.Now().In(loc).Format(DateLayout)
	if got := cfg.Today(); got != want {
		t.Errorf("Today() = %q, want %q", got, want)
	}
}

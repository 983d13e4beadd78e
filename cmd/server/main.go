package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ginlog "github.com/gin-contrib/logger"
	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/controllers"
	"bus_portal/internal/logger"
	"bus_portal/internal/middleware"
	"bus_portal/internal/observability"
	"bus_portal/internal/payment"
	"bus_portal/internal/push"
	"bus_portal/internal/routes"
	"bus_portal/internal/store"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Initialize structured logging to file
	logWriter := logger.Setup(cfg.LogFile, cfg.LogLevel, cfg.Env)

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		logrus.WithError(err).Warn("Sentry init failed, continuing without error reporting")
	}
	defer flush()

	// Connect to the database
	db, err := config.InitDB(cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to store")
	}
	st := store.New(db)

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	sessions := middleware.NewSessions(cfg.Sessions)
	hub := controllers.NewLocationHub()
	defer hub.Close()
	notifier := push.NewNotifier(st.Push, cfg.Push)
	gateway := payment.NewClient(cfg.Payment, cfg.DemoMode)

	r := routes.SetupRouter(routes.Handlers{
		Auth:          controllers.NewAuthController(st, cfg, sessions),
		Routes:        controllers.NewRouteController(st, cfg),
		Bookings:      controllers.NewBookingController(st, cfg),
		Locations:     controllers.NewLocationController(st, hub, sessions),
		Drivers:       controllers.NewDriverController(st),
		Notifications: controllers.NewNotificationController(st, notifier),
		Push:          controllers.NewPushController(st, cfg.Push),
		Payments:      controllers.NewPaymentController(st, gateway),
		Admin:         controllers.NewAdminController(st, cfg),
		System:        controllers.NewSystemController(st, cfg),
		Sessions:      sessions,
		AdminKey:      cfg.AdminSetupKey,
	},
		// Request logging middleware
		ginlog.SetLogger(
			ginlog.WithWriter(logWriter),
			ginlog.WithUTC(true),
			ginlog.WithSkipPath([]string{"/healthz", "/metrics"}),
		),
		// Recovery middleware
		gin.Recovery(),
		sentrygin.New(sentrygin.Options{Repanic: true}),
		middleware.CORS(),
		middleware.Metrics(),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logrus.WithFields(logrus.Fields{
			"addr": cfg.HTTPAddr,
			"env":  cfg.Env,
			"demo": cfg.DemoMode,
		}).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Error("Graceful shutdown failed")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

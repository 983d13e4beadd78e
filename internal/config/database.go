package config

import (
	"errors"
	"fmt"
	"time"

	logrus "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"bus_portal/internal/logger"
	"bus_portal/internal/migrations"
)

// ErrMissingCredentials is returned when neither store key is configured.
var ErrMissingCredentials = errors.New("no store credentials configured")

// InitDB opens the store connection described by cfg, switches to the
// restricted role when only the anonymous key is present, and applies the
// embedded migrations when AutoMigrate is set.
func InitDB(cfg *Config) (*gorm.DB, error) {
	if !cfg.Store.HasCredentials() {
		return nil, ErrMissingCredentials
	}

	gormLog := gormlogger.New(logger.GormLogger(), gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(postgres.Open(cfg.Store.DSN()), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to store: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if cfg.AutoMigrate {
		if err := migrations.Up(sqlDB); err != nil {
			return nil, fmt.Errorf("apply migrations: %w", err)
		}
		logrus.Info("Store migrations applied")
	}

	if !cfg.Store.Privileged() {
		logrus.WithField("role", cfg.Store.RestrictedRole).Warn("Service-role key missing, using restricted store role")
	}

	return db, nil
}

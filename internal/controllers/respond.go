package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"bus_portal/internal/config"
	"bus_portal/internal/observability"
)

const msgConfigError = "Server configuration error"

var errBadDate = errors.New("invalid date")

// respondServerError logs err with request context, reports it, and answers
// with a generic message.
func respondServerError(c *gin.Context, err error, msg string) {
	logrus.WithError(err).WithFields(logrus.Fields{
		"method": c.Request.Method,
		"path":   c.FullPath(),
	}).Error(msg)
	observability.CaptureErr(err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": msg})
}

func respondConfigError(c *gin.Context, what string) {
	logrus.WithField("missing", what).Error("Request needs configuration that is not set")
	c.JSON(http.StatusInternalServerError, gin.H{"error": msgConfigError})
}

// parseDate reads a YYYY-MM-DD calendar date. An empty string means today
// in the configured zone.
func parseDate(cfg *config.Config, raw string) (time.Time, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = cfg.Today()
	}
	d, err := time.Parse(config.DateLayout, raw)
	if err != nil {
		return time.Time{}, "", errBadDate
	}
	return d, raw, nil
}

// calendarDate returns the leading YYYY-MM-DD of an ISO date or timestamp.
func calendarDate(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(config.DateLayout) {
		return "", false
	}
	d := raw[:len(config.DateLayout)]
	if _, err := time.Parse(config.DateLayout, d); err != nil {
		return "", false
	}
	return d, true
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/middleware"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

const minPasswordLength = 6

type AuthController struct {
	store    *store.Store
	cfg      *config.Config
	sessions *middleware.Sessions
}

func NewAuthController(st *store.Store, cfg *config.Config, sessions *middleware.Sessions) *AuthController {
	return &AuthController{store: st, cfg: cfg, sessions: sessions}
}

type credentialsInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// DriverLogin handles POST /api/auth/driver-login.
func (ac *AuthController) DriverLogin(c *gin.Context) {
	var in credentialsInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	driver, err := ac.store.Drivers.FindByEmail(c.Request.Context(), in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to look up driver")
		return
	}
	if !driver.IsActive() {
		c.JSON(http.StatusForbidden, gin.H{"error": "Driver account is not active"})
		return
	}
	if driver.PasswordHash == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password not set. Please contact administrator"})
		return
	}
	if !checkPassword(driver.PasswordHash, in.Password) {
		logrus.WithField("driver_id", driver.ID).Warn("Driver login with wrong password")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, expiresAt, err := ac.sessions.Generate(driver.ID, middleware.RoleDriver)
	if err != nil {
		respondServerError(c, err, "Could not create session")
		return
	}

	user := gin.H{"id": driver.ID, "email": driver.Email, "role": middleware.RoleDriver, "name": driver.Name}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"session": gin.H{
			"access_token": token,
			"token_type":   "bearer",
			"expires_at":   expiresAt.Unix(),
			"user":         user,
		},
		"driver": driver,
	})
}

type firstLoginInput struct {
	Email       string `json:"email"`
	DateOfBirth string `json:"dateOfBirth"`
	NewPassword string `json:"newPassword"`
}

// FirstLogin handles POST /api/auth/first-login. A student confirms their
// date of birth and sets a password exactly once.
func (ac *AuthController) FirstLogin(c *gin.Context) {
	var in firstLoginInput
	if err := c.ShouldBindJSON(&in); err != nil ||
		strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.DateOfBirth) == "" || in.NewPassword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email, date of birth and new password are required"})
		return
	}
	if len(in.NewPassword) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
		return
	}

	ctx := c.Request.Context()
	student, err := ac.store.Students.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		respondServerError(c, err, "Failed to look up student")
		return
	}
	if student.FirstLoginCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "First login already completed"})
		return
	}
	if !dobMatches(in.DateOfBirth, student.DateOfBirth) {
		logrus.WithField("student_id", student.ID).Warn("First login with wrong date of birth")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date of birth"})
		return
	}

	hash, err := hashPassword(in.NewPassword)
	if err != nil {
		respondServerError(c, err, "Could not hash password")
		return
	}
	updated, err := ac.store.Students.CompleteFirstLogin(ctx, student.ID, hash)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// lost the race to a concurrent first login
			c.JSON(http.StatusBadRequest, gin.H{"error": "First login already completed"})
			return
		}
		respondServerError(c, err, "Failed to set password")
		return
	}

	logrus.WithField("student_id", updated.ID).Info("Student completed first login")
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Password set successfully",
		"student": updated,
	})
}

// dobMatches compares calendar dates only; time of day and zone are ignored.
func dobMatches(input string, stored *time.Time) bool {
	if stored == nil {
		return false
	}
	d, ok := calendarDate(input)
	if !ok {
		return false
	}
	return d == stored.UTC().Format(config.DateLayout)
}

// StudentLogin handles POST /api/auth/student-login.
func (ac *AuthController) StudentLogin(c *gin.Context) {
	var in credentialsInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and password are required"})
		return
	}

	ctx := c.Request.Context()
	student, err := ac.store.Students.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		respondServerError(c, err, "Failed to look up student")
		return
	}
	if !student.FirstLoginCompleted || student.PasswordHash == "" {
		c.JSON(http.StatusForbidden, gin.H{"error": "First login required", "requiresFirstLogin": true})
		return
	}
	if !checkPassword(student.PasswordHash, in.Password) {
		if err := ac.store.Students.RecordLoginFailure(ctx, student.ID); err != nil {
			logrus.WithError(err).WithField("student_id", student.ID).Warn("Failed to record login failure")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	now := time.Now()
	if err := ac.store.Students.RecordLogin(ctx, student.ID, now); err != nil {
		logrus.WithError(err).WithField("student_id", student.ID).Warn("Failed to record login")
	}
	student.FailedLoginAttempts = 0
	student.LastLoginAt = &now

	token, expiresAt, err := ac.sessions.Generate(student.ID, middleware.RoleStudent)
	if err != nil {
		respondServerError(c, err, "Could not create session")
		return
	}
	user := gin.H{"id": student.ID, "email": student.Email, "role": middleware.RoleStudent, "name": student.Name}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"user":    user,
		"session": gin.H{
			"access_token": token,
			"token_type":   "bearer",
			"expires_at":   expiresAt.Unix(),
			"user":         user,
		},
		"student": student,
	})
}

type syncExternalIDInput struct {
	Email      string `json:"email"`
	ExternalID string `json:"externalId"`
	UserType   string `json:"userType"`
}

// SyncExternalID handles POST /api/auth/sync-external-id, linking a row to
// the identity provider's user id.
func (ac *AuthController) SyncExternalID(c *gin.Context) {
	var in syncExternalIDInput
	if err := c.ShouldBindJSON(&in); err != nil || strings.TrimSpace(in.Email) == "" || strings.TrimSpace(in.ExternalID) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email and external ID are required"})
		return
	}
	if in.UserType == "" {
		in.UserType = middleware.RoleStudent
	}

	ctx := c.Request.Context()
	fields := map[string]interface{}{"external_id": strings.TrimSpace(in.ExternalID)}
	var (
		id  string
		err error
	)
	switch in.UserType {
	case middleware.RoleStudent:
		var s *models.Student
		if s, err = ac.store.Students.FindByEmail(ctx, in.Email); err == nil {
			id = s.ID
			_, err = ac.store.Students.Update(ctx, s.ID, fields)
		}
	case middleware.RoleDriver:
		var d *models.Driver
		if d, err = ac.store.Drivers.FindByEmail(ctx, in.Email); err == nil {
			id = d.ID
			_, err = ac.store.Drivers.Update(ctx, d.ID, fields)
		}
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "User type must be student or driver"})
		return
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		respondServerError(c, err, "Failed to sync external ID")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "id": id, "userType": in.UserType})
}

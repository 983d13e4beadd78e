package controllers_test

import (
	"net/http"
	"strings"
	"testing"
	"time"

	"bus_portal/internal/models"
	"bus_portal/internal/testutil"
)

func TestDriverLogin(t *testing.T) {
	e := newTestEnv(t)
	active := e.mem.AddDriver(models.Driver{
		Name: "Asha", Email: "a@x.com", Status: models.DriverActive, PasswordHash: mustHash(t, "secret123"),
	})
	e.mem.AddDriver(models.Driver{Name: "Off", Email: "off@x.com", Status: models.DriverInactive, PasswordHash: mustHash(t, "secret123")})
	e.mem.AddDriver(models.Driver{Name: "New", Email: "new@x.com", Status: models.DriverActive})

	t.Run("success issues driver session", func(t *testing.T) {
		w := e.do(http.MethodPost, "/api/auth/driver-login", map[string]string{"email": "a@x.com", "password": "secret123"}, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp struct {
			Success bool `json:"success"`
			Driver  struct {
				ID string `json:"id"`
			} `json:"driver"`
			Session struct {
				AccessToken string `json:"access_token"`
				TokenType   string `json:"token_type"`
			} `json:"session"`
		}
		testutil.AssertJSON(t, w, &resp)
		if !resp.Success || resp.Driver.ID != active.ID {
			t.Errorf("unexpected body: %s", w.Body.String())
		}
		if !strings.HasPrefix(resp.Session.AccessToken, "driver-session-") {
			t.Errorf("token %q lacks driver-session- prefix", resp.Session.AccessToken)
		}
		if strings.Contains(w.Body.String(), "password_hash") {
			t.Error("response leaks the password hash")
		}
		claims, err := e.sessions.Validate(resp.Session.AccessToken)
		if err != nil || claims.Subject != active.ID {
			t.Errorf("token does not validate to the driver: %v", err)
		}
	})

	tests := []struct {
		name   string
		body   map[string]string
		status int
		msg    string
	}{
		{"missing password", map[string]string{"email": "a@x.com"}, http.StatusBadRequest, "Email and password are required"},
		{"unknown driver", map[string]string{"email": "nobody@x.com", "password": "x"}, http.StatusNotFound, "Driver not found"},
		{"inactive driver", map[string]string{"email": "off@x.com", "password": "secret123"}, http.StatusForbidden, "Driver account is not active"},
		{"no password set", map[string]string{"email": "new@x.com", "password": "secret123"}, http.StatusBadRequest, "Password not set. Please contact administrator"},
		{"wrong password", map[string]string{"email": "a@x.com", "password": "nope"}, http.StatusUnauthorized, "Invalid credentials"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.do(http.MethodPost, "/api/auth/driver-login", tt.body, nil)
			testutil.AssertError(t, w, tt.status, tt.msg)
		})
	}
}

func TestFirstLogin(t *testing.T) {
	e := newTestEnv(t)
	dob := time.Date(2001, 5, 17, 0, 0, 0, 0, time.UTC)
	student := e.mem.AddStudent(models.Student{Name: "Ravi", Email: "ravi@uni.edu", DateOfBirth: &dob, FailedLoginAttempts: 3})

	w := e.do(http.MethodPost, "/api/auth/first-login", map[string]string{
		"email": "ravi@uni.edu", "dateOfBirth": "2001-05-18", "newPassword": "hunter22",
	}, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "Invalid date of birth")

	w = e.do(http.MethodPost, "/api/auth/first-login", map[string]string{
		"email": "ravi@uni.edu", "dateOfBirth": "2001-05-17", "newPassword": "abc",
	}, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "Password must be at least 6 characters long")

	// a timestamp with a time of day still matches the calendar date
	w = e.do(http.MethodPost, "/api/auth/first-login", map[string]string{
		"email": "ravi@uni.edu", "dateOfBirth": "2001-05-17T18:30:00.000Z", "newPassword": "hunter22",
	}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if strings.Contains(w.Body.String(), "password_hash") {
		t.Error("response leaks the password hash")
	}

	got := e.mem.Student(student.ID)
	if !got.FirstLoginCompleted || got.FailedLoginAttempts != 0 || got.PasswordHash == "" {
		t.Errorf("student not updated: %+v", got)
	}

	// once completed, every further attempt is rejected whatever the input
	for _, body := range []map[string]string{
		{"email": "ravi@uni.edu", "dateOfBirth": "2001-05-17", "newPassword": "another1"},
		{"email": "ravi@uni.edu", "dateOfBirth": "1999-01-01", "newPassword": "another1"},
	} {
		w = e.do(http.MethodPost, "/api/auth/first-login", body, nil)
		testutil.AssertError(t, w, http.StatusBadRequest, "First login already completed")
	}

	w = e.do(http.MethodPost, "/api/auth/first-login", map[string]string{
		"email": "ghost@uni.edu", "dateOfBirth": "2001-05-17", "newPassword": "hunter22",
	}, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "Student not found")
}

func TestStudentLogin(t *testing.T) {
	e := newTestEnv(t)
	pending := e.mem.AddStudent(models.Student{Name: "P", Email: "p@uni.edu"})
	done := e.mem.AddStudent(models.Student{
		Name: "D", Email: "d@uni.edu", FirstLoginCompleted: true, PasswordHash: mustHash(t, "hunter22"),
	})

	w := e.do(http.MethodPost, "/api/auth/student-login", map[string]string{"email": "p@uni.edu", "password": "whatever"}, nil)
	testutil.AssertStatus(t, w, http.StatusForbidden)
	var pendingResp struct {
		RequiresFirstLogin bool `json:"requiresFirstLogin"`
	}
	testutil.AssertJSON(t, w, &pendingResp)
	if !pendingResp.RequiresFirstLogin {
		t.Errorf("expected requiresFirstLogin for %s", pending.ID)
	}

	w = e.do(http.MethodPost, "/api/auth/student-login", map[string]string{"email": "d@uni.edu", "password": "wrong"}, nil)
	testutil.AssertError(t, w, http.StatusUnauthorized, "Invalid credentials")
	if got := e.mem.Student(done.ID).FailedLoginAttempts; got != 1 {
		t.Errorf("failed attempts = %d, want 1", got)
	}

	w = e.do(http.MethodPost, "/api/auth/student-login", map[string]string{"email": "d@uni.edu", "password": "hunter22"}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "student-session-") {
		t.Errorf("expected student session token: %s", w.Body.String())
	}
	got := e.mem.Student(done.ID)
	if got.FailedLoginAttempts != 0 || got.LastLoginAt == nil {
		t.Errorf("login not recorded: %+v", got)
	}
}

func TestSyncExternalID(t *testing.T) {
	e := newTestEnv(t)
	s := e.mem.AddStudent(models.Student{Name: "S", Email: "s@uni.edu"})
	d := e.mem.AddDriver(models.Driver{Name: "D", Email: "d@x.com", Status: models.DriverActive})

	w := e.do(http.MethodPost, "/api/auth/sync-external-id", map[string]string{"email": "s@uni.edu", "externalId": "ext-1"}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := e.mem.Student(s.ID).ExternalID; got == nil || *got != "ext-1" {
		t.Errorf("student external id = %v", got)
	}

	w = e.do(http.MethodPost, "/api/auth/sync-external-id", map[string]string{"email": "d@x.com", "externalId": "ext-2", "userType": "driver"}, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := e.mem.Driver(d.ID).ExternalID; got == nil || *got != "ext-2" {
		t.Errorf("driver external id = %v", got)
	}

	w = e.do(http.MethodPost, "/api/auth/sync-external-id", map[string]string{"email": "d@x.com", "externalId": "x", "userType": "admin"}, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "User type must be student or driver")

	w = e.do(http.MethodPost, "/api/auth/sync-external-id", map[string]string{"email": "nope@x.com", "externalId": "x"}, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "User not found")
}

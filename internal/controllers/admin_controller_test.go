package controllers_test

import (
	"net/http"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"bus_portal/internal/config"
	"bus_portal/internal/export"
	"bus_portal/internal/middleware"
	"bus_portal/internal/models"
	"bus_portal/internal/testutil"
)

func withoutAdminKey(cfg *config.Config) { cfg.AdminSetupKey = "" }

func TestAdminKeyGate(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/admin/students", nil, nil)
	testutil.AssertError(t, w, http.StatusUnauthorized, "Unauthorized")

	w = e.do(http.MethodGet, "/api/admin/students", nil, map[string]string{middleware.AdminKeyHeader: "wrong"})
	testutil.AssertError(t, w, http.StatusUnauthorized, "Unauthorized")

	w = e.admin(http.MethodGet, "/api/admin/students", nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	unset := newTestEnv(t, withoutAdminKey)
	w = unset.do(http.MethodGet, "/api/admin/students", nil, map[string]string{middleware.AdminKeyHeader: ""})
	testutil.AssertError(t, w, http.StatusInternalServerError, "Server configuration error")
}

func TestCreateRouteValidatesStopOrder(t *testing.T) {
	e := newTestEnv(t)

	tests := []struct {
		name   string
		stops  []map[string]interface{}
		status int
		err    string
	}{
		{
			name: "repeated sequence",
			stops: []map[string]interface{}{
				{"stopName": "Gate", "sequenceOrder": 1},
				{"stopName": "Library", "sequenceOrder": 1},
			},
			status: http.StatusBadRequest,
			err:    "Stop sequence order must be strictly increasing",
		},
		{
			name: "decreasing sequence",
			stops: []map[string]interface{}{
				{"stopName": "Gate", "sequenceOrder": 3},
				{"stopName": "Library", "sequenceOrder": 2},
			},
			status: http.StatusBadRequest,
			err:    "Stop sequence order must be strictly increasing",
		},
		{
			name:   "unnamed stop",
			stops:  []map[string]interface{}{{"stopName": " ", "sequenceOrder": 1}},
			status: http.StatusBadRequest,
			err:    "Every stop needs a name",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := e.admin(http.MethodPost, "/api/admin/routes", map[string]interface{}{
				"routeNumber": "RT010", "routeName": "Loop", "stops": tt.stops,
			})
			testutil.AssertError(t, w, tt.status, tt.err)
		})
	}

	body := map[string]interface{}{
		"routeNumber": "RT010", "routeName": "Loop", "totalCapacity": 30,
		"stops": []map[string]interface{}{
			{"stopName": "Gate", "sequenceOrder": 1},
			{"stopName": "Library", "sequenceOrder": 4},
		},
	}
	w := e.admin(http.MethodPost, "/api/admin/routes", body)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp struct {
		Route struct {
			ID    string             `json:"id"`
			Stops []models.RouteStop `json:"stops"`
		} `json:"route"`
	}
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Route.Stops) != 2 {
		t.Errorf("stops = %d, want 2", len(resp.Route.Stops))
	}

	w = e.admin(http.MethodPost, "/api/admin/routes", body)
	testutil.AssertError(t, w, http.StatusConflict, "Route number already exists")

	w = e.admin(http.MethodPut, "/api/admin/routes/"+resp.Route.ID+"/stops", map[string]interface{}{
		"stops": []map[string]interface{}{
			{"stopName": "Library", "sequenceOrder": 2},
			{"stopName": "Gate", "sequenceOrder": 1},
		},
	})
	testutil.AssertError(t, w, http.StatusBadRequest, "Stop sequence order must be strictly increasing")
}

func TestAdminDrivers(t *testing.T) {
	e := newTestEnv(t)

	w := e.admin(http.MethodPost, "/api/admin/drivers", map[string]string{
		"name": "Ravi", "email": "Ravi@Depot.in", "password": "s3cret!",
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp struct {
		Driver struct {
			ID    string `json:"id"`
			Email string `json:"email"`
		} `json:"driver"`
	}
	testutil.AssertJSON(t, w, &resp)
	if resp.Driver.Email != "ravi@depot.in" {
		t.Errorf("email = %q, want lower-cased", resp.Driver.Email)
	}
	stored := e.mem.Driver(resp.Driver.ID)
	if stored.PasswordHash == "s3cret!" || bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("s3cret!")) != nil {
		t.Error("password was not stored as a bcrypt hash")
	}
	if !stored.LocationSharingEnabled {
		t.Error("location sharing should be on for new drivers")
	}

	w = e.admin(http.MethodPost, "/api/admin/drivers", map[string]string{
		"name": "Dup", "email": "ravi@depot.in", "password": "another",
	})
	testutil.AssertError(t, w, http.StatusConflict, "A driver with this email already exists")

	w = e.admin(http.MethodPost, "/api/admin/drivers", map[string]string{
		"name": "Short", "email": "short@depot.in", "password": "123",
	})
	testutil.AssertError(t, w, http.StatusBadRequest, "Password must be at least 6 characters long")

	w = e.admin(http.MethodPut, "/api/admin/drivers/"+resp.Driver.ID, map[string]string{"status": "retired"})
	testutil.AssertError(t, w, http.StatusBadRequest, "Invalid driver status")

	w = e.admin(http.MethodPut, "/api/admin/drivers/"+resp.Driver.ID, map[string]string{"status": models.DriverSuspended})
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := e.mem.Driver(resp.Driver.ID).Status; got != models.DriverSuspended {
		t.Errorf("status = %q", got)
	}

	route := e.mem.AddRoute(models.Route{RouteNumber: "RT011", RouteName: "East"})
	w = e.admin(http.MethodPut, "/api/admin/routes/"+route.ID+"/driver", map[string]string{"driverId": resp.Driver.ID})
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := e.mem.Driver(resp.Driver.ID).AssignedRouteID; got == nil || *got != route.ID {
		t.Errorf("assigned route = %v", got)
	}

	w = e.admin(http.MethodDelete, "/api/admin/drivers/"+resp.Driver.ID, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	w = e.admin(http.MethodDelete, "/api/admin/drivers/"+resp.Driver.ID, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "Driver not found")
}

func TestImportStudentsReportsRows(t *testing.T) {
	e := newTestEnv(t)

	w := e.admin(http.MethodPost, "/api/admin/students/import", map[string]interface{}{
		"students": []map[string]string{
			{"studentId": "S1", "name": "Asha", "email": "asha@uni.edu"},
			{"studentId": "S2", "name": "", "email": "nobody@uni.edu"},
			{"studentId": "S3", "name": "Dev", "email": "ASHA@uni.edu"},
		},
	})
	testutil.AssertStatus(t, w, http.StatusBadRequest)
	var resp struct {
		Errors []struct {
			Row int `json:"row"`
		} `json:"errors"`
	}
	testutil.AssertJSON(t, w, &resp)
	if len(resp.Errors) != 2 || resp.Errors[0].Row != 2 || resp.Errors[1].Row != 3 {
		t.Errorf("row errors = %+v", resp.Errors)
	}

	w = e.admin(http.MethodGet, "/api/admin/students", nil)
	var list struct {
		Count int `json:"count"`
	}
	testutil.AssertJSON(t, w, &list)
	if list.Count != 0 {
		t.Errorf("invalid import wrote %d students", list.Count)
	}

	w = e.admin(http.MethodPost, "/api/admin/students/import", map[string]interface{}{
		"students": []map[string]string{
			{"studentId": "S1", "name": "Asha", "email": "asha@uni.edu", "dateOfBirth": "2003-04-05"},
			{"studentId": "S2", "name": "Dev", "email": "dev@uni.edu"},
		},
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
}

func TestFeesRoundTrip(t *testing.T) {
	e := newTestEnv(t)

	w := e.admin(http.MethodGet, "/api/admin/fees", nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.admin(http.MethodPut, "/api/admin/fees", map[string]interface{}{"semester": 12000, "annual": 22000})
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.admin(http.MethodGet, "/api/admin/fees", nil)
	var resp struct {
		Fees map[string]float64 `json:"fees"`
	}
	testutil.AssertJSON(t, w, &resp)
	if resp.Fees["semester"] != 12000 || resp.Fees["annual"] != 22000 {
		t.Errorf("fees = %v", resp.Fees)
	}

	w = e.admin(http.MethodPut, "/api/admin/fees", map[string]interface{}{})
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestExportStudents(t *testing.T) {
	e := newTestEnv(t)
	e.mem.AddStudent(models.Student{StudentID: "S1", Name: "Asha", Email: "asha@uni.edu"})

	w := e.admin(http.MethodGet, "/api/admin/export/students", nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if ct := w.Header().Get("Content-Type"); ct != export.ContentType {
		t.Errorf("content type = %q", ct)
	}
	if w.Body.Len() == 0 {
		t.Error("empty workbook")
	}

	w = e.admin(http.MethodGet, "/api/admin/export/bookings?date=yesterday", nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestRouteGeometry(t *testing.T) {
	e := newTestEnv(t)
	line := map[string]interface{}{
		"type":        "LineString",
		"coordinates": [][]float64{{77.59, 12.97}, {77.60, 12.98}},
	}

	w := e.admin(http.MethodPost, "/api/admin/routes", map[string]interface{}{
		"routeNumber": "RT030", "routeName": "Ring", "geometry": line,
	})
	testutil.AssertStatus(t, w, http.StatusCreated)
	var resp struct {
		Route struct {
			ID       string `json:"id"`
			Geometry string `json:"geometry"`
		} `json:"route"`
	}
	testutil.AssertJSON(t, w, &resp)
	if !strings.Contains(resp.Route.Geometry, "LineString") {
		t.Errorf("geometry = %q", resp.Route.Geometry)
	}

	w = e.admin(http.MethodPut, "/api/admin/routes/"+resp.Route.ID, map[string]interface{}{
		"geometry": map[string]interface{}{"type": "Point", "coordinates": []float64{77.59, 12.97}},
	})
	testutil.AssertStatus(t, w, http.StatusBadRequest)

	w = e.admin(http.MethodPut, "/api/admin/routes/"+resp.Route.ID, map[string]interface{}{
		"geometry": map[string]interface{}{
			"type": "LineString", "coordinates": [][]float64{{77.59, 12.97}, {77.61, 12.99}, {77.62, 13.0}},
		},
	})
	testutil.AssertStatus(t, w, http.StatusOK)
	testutil.AssertJSON(t, w, &resp)
	if !strings.Contains(resp.Route.Geometry, "13") {
		t.Errorf("updated geometry = %q", resp.Route.Geometry)
	}
}

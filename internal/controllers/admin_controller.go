package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	logrus "github.com/sirupsen/logrus"

	"bus_portal/internal/config"
	"bus_portal/internal/export"
	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// AdminController serves the /api/admin group. Every route is behind the
// admin key middleware.
type AdminController struct {
	store *store.Store
	cfg   *config.Config
}

func NewAdminController(st *store.Store, cfg *config.Config) *AdminController {
	return &AdminController{store: st, cfg: cfg}
}

// --- Students ---

type studentInput struct {
	StudentID       *string `json:"studentId"`
	Name            *string `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	DateOfBirth     *string `json:"dateOfBirth"`
	Department      *string `json:"department"`
	YearOfStudy     *int    `json:"yearOfStudy"`
	RouteID         *string `json:"routeId"`
	BoardingStop    *string `json:"boardingStop"`
	TransportStatus *string `json:"transportStatus"`
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// toStudent validates a full student record for create and import.
func (in studentInput) toStudent() (*models.Student, error) {
	s := &models.Student{
		StudentID:       trimmed(in.StudentID),
		Name:            trimmed(in.Name),
		Email:           strings.ToLower(trimmed(in.Email)),
		Phone:           trimmed(in.Phone),
		Department:      trimmed(in.Department),
		BoardingStop:    trimmed(in.BoardingStop),
		TransportStatus: trimmed(in.TransportStatus),
	}
	if s.Name == "" || s.Email == "" || s.StudentID == "" {
		return nil, errors.New("student ID, name and email are required")
	}
	if !strings.Contains(s.Email, "@") {
		return nil, errors.New("invalid email address")
	}
	if raw := trimmed(in.DateOfBirth); raw != "" {
		d, ok := calendarDate(raw)
		if !ok {
			return nil, errors.New("invalid date of birth")
		}
		dob, _ := time.Parse(config.DateLayout, d)
		s.DateOfBirth = &dob
	}
	if in.YearOfStudy != nil {
		s.YearOfStudy = *in.YearOfStudy
	}
	if id := trimmed(in.RouteID); id != "" {
		if !models.IsUUID(id) {
			return nil, errors.New("invalid route ID")
		}
		s.RouteID = &id
	}
	if s.TransportStatus == "" {
		s.TransportStatus = "active"
	}
	return s, nil
}

// updates collects the columns present in a partial update.
func (in studentInput) updates() (map[string]interface{}, error) {
	fields := map[string]interface{}{}
	if in.StudentID != nil {
		fields["student_id"] = trimmed(in.StudentID)
	}
	if in.Name != nil {
		if trimmed(in.Name) == "" {
			return nil, errors.New("name cannot be empty")
		}
		fields["name"] = trimmed(in.Name)
	}
	if in.Email != nil {
		email := strings.ToLower(trimmed(in.Email))
		if !strings.Contains(email, "@") {
			return nil, errors.New("invalid email address")
		}
		fields["email"] = email
	}
	if in.Phone != nil {
		fields["phone"] = trimmed(in.Phone)
	}
	if in.DateOfBirth != nil {
		d, ok := calendarDate(*in.DateOfBirth)
		if !ok {
			return nil, errors.New("invalid date of birth")
		}
		dob, _ := time.Parse(config.DateLayout, d)
		fields["date_of_birth"] = &dob
	}
	if in.Department != nil {
		fields["department"] = trimmed(in.Department)
	}
	if in.YearOfStudy != nil {
		fields["year_of_study"] = *in.YearOfStudy
	}
	if in.RouteID != nil {
		id := trimmed(in.RouteID)
		switch {
		case id == "":
			fields["route_id"] = nil
		case models.IsUUID(id):
			fields["route_id"] = &id
		default:
			return nil, errors.New("invalid route ID")
		}
	}
	if in.BoardingStop != nil {
		fields["boarding_stop"] = trimmed(in.BoardingStop)
	}
	if in.TransportStatus != nil {
		fields["transport_status"] = trimmed(in.TransportStatus)
	}
	if len(fields) == 0 {
		return nil, errors.New("no fields to update")
	}
	return fields, nil
}

// ListStudents handles GET /api/admin/students?search.
func (ac *AdminController) ListStudents(c *gin.Context) {
	students, err := ac.store.Students.List(c.Request.Context(), c.Query("search"))
	if err != nil {
		respondServerError(c, err, "Failed to fetch students")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "students": students, "count": len(students)})
}

// GetStudent handles GET /api/admin/students/:id.
func (ac *AdminController) GetStudent(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	student, err := ac.store.Students.FindByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		respondServerError(c, err, "Failed to fetch student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": student})
}

// CreateStudent handles POST /api/admin/students.
func (ac *AdminController) CreateStudent(c *gin.Context) {
	var in studentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	student, err := in.toStudent()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := ac.store.Students.Create(c.Request.Context(), student); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A student with this email already exists"})
			return
		}
		respondServerError(c, err, "Failed to create student")
		return
	}
	logrus.WithField("student_id", student.ID).Info("Student created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "student": student})
}

type importStudentsInput struct {
	Students []studentInput `json:"students"`
}

type rowError struct {
	Row   int    `json:"row"`
	Error string `json:"error"`
}

// ImportStudents handles POST /api/admin/students/import. Rows are
// validated first; nothing is written unless every row is valid.
func (ac *AdminController) ImportStudents(c *gin.Context) {
	var in importStudentsInput
	if err := c.ShouldBindJSON(&in); err != nil || len(in.Students) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "A non-empty students list is required"})
		return
	}

	students := make([]models.Student, 0, len(in.Students))
	var rowErrs []rowError
	seen := map[string]int{}
	for i, row := range in.Students {
		s, err := row.toStudent()
		if err != nil {
			rowErrs = append(rowErrs, rowError{Row: i + 1, Error: err.Error()})
			continue
		}
		if first, dup := seen[s.Email]; dup {
			rowErrs = append(rowErrs, rowError{Row: i + 1, Error: fmt.Sprintf("duplicate email, first seen in row %d", first)})
			continue
		}
		seen[s.Email] = i + 1
		students = append(students, *s)
	}
	if len(rowErrs) > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Some rows are invalid", "errors": rowErrs})
		return
	}

	if err := ac.store.Students.CreateBatch(c.Request.Context(), students); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "One or more students already exist"})
			return
		}
		respondServerError(c, err, "Failed to import students")
		return
	}
	logrus.WithField("count", len(students)).Info("Students imported")
	c.JSON(http.StatusCreated, gin.H{"success": true, "imported": len(students)})
}

// UpdateStudent handles PUT /api/admin/students/:id.
func (ac *AdminController) UpdateStudent(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var in studentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	fields, err := in.updates()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	student, err := ac.store.Students.Update(c.Request.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
		case errors.Is(err, store.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "A student with this email already exists"})
		default:
			respondServerError(c, err, "Failed to update student")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "student": student})
}

// DeleteStudent handles DELETE /api/admin/students/:id.
func (ac *AdminController) DeleteStudent(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := ac.store.Students.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Student not found"})
			return
		}
		respondServerError(c, err, "Failed to delete student")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Student deleted"})
}

// --- Drivers ---

type driverInput struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	LicenseNumber *string `json:"licenseNumber"`
	Password      *string `json:"password"`
	Status        *string `json:"status"`
}

func validDriverStatus(s string) bool {
	switch s {
	case models.DriverActive, models.DriverInactive, models.DriverSuspended:
		return true
	}
	return false
}

// ListDrivers handles GET /api/admin/drivers.
func (ac *AdminController) ListDrivers(c *gin.Context) {
	drivers, err := ac.store.Drivers.List(c.Request.Context())
	if err != nil {
		respondServerError(c, err, "Failed to fetch drivers")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "drivers": drivers, "count": len(drivers)})
}

// CreateDriver handles POST /api/admin/drivers. The password is stored as a
// bcrypt hash.
func (ac *AdminController) CreateDriver(c *gin.Context) {
	var in driverInput
	if err := c.ShouldBindJSON(&in); err != nil || trimmed(in.Name) == "" || trimmed(in.Email) == "" || in.Password == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Name, email and password are required"})
		return
	}
	if len(*in.Password) < minPasswordLength {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
		return
	}
	status := models.DriverActive
	if in.Status != nil {
		status = trimmed(in.Status)
		if !validDriverStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver status"})
			return
		}
	}
	hash, err := hashPassword(*in.Password)
	if err != nil {
		respondServerError(c, err, "Failed to hash password")
		return
	}

	driver := &models.Driver{
		Name:                   trimmed(in.Name),
		Email:                  strings.ToLower(trimmed(in.Email)),
		Phone:                  trimmed(in.Phone),
		LicenseNumber:          trimmed(in.LicenseNumber),
		PasswordHash:           hash,
		Status:                 status,
		LocationSharingEnabled: true,
		LocationEnabled:        true,
	}
	if err := ac.store.Drivers.Create(c.Request.Context(), driver); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "A driver with this email already exists"})
			return
		}
		respondServerError(c, err, "Failed to create driver")
		return
	}
	logrus.WithField("driver_id", driver.ID).Info("Driver created")
	c.JSON(http.StatusCreated, gin.H{"success": true, "driver": driver})
}

// UpdateDriver handles PUT /api/admin/drivers/:id.
func (ac *AdminController) UpdateDriver(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	var in driverInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	fields := map[string]interface{}{}
	if in.Name != nil {
		if trimmed(in.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Name cannot be empty"})
			return
		}
		fields["name"] = trimmed(in.Name)
	}
	if in.Email != nil {
		fields["email"] = strings.ToLower(trimmed(in.Email))
	}
	if in.Phone != nil {
		fields["phone"] = trimmed(in.Phone)
	}
	if in.LicenseNumber != nil {
		fields["license_number"] = trimmed(in.LicenseNumber)
	}
	if in.Status != nil {
		if !validDriverStatus(trimmed(in.Status)) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid driver status"})
			return
		}
		fields["status"] = trimmed(in.Status)
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Password must be at least 6 characters long"})
			return
		}
		hash, err := hashPassword(*in.Password)
		if err != nil {
			respondServerError(c, err, "Failed to hash password")
			return
		}
		fields["password_hash"] = hash
	}
	if len(fields) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	driver, err := ac.store.Drivers.Update(c.Request.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
		case errors.Is(err, store.ErrDuplicate):
			c.JSON(http.StatusConflict, gin.H{"error": "A driver with this email already exists"})
		default:
			respondServerError(c, err, "Failed to update driver")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "driver": driver})
}

// DeleteDriver handles DELETE /api/admin/drivers/:id.
func (ac *AdminController) DeleteDriver(c *gin.Context) {
	id := c.Param("id")
	if !models.IsUUID(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return
	}
	if err := ac.store.Drivers.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Driver not found"})
			return
		}
		respondServerError(c, err, "Failed to delete driver")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Driver deleted"})
}

// --- Fees and settings ---

// GetFees handles GET /api/admin/fees. Unset fees read as an empty object.
func (ac *AdminController) GetFees(c *gin.Context) {
	setting, err := ac.store.Settings.Get(c.Request.Context(), models.SettingTransportFees)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusOK, gin.H{"success": true, "fees": gin.H{}})
			return
		}
		respondServerError(c, err, "Failed to fetch fees")
		return
	}
	var fees map[string]interface{}
	if err := json.Unmarshal([]byte(setting.Value), &fees); err != nil {
		respondServerError(c, err, "Stored fees are not valid JSON")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fees": fees, "updated_at": setting.UpdatedAt})
}

// UpdateFees handles PUT /api/admin/fees with a JSON object body.
func (ac *AdminController) UpdateFees(c *gin.Context) {
	var fees map[string]interface{}
	if err := c.ShouldBindJSON(&fees); err != nil || len(fees) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fees must be a non-empty JSON object"})
		return
	}
	raw, err := json.Marshal(fees)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Fees must be a non-empty JSON object"})
		return
	}
	setting, err := ac.store.Settings.Put(c.Request.Context(), models.SettingTransportFees, string(raw))
	if err != nil {
		respondServerError(c, err, "Failed to save fees")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "fees": fees, "updated_at": setting.UpdatedAt})
}

// ListSettings handles GET /api/admin/settings.
func (ac *AdminController) ListSettings(c *gin.Context) {
	settings, err := ac.store.Settings.List(c.Request.Context())
	if err != nil {
		respondServerError(c, err, "Failed to fetch settings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

type settingInput struct {
	Value json.RawMessage `json:"value"`
}

// PutSetting handles PUT /api/admin/settings/:key. Any JSON value is kept
// as its text.
func (ac *AdminController) PutSetting(c *gin.Context) {
	key := strings.TrimSpace(c.Param("key"))
	var in settingInput
	if err := c.ShouldBindJSON(&in); err != nil || key == "" || len(in.Value) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Setting key and value are required"})
		return
	}
	value := string(in.Value)
	var s string
	if err := json.Unmarshal(in.Value, &s); err == nil {
		value = s
	}
	setting, err := ac.store.Settings.Put(c.Request.Context(), key, value)
	if err != nil {
		respondServerError(c, err, "Failed to save setting")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "setting": setting})
}

// --- Exports ---

func sendWorkbook(c *gin.Context, filename string, sheet export.SheetSpec) {
	var buf bytes.Buffer
	if err := export.Write(&buf, sheet); err != nil {
		respondServerError(c, err, "Failed to build workbook")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, export.ContentType, buf.Bytes())
}

// ExportStudents handles GET /api/admin/export/students.
func (ac *AdminController) ExportStudents(c *gin.Context) {
	students, err := ac.store.Students.List(c.Request.Context(), "")
	if err != nil {
		respondServerError(c, err, "Failed to fetch students")
		return
	}
	sendWorkbook(c, export.Filename("students", ac.cfg.Today()), export.StudentsSheet(students))
}

// ExportBookings handles GET /api/admin/export/bookings?date.
func (ac *AdminController) ExportBookings(c *gin.Context) {
	date, dateStr, err := parseDate(ac.cfg, c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date format, expected YYYY-MM-DD"})
		return
	}
	bookings, err := ac.store.Bookings.ForDate(c.Request.Context(), date)
	if err != nil {
		respondServerError(c, err, "Failed to fetch bookings")
		return
	}
	sendWorkbook(c, export.Filename("bookings", dateStr), export.BookingsSheet(dateStr, bookings))
}

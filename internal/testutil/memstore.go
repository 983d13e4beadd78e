package testutil

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm/schema"

	"bus_portal/internal/models"
	"bus_portal/internal/store"
)

// MemStore is an in-memory implementation of the store interfaces with the
// same sentinel errors and atomicity as the gorm repositories.
type MemStore struct {
	mu sync.Mutex

	students      map[string]*models.Student
	drivers       map[string]*models.Driver
	routes        map[string]*models.Route
	stops         map[string][]models.RouteStop
	schedules     map[string]*models.Schedule
	bookings      map[string]*models.Booking
	notifications map[string]*models.Notification
	subs          []*models.PushSubscription
	settings      map[string]*models.AdminSetting
	history       []models.LocationHistory

	// PingErr is returned by the health check.
	PingErr error
	// FailMarkRead makes MarkRead fail for the listed notification ids.
	FailMarkRead map[string]bool
	// RacedMarkRead makes MarkRead find the user already added by another
	// request for the listed notification ids.
	RacedMarkRead map[string]bool
}

func NewMemStore() *MemStore {
	return &MemStore{
		students:      map[string]*models.Student{},
		drivers:       map[string]*models.Driver{},
		routes:        map[string]*models.Route{},
		stops:         map[string][]models.RouteStop{},
		schedules:     map[string]*models.Schedule{},
		bookings:      map[string]*models.Booking{},
		notifications: map[string]*models.Notification{},
		settings:      map[string]*models.AdminSetting{},
		FailMarkRead:  map[string]bool{},
		RacedMarkRead: map[string]bool{},
	}
}

// Store exposes m through the repository interfaces.
func (m *MemStore) Store() *store.Store {
	return &store.Store{
		Students:      memStudents{m},
		Drivers:       memDrivers{m},
		Locations:     memLocations{m},
		Routes:        memRoutes{m},
		Schedules:     memSchedules{m},
		Bookings:      memBookings{m},
		Notifications: memNotifications{m},
		Push:          memPush{m},
		Settings:      memSettings{m},
		Health:        memPinger{m},
	}
}

var schemaCache sync.Map

// applyFields sets struct fields by column name the way gorm's Updates does.
func applyFields(dst interface{}, fields map[string]interface{}) error {
	sch, err := schema.Parse(dst, &schemaCache, schema.NamingStrategy{})
	if err != nil {
		return err
	}
	rv := reflect.ValueOf(dst).Elem()
	for col, v := range fields {
		f, ok := sch.FieldsByDBName[col]
		if !ok {
			return errors.New("unknown column " + col)
		}
		if err := f.Set(context.Background(), rv, v); err != nil {
			return err
		}
	}
	if f, ok := sch.FieldsByDBName["updated_at"]; ok {
		_ = f.Set(context.Background(), rv, time.Now())
	}
	return nil
}

func stamp(b *models.Base) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
}

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// Seed helpers. They bypass uniqueness checks and return the stored copy.

func (m *MemStore) AddStudent(s models.Student) *models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&s.Base)
	m.students[s.ID] = &s
	return &s
}

func (m *MemStore) AddDriver(d models.Driver) *models.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&d.Base)
	m.drivers[d.ID] = &d
	return &d
}

func (m *MemStore) AddRoute(r models.Route, stops ...models.RouteStop) *models.Route {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&r.Base)
	for i := range stops {
		stamp(&stops[i].Base)
		stops[i].RouteID = r.ID
	}
	r.Stops = nil
	m.routes[r.ID] = &r
	m.stops[r.ID] = append(m.stops[r.ID], stops...)
	return &r
}

func (m *MemStore) AddSchedule(s models.Schedule) *models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&s.Base)
	if s.Status == "" {
		s.Status = models.ScheduleScheduled
	}
	m.schedules[s.ID] = &s
	return &s
}

func (m *MemStore) AddBooking(b models.Booking) *models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&b.Base)
	m.bookings[b.ID] = &b
	return &b
}

func (m *MemStore) AddNotification(n models.Notification) *models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	stamp(&n.Base)
	m.notifications[n.ID] = &n
	return &n
}

func (m *MemStore) AddLocation(l models.LocationHistory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	m.history = append(m.history, l)
}

// Snapshots for assertions.

func (m *MemStore) Student(id string) models.Student {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.students[id]
}

func (m *MemStore) Driver(id string) models.Driver {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.drivers[id]
}

func (m *MemStore) Schedule(id string) models.Schedule {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.schedules[id]
}

func (m *MemStore) Booking(id string) models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.bookings[id]
}

func (m *MemStore) Notification(id string) models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := *m.notifications[id]
	if n.ReadBy != nil {
		n.ReadBy = append(make([]string, 0, len(n.ReadBy)), n.ReadBy...)
	}
	return n
}

func (m *MemStore) Subscriptions() []models.PushSubscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PushSubscription, 0, len(m.subs))
	for _, s := range m.subs {
		out = append(out, *s)
	}
	return out
}

func (m *MemStore) History() []models.LocationHistory {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.LocationHistory(nil), m.history...)
}

func (m *MemStore) BookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

// students

type memStudents struct{ m *MemStore }

func (r memStudents) FindByID(_ context.Context, id string) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r memStudents) FindByEmail(_ context.Context, email string) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, s := range r.m.students {
		if strings.ToLower(s.Email) == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r memStudents) List(_ context.Context, search string) ([]models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	search = strings.ToLower(strings.TrimSpace(search))
	out := []models.Student{}
	for _, s := range r.m.students {
		if search != "" &&
			!strings.Contains(strings.ToLower(s.Name), search) &&
			!strings.Contains(strings.ToLower(s.Email), search) &&
			!strings.Contains(strings.ToLower(s.StudentID), search) {
			continue
		}
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memStudents) emailTaken(email, except string) bool {
	for _, s := range r.m.students {
		if s.ID != except && strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

func (r memStudents) Create(_ context.Context, s *models.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.emailTaken(s.Email, "") {
		return store.ErrDuplicate
	}
	stamp(&s.Base)
	cp := *s
	r.m.students[s.ID] = &cp
	return nil
}

func (r memStudents) CreateBatch(_ context.Context, students []models.Student) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	seen := map[string]bool{}
	for _, s := range students {
		key := strings.ToLower(s.Email)
		if seen[key] || r.emailTaken(s.Email, "") {
			return store.ErrDuplicate
		}
		seen[key] = true
	}
	for i := range students {
		stamp(&students[i].Base)
		cp := students[i]
		r.m.students[cp.ID] = &cp
	}
	return nil
}

func (r memStudents) Update(_ context.Context, id string, fields map[string]interface{}) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.students[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if email, ok := fields["email"].(string); ok && r.emailTaken(email, id) {
		return nil, store.ErrDuplicate
	}
	if err := applyFields(s, fields); err != nil {
		return nil, err
	}
	cp := *s
	return &cp, nil
}

func (r memStudents) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.students[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.students, id)
	return nil
}

func (r memStudents) CompleteFirstLogin(_ context.Context, id, passwordHash string) (*models.Student, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.students[id]
	if !ok || s.FirstLoginCompleted {
		return nil, store.ErrNotFound
	}
	s.PasswordHash = passwordHash
	s.FirstLoginCompleted = true
	s.FailedLoginAttempts = 0
	cp := *s
	return &cp, nil
}

func (r memStudents) RecordLoginFailure(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.students[id]; ok {
		s.FailedLoginAttempts++
	}
	return nil
}

func (r memStudents) RecordLogin(_ context.Context, id string, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if s, ok := r.m.students[id]; ok {
		s.FailedLoginAttempts = 0
		s.LastLoginAt = &at
	}
	return nil
}

// drivers

type memDrivers struct{ m *MemStore }

func (r memDrivers) FindByID(_ context.Context, id string) (*models.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (r memDrivers) FindByEmail(_ context.Context, email string) (*models.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, d := range r.m.drivers {
		if strings.EqualFold(d.Email, strings.TrimSpace(email)) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r memDrivers) List(_ context.Context) ([]models.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Driver{}
	for _, d := range r.m.drivers {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r memDrivers) Create(_ context.Context, d *models.Driver) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.drivers {
		if strings.EqualFold(existing.Email, d.Email) {
			return store.ErrDuplicate
		}
	}
	stamp(&d.Base)
	cp := *d
	r.m.drivers[d.ID] = &cp
	return nil
}

func (r memDrivers) Update(_ context.Context, id string, fields map[string]interface{}) (*models.Driver, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := applyFields(d, fields); err != nil {
		return nil, err
	}
	cp := *d
	return &cp, nil
}

func (r memDrivers) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.drivers[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.drivers, id)
	return nil
}

func (r memDrivers) UpdateLocation(_ context.Context, id string, lat, lng, accuracy float64, at time.Time) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.drivers[id]
	if !ok {
		return store.ErrNotFound
	}
	d.CurrentLatitude, d.CurrentLongitude, d.LocationAccuracy = &lat, &lng, &accuracy
	d.LastLocationUpdate = &at
	return nil
}

// location history

type memLocations struct{ m *MemStore }

func (r memLocations) Append(_ context.Context, p *models.LocationHistory) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.m.history = append(r.m.history, *p)
	return nil
}

func (r memLocations) newestFirst(match func(models.LocationHistory) bool) []models.LocationHistory {
	out := []models.LocationHistory{}
	for _, p := range r.m.history {
		if match(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out
}

func (r memLocations) Last(_ context.Context, driverID string) (*models.LocationHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	pts := r.newestFirst(func(p models.LocationHistory) bool { return p.DriverID == driverID })
	if len(pts) == 0 {
		return nil, store.ErrNotFound
	}
	return &pts[0], nil
}

func (r memLocations) Recent(_ context.Context, driverID, routeID string, limit int) ([]models.LocationHistory, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	pts := r.newestFirst(func(p models.LocationHistory) bool {
		return p.DriverID == driverID && p.RouteID != nil && *p.RouteID == routeID
	})
	if len(pts) > limit {
		pts = pts[:limit]
	}
	return pts, nil
}

// routes

type memRoutes struct{ m *MemStore }

func (r memRoutes) List(_ context.Context, activeOnly bool) ([]models.Route, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Route{}
	for _, rt := range r.m.routes {
		if activeOnly && rt.Status != models.RouteActive {
			continue
		}
		out = append(out, *rt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RouteNumber < out[j].RouteNumber })
	return out, nil
}

func (r memRoutes) FindByID(_ context.Context, id string) (*models.Route, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rt, ok := r.m.routes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rt
	return &cp, nil
}

func (r memRoutes) FindByNumber(_ context.Context, number string) (*models.Route, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, rt := range r.m.routes {
		if rt.RouteNumber == number {
			cp := *rt
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r memRoutes) Stops(_ context.Context, routeID string) ([]models.RouteStop, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := append([]models.RouteStop{}, r.m.stops[routeID]...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SequenceOrder < out[j].SequenceOrder })
	return out, nil
}

func (r memRoutes) Create(_ context.Context, rt *models.Route) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.routes {
		if existing.RouteNumber == rt.RouteNumber {
			return store.ErrDuplicate
		}
	}
	stamp(&rt.Base)
	for i := range rt.Stops {
		stamp(&rt.Stops[i].Base)
		rt.Stops[i].RouteID = rt.ID
	}
	cp := *rt
	r.m.stops[rt.ID] = append([]models.RouteStop(nil), rt.Stops...)
	cp.Stops = nil
	r.m.routes[rt.ID] = &cp
	return nil
}

func (r memRoutes) Update(_ context.Context, id string, fields map[string]interface{}) (*models.Route, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rt, ok := r.m.routes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if err := applyFields(rt, fields); err != nil {
		return nil, err
	}
	cp := *rt
	return &cp, nil
}

func (r memRoutes) ReplaceStops(_ context.Context, routeID string, stops []models.RouteStop) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for i := range stops {
		stamp(&stops[i].Base)
		stops[i].RouteID = routeID
	}
	r.m.stops[routeID] = append([]models.RouteStop(nil), stops...)
	return nil
}

func (r memRoutes) Delete(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.routes[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.m.routes, id)
	delete(r.m.stops, id)
	return nil
}

func (r memRoutes) AssignDriver(_ context.Context, routeID string, driverID *string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rt, ok := r.m.routes[routeID]
	if !ok {
		return store.ErrNotFound
	}
	if driverID != nil {
		if _, ok := r.m.drivers[*driverID]; !ok {
			return store.ErrNotFound
		}
	}
	for _, d := range r.m.drivers {
		if d.AssignedRouteID != nil && *d.AssignedRouteID == routeID {
			d.AssignedRouteID = nil
		}
	}
	rt.DriverID = driverID
	if driverID != nil {
		id := routeID
		r.m.drivers[*driverID].AssignedRouteID = &id
	}
	return nil
}

// schedules

type memSchedules struct{ m *MemStore }

func (r memSchedules) FindByID(_ context.Context, id string) (*models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.schedules[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r memSchedules) ForRoute(_ context.Context, routeID string, date time.Time) ([]models.Schedule, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Schedule{}
	for _, s := range r.m.schedules {
		if s.RouteID == routeID && sameDay(s.ScheduleDate, date) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DepartureTime < out[j].DepartureTime })
	return out, nil
}

func (r memSchedules) Create(_ context.Context, s *models.Schedule) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.schedules {
		if existing.RouteID == s.RouteID && sameDay(existing.ScheduleDate, s.ScheduleDate) && existing.DepartureTime == s.DepartureTime {
			return store.ErrDuplicate
		}
	}
	stamp(&s.Base)
	if s.Status == "" {
		s.Status = models.ScheduleScheduled
	}
	cp := *s
	r.m.schedules[s.ID] = &cp
	return nil
}

// bookings

type memBookings struct{ m *MemStore }

func (r memBookings) FindByID(_ context.Context, id string) (*models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (r memBookings) hydrate(b models.Booking) models.Booking {
	if s, ok := r.m.students[b.StudentID]; ok {
		cp := *s
		b.Student = &cp
	}
	if rt, ok := r.m.routes[b.RouteID]; ok {
		cp := *rt
		b.Route = &cp
	}
	if s, ok := r.m.schedules[b.ScheduleID]; ok {
		cp := *s
		b.Schedule = &cp
	}
	return b
}

func (r memBookings) filter(match func(*models.Booking) bool) []models.Booking {
	out := []models.Booking{}
	for _, b := range r.m.bookings {
		if match(b) {
			out = append(out, r.hydrate(*b))
		}
	}
	return out
}

func (r memBookings) ForRouteDate(_ context.Context, routeID string, date time.Time, statuses []string) ([]models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.filter(func(b *models.Booking) bool {
		if b.RouteID != routeID || !sameDay(b.TripDate, date) {
			return false
		}
		if len(statuses) == 0 {
			return true
		}
		for _, s := range statuses {
			if b.Status == s {
				return true
			}
		}
		return false
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].BoardingStop < out[j].BoardingStop })
	return out, nil
}

func (r memBookings) ForDate(_ context.Context, date time.Time) ([]models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.filter(func(b *models.Booking) bool { return sameDay(b.TripDate, date) })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].RouteID != out[j].RouteID {
			return out[i].RouteID < out[j].RouteID
		}
		return out[i].BoardingStop < out[j].BoardingStop
	})
	return out, nil
}

func (r memBookings) ForStudent(_ context.Context, studentID string) ([]models.Booking, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := r.filter(func(b *models.Booking) bool { return b.StudentID == studentID })
	sort.SliceStable(out, func(i, j int) bool { return out[i].TripDate.After(out[j].TripDate) })
	return out, nil
}

func (r memBookings) Create(_ context.Context, b *models.Booking) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.schedules[b.ScheduleID]
	if !ok || s.Status != models.ScheduleScheduled || s.BookedSeats >= s.TotalSeats {
		return store.ErrNoSeats
	}
	for _, existing := range r.m.bookings {
		if existing.StudentID == b.StudentID && existing.ScheduleID == b.ScheduleID && existing.Status == models.BookingConfirmed {
			return store.ErrDuplicate
		}
	}
	s.BookedSeats++
	stamp(&b.Base)
	cp := *b
	cp.Student, cp.Route, cp.Schedule = nil, nil, nil
	r.m.bookings[b.ID] = &cp
	return nil
}

func (r memBookings) Cancel(_ context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	if b.Status != models.BookingConfirmed {
		return store.ErrNotCancellable
	}
	b.Status = models.BookingCancelled
	if s, ok := r.m.schedules[b.ScheduleID]; ok && s.BookedSeats > 0 {
		s.BookedSeats--
	}
	return nil
}

func (r memBookings) UpdatePayment(_ context.Context, id string, fields map[string]interface{}) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	b, ok := r.m.bookings[id]
	if !ok {
		return store.ErrNotFound
	}
	return applyFields(b, fields)
}

// notifications

type memNotifications struct{ m *MemStore }

func (r memNotifications) FindByID(_ context.Context, id string) (*models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n, ok := r.m.notifications[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *n
	cp.ReadBy = append([]string(nil), n.ReadBy...)
	return &cp, nil
}

func (r memNotifications) Visible(_ context.Context, userID, userType string, now time.Time) ([]models.Notification, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.Notification{}
	for _, n := range r.m.notifications {
		if n.VisibleTo(userID, userType, now) {
			cp := *n
			cp.ReadBy = append([]string(nil), n.ReadBy...)
			out = append(out, cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memNotifications) Create(_ context.Context, n *models.Notification) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := n.BeforeCreate(nil); err != nil {
		return err
	}
	stamp(&n.Base)
	cp := *n
	r.m.notifications[n.ID] = &cp
	return nil
}

func (r memNotifications) MarkRead(_ context.Context, id, userID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.FailMarkRead[id] {
		return false, errors.New("store unavailable")
	}
	n, ok := r.m.notifications[id]
	if ok && r.m.RacedMarkRead[id] && !n.ReadByUser(userID) {
		n.ReadBy = append(n.ReadBy, userID)
	}
	if !ok || n.ReadByUser(userID) {
		return false, nil
	}
	n.ReadBy = append(n.ReadBy, userID)
	return true, nil
}

// push subscriptions

type memPush struct{ m *MemStore }

func (r memPush) Upsert(_ context.Context, sub *models.PushSubscription) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	sub.IsActive = true
	for _, s := range r.m.subs {
		if s.UserID == sub.UserID && s.Endpoint == sub.Endpoint {
			s.UserType, s.P256DH, s.Auth, s.IsActive = sub.UserType, sub.P256DH, sub.Auth, true
			s.UpdatedAt = time.Now()
			*sub = *s
			return nil
		}
	}
	stamp(&sub.Base)
	cp := *sub
	r.m.subs = append(r.m.subs, &cp)
	return nil
}

func (r memPush) Deactivate(_ context.Context, userID, endpoint string) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var n int64
	for _, s := range r.m.subs {
		if s.UserID == userID && (endpoint == "" || s.Endpoint == endpoint) {
			s.IsActive = false
			n++
		}
	}
	return n, nil
}

func (r memPush) DeactivateEndpoint(_ context.Context, endpoint string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, s := range r.m.subs {
		if s.Endpoint == endpoint {
			s.IsActive = false
		}
	}
	return nil
}

func (r memPush) Active(_ context.Context, f store.PushFilter) ([]models.PushSubscription, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	ids := map[string]bool{}
	for _, id := range f.UserIDs {
		ids[id] = true
	}
	out := []models.PushSubscription{}
	for _, s := range r.m.subs {
		if !s.IsActive {
			continue
		}
		if f.UserType != "" && s.UserType != f.UserType {
			continue
		}
		if len(ids) > 0 && !ids[s.UserID] {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

// settings

type memSettings struct{ m *MemStore }

func (r memSettings) Get(_ context.Context, key string) (*models.AdminSetting, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s, ok := r.m.settings[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r memSettings) List(_ context.Context) ([]models.AdminSetting, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := []models.AdminSetting{}
	for _, s := range r.m.settings {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r memSettings) Put(_ context.Context, key, value string) (*models.AdminSetting, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	s := &models.AdminSetting{Key: key, Value: value, UpdatedAt: time.Now()}
	r.m.settings[key] = s
	cp := *s
	return &cp, nil
}

type memPinger struct{ m *MemStore }

func (p memPinger) Ping(context.Context) error { return p.m.PingErr }

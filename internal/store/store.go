package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"bus_portal/internal/models"
)

var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicate      = errors.New("duplicate record")
	ErrNoSeats        = errors.New("no seats available")
	ErrNotCancellable = errors.New("booking cannot be cancelled")
)

type StudentStore interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	FindByEmail(ctx context.Context, email string) (*models.Student, error)
	List(ctx context.Context, search string) ([]models.Student, error)
	Create(ctx context.Context, s *models.Student) error
	CreateBatch(ctx context.Context, students []models.Student) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Student, error)
	Delete(ctx context.Context, id string) error
	// CompleteFirstLogin performs the one-way pending -> completed
	// transition. It returns ErrNotFound when the row is missing or the
	// transition already happened.
	CompleteFirstLogin(ctx context.Context, id, passwordHash string) (*models.Student, error)
	RecordLoginFailure(ctx context.Context, id string) error
	RecordLogin(ctx context.Context, id string, at time.Time) error
}

type DriverStore interface {
	FindByID(ctx context.Context, id string) (*models.Driver, error)
	FindByEmail(ctx context.Context, email string) (*models.Driver, error)
	List(ctx context.Context) ([]models.Driver, error)
	Create(ctx context.Context, d *models.Driver) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Driver, error)
	Delete(ctx context.Context, id string) error
	UpdateLocation(ctx context.Context, id string, lat, lng, accuracy float64, at time.Time) error
}

type LocationStore interface {
	Append(ctx context.Context, point *models.LocationHistory) error
	Last(ctx context.Context, driverID string) (*models.LocationHistory, error)
	Recent(ctx context.Context, driverID, routeID string, limit int) ([]models.LocationHistory, error)
}

type RouteStore interface {
	List(ctx context.Context, activeOnly bool) ([]models.Route, error)
	FindByID(ctx context.Context, id string) (*models.Route, error)
	FindByNumber(ctx context.Context, number string) (*models.Route, error)
	Stops(ctx context.Context, routeID string) ([]models.RouteStop, error)
	Create(ctx context.Context, r *models.Route) error
	Update(ctx context.Context, id string, fields map[string]interface{}) (*models.Route, error)
	ReplaceStops(ctx context.Context, routeID string, stops []models.RouteStop) error
	Delete(ctx context.Context, id string) error
	// AssignDriver links route and driver in both directions. A nil
	// driverID clears the assignment.
	AssignDriver(ctx context.Context, routeID string, driverID *string) error
}

type ScheduleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	ForRoute(ctx context.Context, routeID string, date time.Time) ([]models.Schedule, error)
	Create(ctx context.Context, s *models.Schedule) error
}

type BookingStore interface {
	FindByID(ctx context.Context, id string) (*models.Booking, error)
	// ForRouteDate returns bookings with student, route and schedule
	// loaded, ordered by boarding stop.
	ForRouteDate(ctx context.Context, routeID string, date time.Time, statuses []string) ([]models.Booking, error)
	ForDate(ctx context.Context, date time.Time) ([]models.Booking, error)
	ForStudent(ctx context.Context, studentID string) ([]models.Booking, error)
	// Create takes a seat on the schedule and inserts the booking in one
	// transaction. ErrNoSeats when the schedule is full or not bookable,
	// ErrDuplicate when the student already holds a confirmed seat.
	Create(ctx context.Context, b *models.Booking) error
	Cancel(ctx context.Context, id string) error
	UpdatePayment(ctx context.Context, id string, fields map[string]interface{}) error
}

type NotificationStore interface {
	FindByID(ctx context.Context, id string) (*models.Notification, error)
	Visible(ctx context.Context, userID, userType string, now time.Time) ([]models.Notification, error)
	Create(ctx context.Context, n *models.Notification) error
	// MarkRead appends userID to read_by unless already present. The
	// check and the append are one statement.
	MarkRead(ctx context.Context, id, userID string) (bool, error)
}

// PushFilter selects active subscriptions. Empty fields match everything.
type PushFilter struct {
	UserType string
	UserIDs  []string
}

type PushStore interface {
	Upsert(ctx context.Context, sub *models.PushSubscription) error
	// Deactivate soft-deletes the user's subscriptions, or only the one
	// matching endpoint when it is non-empty.
	Deactivate(ctx context.Context, userID, endpoint string) (int64, error)
	DeactivateEndpoint(ctx context.Context, endpoint string) error
	Active(ctx context.Context, filter PushFilter) ([]models.PushSubscription, error)
}

type SettingStore interface {
	Get(ctx context.Context, key string) (*models.AdminSetting, error)
	List(ctx context.Context) ([]models.AdminSetting, error)
	Put(ctx context.Context, key, value string) (*models.AdminSetting, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Store bundles the repositories handed to the controllers.
type Store struct {
	Students      StudentStore
	Drivers       DriverStore
	Locations     LocationStore
	Routes        RouteStore
	Schedules     ScheduleStore
	Bookings      BookingStore
	Notifications NotificationStore
	Push          PushStore
	Settings      SettingStore
	Health        Pinger
}

// New wires the gorm-backed repositories.
func New(db *gorm.DB) *Store {
	return &Store{
		Students:      &studentRepo{db: db},
		Drivers:       &driverRepo{db: db},
		Locations:     &locationRepo{db: db},
		Routes:        &routeRepo{db: db},
		Schedules:     &scheduleRepo{db: db},
		Bookings:      &bookingRepo{db: db},
		Notifications: &notificationRepo{db: db},
		Push:          &pushRepo{db: db},
		Settings:      &settingRepo{db: db},
		Health:        &pinger{db: db},
	}
}

type pinger struct{ db *gorm.DB }

func (p *pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// translate maps gorm errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}

//go:build integration

package store_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"bus_portal/internal/models"
	"bus_portal/internal/store"
	"bus_portal/internal/testutil/testdb"
)

func startStore(t *testing.T) *store.Store {
	t.Helper()
	h, err := testdb.Start(context.Background())
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(h.Close)
	return store.New(h.DB)
}

func seedSchedule(t *testing.T, st *store.Store, seats int) *models.Schedule {
	t.Helper()
	ctx := context.Background()
	route := &models.Route{RouteNumber: "RT900", RouteName: "Integration", TotalCapacity: seats, Status: models.RouteActive}
	if err := st.Routes.Create(ctx, route); err != nil {
		t.Fatalf("create route: %v", err)
	}
	sched := &models.Schedule{
		RouteID:      route.ID,
		ScheduleDate: time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC),
		TotalSeats:   seats,
		Status:       models.ScheduleScheduled,
	}
	if err := st.Schedules.Create(ctx, sched); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	return sched
}

func TestBookingCreateHoldsCapacity(t *testing.T) {
	st := startStore(t)
	ctx := context.Background()
	sched := seedSchedule(t, st, 3)

	var wg sync.WaitGroup
	var ok, full int64
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s := &models.Student{StudentID: fmt.Sprintf("S%02d", i), Name: "Rider", Email: fmt.Sprintf("r%02d@uni.edu", i)}
			if err := st.Students.Create(ctx, s); err != nil {
				t.Errorf("create student: %v", err)
				return
			}
			err := st.Bookings.Create(ctx, &models.Booking{
				StudentID: s.ID, RouteID: sched.RouteID, ScheduleID: sched.ID, TripDate: sched.ScheduleDate,
			})
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, store.ErrNoSeats):
				atomic.AddInt64(&full, 1)
			default:
				t.Errorf("create booking: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 3 || full != 9 {
		t.Errorf("booked %d, rejected %d; want 3 and 9", ok, full)
	}
	got, err := st.Schedules.FindByID(ctx, sched.ID)
	if err != nil {
		t.Fatalf("find schedule: %v", err)
	}
	if got.BookedSeats != 3 || got.AvailableSeats() != 0 {
		t.Errorf("booked_seats = %d", got.BookedSeats)
	}
}

func TestCancelReleasesSeatOnce(t *testing.T) {
	st := startStore(t)
	ctx := context.Background()
	sched := seedSchedule(t, st, 2)

	s := &models.Student{StudentID: "S1", Name: "Asha", Email: "asha@uni.edu"}
	if err := st.Students.Create(ctx, s); err != nil {
		t.Fatalf("create student: %v", err)
	}
	b := &models.Booking{StudentID: s.ID, RouteID: sched.RouteID, ScheduleID: sched.ID, TripDate: sched.ScheduleDate}
	if err := st.Bookings.Create(ctx, b); err != nil {
		t.Fatalf("create booking: %v", err)
	}
	if err := st.Bookings.Create(ctx, &models.Booking{StudentID: s.ID, RouteID: sched.RouteID, ScheduleID: sched.ID, TripDate: sched.ScheduleDate}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("second booking: err = %v, want ErrDuplicate", err)
	}

	if err := st.Bookings.Cancel(ctx, b.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := st.Bookings.Cancel(ctx, b.ID); !errors.Is(err, store.ErrNotCancellable) {
		t.Errorf("second cancel: err = %v", err)
	}
	got, _ := st.Schedules.FindByID(ctx, sched.ID)
	if got.BookedSeats != 0 {
		t.Errorf("booked_seats = %d after cancel", got.BookedSeats)
	}
}

func TestMarkReadAppendsOnce(t *testing.T) {
	st := startStore(t)
	ctx := context.Background()
	n := &models.Notification{Title: "Hi", Message: "There", TargetAudience: models.AudienceAll, IsActive: true, ReadBy: []string{}}
	if err := st.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	var added int64
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := st.Notifications.MarkRead(ctx, n.ID, "u1")
			if err != nil {
				t.Errorf("mark read: %v", err)
			}
			if ok {
				atomic.AddInt64(&added, 1)
			}
		}()
	}
	wg.Wait()

	got, err := st.Notifications.FindByID(ctx, n.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if added != 1 || len(got.ReadBy) != 1 {
		t.Errorf("added=%d read_by=%v", added, got.ReadBy)
	}
}

func TestPushUpsertReactivates(t *testing.T) {
	st := startStore(t)
	ctx := context.Background()
	sub := func(auth string) {
		if err := st.Push.Upsert(ctx, &models.PushSubscription{
			UserID: "u1", UserType: "student", Endpoint: "https://push.example/a", P256DH: "pk", Auth: auth,
		}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	sub("a1")
	if n, err := st.Push.Deactivate(ctx, "u1", ""); err != nil || n != 1 {
		t.Fatalf("deactivate: n=%d err=%v", n, err)
	}
	sub("a2")

	active, err := st.Push.Active(ctx, store.PushFilter{UserType: "student"})
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].Auth != "a2" {
		t.Errorf("active = %+v", active)
	}
}

func TestBroadcastNotificationWithoutLists(t *testing.T) {
	st := startStore(t)
	ctx := context.Background()
	n := &models.Notification{Title: "Holiday", Message: "No buses Friday", TargetAudience: models.AudienceStudents, IsActive: true}
	if err := st.Notifications.Create(ctx, n); err != nil {
		t.Fatalf("create with nil lists: %v", err)
	}
	visible, err := st.Notifications.Visible(ctx, "s1", "student", time.Now())
	if err != nil {
		t.Fatalf("visible: %v", err)
	}
	if len(visible) != 1 || visible[0].ReadBy == nil || len(visible[0].SpecificUsers) != 0 {
		t.Errorf("visible = %+v", visible)
	}
}

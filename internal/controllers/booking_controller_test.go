package controllers_test

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"bus_portal/internal/controllers"
	"bus_portal/internal/models"
	"bus_portal/internal/testutil"
)

func TestDriverBookingsUnknownRoute(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(http.MethodGet, "/api/driver/bookings?routeNumber=RT001&date=2024-06-01", nil, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "Route not found")

	w = e.do(http.MethodGet, "/api/driver/bookings", nil, nil)
	testutil.AssertError(t, w, http.StatusBadRequest, "Route ID or route number is required")

	w = e.do(http.MethodGet, "/api/driver/bookings?routeNumber=RT001&date=01-06-2024", nil, nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

func TestDriverBookingsGroupsByStop(t *testing.T) {
	e := newTestEnv(t)
	route := e.mem.AddRoute(models.Route{RouteNumber: "RT002", RouteName: "North", TotalCapacity: 10})
	date := day(t, "2024-06-01")
	sched := e.mem.AddSchedule(models.Schedule{RouteID: route.ID, ScheduleDate: date, TotalSeats: 10})
	alice := e.mem.AddStudent(models.Student{Name: "Alice", Email: "alice@uni.edu"})
	bob := e.mem.AddStudent(models.Student{Name: "Bob", Email: "bob@uni.edu"})
	cara := e.mem.AddStudent(models.Student{Name: "Cara", Email: "cara@uni.edu"})

	add := func(student *models.Student, stop, status string) {
		e.mem.AddBooking(models.Booking{
			StudentID: student.ID, RouteID: route.ID, ScheduleID: sched.ID, TripDate: date,
			BoardingStop: stop, Status: status,
		})
	}
	add(alice, "Library", models.BookingConfirmed)
	add(bob, "", models.BookingCompleted)
	add(cara, "Library", models.BookingConfirmed)
	add(cara, "Gate", models.BookingCancelled)

	queries := []string{
		"routeNumber=RT002",
		"routeId=" + route.ID,
		"routeId=RT002",
		"routeId=0b8f3c2e-5d6a-4f1b-9c7e-2a4d6e8f0a1b&routeNumber=RT002",
	}
	for _, query := range queries {
		w := e.do(http.MethodGet, "/api/driver/bookings?"+query+"&date=2024-06-01", nil, nil)
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp struct {
			Success  bool                         `json:"success"`
			Date     string                       `json:"date"`
			Count    int                          `json:"count"`
			StopWise map[string][]models.Booking `json:"stopWise"`
		}
		testutil.AssertJSON(t, w, &resp)
		if resp.Count != 3 || resp.Date != "2024-06-01" {
			t.Errorf("%s: count=%d date=%s", query, resp.Count, resp.Date)
		}
		if len(resp.StopWise["Library"]) != 2 || len(resp.StopWise[controllers.UnknownStop]) != 1 {
			t.Errorf("%s: unexpected grouping %v", query, resp.StopWise)
		}
		if _, ok := resp.StopWise["Gate"]; ok {
			t.Errorf("%s: cancelled booking listed", query)
		}
	}
}

func TestCreateBookingNeverOverbooks(t *testing.T) {
	e := newTestEnv(t)
	route := e.mem.AddRoute(models.Route{RouteNumber: "RT003", TotalCapacity: 5, Fare: 40})
	sched := e.mem.AddSchedule(models.Schedule{RouteID: route.ID, ScheduleDate: day(t, "2024-06-02"), TotalSeats: 5})

	const riders = 20
	students := make([]*models.Student, riders)
	for i := range students {
		students[i] = e.mem.AddStudent(models.Student{Name: fmt.Sprintf("S%d", i), Email: fmt.Sprintf("s%d@uni.edu", i)})
	}

	var created, conflicts int64
	var wg sync.WaitGroup
	for _, s := range students {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			w := e.do(http.MethodPost, "/api/bookings", map[string]string{
				"studentId": id, "scheduleId": sched.ID, "boardingStop": "Gate",
			}, nil)
			switch w.Code {
			case http.StatusCreated:
				atomic.AddInt64(&created, 1)
			case http.StatusConflict:
				atomic.AddInt64(&conflicts, 1)
			default:
				t.Errorf("unexpected status %d: %s", w.Code, w.Body.String())
			}
		}(s.ID)
	}
	wg.Wait()

	if created != 5 || conflicts != riders-5 {
		t.Errorf("created=%d conflicts=%d, want 5 and %d", created, conflicts, riders-5)
	}
	if got := e.mem.Schedule(sched.ID).BookedSeats; got != 5 {
		t.Errorf("booked seats = %d, want 5", got)
	}
}

func TestBookingLifecycle(t *testing.T) {
	e := newTestEnv(t)
	route := e.mem.AddRoute(models.Route{RouteNumber: "RT004", TotalCapacity: 2, Fare: 55})
	sched := e.mem.AddSchedule(models.Schedule{RouteID: route.ID, ScheduleDate: day(t, "2024-06-03"), TotalSeats: 2})
	student := e.mem.AddStudent(models.Student{Name: "Dev", Email: "dev@uni.edu"})

	body := map[string]string{"studentId": student.ID, "scheduleId": sched.ID, "boardingStop": "Gate", "seatNumber": "A1"}
	w := e.do(http.MethodPost, "/api/bookings", body, nil)
	testutil.AssertStatus(t, w, http.StatusCreated)
	var created struct {
		Booking models.Booking `json:"booking"`
	}
	testutil.AssertJSON(t, w, &created)
	if created.Booking.Amount != 55 || created.Booking.Status != models.BookingConfirmed {
		t.Errorf("unexpected booking %+v", created.Booking)
	}

	w = e.do(http.MethodPost, "/api/bookings", body, nil)
	testutil.AssertError(t, w, http.StatusConflict, "Booking already exists")

	w = e.do(http.MethodGet, "/api/bookings?studentId="+student.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)

	w = e.do(http.MethodDelete, "/api/bookings/"+created.Booking.ID, nil, nil)
	testutil.AssertStatus(t, w, http.StatusOK)
	if got := e.mem.Schedule(sched.ID).BookedSeats; got != 0 {
		t.Errorf("seat not released, booked = %d", got)
	}

	w = e.do(http.MethodDelete, "/api/bookings/"+created.Booking.ID, nil, nil)
	testutil.AssertError(t, w, http.StatusConflict, "Only confirmed bookings can be cancelled")

	w = e.do(http.MethodPost, "/api/bookings", map[string]string{
		"studentId": student.ID, "scheduleId": "4b7f3c1e-0000-4000-8000-000000000000", "boardingStop": "Gate",
	}, nil)
	testutil.AssertError(t, w, http.StatusNotFound, "Schedule not found")

	w = e.do(http.MethodPost, "/api/bookings", map[string]string{"studentId": student.ID}, nil)
	testutil.AssertStatus(t, w, http.StatusBadRequest)
}

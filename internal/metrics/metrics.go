package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busportal", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "busportal", Name: "http_request_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "busportal", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	Bookings = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busportal", Name: "bookings_total", Help: "Booking attempts by outcome",
	}, []string{"outcome"})
	PushDeliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busportal", Name: "push_deliveries_total", Help: "Web push deliveries by result",
	}, []string{"result"})
	LocationUpdates = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busportal", Name: "location_updates_total", Help: "Driver location fixes by event",
	}, []string{"event"})
	NotificationsRead = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "busportal", Name: "notifications_marked_read_total", Help: "Notifications newly marked read",
	}, []string{"mode"}) // single|bulk
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, DBPing, Bookings, PushDeliveries, LocationUpdates, NotificationsRead)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

func ObserveRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

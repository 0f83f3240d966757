// Package metrics holds the Prometheus collectors of the booking service.
// They register on the default registry and are exposed on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SeatLockAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "seat_lock_attempts_total",
		Help: "Seat lock acquisitions by outcome",
	}, []string{"outcome"})

	BookingsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_confirmed_total",
		Help: "Bookings committed",
	})

	BookingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_failures_total",
		Help: "Failed booking confirmations by error code",
	}, []string{"code"})

	ConfirmDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "booking_confirm_duration_seconds",
		Help:    "Duration of booking confirmation transactions",
		Buckets: prometheus.DefBuckets,
	})

	BookingEventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_events_published_total",
		Help: "booking.confirmed publications by result",
	}, []string{"result"})

	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})
)

// Outcome labels for SeatLockAttempts.
const (
	OutcomeLocked   = "locked"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// HTTPMiddleware records request counts and latency per route pattern.
func HTTPMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		path := c.Path()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Response().Status)
		httpRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())
		return nil
	}
}

// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector so callers can pass one handle around and
// tests can register against a private registry.
type Metrics struct {
	// HTTP requests by method, route and status code.
	HTTPRequestsTotal *prometheus.CounterVec
	// HTTP latency by method and route.
	HTTPRequestDuration *prometheus.HistogramVec
	// Seat lock acquisition attempts by result code
	// (ok, SEAT_LOCKED, EXCEED_LIMIT, INTERNAL, ...).
	SeatLockAttempts *prometheus.CounterVec
	// Latency of lock operations (acquire, release, list, auto_select).
	LockOperationDuration *prometheus.HistogramVec
	// Seats rolled back after a partial acquisition.
	SeatLockRollbacks prometheus.Counter
	// Stock decrement attempts by result (ok, insufficient, error).
	StockDecrements *prometheus.CounterVec
}

// New registers the collectors with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry registers the collectors with reg.
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		SeatLockAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_lock_attempts_total",
				Help: "Seat lock acquisition attempts by result",
			},
			[]string{"result"},
		),
		LockOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seat_lock_operation_duration_seconds",
				Help:    "Time spent in seat lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation"},
		),
		SeatLockRollbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "seat_lock_rollbacks_total",
				Help: "Seat locks deleted while rolling back a partial acquisition",
			},
		),
		StockDecrements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "stock_decrements_total",
				Help: "Stock decrement attempts by result",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SeatLockAttempts,
		m.LockOperationDuration,
		m.SeatLockRollbacks,
		m.StockDecrements,
	)
	return m
}

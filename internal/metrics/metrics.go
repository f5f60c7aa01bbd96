package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Metrics groups the collectors of one process. Every method is safe on a
// nil receiver so services can run without instrumentation.
type Metrics struct {
	HttpRequestsTotal   *prometheus.CounterVec
	HttpRequestDuration *prometheus.HistogramVec

	SalesCompleted   *prometheus.CounterVec
	CheckoutFailures prometheus.Counter
	RoundingAmount   prometheus.Counter
	DisplayPublishes prometheus.Counter
	DisplayClients   *prometheus.GaugeVec
	ExportFailures   prometheus.Counter
	LoginAttempts    *prometheus.CounterVec
}

// New registers the collectors on reg with the given name prefix.
func New(reg prometheus.Registerer, prefix string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HttpRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HttpRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    prefix + "_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		SalesCompleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_sales_completed_total",
				Help: "Completed checkouts by whether rounding was accepted",
			},
			[]string{"rounded"},
		),
		CheckoutFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_checkout_failures_total",
				Help: "Checkouts rolled back",
			},
		),
		RoundingAmount: f.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_rounding_amount_total",
				Help: "Sum of rounding amounts collected, in currency units",
			},
		),
		DisplayPublishes: f.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_display_publishes_total",
				Help: "Display states published by admins",
			},
		),
		DisplayClients: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: prefix + "_display_clients",
				Help: "Connected relay clients by role",
			},
			[]string{"role"},
		),
		ExportFailures: f.NewCounter(
			prometheus.CounterOpts{
				Name: prefix + "_export_failures_total",
				Help: "Failed writes of the JSON export mirror",
			},
		),
		LoginAttempts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_login_attempts_total",
				Help: "Login attempts by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if m == nil {
			return c.Next()
		}
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}
		method := c.Method()
		path := c.Route().Path
		code := strconv.Itoa(status)

		m.HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
		m.HttpRequestDuration.WithLabelValues(method, path, code).Observe(time.Since(start).Seconds())

		return err
	}
}

func (m *Metrics) RecordSale(rounded bool, rounding decimal.Decimal) {
	if m == nil {
		return
	}
	m.SalesCompleted.WithLabelValues(strconv.FormatBool(rounded)).Inc()
	m.RoundingAmount.Add(rounding.InexactFloat64())
}

func (m *Metrics) RecordCheckoutFailure() {
	if m == nil {
		return
	}
	m.CheckoutFailures.Inc()
}

func (m *Metrics) RecordPublish() {
	if m == nil {
		return
	}
	m.DisplayPublishes.Inc()
}

func (m *Metrics) ClientJoined(role string) {
	if m == nil {
		return
	}
	m.DisplayClients.WithLabelValues(role).Inc()
}

func (m *Metrics) ClientLeft(role string) {
	if m == nil {
		return
	}
	m.DisplayClients.WithLabelValues(role).Dec()
}

func (m *Metrics) RecordExportFailure() {
	if m == nil {
		return
	}
	m.ExportFailures.Inc()
}

func (m *Metrics) RecordLogin(outcome string) {
	if m == nil {
		return
	}
	m.LoginAttempts.WithLabelValues(outcome).Inc()
}

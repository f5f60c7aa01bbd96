package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareCountsByRoute(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")
	app := fiber.New()
	app.Use(m.Middleware())
	app.Get("/ticket/:id", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNotFound)
	})

	for _, id := range []string{"a", "b"} {
		resp, err := app.Test(httptest.NewRequest("GET", "/ticket/"+id, nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HttpRequestsTotal.WithLabelValues("GET", "/ticket/:id", "404")))
}

func TestRecordSale(t *testing.T) {
	m := New(prometheus.NewRegistry(), "test")
	m.RecordSale(true, decimal.RequireFromString("0.75"))
	m.RecordSale(false, decimal.Zero)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SalesCompleted.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SalesCompleted.WithLabelValues("false")))
	assert.InDelta(t, 0.75, testutil.ToFloat64(m.RoundingAmount), 1e-9)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordSale(true, decimal.NewFromInt(1))
		m.RecordCheckoutFailure()
		m.RecordPublish()
		m.ClientJoined("display")
		m.ClientLeft("display")
		m.RecordExportFailure()
		m.RecordLogin("ok")
	})
}

// Package metrics exposes prometheus counters for the order workflow.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Metrics holds the workflow collectors and the registry they live in.
type Metrics struct {
	registry *prometheus.Registry

	ordersCreated prometheus.Counter
	detailStatus  *prometheus.CounterVec
	invoices      *prometheus.CounterVec
	invoiceAmount prometheus.Counter
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tablepos_orders_created_total",
			Help: "Orders opened on dining tables.",
		}),
		detailStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablepos_order_details_status_total",
			Help: "Order lines moved into each status.",
		}, []string{"status"}),
		invoices: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablepos_invoices_total",
			Help: "Invoices created by payment method.",
		}, []string{"method"}),
		invoiceAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "tablepos_invoice_amount_total",
			Help: "Sum of invoiced order totals.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "tablepos_http_requests_total",
			Help: "HTTP requests by method, route pattern and status code.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tablepos_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	m.registry.MustRegister(
		m.ordersCreated, m.detailStatus, m.invoices, m.invoiceAmount,
		m.httpRequests, m.httpDuration,
	)
	return m
}

func (m *Metrics) OrderCreated() {
	m.ordersCreated.Inc()
}

// DetailsMoved counts n lines entering status.
func (m *Metrics) DetailsMoved(status string, n int) {
	if n > 0 {
		m.detailStatus.WithLabelValues(status).Add(float64(n))
	}
}

func (m *Metrics) InvoiceCreated(method string, total decimal.Decimal) {
	m.invoices.WithLabelValues(method).Inc()
	m.invoiceAmount.Add(total.InexactFloat64())
}

// Handler serves the registry in the prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware records a request count and latency per chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the Prometheus registry and the application's collectors.
type Metrics struct {
	registry        *prometheus.Registry
	requestCount    *prometheus.CounterVec
	powerBIRequests *prometheus.CounterVec
	powerBIDuration *prometheus.HistogramVec
}

// New creates a registry with the Go and process collectors plus the
// application metrics.
func New() (*Metrics, error) {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests processed.",
			},
			[]string{"method", "path", "status"},
		),
		powerBIRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "powerbi_requests_total",
				Help: "Total number of Power BI REST API calls.",
			},
			[]string{"operation", "status"},
		),
		powerBIDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "powerbi_request_duration_seconds",
				Help:    "Latency of Power BI REST API calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requestCount,
		m.powerBIRequests,
		m.powerBIDuration,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware counts every request by method, route pattern and final status.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().URL.Path == "/metrics" {
				return next(c)
			}

			err := next(c)

			// Route pattern (e.g. /static/*) keeps label cardinality bounded.
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}

			m.requestCount.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			return err
		}
	}
}

// ObservePowerBI records one Power BI API call. status is 0 when the request
// never produced a response.
func (m *Metrics) ObservePowerBI(operation string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.powerBIRequests.WithLabelValues(operation, label).Inc()
	m.powerBIDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

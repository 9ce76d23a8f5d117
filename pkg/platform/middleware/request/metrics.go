package request

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records page and fragment latency by route and status class.
type Metrics struct {
	RouteLatency *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer)
}

// NewMetricsWith registers on reg; tests pass a fresh registry.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		RouteLatency: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "inclusao_http_request_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"method", "route", "status"}),
	}
}

// Observe records one request; status is collapsed to its class (2xx, 3xx...).
func (m *Metrics) Observe(method, route string, status int, elapsed time.Duration) {
	m.RouteLatency.WithLabelValues(method, route, statusClass(status)).Observe(elapsed.Seconds())
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

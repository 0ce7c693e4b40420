// Package metrics exposes Prometheus collectors for the console: backend calls
// and open registration dialogs.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records one observation per backend round trip.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	dialogs  prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dojo",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Backend requests by operation and response status (0 for transport failures).",
		}, []string{"op", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dojo",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "Backend request latency by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		dialogs: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "dojo",
			Subsystem: "console",
			Name:      "open_dialogs",
			Help:      "Registration dialogs currently open in the console.",
		}),
	}
	reg.MustRegister(m.requests, m.duration, m.dialogs)
	return m
}

// ObserveRequest implements backend.Observer.
func (m *Metrics) ObserveRequest(op string, status int, elapsed time.Duration) {
	m.requests.WithLabelValues(op, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// SetOpenDialogs implements handler.DialogObserver.
func (m *Metrics) SetOpenDialogs(n int) {
	m.dialogs.Set(float64(n))
}

package obs

import (
	"errors"
	"slices"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// defaultLatencyBuckets are in milliseconds.
var defaultLatencyBuckets = []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500}

// HTTPMetrics are the per-route request collectors fed by HTTPObs.
type HTTPMetrics struct {
	ReqTotal *prometheus.CounterVec
	ReqDur   *prometheus.HistogramVec
	InFlight prometheus.Gauge
}

// NewHTTPMetrics registers the request collectors on reg (the default
// registry when nil). Registering twice returns the collectors already in
// place, so tests and the server can share a registry.
func NewHTTPMetrics(namespace string, bucketsMs []float64, reg prometheus.Registerer) *HTTPMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := slices.Clone(bucketsMs)
	if len(buckets) == 0 {
		buckets = defaultLatencyBuckets
	}
	slices.Sort(buckets)

	return &HTTPMetrics{
		ReqTotal: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by method, route pattern and status.",
		}, []string{"method", "route", "status"})),
		ReqDur: register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "Latency of non-streaming HTTP requests in milliseconds.",
			Buckets:   buckets,
		}, []string{"method", "route"})),
		InFlight: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_in_flight_requests",
			Help:      "Requests currently being served, open topic streams included.",
		})),
	}
}

// register adds c to reg, or returns the equivalent collector that is
// already registered. Any other registration error is a programming
// mistake and panics.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var dup prometheus.AlreadyRegisteredError
	if errors.As(err, &dup) {
		if existing, ok := dup.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic("obs: register metric: " + err.Error())
}

func DurationMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

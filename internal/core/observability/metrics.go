// Package observability holds the domain Prometheus collectors of the service.
package observability

import (
	"errors"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~20s
		},
		[]string{"method", "route", "status"},
	)

	upstreamLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstream_latency_seconds",
			Help:    "Latency of upstream calls in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
		[]string{"upstream", "outcome"},
	)

	geocodeResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geocode_results_total",
			Help: "City resolutions by outcome (resolved, not_found, transport, stored).",
		},
		[]string{"outcome"},
	)

	advisoriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feature_advisories_total",
			Help: "Out-of-envelope advisories by field.",
		},
		[]string{"field"},
	)

	coordStoreOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coord_store_op_total",
			Help: "Coordinate store operations by op and result.",
		},
		[]string{"op", "result"},
	)

	modelMemo = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_memo_total",
			Help: "Prediction memo lookups by outcome.",
		},
		[]string{"outcome"},
	)

	estimatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "estimates_total",
			Help: "Estimate requests by result.",
		},
		[]string{"result"},
	)
)

var (
	mu         sync.Mutex
	registered = map[prometheus.Registerer]bool{}
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal, httpRequestDurationSeconds, upstreamLatencySeconds,
		geocodeResults, advisoriesTotal, coordStoreOps, modelMemo, estimatesTotal,
	}
}

// Init registers the collectors on reg. Calling it again with the same
// registry is a no-op. With enabled=false the collectors still count but are
// not exported.
func Init(reg prometheus.Registerer, enabled bool) {
	if !enabled || reg == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	if registered[reg] {
		return
	}
	for _, c := range collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				panic(err)
			}
		}
	}
	registered[reg] = true
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveUpstream(upstream string, err error, durationSeconds float64) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	upstreamLatencySeconds.WithLabelValues(upstream, outcome).Observe(durationSeconds)
}

func IncGeocode(outcome string) {
	geocodeResults.WithLabelValues(outcome).Inc()
}

func IncAdvisory(field string) {
	advisoriesTotal.WithLabelValues(field).Inc()
}

func ObserveStoreOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	coordStoreOps.WithLabelValues(op, result).Inc()
}

func IncMemoHit()  { modelMemo.WithLabelValues("hit").Inc() }
func IncMemoMiss() { modelMemo.WithLabelValues("miss").Inc() }

func IncEstimate(result string) {
	estimatesTotal.WithLabelValues(result).Inc()
}

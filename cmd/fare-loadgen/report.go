package main

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"time"
)

// Outcome buckets a response by what the fare server did with it.
type Outcome string

const (
	OutcomePriced     Outcome = "priced"      // 200
	OutcomeRejected   Outcome = "rejected"    // 422 invalid date/category or required distance
	OutcomeBadRequest Outcome = "bad_request" // 400
	OutcomeModelError Outcome = "model_error" // 502
	OutcomeNotReady   Outcome = "not_ready"   // 503
	OutcomeTransport  Outcome = "transport"   // no response
	OutcomeUnexpected Outcome = "unexpected"
)

func classify(status int, err error) Outcome {
	if err != nil {
		return OutcomeTransport
	}
	switch status {
	case http.StatusOK:
		return OutcomePriced
	case http.StatusUnprocessableEntity:
		return OutcomeRejected
	case http.StatusBadRequest:
		return OutcomeBadRequest
	case http.StatusBadGateway:
		return OutcomeModelError
	case http.StatusServiceUnavailable:
		return OutcomeNotReady
	default:
		return OutcomeUnexpected
	}
}

// fareBody is the subset of an estimate/derive response the report reads.
type fareBody struct {
	Price       *float64          `json:"price"`
	DistanceKm  *float64          `json:"distance_km"`
	Diagnostics []json.RawMessage `json:"diagnostics"`
}

type observation struct {
	At          time.Time
	Latency     time.Duration
	Route       string // "Source>Destination"
	Status      int
	Outcome     Outcome
	Price       *float64
	NoDistance  bool
	Diagnostics int
	Err         string
}

type latencyStats struct {
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

type priceStats struct {
	Count int     `json:"count"`
	Min   float64 `json:"min"`
	Mean  float64 `json:"mean"`
	Max   float64 `json:"max"`
}

type Report struct {
	Target          string          `json:"target"`
	Start           time.Time       `json:"start"`
	Seconds         float64         `json:"seconds"`
	Requests        int             `json:"requests"`
	RPS             float64         `json:"rps"`
	Outcomes        map[Outcome]int `json:"outcomes"`
	ByStatus        map[int]int     `json:"by_status"`
	MissingDistance int             `json:"missing_distance"`
	WithDiagnostics int             `json:"with_diagnostics"`
	Latency         latencyStats    `json:"latency_priced"`
	Prices          *priceStats     `json:"prices,omitempty"`
	TopRoutes       []routeCount    `json:"top_routes"`
}

type routeCount struct {
	Route string `json:"route"`
	Count int    `json:"count"`
}

// tally folds observations into a Report. It is used from a single
// collector goroutine.
type tally struct {
	outcomes   map[Outcome]int
	byStatus   map[int]int
	routes     map[string]int
	latencies  []time.Duration
	prices     []float64
	noDistance int
	withDiags  int
	n          int
}

func newTally() *tally {
	return &tally{outcomes: map[Outcome]int{}, byStatus: map[int]int{}, routes: map[string]int{}}
}

func (t *tally) add(o observation) {
	t.n++
	t.outcomes[o.Outcome]++
	if o.Status != 0 {
		t.byStatus[o.Status]++
	}
	t.routes[o.Route]++
	if o.Outcome != OutcomePriced {
		return
	}
	t.latencies = append(t.latencies, o.Latency)
	if o.Price != nil {
		t.prices = append(t.prices, *o.Price)
	}
	if o.NoDistance {
		t.noDistance++
	}
	if o.Diagnostics > 0 {
		t.withDiags++
	}
}

func (t *tally) report(target string, start time.Time, elapsed time.Duration, topN int) Report {
	r := Report{
		Target:          target,
		Start:           start.UTC(),
		Seconds:         elapsed.Seconds(),
		Requests:        t.n,
		Outcomes:        t.outcomes,
		ByStatus:        t.byStatus,
		MissingDistance: t.noDistance,
		WithDiagnostics: t.withDiags,
		Latency:         summarizeLatency(t.latencies),
		TopRoutes:       topRoutes(t.routes, topN),
	}
	if elapsed > 0 {
		r.RPS = float64(t.n) / elapsed.Seconds()
	}
	if len(t.prices) > 0 {
		ps := priceStats{Count: len(t.prices), Min: math.Inf(1), Max: math.Inf(-1)}
		var sum float64
		for _, p := range t.prices {
			sum += p
			ps.Min = math.Min(ps.Min, p)
			ps.Max = math.Max(ps.Max, p)
		}
		ps.Mean = sum / float64(len(t.prices))
		r.Prices = &ps
	}
	return r
}

// nearestRank returns the p-th percentile of sorted by the nearest-rank rule.
func nearestRank(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	rank := int(math.Ceil(p / 100 * float64(len(sorted))))
	rank = min(max(rank, 1), len(sorted))
	return sorted[rank-1]
}

func summarizeLatency(ds []time.Duration) latencyStats {
	if len(ds) == 0 {
		return latencyStats{}
	}
	sorted := append([]time.Duration(nil), ds...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	ms := func(d time.Duration) float64 { return float64(d.Microseconds()) / 1000 }
	return latencyStats{
		P50Ms: ms(nearestRank(sorted, 50)),
		P95Ms: ms(nearestRank(sorted, 95)),
		P99Ms: ms(nearestRank(sorted, 99)),
		MaxMs: ms(sorted[len(sorted)-1]),
	}
}

func topRoutes(routes map[string]int, n int) []routeCount {
	out := make([]routeCount, 0, len(routes))
	for r, c := range routes {
		out = append(out, routeCount{Route: r, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Route < out[j].Route
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

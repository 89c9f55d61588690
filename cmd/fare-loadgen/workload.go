package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/reference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/temporal"
)

// fetchSummary reads the vocabularies the server was started with.
func fetchSummary(ctx context.Context, client *http.Client, baseURL string) (reference.Summary, error) {
	u := strings.TrimRight(baseURL, "/") + "/v1/reference"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return reference.Summary{}, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return reference.Summary{}, fmt.Errorf("get reference: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return reference.Summary{}, fmt.Errorf("reference status %d: %s", resp.StatusCode, string(b))
	}
	var s reference.Summary
	if err := json.NewDecoder(resp.Body).Decode(&s); err != nil {
		return reference.Summary{}, fmt.Errorf("decode reference: %w", err)
	}
	return s, nil
}

func pick(r *rand.Rand, vals []string) string {
	if len(vals) == 0 {
		return ""
	}
	return vals[r.Intn(len(vals))]
}

func between(r *rand.Rand, rg reference.Range) int {
	if rg.Max <= rg.Min {
		return rg.Min
	}
	return rg.Min + r.Intn(rg.Max-rg.Min+1)
}

// workItem is one pooled request.
type workItem struct {
	Route string
	Query string
}

// makeWorkload builds count requests whose values all come from the
// reference vocabularies, so none is rejected before the model call.
func makeWorkload(s reference.Summary, count int, r *rand.Rand) []workItem {
	stops := s.Ranges["Total_Stops"]
	dur := s.Ranges["Duration"]
	months, ok := s.Ranges["Dep_Month"]
	if !ok {
		months = reference.Range{Min: 1, Max: 12}
	}

	out := make([]workItem, 0, max(count, 0))
	for len(out) < count {
		src := pick(r, s.Categories["Source"])
		dst := pick(r, s.Categories["Destination"])
		month := between(r, months)
		mins := between(r, dur)

		q := url.Values{}
		q.Set("airline", pick(r, s.Categories["Airline"]))
		q.Set("source", src)
		q.Set("destination", dst)
		q.Set("stops", strconv.Itoa(between(r, stops)))
		q.Set("info", pick(r, s.Categories["Additional_Info"]))
		q.Set("month", strconv.Itoa(month))
		q.Set("day", strconv.Itoa(1+r.Intn(temporal.DaysIn(month))))
		q.Set("hour", strconv.Itoa(r.Intn(24)))
		q.Set("minute", strconv.Itoa(5*r.Intn(12)))
		q.Set("dur_h", strconv.Itoa(min(mins/60, 47)))
		q.Set("dur_m", strconv.Itoa(mins%60))
		out = append(out, workItem{Route: src + ">" + dst, Query: q.Encode()})
	}
	return out
}

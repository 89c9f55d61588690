// Package router parses fare requests and maps pipeline results onto HTTP.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/estimator"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/features"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/geo"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/reference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/resolver"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/temporal"
)

// Pipeline is the estimator as seen by the HTTP layer.
type Pipeline interface {
	Derive(ctx context.Context, sel model.Selections) (estimator.Derivation, error)
	Estimate(ctx context.Context, sel model.Selections) (estimator.Estimate, error)
}

// CityIndex exposes the populated coordinate cache.
type CityIndex interface {
	Ready() bool
	Wait(ctx context.Context) (model.CoordinateCache, error)
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under a fixed route label.
func instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		h(sw, r)
		observability.ObserveHTTP(r.Method, route, sw.code, time.Since(start).Seconds())
	}
}

func HandleDerive(logger *slog.Logger, p Pipeline) http.HandlerFunc {
	return instrument("/v1/derive", func(w http.ResponseWriter, r *http.Request) {
		sel, err := ParseSelections(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		d, err := p.Derive(r.Context(), sel)
		if err != nil {
			fail(r.Context(), logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, d)
	})
}

func HandleEstimate(logger *slog.Logger, p Pipeline) http.HandlerFunc {
	return instrument("/v1/estimate", func(w http.ResponseWriter, r *http.Request) {
		sel, err := ParseSelections(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		est, err := p.Estimate(r.Context(), sel)
		if err != nil {
			fail(r.Context(), logger, w, err)
			return
		}
		writeJSON(w, http.StatusOK, est)
	})
}

func HandleReference(b *reference.Bounds) http.HandlerFunc {
	return instrument("/v1/reference", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, b.Summary())
	})
}

// CityStatus is one row of /v1/cities.
type CityStatus struct {
	City   string            `json:"city"`
	Status string            `json:"status"`
	Coord  *model.Coordinate `json:"coordinate,omitempty"`
	Cell   string            `json:"h3_cell,omitempty"`
	Detail string            `json:"detail,omitempty"`
}

func HandleCities(logger *slog.Logger, b *reference.Bounds, idx CityIndex, h3Res int) http.HandlerFunc {
	return instrument("/v1/cities", func(w http.ResponseWriter, r *http.Request) {
		if !idx.Ready() {
			writeError(w, http.StatusServiceUnavailable, resolver.ErrNotReady)
			return
		}
		cache, err := idx.Wait(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err)
			return
		}
		cities := b.Cities()
		out := make([]CityStatus, 0, len(cities))
		for _, c := range cities {
			res, ok := cache[c]
			switch {
			case !ok:
				out = append(out, CityStatus{City: c, Status: "unknown"})
			case !res.OK():
				out = append(out, CityStatus{City: c, Status: string(res.Failure), Detail: res.Detail})
			default:
				coord := res.Coordinate
				cell, err := geo.CellOf(coord, h3Res)
				if err != nil {
					logger.WarnContext(r.Context(), "h3 cell failed", "city", c, "err", err)
				}
				out = append(out, CityStatus{City: c, Status: "resolved", Coord: &coord, Cell: cell})
			}
		}
		writeJSON(w, http.StatusOK, out)
	})
}

// StatusFor maps a pipeline error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, temporal.ErrInvalidDate),
		errors.Is(err, temporal.ErrInvalidTime),
		errors.Is(err, temporal.ErrInvalidDuration),
		errors.Is(err, features.ErrInvalidCategory),
		errors.Is(err, estimator.ErrDistanceUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, estimator.ErrModel):
		return http.StatusBadGateway
	case errors.Is(err, resolver.ErrNotReady):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, "request failed", "status", code, "err", err)
	}
	writeError(w, code, err)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// ParseSelections reads and range-checks the query parameters. Calendar
// validity of month/day is left to the temporal deriver.
func ParseSelections(r *http.Request) (model.Selections, error) {
	q := r.URL.Query()
	var sel model.Selections
	var err error

	str := func(name string) string {
		if err != nil {
			return ""
		}
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			err = fmt.Errorf("missing required parameter: %s", name)
		}
		return v
	}
	num := func(name string, lo, hi int, dflt *int) int {
		if err != nil {
			return 0
		}
		raw := strings.TrimSpace(q.Get(name))
		if raw == "" {
			if dflt != nil {
				return *dflt
			}
			err = fmt.Errorf("missing required parameter: %s", name)
			return 0
		}
		n, perr := strconv.Atoi(raw)
		if perr != nil {
			err = fmt.Errorf("%s: not an integer: %q", name, raw)
			return 0
		}
		if n < lo || n > hi {
			err = fmt.Errorf("%s: %d is outside [%d,%d]", name, n, lo, hi)
			return 0
		}
		return n
	}
	zero := 0

	sel.Airline = str("airline")
	sel.Source = str("source")
	sel.Destination = str("destination")
	sel.AdditionalInfo = str("info")
	// stops above the trained range only yield an advisory
	sel.TotalStops = num("stops", 0, 99, nil)
	sel.DepMonth = num("month", 1, 12, nil)
	sel.DepDay = num("day", 1, 31, nil)
	sel.DepHour = num("hour", 0, 23, nil)
	sel.DepMinute = num("minute", 0, 55, &zero)
	sel.DurationHours = num("dur_h", 0, 47, &zero)
	sel.DurationMinutes = num("dur_m", 0, 59, &zero)
	if err != nil {
		return model.Selections{}, err
	}
	if sel.DepMinute%5 != 0 {
		return model.Selections{}, fmt.Errorf("minute: %d is not on the 5-minute grid", sel.DepMinute)
	}
	return sel, nil
}

// Package resolver owns the process-wide coordinate cache: it resolves every
// known city once, isolates per-city failures, and then serves lock-free reads.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/geocode"
	mylog "github.com/mohammed-shakir/flight-fare-estimator/internal/logger"
)

// ErrNotReady is returned by Wait when population has not finished in time.
var ErrNotReady = errors.New("coordinate cache not populated")

type Config struct {
	Country     string        // appended to every query to disambiguate
	MinInterval time.Duration // between consecutive geocoder queries
	Timeout     time.Duration // per geocoder query
}

type Resolver struct {
	logger *slog.Logger
	geo    geocode.Geocoder
	store  Store
	pacer  *geocode.Pacer
	cfg    Config

	once  sync.Once
	done  chan struct{}
	cache model.CoordinateCache
	diags []model.Diagnostic
}

// New builds a resolver. store may be nil.
func New(logger *slog.Logger, geo geocode.Geocoder, store Store, cfg Config) *Resolver {
	if store == nil {
		store = NopStore{}
	}
	return &Resolver{
		logger: logger,
		geo:    geo,
		store:  store,
		pacer:  geocode.NewPacer(cfg.MinInterval),
		cfg:    cfg,
		done:   make(chan struct{}),
	}
}

// ResolveAll fills cache with an entry for every city not already present.
// Entries already in the cache are never re-queried. Failures are recorded as
// unresolved entries and returned as diagnostics; ResolveAll itself never
// fails.
func (r *Resolver) ResolveAll(ctx context.Context, cities []string, cache model.CoordinateCache) []model.Diagnostic {
	var pending []string
	seen := make(map[string]struct{}, len(cities))
	for _, c := range cities {
		if _, ok := cache[c]; ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return nil
	}

	stored, err := r.store.Load(ctx, r.cfg.Country, pending)
	if err != nil {
		r.logger.WarnContext(ctx, "coordinate store load failed; geocoding all cities", "err", err)
		stored = nil
	}

	var diags []model.Diagnostic
	for _, city := range pending {
		if c, ok := stored[city]; ok {
			cache[city] = model.Resolved(c)
			observability.IncGeocode("stored")
			continue
		}
		res, diag := r.resolveOne(mylog.WithCity(ctx, city), city)
		cache[city] = res
		if diag != nil {
			diags = append(diags, *diag)
			continue
		}
		if err := r.store.Save(ctx, r.cfg.Country, city, res.Coordinate); err != nil {
			r.logger.WarnContext(ctx, "coordinate store save failed", "city", city, "err", err)
		}
	}
	return diags
}

func (r *Resolver) resolveOne(ctx context.Context, city string) (model.Resolution, *model.Diagnostic) {
	if err := r.pacer.Wait(ctx); err != nil {
		return r.transportFailure(ctx, city, err)
	}

	callCtx := ctx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	coord, err := r.geo.Geocode(callCtx, geocode.Query(city, r.cfg.Country))
	r.pacer.Done()
	switch {
	case err == nil:
		observability.IncGeocode("resolved")
		r.logger.DebugContext(ctx, "city resolved", "lat", coord.Lat, "lon", coord.Lon)
		return model.Resolved(coord), nil
	case errors.Is(err, geocode.ErrNotFound):
		observability.IncGeocode(string(model.FailureNotFound))
		msg := fmt.Sprintf("could not find coordinates for %s", city)
		r.logger.WarnContext(ctx, msg)
		return model.Unresolved(model.FailureNotFound, err.Error()), &model.Diagnostic{
			Severity: model.SeverityWarning,
			Kind:     model.KindUnresolved,
			City:     city,
			Message:  msg,
		}
	default:
		return r.transportFailure(ctx, city, err)
	}
}

func (r *Resolver) transportFailure(ctx context.Context, city string, err error) (model.Resolution, *model.Diagnostic) {
	observability.IncGeocode(string(model.FailureTransport))
	msg := fmt.Sprintf("error getting coordinates for %s: %v", city, err)
	r.logger.ErrorContext(ctx, "geocode failed", "err", err)
	return model.Unresolved(model.FailureTransport, err.Error()), &model.Diagnostic{
		Severity: model.SeverityError,
		Kind:     model.KindTransport,
		City:     city,
		Message:  msg,
	}
}

// Populate resolves cities into the shared cache. Only the first call does
// any work; later calls return immediately.
func (r *Resolver) Populate(ctx context.Context, cities []string) {
	r.once.Do(func() {
		start := time.Now()
		cache := make(model.CoordinateCache, len(cities))
		diags := r.ResolveAll(ctx, cities, cache)

		r.cache = cache
		r.diags = diags
		close(r.done)

		r.logger.InfoContext(ctx, "coordinate cache populated",
			"cities", len(cache),
			"unresolved", len(diags),
			"duration", time.Since(start).String())
	})
}

// Ready reports whether population has completed.
func (r *Resolver) Ready() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Wait blocks until population completes and returns the immutable cache.
func (r *Resolver) Wait(ctx context.Context) (model.CoordinateCache, error) {
	select {
	case <-r.done:
		return r.cache, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrNotReady, ctx.Err())
	}
}

// Diagnostics returns the population diagnostics, optionally restricted to
// the given cities. Empty until population completes.
func (r *Resolver) Diagnostics(cities ...string) []model.Diagnostic {
	if !r.Ready() {
		return nil
	}
	if len(cities) == 0 {
		return append([]model.Diagnostic(nil), r.diags...)
	}
	var out []model.Diagnostic
	for _, d := range r.diags {
		for _, c := range cities {
			if d.City == c {
				out = append(out, d)
				break
			}
		}
	}
	return out
}

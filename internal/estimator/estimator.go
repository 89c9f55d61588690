// Package estimator runs the per-request pipeline: temporal derivation,
// validation, distance lookup, feature assembly and the model call.
package estimator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/features"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/geo"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/inference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/temporal"
)

var (
	// ErrDistanceUnavailable is returned only when distance is required.
	ErrDistanceUnavailable = errors.New("distance unavailable")
	ErrModel               = errors.New("model inference failed")
)

// CoordinateSource is the read side of the resolver.
type CoordinateSource interface {
	Wait(ctx context.Context) (model.CoordinateCache, error)
	Diagnostics(cities ...string) []model.Diagnostic
}

type Options struct {
	RequireDistance bool
	CurrencySymbol  string
	WaitReady       time.Duration // bound on waiting for the coordinate cache
}

type Service struct {
	logger    *slog.Logger
	coords    CoordinateSource
	assembler *features.Assembler
	model     inference.Predictor
	opts      Options
}

func New(logger *slog.Logger, coords CoordinateSource, asm *features.Assembler, p inference.Predictor, opts Options) *Service {
	return &Service{logger: logger, coords: coords, assembler: asm, model: p, opts: opts}
}

type Moment struct {
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Day       int    `json:"day"`
	Hour      int    `json:"hour"`
	Minute    int    `json:"minute"`
	Clock     string `json:"clock"`
	PartOfDay string `json:"part_of_day"`
}

func moment(month, day, hour, minute int) Moment {
	return Moment{
		Month:     month,
		MonthName: temporal.MonthName(month),
		Day:       day,
		Hour:      hour,
		Minute:    minute,
		Clock:     temporal.FormatClock(hour, minute),
		PartOfDay: string(temporal.PartOfDayOf(hour)),
	}
}

type Derivation struct {
	DistanceKm   *float64           `json:"distance_km"`
	DistanceText string             `json:"distance_text"`
	Duration     string             `json:"duration"`
	Departure    Moment             `json:"departure"`
	Arrival      Moment             `json:"arrival"`
	Features     model.FeatureRow   `json:"features"`
	Diagnostics  []model.Diagnostic `json:"diagnostics"`
}

type Estimate struct {
	Derivation
	Price     float64 `json:"price"`
	PriceText string  `json:"price_text"`
}

// Derive builds the feature row for sel without calling the model.
// Invalid dates and categories fail before the coordinate cache is read.
func (s *Service) Derive(ctx context.Context, sel model.Selections) (Derivation, error) {
	dep := temporal.Departure{Month: sel.DepMonth, Day: sel.DepDay, Hour: sel.DepHour, Minute: sel.DepMinute}
	arr, err := temporal.DeriveArrival(dep, sel.TotalDuration())
	if err != nil {
		return Derivation{}, err
	}
	diags, err := s.assembler.Validate(sel)
	if err != nil {
		return Derivation{}, err
	}

	waitCtx := ctx
	if s.opts.WaitReady > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, s.opts.WaitReady)
		defer cancel()
	}
	cache, err := s.coords.Wait(waitCtx)
	if err != nil {
		return Derivation{}, err
	}

	var dist *float64
	distText := "unavailable"
	if km, ok := geo.Distance(sel.Source, sel.Destination, cache); ok {
		dist = &km
		distText = fmt.Sprintf("%.2f km", km)
	} else {
		diags = append(diags, s.coords.Diagnostics(sel.Source, sel.Destination)...)
		diags = append(diags, model.Diagnostic{
			Severity: model.SeverityWarning,
			Kind:     model.KindDistanceUnavailable,
			Field:    model.ColDistanceKm,
			Message: fmt.Sprintf("distance between %s and %s is unavailable; the model receives a missing value",
				sel.Source, sel.Destination),
		})
		if s.opts.RequireDistance {
			return Derivation{}, fmt.Errorf("%w: %s to %s", ErrDistanceUnavailable, sel.Source, sel.Destination)
		}
		s.logger.WarnContext(ctx, "distance unavailable", "source", sel.Source, "destination", sel.Destination)
	}

	if diags == nil {
		diags = []model.Diagnostic{}
	}
	return Derivation{
		DistanceKm:   dist,
		DistanceText: distText,
		Duration:     temporal.FormatDuration(sel.TotalDuration()),
		Departure:    moment(sel.DepMonth, sel.DepDay, sel.DepHour, sel.DepMinute),
		Arrival:      moment(arr.Month, arr.Day, arr.Hour, arr.Minute),
		Features:     s.assembler.Build(sel, dist, arr),
		Diagnostics:  diags,
	}, nil
}

// Estimate derives the feature row and asks the model for a price. Model
// failures are not retried.
func (s *Service) Estimate(ctx context.Context, sel model.Selections) (Estimate, error) {
	d, err := s.Derive(ctx, sel)
	if err != nil {
		observability.IncEstimate("rejected")
		return Estimate{}, err
	}
	price, err := s.model.Predict(ctx, d.Features)
	if err != nil {
		observability.IncEstimate("model_error")
		s.logger.ErrorContext(ctx, "prediction failed", "err", err)
		return Estimate{}, fmt.Errorf("%w: %w", ErrModel, err)
	}
	observability.IncEstimate("ok")
	price = round2(price)
	return Estimate{
		Derivation: d,
		Price:      price,
		PriceText:  FormatPrice(s.opts.CurrencySymbol, price),
	}, nil
}

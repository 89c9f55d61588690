// Package features validates user selections against the model's training
// envelope and assembles the fixed-schema feature row.
package features

import (
	"errors"
	"fmt"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/observability"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/reference"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/temporal"
)

var ErrInvalidCategory = errors.New("invalid category")

type Assembler struct {
	bounds *reference.Bounds
}

func NewAssembler(b *reference.Bounds) *Assembler {
	return &Assembler{bounds: b}
}

// Validate rejects out-of-vocabulary categories and returns advisories for
// numeric values outside the training envelope.
func (a *Assembler) Validate(sel model.Selections) ([]model.Diagnostic, error) {
	cats := []struct{ field, value string }{
		{model.ColAirline, sel.Airline},
		{model.ColSource, sel.Source},
		{model.ColDestination, sel.Destination},
		{model.ColAdditionalInfo, sel.AdditionalInfo},
	}
	for _, c := range cats {
		if !a.bounds.Allowed(c.field, c.value) {
			return nil, fmt.Errorf("%w: %s %q is not a known value", ErrInvalidCategory, c.field, c.value)
		}
	}

	var diags []model.Diagnostic
	if r, ok := a.bounds.Range(model.ColDuration); ok {
		if d := sel.TotalDuration(); !r.Contains(d) {
			diags = append(diags, advisory(model.ColDuration, fmt.Sprintf(
				"duration %s is outside the trained range; for more accurate predictions consider durations between %s and %s",
				temporal.FormatDuration(d), temporal.FormatDuration(r.Min), temporal.FormatDuration(r.Max))))
		}
	}
	if r, ok := a.bounds.Range(model.ColTotalStops); ok && !r.Contains(sel.TotalStops) {
		diags = append(diags, advisory(model.ColTotalStops, fmt.Sprintf(
			"%d stops is outside the trained range of %d to %d", sel.TotalStops, r.Min, r.Max)))
	}
	if r, ok := a.bounds.Range(model.ColDepMonth); ok && !r.Contains(sel.DepMonth) {
		diags = append(diags, advisory(model.ColDepMonth, fmt.Sprintf(
			"the model was trained on departures from %s to %s; predictions for %s are less reliable",
			temporal.MonthName(r.Min), temporal.MonthName(r.Max), temporal.MonthName(sel.DepMonth))))
	}
	for _, d := range diags {
		observability.IncAdvisory(d.Field)
	}
	return diags, nil
}

// Assemble validates sel and builds the feature row. distance may be nil when
// either endpoint could not be geocoded.
func (a *Assembler) Assemble(sel model.Selections, distance *float64, arr temporal.Arrival) (model.FeatureRow, []model.Diagnostic, error) {
	diags, err := a.Validate(sel)
	if err != nil {
		return model.FeatureRow{}, nil, err
	}
	return a.Build(sel, distance, arr), diags, nil
}

// Build fills the feature row without validating; callers that already ran
// Validate use it to avoid reporting advisories twice.
func (a *Assembler) Build(sel model.Selections, distance *float64, arr temporal.Arrival) model.FeatureRow {
	var dist *float64
	if distance != nil {
		v := *distance
		dist = &v
	}
	return model.FeatureRow{
		Airline:        sel.Airline,
		Source:         sel.Source,
		Destination:    sel.Destination,
		Duration:       sel.TotalDuration(),
		TotalStops:     sel.TotalStops,
		AdditionalInfo: sel.AdditionalInfo,
		DepDay:         sel.DepDay,
		DepMonth:       sel.DepMonth,
		DistanceKm:     dist,
		DepHour:        sel.DepHour,
		DepMin:         sel.DepMinute,
		DepPartOfDay:   string(temporal.PartOfDayOf(sel.DepHour)),
		ArrivalDay:     arr.Day,
		ArrivalMonth:   arr.Month,
		ArrHour:        arr.Hour,
		ArrMin:         arr.Minute,
		ArrPartOfDay:   string(arr.PartOfDay),
	}
}

func advisory(field, msg string) model.Diagnostic {
	return model.Diagnostic{
		Severity: model.SeverityAdvisory,
		Kind:     model.KindOutOfRange,
		Field:    field,
		Message:  msg,
	}
}

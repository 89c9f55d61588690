// Package reference loads the read-only training envelope of the price model:
// categorical vocabularies and numeric ranges.
package reference

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
)

// Categorical fields that must be present in every reference file.
var RequiredCategories = []string{
	model.ColAirline, model.ColSource, model.ColDestination, model.ColAdditionalInfo,
}

// Numeric fields that must be present in every reference file.
var RequiredRanges = []string{model.ColTotalStops, model.ColDuration}

// Range is an inclusive integer interval, encoded as [min, max].
type Range struct {
	Min int
	Max int
}

func (r Range) Contains(v int) bool { return v >= r.Min && v <= r.Max }

func (r *Range) UnmarshalJSON(b []byte) error {
	var pair []int
	if err := json.Unmarshal(b, &pair); err != nil {
		return fmt.Errorf("range: %w", err)
	}
	if len(pair) != 2 {
		return fmt.Errorf("range: expected [min, max], got %d values", len(pair))
	}
	r.Min, r.Max = pair[0], pair[1]
	return nil
}

func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Min, r.Max})
}

// Bounds is immutable once loaded.
type Bounds struct {
	categories map[string][]string
	sets       map[string]map[string]struct{}
	ranges     map[string]Range
}

type fileFormat struct {
	Categories map[string][]string `json:"categories"`
	Ranges     map[string]Range    `json:"ranges"`
}

func Load(path string) (*Bounds, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read reference data: %w", err)
	}
	return Parse(b)
}

func Parse(raw []byte) (*Bounds, error) {
	var f fileFormat
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse reference data: %w", err)
	}
	return New(f.Categories, f.Ranges)
}

func New(categories map[string][]string, ranges map[string]Range) (*Bounds, error) {
	var errs []error
	for _, name := range RequiredCategories {
		if len(categories[name]) == 0 {
			errs = append(errs, fmt.Errorf("category %q missing or empty", name))
		}
	}
	for _, name := range RequiredRanges {
		if _, ok := ranges[name]; !ok {
			errs = append(errs, fmt.Errorf("range %q missing", name))
		}
	}
	for name, vals := range categories {
		for _, v := range vals {
			if v == "" || strings.TrimSpace(v) != v {
				errs = append(errs, fmt.Errorf("category %q: value %q is blank or has surrounding whitespace", name, v))
			}
		}
	}
	for name, r := range ranges {
		if r.Min > r.Max {
			errs = append(errs, fmt.Errorf("range %q: min %d > max %d", name, r.Min, r.Max))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid reference data: %w", errors.Join(errs...))
	}

	b := &Bounds{
		categories: make(map[string][]string, len(categories)),
		sets:       make(map[string]map[string]struct{}, len(categories)),
		ranges:     make(map[string]Range, len(ranges)),
	}
	for name, vals := range categories {
		b.categories[name] = slices.Clone(vals)
		set := make(map[string]struct{}, len(vals))
		for _, v := range vals {
			set[v] = struct{}{}
		}
		b.sets[name] = set
	}
	for name, r := range ranges {
		b.ranges[name] = r
	}
	return b, nil
}

// Allowed reports whether value belongs to the vocabulary of field.
func (b *Bounds) Allowed(field, value string) bool {
	set, ok := b.sets[field]
	if !ok {
		return false
	}
	_, ok = set[value]
	return ok
}

// Values returns a copy of the vocabulary of field in file order.
func (b *Bounds) Values(field string) []string {
	return slices.Clone(b.categories[field])
}

func (b *Bounds) Range(field string) (Range, bool) {
	r, ok := b.ranges[field]
	return r, ok
}

// Cities is the sorted union of the Source and Destination vocabularies.
func (b *Bounds) Cities() []string {
	seen := map[string]struct{}{}
	var out []string
	for _, field := range []string{model.ColSource, model.ColDestination} {
		for _, c := range b.categories[field] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}

// Summary is the JSON view served to clients building selectors.
type Summary struct {
	Categories map[string][]string `json:"categories"`
	Ranges     map[string]Range    `json:"ranges"`
}

func (b *Bounds) Summary() Summary {
	s := Summary{
		Categories: make(map[string][]string, len(b.categories)),
		Ranges:     make(map[string]Range, len(b.ranges)),
	}
	for k, v := range b.categories {
		s.Categories[k] = slices.Clone(v)
	}
	for k, v := range b.ranges {
		s.Ranges[k] = v
	}
	return s
}

// Package model defines core domain types shared across the service.
package model

import "fmt"

type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Failure classifies why a city could not be resolved.
type Failure string

const (
	FailureNone      Failure = ""
	FailureNotFound  Failure = "not_found"
	FailureTransport Failure = "transport"
)

// Resolution holds either a coordinate or the reason there is none.
type Resolution struct {
	Coordinate Coordinate
	Failure    Failure
	Detail     string
}

func Resolved(c Coordinate) Resolution {
	return Resolution{Coordinate: c}
}

func Unresolved(f Failure, detail string) Resolution {
	return Resolution{Failure: f, Detail: detail}
}

func (r Resolution) OK() bool { return r.Failure == FailureNone }

// CoordinateCache maps a city name to its resolution. Entries are terminal
// once set.
type CoordinateCache map[string]Resolution

// Lookup returns the coordinate for city if it is present and resolved.
func (c CoordinateCache) Lookup(city string) (Coordinate, bool) {
	r, ok := c[city]
	if !ok || !r.OK() {
		return Coordinate{}, false
	}
	return r.Coordinate, true
}

type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityAdvisory Severity = "advisory"
)

type DiagnosticKind string

const (
	KindUnresolved          DiagnosticKind = "unresolved"
	KindTransport           DiagnosticKind = "transport"
	KindOutOfRange          DiagnosticKind = "out_of_range"
	KindDistanceUnavailable DiagnosticKind = "distance_unavailable"
)

// Diagnostic is a human-readable, non-fatal finding returned to the caller.
type Diagnostic struct {
	Severity Severity       `json:"severity"`
	Kind     DiagnosticKind `json:"kind"`
	Field    string         `json:"field,omitempty"`
	City     string         `json:"city,omitempty"`
	Message  string         `json:"message"`
}

// Selections are the raw user choices for a single flight.
type Selections struct {
	Airline         string
	Source          string
	Destination     string
	TotalStops      int
	AdditionalInfo  string
	DepMonth        int
	DepDay          int
	DepHour         int
	DepMinute       int
	DurationHours   int
	DurationMinutes int
}

// TotalDuration is the flight duration in minutes.
func (s Selections) TotalDuration() int {
	return s.DurationHours*60 + s.DurationMinutes
}

// Field names of the model input, in schema order.
const (
	ColAirline        = "Airline"
	ColSource         = "Source"
	ColDestination    = "Destination"
	ColDuration       = "Duration"
	ColTotalStops     = "Total_Stops"
	ColAdditionalInfo = "Additional_Info"
	ColDepDay         = "Dep_Day"
	ColDepMonth       = "Dep_Month"
	ColDistanceKm     = "Distance_km"
	ColDepHour        = "Dep_Hour"
	ColDepMin         = "Dep_Min"
	ColDepPartOfDay   = "Dep_Part_of_Day"
	ColArrivalDay     = "Arrival_Day"
	ColArrivalMonth   = "Arrival_Month"
	ColArrHour        = "Arr_Hour"
	ColArrMin         = "Arr_Min"
	ColArrPartOfDay   = "Arr_Part_of_Day"
)

var FeatureColumns = []string{
	ColAirline, ColSource, ColDestination, ColDuration, ColTotalStops,
	ColAdditionalInfo, ColDepDay, ColDepMonth, ColDistanceKm, ColDepHour,
	ColDepMin, ColDepPartOfDay, ColArrivalDay, ColArrivalMonth, ColArrHour,
	ColArrMin, ColArrPartOfDay,
}

// FeatureRow is the exact input record of the price model. A nil DistanceKm
// is sent as a missing value.
type FeatureRow struct {
	Airline        string   `json:"Airline"`
	Source         string   `json:"Source"`
	Destination    string   `json:"Destination"`
	Duration       int      `json:"Duration"`
	TotalStops     int      `json:"Total_Stops"`
	AdditionalInfo string   `json:"Additional_Info"`
	DepDay         int      `json:"Dep_Day"`
	DepMonth       int      `json:"Dep_Month"`
	DistanceKm     *float64 `json:"Distance_km"`
	DepHour        int      `json:"Dep_Hour"`
	DepMin         int      `json:"Dep_Min"`
	DepPartOfDay   string   `json:"Dep_Part_of_Day"`
	ArrivalDay     int      `json:"Arrival_Day"`
	ArrivalMonth   int      `json:"Arrival_Month"`
	ArrHour        int      `json:"Arr_Hour"`
	ArrMin         int      `json:"Arr_Min"`
	ArrPartOfDay   string   `json:"Arr_Part_of_Day"`
}

// Values returns the row in FeatureColumns order.
func (r FeatureRow) Values() []any {
	var dist any
	if r.DistanceKm != nil {
		dist = *r.DistanceKm
	}
	return []any{
		r.Airline, r.Source, r.Destination, r.Duration, r.TotalStops,
		r.AdditionalInfo, r.DepDay, r.DepMonth, dist, r.DepHour,
		r.DepMin, r.DepPartOfDay, r.ArrivalDay, r.ArrivalMonth, r.ArrHour,
		r.ArrMin, r.ArrPartOfDay,
	}
}

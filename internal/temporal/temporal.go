// Package temporal derives arrival times and part-of-day buckets from a
// departure schedule.
package temporal

import (
	"errors"
	"fmt"
	"time"
)

// ReferenceYear anchors month-length and leap-year rules. It is never
// reported downstream.
const ReferenceYear = 2024

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidTime     = errors.New("invalid time of day")
	ErrInvalidDuration = errors.New("invalid duration")
)

type PartOfDay string

const (
	Morning   PartOfDay = "morning"
	Afternoon PartOfDay = "afternoon"
	Evening   PartOfDay = "evening"
	Night     PartOfDay = "night"
)

// PartOfDayOf buckets an hour of a 24-hour clock.
func PartOfDayOf(hour int) PartOfDay {
	switch {
	case hour >= 5 && hour < 12:
		return Morning
	case hour >= 12 && hour < 17:
		return Afternoon
	case hour >= 17 && hour < 21:
		return Evening
	default:
		return Night
	}
}

type Departure struct {
	Month  int
	Day    int
	Hour   int
	Minute int
}

type Arrival struct {
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	Hour      int       `json:"hour"`
	Minute    int       `json:"minute"`
	PartOfDay PartOfDay `json:"part_of_day"`
}

// Instant validates dep against the reference calendar and returns it as a
// wall-clock time in UTC.
func (d Departure) Instant() (time.Time, error) {
	if d.Month < 1 || d.Month > 12 {
		return time.Time{}, fmt.Errorf("%w: month %d", ErrInvalidDate, d.Month)
	}
	if d.Day < 1 || d.Day > DaysIn(d.Month) {
		return time.Time{}, fmt.Errorf("%w: %s has no day %d", ErrInvalidDate, MonthName(d.Month), d.Day)
	}
	if d.Hour < 0 || d.Hour > 23 {
		return time.Time{}, fmt.Errorf("%w: hour %d", ErrInvalidTime, d.Hour)
	}
	if d.Minute < 0 || d.Minute > 59 {
		return time.Time{}, fmt.Errorf("%w: minute %d", ErrInvalidTime, d.Minute)
	}
	return time.Date(ReferenceYear, time.Month(d.Month), d.Day, d.Hour, d.Minute, 0, 0, time.UTC), nil
}

// DeriveArrival adds durationMinutes to the departure with calendar rollover.
func DeriveArrival(dep Departure, durationMinutes int) (Arrival, error) {
	if durationMinutes < 0 {
		return Arrival{}, fmt.Errorf("%w: %d minutes", ErrInvalidDuration, durationMinutes)
	}
	start, err := dep.Instant()
	if err != nil {
		return Arrival{}, err
	}
	at := start.Add(time.Duration(durationMinutes) * time.Minute)
	return Arrival{
		Month:     int(at.Month()),
		Day:       at.Day(),
		Hour:      at.Hour(),
		Minute:    at.Minute(),
		PartOfDay: PartOfDayOf(at.Hour()),
	}, nil
}

// DaysIn returns the number of days of month in the reference year.
func DaysIn(month int) int {
	if month < 1 || month > 12 {
		return 0
	}
	// day 0 of the next month is the last day of this one
	return time.Date(ReferenceYear, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func MonthName(month int) string {
	if month < 1 || month > 12 {
		return fmt.Sprintf("month(%d)", month)
	}
	return time.Month(month).String()
}

// FormatClock renders a 24-hour time on a 12-hour clock, e.g. "11:45 PM".
func FormatClock(hour, minute int) string {
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return fmt.Sprintf("%02d:%02d %s", h, minute, period)
}

// FormatDuration renders minutes as "2h 30m".
func FormatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

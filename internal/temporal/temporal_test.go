package temporal

import (
	"errors"
	"testing"
	"time"
)

func TestPartOfDayOf_Boundaries(t *testing.T) {
	cases := map[int]PartOfDay{
		0: Night, 4: Night, 5: Morning, 11: Morning, 12: Afternoon,
		16: Afternoon, 17: Evening, 20: Evening, 21: Night, 23: Night,
	}
	for h, want := range cases {
		if got := PartOfDayOf(h); got != want {
			t.Fatalf("PartOfDayOf(%d)=%q want %q", h, got, want)
		}
	}
}

func TestPartOfDayOf_EveryHourHasOneBucket(t *testing.T) {
	seen := map[PartOfDay]int{}
	for h := 0; h < 24; h++ {
		switch p := PartOfDayOf(h); p {
		case Morning, Afternoon, Evening, Night:
			seen[p]++
		default:
			t.Fatalf("hour %d: unexpected bucket %q", h, p)
		}
	}
	if seen[Morning] != 7 || seen[Afternoon] != 5 || seen[Evening] != 4 || seen[Night] != 8 {
		t.Fatalf("unexpected bucket sizes: %+v", seen)
	}
}

func TestDeriveArrival_OvernightRollover(t *testing.T) {
	got, err := DeriveArrival(Departure{Month: 3, Day: 15, Hour: 23, Minute: 45}, 150)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := Arrival{Month: 3, Day: 16, Hour: 2, Minute: 15, PartOfDay: Night}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDeriveArrival_SameDay(t *testing.T) {
	got, err := DeriveArrival(Departure{Month: 4, Day: 30, Hour: 10, Minute: 0}, 45)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	want := Arrival{Month: 4, Day: 30, Hour: 10, Minute: 45, PartOfDay: Morning}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestDeriveArrival_MonthAndLeapRollover(t *testing.T) {
	cases := []struct {
		dep  Departure
		mins int
		want Arrival
	}{
		{Departure{2, 28, 22, 0}, 180, Arrival{2, 29, 1, 0, Night}},
		{Departure{2, 29, 23, 30}, 60, Arrival{3, 1, 0, 30, Night}},
		{Departure{4, 30, 20, 0}, 300, Arrival{5, 1, 1, 0, Night}},
		{Departure{12, 31, 23, 55}, 10, Arrival{1, 1, 0, 5, Night}},
		{Departure{6, 1, 5, 0}, 47*60 + 59, Arrival{6, 3, 4, 59, Night}},
	}
	for _, tc := range cases {
		got, err := DeriveArrival(tc.dep, tc.mins)
		if err != nil {
			t.Fatalf("%+v: unexpected err: %v", tc.dep, err)
		}
		if got != tc.want {
			t.Fatalf("%+v +%dm: got %+v want %+v", tc.dep, tc.mins, got, tc.want)
		}
	}
}

func TestDeriveArrival_RejectsInvalidDates(t *testing.T) {
	bad := []Departure{{Month: 2, Day: 30}, {Month: 4, Day: 31}, {Month: 13, Day: 1}, {Month: 6, Day: 0}}
	for _, d := range bad {
		for _, hour := range []int{0, 12, 23} {
			for _, dur := range []int{0, 45, 2879} {
				d.Hour, d.Minute = hour, 55
				_, err := DeriveArrival(d, dur)
				if !errors.Is(err, ErrInvalidDate) {
					t.Fatalf("%+v dur=%d: err=%v want ErrInvalidDate", d, dur, err)
				}
			}
		}
	}
}

func TestDeriveArrival_RejectsBadTimeAndDuration(t *testing.T) {
	if _, err := DeriveArrival(Departure{3, 1, 24, 0}, 10); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("hour 24: err=%v", err)
	}
	if _, err := DeriveArrival(Departure{3, 1, 10, 60}, 10); !errors.Is(err, ErrInvalidTime) {
		t.Fatalf("minute 60: err=%v", err)
	}
	if _, err := DeriveArrival(Departure{3, 1, 10, 0}, -1); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("negative duration: err=%v", err)
	}
}

// elapsed minutes rebuilt from the two breakdowns must equal the duration
func TestDeriveArrival_ElapsedMatchesDuration(t *testing.T) {
	durations := []int{0, 1, 59, 60, 61, 1439, 1440, 1441, 2879}
	for month := 1; month <= 12; month++ {
		for day := 1; day <= DaysIn(month); day++ {
			dep := Departure{Month: month, Day: day, Hour: 21, Minute: 35}
			start, err := dep.Instant()
			if err != nil {
				t.Fatalf("%+v: %v", dep, err)
			}
			for _, dur := range durations {
				arr, err := DeriveArrival(dep, dur)
				if err != nil {
					t.Fatalf("%+v: %v", dep, err)
				}
				year := ReferenceYear
				if arr.Month < month {
					year++
				}
				end := time.Date(year, time.Month(arr.Month), arr.Day, arr.Hour, arr.Minute, 0, 0, time.UTC)
				if got := int(end.Sub(start).Minutes()); got != dur {
					t.Fatalf("%+v +%dm: elapsed=%d", dep, dur, got)
				}
				if arr.PartOfDay != PartOfDayOf(arr.Hour) {
					t.Fatalf("part of day mismatch for %+v", arr)
				}
			}
		}
	}
}

func TestDaysIn_ReferenceYearIsLeap(t *testing.T) {
	if got := DaysIn(2); got != 29 {
		t.Fatalf("DaysIn(2)=%d want 29", got)
	}
	if got := DaysIn(4); got != 30 {
		t.Fatalf("DaysIn(4)=%d want 30", got)
	}
	if got := DaysIn(13); got != 0 {
		t.Fatalf("DaysIn(13)=%d want 0", got)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		h, m int
		want string
	}{
		{0, 5, "12:05 AM"},
		{9, 30, "09:30 AM"},
		{12, 0, "12:00 PM"},
		{23, 45, "11:45 PM"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.h, tc.m); got != tc.want {
			t.Fatalf("FormatClock(%d,%d)=%q want %q", tc.h, tc.m, got, tc.want)
		}
	}
	if got := FormatDuration(150); got != "2h 30m" {
		t.Fatalf("FormatDuration=%q", got)
	}
}

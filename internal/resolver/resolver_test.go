package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
	"github.com/mohammed-shakir/flight-fare-estimator/internal/geocode"
)

type fakeGeocoder struct {
	mu      sync.Mutex
	coords  map[string]model.Coordinate
	fail    map[string]error
	block   map[string]bool
	queries []string
	at      []time.Time
	ended   []time.Time
	delay   time.Duration
}

func (f *fakeGeocoder) Geocode(ctx context.Context, q string) (model.Coordinate, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.at = append(f.at, time.Now())
	c, ok := f.coords[q]
	err := f.fail[q]
	block := f.block[q]
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
		f.mu.Lock()
		f.ended = append(f.ended, time.Now())
		f.mu.Unlock()
	}

	if block {
		<-ctx.Done()
		return model.Coordinate{}, ctx.Err()
	}
	if err != nil {
		return model.Coordinate{}, err
	}
	if !ok {
		return model.Coordinate{}, fmt.Errorf("%q: %w", q, geocode.ErrNotFound)
	}
	return c, nil
}

func (f *fakeGeocoder) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newFake() *fakeGeocoder {
	return &fakeGeocoder{
		coords: map[string]model.Coordinate{
			"Delhi, India":  {Lat: 28.65, Lon: 77.22},
			"Mumbai, India": {Lat: 19.08, Lon: 72.88},
			"Cochin, India": {Lat: 9.93, Lon: 76.27},
		},
		fail:  map[string]error{"Kolkata, India": errors.New("connection reset")},
		block: map[string]bool{},
	}
}

func TestResolveAll_IsolatesFailures(t *testing.T) {
	geo := newFake()
	r := New(discard(), geo, nil, Config{Country: "India"})
	cache := model.CoordinateCache{}

	diags := r.ResolveAll(context.Background(), []string{"Delhi", "Atlantis", "Kolkata", "Mumbai"}, cache)

	if len(cache) != 4 {
		t.Fatalf("cache size=%d want 4: %+v", len(cache), cache)
	}
	if !cache["Delhi"].OK() || !cache["Mumbai"].OK() {
		t.Fatalf("Delhi/Mumbai should resolve after earlier failures: %+v", cache)
	}
	if got := cache["Atlantis"].Failure; got != model.FailureNotFound {
		t.Fatalf("Atlantis failure=%q", got)
	}
	if got := cache["Kolkata"].Failure; got != model.FailureTransport {
		t.Fatalf("Kolkata failure=%q", got)
	}

	if len(diags) != 2 {
		t.Fatalf("diags=%+v", diags)
	}
	byCity := map[string]model.Diagnostic{}
	for _, d := range diags {
		byCity[d.City] = d
	}
	if d := byCity["Atlantis"]; d.Severity != model.SeverityWarning || d.Kind != model.KindUnresolved {
		t.Fatalf("Atlantis diag=%+v", d)
	}
	if d := byCity["Kolkata"]; d.Severity != model.SeverityError || d.Kind != model.KindTransport {
		t.Fatalf("Kolkata diag=%+v", d)
	}
}

func TestResolveAll_Idempotent(t *testing.T) {
	geo := newFake()
	r := New(discard(), geo, nil, Config{Country: "India"})
	cities := []string{"Delhi", "Atlantis", "Kolkata", "Delhi"}
	cache := model.CoordinateCache{}

	r.ResolveAll(context.Background(), cities, cache)
	first := geo.calls()
	if first != 3 {
		t.Fatalf("calls=%d want 3 (duplicates skipped)", first)
	}
	snapshot := make(model.CoordinateCache, len(cache))
	for k, v := range cache {
		snapshot[k] = v
	}

	diags := r.ResolveAll(context.Background(), cities, cache)
	if geo.calls() != first {
		t.Fatalf("second pass issued %d extra queries", geo.calls()-first)
	}
	if len(diags) != 0 {
		t.Fatalf("second pass diags=%+v", diags)
	}
	if !reflect.DeepEqual(snapshot, cache) {
		t.Fatalf("cache changed: %+v vs %+v", snapshot, cache)
	}
}

func TestResolveAll_PacesQueries(t *testing.T) {
	geo := newFake()
	const interval = 30 * time.Millisecond
	r := New(discard(), geo, nil, Config{Country: "India", MinInterval: interval})

	r.ResolveAll(context.Background(), []string{"Delhi", "Mumbai", "Cochin"}, model.CoordinateCache{})

	if len(geo.at) != 3 {
		t.Fatalf("calls=%d", len(geo.at))
	}
	for i := 1; i < len(geo.at); i++ {
		// small slack for the time between the pacer releasing and the call being recorded
		if gap := geo.at[i].Sub(geo.at[i-1]); gap < interval-2*time.Millisecond {
			t.Fatalf("gap %d=%v want >= %v", i, gap, interval)
		}
	}
}

func TestResolveAll_PacingCountsFromCompletion(t *testing.T) {
	geo := newFake()
	geo.delay = 25 * time.Millisecond
	const interval = 30 * time.Millisecond
	r := New(discard(), geo, nil, Config{Country: "India", MinInterval: interval})

	r.ResolveAll(context.Background(), []string{"Delhi", "Mumbai", "Cochin"}, model.CoordinateCache{})

	if len(geo.at) != 3 || len(geo.ended) != 3 {
		t.Fatalf("calls=%d ended=%d", len(geo.at), len(geo.ended))
	}
	for i := 1; i < len(geo.at); i++ {
		if gap := geo.at[i].Sub(geo.ended[i-1]); gap < interval-2*time.Millisecond {
			t.Fatalf("query %d started %v after the previous answer, want >= %v", i, gap, interval)
		}
	}
}

func TestResolveAll_TimeoutIsTransportError(t *testing.T) {
	geo := newFake()
	geo.block["Delhi, India"] = true
	r := New(discard(), geo, nil, Config{Country: "India", Timeout: 20 * time.Millisecond})
	cache := model.CoordinateCache{}

	diags := r.ResolveAll(context.Background(), []string{"Delhi", "Mumbai"}, cache)
	if cache["Delhi"].Failure != model.FailureTransport {
		t.Fatalf("Delhi=%+v want transport failure", cache["Delhi"])
	}
	if !cache["Mumbai"].OK() {
		t.Fatal("Mumbai must still resolve after Delhi timed out")
	}
	if len(diags) != 1 || diags[0].Kind != model.KindTransport {
		t.Fatalf("diags=%+v", diags)
	}
}

func TestPopulate_RunsOnceUnderConcurrency(t *testing.T) {
	geo := newFake()
	r := New(discard(), geo, nil, Config{Country: "India"})
	if r.Ready() {
		t.Fatal("not ready before population")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Populate(context.Background(), []string{"Delhi", "Mumbai", "Atlantis"})
		}()
	}
	wg.Wait()

	if geo.calls() != 3 {
		t.Fatalf("calls=%d want 3", geo.calls())
	}
	if !r.Ready() {
		t.Fatal("should be ready")
	}
	cache, err := r.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if len(cache) != 3 {
		t.Fatalf("cache=%+v", cache)
	}
	if d := r.Diagnostics("Atlantis"); len(d) != 1 {
		t.Fatalf("Diagnostics(Atlantis)=%+v", d)
	}
	if d := r.Diagnostics("Delhi"); len(d) != 0 {
		t.Fatalf("Diagnostics(Delhi)=%+v", d)
	}
}

func TestWait_NotReady(t *testing.T) {
	r := New(discard(), newFake(), nil, Config{})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := r.Wait(ctx); !errors.Is(err, ErrNotReady) {
		t.Fatalf("err=%v want ErrNotReady", err)
	}
	if r.Diagnostics() != nil {
		t.Fatal("no diagnostics before population")
	}
}

type failingStore struct{ saves int }

func (s *failingStore) Load(context.Context, string, []string) (map[string]model.Coordinate, error) {
	return nil, errors.New("store down")
}

func (s *failingStore) Save(context.Context, string, string, model.Coordinate) error {
	s.saves++
	return errors.New("store down")
}

func TestResolveAll_StoreFailureFallsBackToGeocoder(t *testing.T) {
	geo := newFake()
	st := &failingStore{}
	r := New(discard(), geo, st, Config{Country: "India"})
	cache := model.CoordinateCache{}

	diags := r.ResolveAll(context.Background(), []string{"Delhi", "Atlantis"}, cache)
	if !cache["Delhi"].OK() {
		t.Fatalf("Delhi=%+v", cache["Delhi"])
	}
	if st.saves != 1 {
		t.Fatalf("saves=%d want 1 (only resolved cities are saved)", st.saves)
	}
	if len(diags) != 1 {
		t.Fatalf("diags=%+v", diags)
	}
}

package geocode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.Client(), srv.URL, "fare-test/1.0")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestGeocode_Match(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path=%q", r.URL.Path)
		}
		if q := r.URL.Query().Get("q"); q != "Delhi, India" {
			t.Errorf("q=%q", q)
		}
		if r.URL.Query().Get("limit") != "1" || r.URL.Query().Get("format") != "jsonv2" {
			t.Errorf("query=%v", r.URL.Query())
		}
		if ua := r.Header.Get("User-Agent"); ua != "fare-test/1.0" {
			t.Errorf("user agent=%q", ua)
		}
		_, _ = io.WriteString(w, `[{"lat":"28.6517178","lon":"77.2219388","display_name":"Delhi"}]`)
	})

	got, err := c.Geocode(context.Background(), Query("Delhi", "India"))
	if err != nil {
		t.Fatalf("Geocode: %v", err)
	}
	if got.Lat != 28.6517178 || got.Lon != 77.2219388 {
		t.Fatalf("got %+v", got)
	}
}

func TestGeocode_NoMatchIsNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	_, err := c.Geocode(context.Background(), "Atlantis, India")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}
}

func TestGeocode_UpstreamErrorIsNotNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	_, err := c.Geocode(context.Background(), "Delhi, India")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want transport error", err)
	}
}

func TestGeocode_BadPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[{"lat":"north","lon":"77"}]`)
	})
	if _, err := c.Geocode(context.Background(), "Delhi, India"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGeocode_RespectsContextTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Geocode(ctx, "Delhi, India"); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err=%v want deadline exceeded", err)
	}
}

func TestNewClient_Validation(t *testing.T) {
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	if _, err := NewClient(l, http.DefaultClient, "nominatim", "ua"); err == nil {
		t.Fatal("expected error for relative url")
	}
	if _, err := NewClient(l, http.DefaultClient, "https://nominatim.example", " "); err == nil {
		t.Fatal("expected error for empty user agent")
	}
}

func TestQuery(t *testing.T) {
	if got := Query(" Cochin ", "India"); got != "Cochin, India" {
		t.Fatalf("Query=%q", got)
	}
	if got := Query("Cochin", ""); got != "Cochin" {
		t.Fatalf("Query=%q", got)
	}
}

func TestPacer_EnforcesMinimumInterval(t *testing.T) {
	p := NewPacer(40 * time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := p.Wait(context.Background()); err != nil {
			t.Fatalf("Wait: %v", err)
		}
		p.Done()
	}
	if el := time.Since(start); el < 80*time.Millisecond {
		t.Fatalf("3 paced calls took %v, want >= 80ms", el)
	}
}

func TestPacer_IntervalStartsWhenCallFinishes(t *testing.T) {
	const interval = 40 * time.Millisecond
	p := NewPacer(interval)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	time.Sleep(35 * time.Millisecond) // slow upstream response
	p.Done()

	finished := time.Now()
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if gap := time.Since(finished); gap < interval-2*time.Millisecond {
		t.Fatalf("next call started %v after the previous finished, want >= %v", gap, interval)
	}
}

func TestPacer_CanceledWait(t *testing.T) {
	p := NewPacer(time.Hour)
	if err := p.Wait(context.Background()); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want canceled", err)
	}
}

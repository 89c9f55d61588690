package inference

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mohammed-shakir/flight-fare-estimator/internal/core/model"
)

func sampleRow() model.FeatureRow {
	d := 1148.52
	return model.FeatureRow{
		Airline: "IndiGo", Source: "Delhi", Destination: "Cochin",
		Duration: 150, TotalStops: 0, AdditionalInfo: "No info",
		DepDay: 15, DepMonth: 3, DistanceKm: &d,
		DepHour: 23, DepMin: 45, DepPartOfDay: "night",
		ArrivalDay: 16, ArrivalMonth: 3, ArrHour: 2, ArrMin: 15, ArrPartOfDay: "night",
	}
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(slog.New(slog.NewTextHandler(io.Discard, nil)), srv.Client(), srv.URL+"/invocations")
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestPredict_SendsSplitFrame(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/invocations" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var req struct {
			DataframeSplit struct {
				Columns []string `json:"columns"`
				Data    [][]any  `json:"data"`
			} `json:"dataframe_split"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if strings.Join(req.DataframeSplit.Columns, ",") != strings.Join(model.FeatureColumns, ",") {
			t.Errorf("columns=%v", req.DataframeSplit.Columns)
		}
		if len(req.DataframeSplit.Data) != 1 || len(req.DataframeSplit.Data[0]) != 17 {
			t.Errorf("data=%v", req.DataframeSplit.Data)
		} else if req.DataframeSplit.Data[0][8] != 1148.52 {
			t.Errorf("distance=%v", req.DataframeSplit.Data[0][8])
		}
		_, _ = io.WriteString(w, `{"predictions":[5123.456]}`)
	})

	got, err := c.Predict(context.Background(), sampleRow())
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if got != 5123.456 {
		t.Fatalf("price=%v", got)
	}
}

func TestPredict_MissingDistanceIsNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(b), `0,"No info",15,3,null,23`) {
			t.Errorf("expected null distance in %s", b)
		}
		_, _ = io.WriteString(w, `{"predictions":[4000]}`)
	})
	row := sampleRow()
	row.DistanceKm = nil
	if _, err := c.Predict(context.Background(), row); err != nil {
		t.Fatalf("Predict: %v", err)
	}
}

func TestPredict_Failures(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"status": func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "model exploded", http.StatusInternalServerError)
		},
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"predictions":[]}`)
		},
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `<html>`)
		},
	}
	for name, h := range cases {
		c := newTestClient(t, h)
		if _, err := c.Predict(context.Background(), sampleRow()); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

type countingPredictor struct {
	calls int
	price float64
	err   error
}

func (p *countingPredictor) Predict(context.Context, model.FeatureRow) (float64, error) {
	p.calls++
	return p.price, p.err
}

func TestMemo_ReusesIdenticalRows(t *testing.T) {
	next := &countingPredictor{price: 4321}
	m := NewMemo(next, 8)

	for i := 0; i < 3; i++ {
		p, err := m.Predict(context.Background(), sampleRow())
		if err != nil || p != 4321 {
			t.Fatalf("p=%v err=%v", p, err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("calls=%d want 1", next.calls)
	}

	other := sampleRow()
	other.TotalStops = 2
	_, _ = m.Predict(context.Background(), other)
	if next.calls != 2 {
		t.Fatalf("calls=%d want 2 for a different row", next.calls)
	}
}

func TestMemo_DoesNotCacheErrors(t *testing.T) {
	next := &countingPredictor{err: errors.New("down")}
	m := NewMemo(next, 8)
	_, _ = m.Predict(context.Background(), sampleRow())
	_, _ = m.Predict(context.Background(), sampleRow())
	if next.calls != 2 {
		t.Fatalf("calls=%d want 2", next.calls)
	}
	if m.(*Memo).Len() != 0 {
		t.Fatal("errors must not be memoized")
	}
}

func TestNewMemo_DisabledReturnsNext(t *testing.T) {
	next := &countingPredictor{}
	if NewMemo(next, 0) != Predictor(next) {
		t.Fatal("size 0 should disable the memo")
	}
}

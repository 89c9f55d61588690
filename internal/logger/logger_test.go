package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestSlogBridge_CarriesContextFields(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "debug", Component: "test"}, &buf)
	l := NewSlog(&zl)

	ctx := WithRequestID(context.Background(), "abc123")
	ctx = WithCity(ctx, "Delhi")
	l.WarnContext(ctx, "geocode miss", "attempt", 2, "err", errors.New("boom"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	want := map[string]any{
		"level": "warn", "msg": "geocode miss", "component": "test",
		"request_id": "abc123", "city": "Delhi", "err": "boom",
	}
	for k, v := range want {
		if rec[k] != v {
			t.Fatalf("%s=%v want %v (record %v)", k, rec[k], v, rec)
		}
	}
	if rec["attempt"] != float64(2) {
		t.Fatalf("attempt=%v", rec["attempt"])
	}
	if _, ok := rec["timestamp"]; !ok {
		t.Fatal("missing timestamp")
	}
}

func TestSlogBridge_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	zl := Build(Config{Level: "warn"}, &buf)
	l := NewSlog(&zl)

	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %q", buf.String())
	}
	l.Error("shown")
	if buf.Len() == 0 {
		t.Fatal("error should be emitted")
	}
	Build(Config{Level: "info"}, &buf) // restore global level
}

func TestWithRequestID_GeneratesWhenEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	if id := RequestID(ctx); len(id) != 16 {
		t.Fatalf("generated id=%q", id)
	}
}

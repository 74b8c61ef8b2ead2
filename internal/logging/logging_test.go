package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var recs []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line is not JSON: %v (%q)", err, line)
		}
		recs = append(recs, rec)
	}
	return recs
}

func TestJSONLoggerWritesFields(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "debug", Format: "json", Output: &buf})

	log.With(Design("Balanced")).Info(context.Background(), "calibration point",
		Load(1.5),
		Capacitance(1.2e-11),
		Samples(3),
		Duration("settle", 100*time.Millisecond),
		Err(errors.New("boom")),
	)

	recs := decodeLines(t, &buf)
	if len(recs) != 1 {
		t.Fatalf("got %d records, want 1", len(recs))
	}
	rec := recs[0]
	if rec["msg"] != "calibration point" || rec["design"] != "Balanced" || rec["error"] != "boom" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["load_n"] != 1.5 || rec["capacitance_f"] != 1.2e-11 || rec["valid_samples"] != float64(3) {
		t.Fatalf("domain fields wrong: %v", rec)
	}
	if _, ok := rec["run_id"]; ok {
		t.Fatalf("record without a run should not carry run_id: %v", rec)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: "WARNING", Output: &buf})

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "shown") {
		t.Fatalf("level filtering failed: %q", out)
	}
}

func TestNilContextIsTolerated(t *testing.T) {
	var buf bytes.Buffer
	New(Config{Output: &buf}).Info(nil, "no context")
	if !strings.Contains(buf.String(), "no context") {
		t.Fatalf("record dropped: %q", buf.String())
	}
}

func TestEnsureRunIDIsStable(t *testing.T) {
	ctx, id := EnsureRunID(context.Background())
	if id == "" {
		t.Fatalf("expected a run id")
	}
	ctx2, id2 := EnsureRunID(ctx)
	if id2 != id || RunIDFromContext(ctx2) != id {
		t.Fatalf("run id changed: %q -> %q", id, id2)
	}

	_, other := EnsureRunID(context.Background())
	if other == id {
		t.Fatalf("independent runs share id %q", id)
	}
}

func TestRecordsCarryRunID(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: "json", Output: &buf})

	ctx, log := WithRunLogger(context.Background(), base)
	log.Info(ctx, "start")
	base.With(String("component", "demo")).Warn(ctx, "derived")

	recs := decodeLines(t, &buf)
	want := RunIDFromContext(ctx)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec["run_id"] != want {
			t.Fatalf("record %v missing run_id %q", rec, want)
		}
	}
}

func TestRecordsCarryTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: "json", Output: &buf})

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{0x0a, 0x0b, 0x0c},
		SpanID:     trace.SpanID{0x01},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	log.Info(ctx, "traced")

	rec := decodeLines(t, &buf)[0]
	if rec["trace_id"] != sc.TraceID().String() || rec["span_id"] != sc.SpanID().String() {
		t.Fatalf("trace correlation missing: %v", rec)
	}
}

func TestWithRunLoggerFallsBackToContextLogger(t *testing.T) {
	var buf bytes.Buffer
	stored := New(Config{Output: &buf})
	ctx := ContextWithLogger(context.Background(), stored)

	ctx, log := WithRunLogger(ctx, nil)
	log.Info(ctx, "from context")
	if !strings.Contains(buf.String(), "from context") {
		t.Fatalf("context logger not used: %q", buf.String())
	}

	if _, l := WithRunLogger(context.Background(), nil); l != Noop() {
		t.Fatalf("expected noop logger without a stored one, got %T", l)
	}
}

func TestLoggerFromContextFallsBackToNoop(t *testing.T) {
	if _, ok := LoggerFromContext(context.Background()).(noopLogger); !ok {
		t.Fatalf("expected noop logger when none stored")
	}
	if _, ok := LoggerFromContext(ContextWithLogger(context.Background(), nil)).(noopLogger); !ok {
		t.Fatalf("nil logger should be stored as noop")
	}
}

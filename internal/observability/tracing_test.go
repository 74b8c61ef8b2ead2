package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
)

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(context.Background(), TracingConfig{}, logging.Noop())
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	_, span := Tracer().Start(context.Background(), "noop")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Fatalf("disabled tracing should produce invalid span contexts")
	}
}

func TestInitTracingStdout(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		ServiceName: "test",
		Exporter:    ExporterStdout,
		SampleRatio: 1,
		Output:      &out,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() {
		_, _ = InitTracing(context.Background(), TracingConfig{}, nil)
	})

	ctx := logging.ContextWithRunID(context.Background(), "run-42")
	_, span := StartSpan(ctx, "acquisition.Test", attribute.Int("calibration.loads", 3))
	if !span.SpanContext().IsValid() {
		t.Fatalf("enabled tracing should produce valid span contexts")
	}
	EndSpan(span, errors.New("prompt closed"))
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	got := out.String()
	for _, want := range []string{"acquisition.Test", "acquisition.run_id", "run-42", "calibration.loads", "prompt closed"} {
		if !strings.Contains(got, want) {
			t.Fatalf("exported span missing %q:\n%s", want, got)
		}
	}
}

func TestEndSpanWithoutErrorLeavesStatusUnset(t *testing.T) {
	var out bytes.Buffer
	shutdown, err := InitTracing(context.Background(), TracingConfig{
		Enabled:     true,
		SampleRatio: 1,
		Output:      &out,
	}, nil)
	if err != nil {
		t.Fatalf("InitTracing: %v", err)
	}
	t.Cleanup(func() {
		_, _ = InitTracing(context.Background(), TracingConfig{}, nil)
	})

	_, span := StartSpan(context.Background(), "acquisition.Clean")
	EndSpan(span, nil)
	ShutdownWithTimeout(context.Background(), shutdown, nil)

	got := out.String()
	if !strings.Contains(got, "acquisition.Clean") {
		t.Fatalf("span not exported:\n%s", got)
	}
	if strings.Contains(got, "acquisition.run_id") {
		t.Fatalf("span without a run ID should not carry one:\n%s", got)
	}
	if !strings.Contains(strings.ReplaceAll(got, " ", ""), `"Code":"Unset"`) {
		t.Fatalf("status should stay unset:\n%s", got)
	}
}

func TestInitTracingUnsupportedExporter(t *testing.T) {
	if _, err := InitTracing(context.Background(), TracingConfig{Enabled: true, Exporter: "zipkin"}, nil); err == nil {
		t.Fatalf("expected error for unsupported exporter")
	}
}

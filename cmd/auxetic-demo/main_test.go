package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"flag"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/auxetic-sensor/acquisition"
	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"AUXETIC_INSTRUMENT_ADDR", "AUXETIC_METRICS_ADDR", "AUXETIC_TRACING_ENABLED",
		"AUXETIC_LOG_LEVEL", "AUXETIC_LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func runDemo(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	clearEnv(t)
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, strings.NewReader(stdin), &stdout, &stderr)
	return stdout.String(), err
}

// TestIntegration_AcceleratedMockRun runs the whole demo against the
// simulated meter on a virtual clock.
func TestIntegration_AcceleratedMockRun(t *testing.T) {
	csvPath := filepath.Join(t.TempDir(), "series.csv")
	out, err := runDemo(t, "", "-accelerated", "-seed", "3", "-duration", "0.5", "-rate", "10", "-csv", csvPath)
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}

	for _, want := range []string{
		"1. Cell designs", "Aggressive", "Balanced", "Conservative",
		"Instrument: " + instrument.MockIdentity,
		"Fit: C0=",
		"Collected 5 samples",
		"Saved 5 samples to " + csvPath,
		"Smoothed 5 samples to 1 with a 5-sample window",
		"Demonstration complete.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, " ok\n"); got != 3 {
		t.Fatalf("%d designs reported a valid topology, want 3:\n%s", got, out)
	}

	series, err := acquisition.ReadCSVFile(csvPath)
	if err != nil {
		t.Fatalf("ReadCSVFile: %v", err)
	}
	if len(series) != 5 {
		t.Fatalf("csv rows = %d, want 5", len(series))
	}
}

func TestDemoPrintsPerformanceSweeps(t *testing.T) {
	out, err := runDemo(t, "", "-accelerated", "-seed", "1", "-duration", "0.2", "-rate", "10")
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}

	rows := map[string][]string{}
	for _, line := range strings.Split(out, "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			rows[f[0]] = f
		}
	}
	if !strings.Contains(out, "Poisson's ratio vs re-entrance angle") {
		t.Fatalf("angle sweep missing:\n%s", out)
	}
	// ν = -tan(α/2)
	for angle, want := range map[string]string{"10°": "-0.087", "40°": "-0.364", "80°": "-0.839"} {
		if got := rows[angle]; len(got) != 2 || got[1] != want {
			t.Fatalf("angle row %s = %v, want ν %s", angle, got, want)
		}
	}

	// Designs are listed by name: Aggressive 60°, Balanced 45°, Conservative 30°.
	if diff := cmp.Diff([]string{"Strain", "Aggressive", "Balanced", "Conservative"}, rows["Strain"]); diff != "" {
		t.Fatalf("strain header (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"0.0%", "0.00%", "0.00%", "0.00%"}, rows["0.0%"]); diff != "" {
		t.Fatalf("zero-strain row (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"5.0%", "0.77%", "-0.86%", "-2.32%"}, rows["5.0%"]); diff != "" {
		t.Fatalf("5%% strain row (-want +got):\n%s", diff)
	}
}

func TestRunOverTCP(t *testing.T) {
	addr := serveSCPI(t, instrument.NewMockLCRMeter(10e-12, instrument.WithSeed(5)))

	out, err := runDemo(t, "", "-accelerated", "-instrument", addr, "-duration", "0.2", "-rate", "10")
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Instrument: "+instrument.MockIdentity) {
		t.Fatalf("instrument not identified over TCP:\n%s", out)
	}
	if !strings.Contains(out, "Collected 2 samples") {
		t.Fatalf("expected two samples over TCP:\n%s", out)
	}
}

func TestRunInstrumentUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	if _, err := runDemo(t, "", "-accelerated", "-instrument", addr); err == nil {
		t.Fatalf("expected error dialling a closed port")
	}
}

func TestRunInteractivePrompt(t *testing.T) {
	out, err := runDemo(t, strings.Repeat("\n", 5), "-accelerated", "-interactive", "-duration", "0.1", "-rate", "10")
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}
	if got := strings.Count(out, "press Enter"); got != 5 {
		t.Fatalf("prompted %d times, want 5:\n%s", got, out)
	}

	_, err = runDemo(t, "\n", "-accelerated", "-interactive")
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("error = %v, want io.ErrUnexpectedEOF when input runs out", err)
	}
}

func TestRunDesignSelection(t *testing.T) {
	out, err := runDemo(t, "", "-accelerated", "-design", "Aggressive", "-alpha", "50", "-duration", "0.1", "-rate", "10")
	if err != nil {
		t.Fatalf("run error: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Sensor design: Aggressive (alpha=50.0 deg)") {
		t.Fatalf("alpha override not applied:\n%s", out)
	}

	if _, err := runDemo(t, "", "-accelerated", "-design", "Missing"); err == nil {
		t.Fatalf("expected error for unknown design")
	}
}

func TestRunRejectsInvalidSettings(t *testing.T) {
	_, err := runDemo(t, "", "-rate", "-1")
	if err == nil || !strings.Contains(err.Error(), "series.rate_hz") {
		t.Fatalf("error = %v, want a series.rate_hz validation error", err)
	}

	if _, err := runDemo(t, "", "-config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}

func TestRunHelp(t *testing.T) {
	if _, err := runDemo(t, "", "-h"); !errors.Is(err, flag.ErrHelp) {
		t.Fatalf("error = %v, want flag.ErrHelp", err)
	}
}

func TestServeMetrics(t *testing.T) {
	collector, err := observability.NewAcquisitionCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewAcquisitionCollector: %v", err)
	}
	collector.SetCalibrationPoints(4)

	srv, addr, err := serveMetrics("127.0.0.1:0", collector, logging.Noop())
	if err != nil {
		t.Fatalf("serveMetrics: %v", err)
	}
	defer srv.Close()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "calibration_points 4") {
		t.Fatalf("metrics body missing calibration_points:\n%s", body)
	}
}

// serveSCPI answers SCPI queries from meter on a loopback listener.
func serveSCPI(t *testing.T, meter *instrument.MockLCRMeter) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				r := bufio.NewReader(c)
				for {
					line, err := r.ReadString('\n')
					if err != nil {
						return
					}
					cmd := strings.TrimSpace(line)
					if !strings.Contains(cmd, "?") {
						_ = meter.Write(cmd)
						continue
					}
					resp, _ := meter.Query(cmd)
					if _, err := c.Write([]byte(resp + "\n")); err != nil {
						return
					}
				}
			}(conn)
		}
	}()
	return ln.Addr().String()
}

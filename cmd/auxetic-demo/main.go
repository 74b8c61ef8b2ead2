// Command auxetic-demo reports on the catalog of auxetic cell designs, then
// calibrates a capacitance instrument and logs a paced time series from it.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/auxetic-sensor/acquisition"
	"github.com/signalsfoundry/auxetic-sensor/core"
	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/config"
	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
	"github.com/signalsfoundry/auxetic-sensor/kb"
	"github.com/signalsfoundry/auxetic-sensor/model"
	"github.com/signalsfoundry/auxetic-sensor/timectrl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "auxetic-demo: %v\n", err)
		os.Exit(1)
	}
}

type flags struct {
	configPath  string
	design      string
	alphaDeg    float64
	instrument  string
	seed        int64
	duration    float64
	rate        float64
	csvPath     string
	metricsAddr string
	accelerated bool
	interactive bool
}

func parseFlags(args []string, stderr io.Writer) (flags, map[string]bool, error) {
	var f flags
	fs := flag.NewFlagSet("auxetic-demo", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "YAML configuration file")
	fs.StringVar(&f.design, "design", "Balanced", "catalog design the measured sensor is built from")
	fs.Float64Var(&f.alphaDeg, "alpha", 0, "override the measured design's re-entrance angle in degrees")
	fs.StringVar(&f.instrument, "instrument", "", "SCPI instrument host:port; empty uses the simulated meter")
	fs.Int64Var(&f.seed, "seed", 0, "seed for the simulated meter's noise (0 = random)")
	fs.Float64Var(&f.duration, "duration", 0, "time-series duration in seconds")
	fs.Float64Var(&f.rate, "rate", 0, "time-series sample rate in Hz")
	fs.StringVar(&f.csvPath, "csv", "", "write the time series to this CSV file")
	fs.StringVar(&f.metricsAddr, "metrics-addr", "", "HTTP address for Prometheus /metrics")
	fs.BoolVar(&f.accelerated, "accelerated", false, "run against a virtual clock instead of real time")
	fs.BoolVar(&f.interactive, "interactive", false, "wait for Enter before measuring each calibration load")
	if err := fs.Parse(args); err != nil {
		return f, nil, err
	}

	set := make(map[string]bool)
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	return f, set, nil
}

// applyFlags lets explicitly set flags win over file and environment values.
func applyFlags(cfg *config.Config, f flags, set map[string]bool) {
	if set["instrument"] {
		cfg.Instrument.Address = f.instrument
	}
	if set["seed"] {
		cfg.Instrument.Mock.Seed = f.seed
	}
	if set["duration"] {
		cfg.Series.DurationS = f.duration
	}
	if set["rate"] {
		cfg.Series.RateHz = f.rate
	}
	if set["csv"] {
		cfg.Series.CSVPath = f.csvPath
	}
	if set["metrics-addr"] {
		cfg.MetricsAddr = f.metricsAddr
	}
	if set["accelerated"] {
		cfg.Accelerated = f.accelerated
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	f, set, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, f, set)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logCfg := cfg.Logging
	logCfg.Output = stderr
	log := logging.New(logCfg)
	ctx, runID := logging.EnsureRunID(ctx)
	ctx = logging.ContextWithLogger(ctx, log)

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	collector, err := observability.NewAcquisitionCollector(prometheus.NewRegistry())
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	if cfg.MetricsAddr != "" {
		srv, _, err := serveMetrics(cfg.MetricsAddr, collector, log)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	fmt.Fprintf(stdout, "Capacitive auxetic sensor demo (run %s)\n", runID)

	// ==== Designs ====

	designs := cfg.Designs
	if len(designs) == 0 {
		designs = kb.DefaultDesigns()
	}
	catalog, err := kb.NewCatalog(designs...)
	if err != nil {
		return fmt.Errorf("load designs: %w", err)
	}
	unsubscribe := catalog.Subscribe(func(ev kb.Event) {
		log.Info(ctx, "design "+ev.Type.String(),
			logging.Design(ev.Design.Name),
			logging.Float("alpha_deg", ev.Design.Params.AlphaDeg),
		)
	})
	defer unsubscribe()

	measured, ok := catalog.GetDesign(f.design)
	if !ok {
		return fmt.Errorf("design %q is not in the catalog", f.design)
	}
	if set["alpha"] {
		params := measured.Params
		params.AlphaDeg = f.alphaDeg
		if err := catalog.UpdateDesign(measured.Name, params); err != nil {
			return err
		}
		measured, _ = catalog.GetDesign(measured.Name)
	}

	section(stdout, "1. Cell designs")
	printDesigns(stdout, catalog.ListDesigns(), cfg.InitialGap)
	printPerformance(stdout, catalog.ListDesigns(), cfg.InitialGap)

	// ==== Instrument ====

	section(stdout, "2. Instrument")
	inst, closeInst, err := openInstrument(ctx, cfg.Instrument)
	if err != nil {
		return err
	}
	defer closeInst()

	id, err := instrument.Identify(inst)
	if err != nil {
		log.Warn(ctx, "instrument did not identify", logging.Err(err))
		id = "unknown"
	}
	fmt.Fprintf(stdout, "Instrument: %s\n", id)

	single, err := instrument.Measure(inst, cfg.Instrument.Channel, cfg.Instrument.FrequencyHz)
	if err != nil {
		log.Warn(ctx, "single measurement failed", logging.Err(err))
	}
	fmt.Fprintf(stdout, "Single measurement: %.3f pF\n", single*1e12)

	mode := timectrl.RealTime
	if cfg.Accelerated {
		mode = timectrl.Accelerated
	}
	clock := timectrl.New(mode, time.Now())
	common := []acquisition.Option{
		acquisition.WithClock(clock),
		acquisition.WithRecorder(collector),
		acquisition.WithChannel(cfg.Instrument.Channel),
		acquisition.WithFrequency(cfg.Instrument.FrequencyHz),
	}

	// ==== Calibration ====

	section(stdout, "3. Calibration")
	fmt.Fprintf(stdout, "Sensor design: %s (alpha=%.1f deg), clock: %s\n", measured.Name, measured.Params.AlphaDeg, mode)
	fmt.Fprintf(stdout, "Calibrating with loads %v N, %d samples each\n", cfg.Calibration.Loads, cfg.Calibration.NumSamples)
	calOpts := append(append([]acquisition.Option(nil), common...),
		acquisition.WithNumSamples(cfg.Calibration.NumSamples),
		acquisition.WithSettleDelay(cfg.Calibration.SettleDelay),
	)
	if f.interactive {
		calOpts = append(calOpts, acquisition.WithLoadPrompt(stdinPrompt(stdin, stdout)))
	}
	record, err := acquisition.Calibrate(ctx, inst, cfg.Calibration.Loads, calOpts...)
	if err != nil {
		return fmt.Errorf("calibrate: %w", err)
	}
	for i := range record.Loads {
		fmt.Fprintf(stdout, "  %6.2f N  %9.4f pF\n", record.Loads[i], record.Capacitances[i]*1e12)
	}
	if cal, err := acquisition.FitLinear(record); err != nil {
		fmt.Fprintf(stdout, "Calibration fit unavailable: %v\n", err)
	} else {
		fmt.Fprintf(stdout, "Fit: C0=%.4f pF, slope=%.4g pF/N, k=%.4g /N, R^2=%.3f\n",
			cal.C0*1e12, cal.Slope*1e12, cal.Sensitivity, cal.RSquared)
	}

	// ==== Time series ====

	section(stdout, "4. Time series")
	fmt.Fprintf(stdout, "Logging %.1f s at %.1f Hz\n", cfg.Series.DurationS, cfg.Series.RateHz)
	seriesOpts := append(append([]acquisition.Option(nil), common...),
		acquisition.WithSampleRate(cfg.Series.RateHz),
		acquisition.WithCSVFile(cfg.Series.CSVPath),
	)
	series, err := acquisition.LogSeries(ctx, inst, cfg.Series.DurationS, seriesOpts...)
	if err != nil {
		return fmt.Errorf("log series: %w", err)
	}
	printSeriesStats(stdout, series)
	if cfg.Series.CSVPath != "" && len(series) > 0 {
		fmt.Fprintf(stdout, "Saved %d samples to %s\n", len(series), cfg.Series.CSVPath)
	}
	if w := cfg.Series.SmoothWindow; w > 0 {
		smoothed := acquisition.Smooth(series, w)
		fmt.Fprintf(stdout, "Smoothed %d samples to %d with a %d-sample window\n", len(series), len(smoothed), w)
	}

	fmt.Fprintln(stdout, "\nDemonstration complete.")
	return nil
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", 30))
}

func printDesigns(w io.Writer, designs []model.Design, initialGap float64) {
	fmt.Fprintf(w, "%-12s %6s %8s %10s %8s %14s %11s %s\n",
		"Design", "Angle", "Area", "Poisson", "Auxetic", "Sensitivity", "Max change", "Topology")
	for _, d := range designs {
		r := core.Report(d, initialGap)
		topology := "ok"
		if err := core.ValidateTopology(core.GenerateFromParams(d.Params)); err != nil {
			topology = err.Error()
		}
		fmt.Fprintf(w, "%-12s %5.0f° %8.4f %10.3f %8v %12.2f%%/%% %10.2f%% %s\n",
			r.Name, r.Params.AlphaDeg, r.CellArea, r.PoissonRatio, r.Auxetic,
			r.Sensitivity, r.MaxChange*100, topology)
	}
}

// printPerformance tabulates ν across re-entrance angles and ΔC/C₀ across
// strain for each design.
func printPerformance(w io.Writer, designs []model.Design, initialGap float64) {
	fmt.Fprintln(w, "\nPoisson's ratio vs re-entrance angle (a=1)")
	fmt.Fprintf(w, "%8s %10s\n", "Angle", "Poisson")
	for _, p := range core.PoissonSweep(1, core.Linspace(10, 80, 8)) {
		fmt.Fprintf(w, "%7.0f° %10.3f\n", p.X, p.Y)
	}

	strains := core.Linspace(0, core.MaxReportStrain, 6)
	fmt.Fprintln(w, "\nCapacitance change (%) vs strain")
	fmt.Fprintf(w, "%8s", "Strain")
	curves := make([][]core.SweepPoint, len(designs))
	for i, d := range designs {
		fmt.Fprintf(w, " %12s", d.Name)
		curves[i] = core.ResponseSweep(d, initialGap, strains)
	}
	fmt.Fprintln(w)
	for j, e := range strains {
		fmt.Fprintf(w, "%7.1f%%", e*100)
		for _, c := range curves {
			fmt.Fprintf(w, " %11.2f%%", c[j].Y*100)
		}
		fmt.Fprintln(w)
	}
}

func printSeriesStats(w io.Writer, ts model.TimeSeries) {
	if len(ts) == 0 {
		fmt.Fprintln(w, "No valid samples collected")
		return
	}
	var sum float64
	for _, s := range ts {
		sum += s.Capacitance
	}
	mean := sum / float64(len(ts))
	var sq float64
	for _, s := range ts {
		d := s.Capacitance - mean
		sq += d * d
	}
	std := math.Sqrt(sq / float64(len(ts)))
	fmt.Fprintf(w, "Collected %d samples over %.3f s\n", len(ts), ts[len(ts)-1].Timestamp)
	fmt.Fprintf(w, "Average capacitance: %.3f pF\n", mean*1e12)
	fmt.Fprintf(w, "Noise level: %.3f pF\n", std*1e12)
}

// openInstrument dials the configured SCPI address, or builds the simulated
// meter when none is set.
func openInstrument(ctx context.Context, cfg config.InstrumentConfig) (any, func(), error) {
	if cfg.Address != "" {
		inst, err := instrument.Dial(ctx, cfg.Address, cfg.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("connect instrument: %w", err)
		}
		return inst, func() { _ = inst.Close() }, nil
	}

	opts := []instrument.MockOption{instrument.WithNoiseLevel(cfg.Mock.NoiseLevel)}
	if cfg.Mock.Seed != 0 {
		opts = append(opts, instrument.WithSeed(cfg.Mock.Seed))
	}
	meter := instrument.NewMockLCRMeter(cfg.Mock.BaseCapacitance, opts...)
	return meter, func() { _ = meter.Close() }, nil
}

// stdinPrompt asks the operator to apply each load and waits for Enter.
func stdinPrompt(in io.Reader, out io.Writer) acquisition.LoadPrompt {
	scanner := bufio.NewScanner(in)
	return func(ctx context.Context, load float64) error {
		fmt.Fprintf(out, "Apply %.2f N and press Enter: ", load)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return err
			}
			return io.ErrUnexpectedEOF
		}
		return ctx.Err()
	}
}

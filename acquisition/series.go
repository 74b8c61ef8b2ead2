package acquisition

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
	"github.com/signalsfoundry/auxetic-sensor/model"
	"github.com/signalsfoundry/auxetic-sensor/timectrl"
)

// LogSeries records floor(durationS*rate) readings paced in real time.
//
// Sample i is due at start + i/rate. When the logger is early it sleeps on
// the clock until the due time; when late it reads immediately. Each sample
// is stamped with the measured elapsed time after the reading, not i/rate,
// so timestamps never go backwards under scheduling jitter. NaN readings are
// skipped.
//
// With WithCSVFile and at least one sample, the series is written to that
// file and any write failure is returned alongside the samples. A cancelled
// ctx stops logging early and returns the samples taken so far with
// ctx.Err().
func LogSeries(ctx context.Context, inst any, durationS float64, opts ...Option) (data model.TimeSeries, err error) {
	s := newSettings(opts)
	ctx, log := logging.WithRunLogger(ctx, s.log)

	pacer := timectrl.NewPacer(s.clock, durationS, s.rateHz)
	n := pacer.Count()

	ctx, span := observability.StartSpan(ctx, "acquisition.LogSeries",
		attribute.Float64("series.duration_s", durationS),
		attribute.Float64("series.rate_hz", s.rateHz),
		attribute.Int("series.scheduled", n),
	)
	defer func() {
		span.SetAttributes(attribute.Int("series.samples", len(data)))
		observability.EndSpan(span, err)
	}()
	log.Info(ctx, "logging started",
		logging.Float("duration_s", durationS),
		logging.Float("rate_hz", s.rateHz),
		logging.Int("scheduled", n),
	)

	// Progress is reported once per second of schedule. A non-empty schedule
	// implies a finite rate.
	progressEvery := 1
	if n > 0 {
		progressEvery = max(int(s.rateHz), 1)
	}
	data = make(model.TimeSeries, 0, n)

	for i := range n {
		lag, err := pacer.Wait(ctx, i)
		if err != nil {
			return data, err
		}
		s.recorder.ObservePacingLag(lag)

		v, ok := s.read(inst, OperationSeries)
		elapsed := pacer.Elapsed().Seconds()
		if ok {
			data = append(data, model.Sample{Timestamp: elapsed, Capacitance: v})
			s.recorder.AddSeriesSamples(1)
		}

		if i%progressEvery == 0 {
			log.Info(ctx, "logging progress",
				logging.Float("percent", math.Round(float64(i)/float64(n)*1000)/10),
				logging.Samples(len(data)),
			)
		}
	}

	log.Info(ctx, "logging finished", logging.Samples(len(data)))

	if s.csvPath != "" && len(data) > 0 {
		if err := WriteCSVFile(s.csvPath, data); err != nil {
			return data, fmt.Errorf("save series: %w", err)
		}
		log.Info(ctx, "series saved", logging.String("path", s.csvPath))
	}
	return data, nil
}

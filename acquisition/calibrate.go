package acquisition

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/internal/observability"
	"github.com/signalsfoundry/auxetic-sensor/model"
)

// Calibrate measures the sensor under each reference load in order.
//
// For every load the prompt runs, then the configured number of readings is
// taken with the settle delay between them. NaN readings are dropped and the
// rest averaged; a load with no valid reading is left out of the record, so
// the record can be shorter than loads. The only errors are a cancelled ctx
// and a failing prompt, returned with the points gathered so far.
func Calibrate(ctx context.Context, inst any, loads []float64, opts ...Option) (record model.CalibrationRecord, err error) {
	s := newSettings(opts)
	ctx, log := logging.WithRunLogger(ctx, s.log)

	ctx, span := observability.StartSpan(ctx, "acquisition.Calibrate",
		attribute.Int("calibration.loads", len(loads)),
		attribute.Int("calibration.num_samples", s.numSamples),
	)
	defer func() {
		s.recorder.SetCalibrationPoints(record.Len())
		span.SetAttributes(attribute.Int("calibration.points", record.Len()))
		observability.EndSpan(span, err)
	}()

	log.Info(ctx, "calibration started",
		logging.Int("loads", len(loads)),
		logging.Int("num_samples", s.numSamples),
		logging.Duration("settle_delay", s.settleDelay),
	)
	record = model.CalibrationRecord{
		Loads:        make([]float64, 0, len(loads)),
		Capacitances: make([]float64, 0, len(loads)),
	}

	for _, load := range loads {
		if err := ctx.Err(); err != nil {
			return record, err
		}
		if s.prompt != nil {
			if err := s.prompt(ctx, load); err != nil {
				return record, err
			}
		} else {
			log.Info(ctx, "apply load", logging.Load(load))
		}

		var sum float64
		valid := 0
		for i := range s.numSamples {
			if i > 0 && s.settleDelay > 0 {
				if err := s.clock.SleepUntil(ctx, s.clock.Now().Add(s.settleDelay)); err != nil {
					return record, err
				}
			}
			if v, ok := s.read(inst, OperationCalibrate); ok {
				sum += v
				valid++
			}
		}

		if valid == 0 {
			log.Warn(ctx, "no valid readings for load", logging.Load(load))
			continue
		}
		avg := sum / float64(valid)
		record.Loads = append(record.Loads, load)
		record.Capacitances = append(record.Capacitances, avg)
		log.Info(ctx, "calibration point",
			logging.Load(load),
			logging.Capacitance(avg),
			logging.Samples(valid),
		)
	}
	return record, nil
}

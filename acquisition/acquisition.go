// Package acquisition runs calibration sweeps and real-time-paced
// time-series logging against a capacitance instrument.
package acquisition

import (
	"context"
	"math"
	"time"

	"github.com/signalsfoundry/auxetic-sensor/instrument"
	"github.com/signalsfoundry/auxetic-sensor/internal/logging"
	"github.com/signalsfoundry/auxetic-sensor/timectrl"
)

const (
	// DefaultNumSamples is how many readings a calibration point averages.
	DefaultNumSamples = 10
	// DefaultSettleDelay separates readings within one calibration point.
	DefaultSettleDelay = 100 * time.Millisecond
	// DefaultSampleRateHz is the time-series logging rate.
	DefaultSampleRateHz = 10.0
)

// Operation labels passed to Recorder.ObserveReading.
const (
	OperationCalibrate = "calibrate"
	OperationSeries    = "series"
)

// Recorder receives pipeline metrics. observability.AcquisitionCollector
// implements it.
type Recorder interface {
	ObserveReading(operation string, valid bool, d time.Duration)
	ObservePacingLag(d time.Duration)
	SetCalibrationPoints(n int)
	AddSeriesSamples(n int)
}

// LoadPrompt is called before each calibration load is measured. Applying
// the load is a manual step; the prompt is how the operator is told, and it
// may block until they confirm. A returned error aborts the sweep.
type LoadPrompt func(ctx context.Context, load float64) error

type settings struct {
	clock       timectrl.Clock
	log         logging.Logger
	recorder    Recorder
	channel     int
	frequencyHz float64
	numSamples  int
	settleDelay time.Duration
	rateHz      float64
	csvPath     string
	prompt      LoadPrompt
}

// Option customises Calibrate and LogSeries.
type Option func(*settings)

// WithClock paces the pipeline against c instead of the wall clock.
func WithClock(c timectrl.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithLogger sets the logger progress and warnings are written to. Without
// it the logger stored on ctx by logging.ContextWithLogger is used.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithRecorder reports metrics to r.
func WithRecorder(r Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

// WithChannel selects the instrument measurement channel.
func WithChannel(ch int) Option {
	return func(s *settings) { s.channel = ch }
}

// WithFrequency sets the test-signal frequency sent before each reading.
func WithFrequency(hz float64) Option {
	return func(s *settings) { s.frequencyHz = hz }
}

// WithNumSamples sets the readings averaged per calibration load.
func WithNumSamples(n int) Option {
	return func(s *settings) { s.numSamples = n }
}

// WithSettleDelay sets the pause between readings of one calibration load.
func WithSettleDelay(d time.Duration) Option {
	return func(s *settings) { s.settleDelay = d }
}

// WithSampleRate sets the time-series logging rate in hertz.
func WithSampleRate(hz float64) Option {
	return func(s *settings) { s.rateHz = hz }
}

// WithCSVFile makes LogSeries write its samples to path.
func WithCSVFile(path string) Option {
	return func(s *settings) { s.csvPath = path }
}

// WithLoadPrompt replaces the default logged "apply load" prompt.
func WithLoadPrompt(p LoadPrompt) Option {
	return func(s *settings) { s.prompt = p }
}

func newSettings(opts []Option) *settings {
	s := &settings{
		clock:       timectrl.WallClock{},
		recorder:    noopRecorder{},
		channel:     instrument.DefaultChannel,
		frequencyHz: instrument.DefaultFrequencyHz,
		numSamples:  DefaultNumSamples,
		settleDelay: DefaultSettleDelay,
		rateHz:      DefaultSampleRateHz,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = timectrl.WallClock{}
	}
	if s.recorder == nil {
		s.recorder = noopRecorder{}
	}
	return s
}

// read takes one reading and reports it. ok is false for NaN readings.
func (s *settings) read(inst any, operation string) (value float64, ok bool) {
	start := s.clock.Now()
	value = instrument.ReadCapacitance(inst, s.channel, s.frequencyHz)
	ok = !math.IsNaN(value)
	s.recorder.ObserveReading(operation, ok, s.clock.Now().Sub(start))
	return value, ok
}

type noopRecorder struct{}

func (noopRecorder) ObserveReading(string, bool, time.Duration) {}
func (noopRecorder) ObservePacingLag(time.Duration)             {}
func (noopRecorder) SetCalibrationPoints(int)                   {}
func (noopRecorder) AddSeriesSamples(int)                       {}

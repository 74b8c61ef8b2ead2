package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Reading outcomes used as the "outcome" label.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
)

// AcquisitionCollector bundles Prometheus metrics for instrument readings,
// calibration sweeps and time-series logging. All methods are safe on a nil
// receiver so callers can run without metrics.
type AcquisitionCollector struct {
	gatherer prometheus.Gatherer

	Readings          *prometheus.CounterVec
	ReadDurations     *prometheus.HistogramVec
	PacingLag         prometheus.Histogram
	CalibrationPoints prometheus.Gauge
	SeriesSamples     prometheus.Counter
}

// NewAcquisitionCollector registers acquisition metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewAcquisitionCollector(reg prometheus.Registerer) (*AcquisitionCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	readings, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instrument_readings_total",
		Help: "Capacitance readings taken, labeled by pipeline operation and outcome (valid or invalid).",
	}, []string{"operation", "outcome"}), "instrument_readings_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "instrument_read_duration_seconds",
		Help:    "Latency of a single capacitance reading in seconds.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"operation"}), "instrument_read_duration_seconds")
	if err != nil {
		return nil, err
	}

	lag, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "acquisition_pacing_lag_seconds",
		Help:    "How late a scheduled time-series sample started relative to its target time.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}), "acquisition_pacing_lag_seconds")
	if err != nil {
		return nil, err
	}

	points, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "calibration_points",
		Help: "Number of points in the most recent calibration record.",
	}), "calibration_points")
	if err != nil {
		return nil, err
	}

	samples, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "series_samples_total",
		Help: "Valid samples recorded by the time-series logger.",
	}), "series_samples_total")
	if err != nil {
		return nil, err
	}

	return &AcquisitionCollector{
		gatherer:          gatherer,
		Readings:          readings,
		ReadDurations:     durations,
		PacingLag:         lag,
		CalibrationPoints: points,
		SeriesSamples:     samples,
	}, nil
}

// Gatherer returns the registry the collector reports to.
func (c *AcquisitionCollector) Gatherer() prometheus.Gatherer {
	if c == nil || c.gatherer == nil {
		return prometheus.DefaultGatherer
	}
	return c.gatherer
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AcquisitionCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Gatherer(), promhttp.HandlerOpts{})
}

// ObserveReading records one reading taken by operation.
func (c *AcquisitionCollector) ObserveReading(operation string, valid bool, d time.Duration) {
	if c == nil {
		return
	}
	outcome := OutcomeValid
	if !valid {
		outcome = OutcomeInvalid
	}
	if c.Readings != nil {
		c.Readings.WithLabelValues(operation, outcome).Inc()
	}
	if c.ReadDurations != nil {
		c.ReadDurations.WithLabelValues(operation).Observe(d.Seconds())
	}
}

// ObservePacingLag records how late a scheduled sample started.
func (c *AcquisitionCollector) ObservePacingLag(d time.Duration) {
	if c == nil || c.PacingLag == nil {
		return
	}
	c.PacingLag.Observe(d.Seconds())
}

// SetCalibrationPoints reports the size of the latest calibration record.
func (c *AcquisitionCollector) SetCalibrationPoints(n int) {
	if c == nil || c.CalibrationPoints == nil {
		return
	}
	c.CalibrationPoints.Set(float64(n))
}

// AddSeriesSamples counts samples recorded by the logger.
func (c *AcquisitionCollector) AddSeriesSamples(n int) {
	if c == nil || c.SeriesSamples == nil {
		return
	}
	c.SeriesSamples.Add(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

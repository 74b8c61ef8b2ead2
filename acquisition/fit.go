package acquisition

import (
	"errors"
	"fmt"

	"github.com/signalsfoundry/auxetic-sensor/core"
	"github.com/signalsfoundry/auxetic-sensor/model"
)

// ErrInsufficientPoints is returned when a fit has fewer than two distinct loads.
var ErrInsufficientPoints = errors.New("calibration needs at least two distinct loads")

// Calibration is the linear sensor model C(F) = C0·(1 + k·F) fitted to a
// calibration record.
type Calibration struct {
	C0          float64 // capacitance at zero load, farads
	Slope       float64 // dC/dF, farads per load unit
	Sensitivity float64 // k = Slope / C0, fractional change per load unit
	RSquared    float64
}

// Capacitance predicts the capacitance under load.
func (c Calibration) Capacitance(load float64) float64 {
	return c.C0 + c.Slope*load
}

// Load inverts the model, mapping a measured capacitance back to a load.
// A flat calibration cannot be inverted and returns 0.
func (c Calibration) Load(capacitance float64) float64 {
	if c.Slope == 0 {
		return 0
	}
	return (capacitance - c.C0) / c.Slope
}

// FitLinear fits a least-squares line through the record's points.
func FitLinear(r model.CalibrationRecord) (Calibration, error) {
	n := len(r.Loads)
	if n != len(r.Capacitances) {
		return Calibration{}, fmt.Errorf("calibration record has %d loads but %d capacitances", n, len(r.Capacitances))
	}
	if n < 2 {
		return Calibration{}, ErrInsufficientPoints
	}

	var sx, sy float64
	for i := range n {
		sx += r.Loads[i]
		sy += r.Capacitances[i]
	}
	mx, my := sx/float64(n), sy/float64(n)

	var sxx, sxy, syy float64
	for i := range n {
		dx := r.Loads[i] - mx
		dy := r.Capacitances[i] - my
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return Calibration{}, ErrInsufficientPoints
	}

	slope := sxy / sxx
	c0 := my - slope*mx
	cal := Calibration{C0: c0, Slope: slope, RSquared: 1}
	if c0 != 0 {
		cal.Sensitivity = slope / c0
	}
	if syy > 0 {
		cal.RSquared = sxy * sxy / (sxx * syy)
	}
	return cal, nil
}

// Smooth applies a centred moving average of the given window to the
// capacitances of ts. Each output sample takes the timestamp at the middle
// of its window (the mean of the two middle timestamps for even windows).
// An out-of-range window yields an empty series.
func Smooth(ts model.TimeSeries, window int) model.TimeSeries {
	avg := core.MovingAverage(ts.Capacitances(), window)
	out := make(model.TimeSeries, len(avg))
	for i, v := range avg {
		lo := i + (window-1)/2
		hi := i + window/2
		out[i] = model.Sample{
			Timestamp:   (ts[lo].Timestamp + ts[hi].Timestamp) / 2,
			Capacitance: v,
		}
	}
	return out
}

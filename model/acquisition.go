package model

// CalibrationRecord pairs each applied reference load with the averaged
// capacitance measured under it. Loads that produced no valid reading are
// omitted, so both slices always have the same length.
type CalibrationRecord struct {
	Loads        []float64
	Capacitances []float64
}

// Len returns the number of calibration points.
func (r CalibrationRecord) Len() int {
	return len(r.Loads)
}

// Sample is one time-series reading.
type Sample struct {
	Timestamp   float64 // seconds since logging started
	Capacitance float64 // farads
}

// TimeSeries is an ordered run of samples with non-decreasing timestamps.
type TimeSeries []Sample

// Capacitances returns the capacitance column.
func (ts TimeSeries) Capacitances() []float64 {
	out := make([]float64, len(ts))
	for i, s := range ts {
		out[i] = s.Capacitance
	}
	return out
}

// Timestamps returns the timestamp column.
func (ts TimeSeries) Timestamps() []float64 {
	out := make([]float64, len(ts))
	for i, s := range ts {
		out[i] = s.Timestamp
	}
	return out
}

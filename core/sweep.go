package core

import "github.com/signalsfoundry/auxetic-sensor/model"

// SweepPoint is one sample of a response curve.
type SweepPoint struct {
	X, Y float64
}

// Linspace returns n evenly spaced values from lo to hi inclusive. n == 1
// gives [lo]; n < 1 gives nil.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 1 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = lo
		return out
	}
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// PoissonSweep evaluates the Poisson's ratio of a cell with strut length a
// at each re-entrance angle (degrees). Degenerate angles yield -Inf.
func PoissonSweep(a float64, anglesDeg []float64) []SweepPoint {
	out := make([]SweepPoint, len(anglesDeg))
	for i, alpha := range anglesDeg {
		out[i] = SweepPoint{X: alpha, Y: PoissonRatio(a, alpha, DefaultStrain)}
	}
	return out
}

// ResponseSweep evaluates ΔC/C₀ of design d at each strain.
func ResponseSweep(d model.Design, initialGap float64, strains []float64) []SweepPoint {
	nu := PoissonRatio(d.Params.A, d.Params.AlphaDeg, DefaultStrain)
	out := make([]SweepPoint, len(strains))
	for i, e := range strains {
		out[i] = SweepPoint{X: e, Y: CapacitanceChange(initialGap, e, nu, DefaultDielectricConstant)}
	}
	return out
}

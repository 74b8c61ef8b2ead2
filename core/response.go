package core

import (
	"errors"
	"math"

	"github.com/signalsfoundry/auxetic-sensor/model"
)

const (
	// DefaultStrain is the longitudinal strain the small-strain formulas are
	// quoted at.
	DefaultStrain = 0.01
	// DefaultDielectricConstant is the relative permittivity of air.
	DefaultDielectricConstant = 1.0
	// VacuumPermittivity is ε₀ in F/m.
	VacuumPermittivity = 8.854e-12

	degenerateEpsilon = 1e-10
)

// ErrDegenerateAngle reports that 1 + cos(alpha) vanishes, so the
// re-entrant Poisson's ratio diverges.
var ErrDegenerateAngle = errors.New("re-entrance angle is degenerate (1 + cos(alpha) = 0)")

// PoissonRatio returns the small-strain Poisson's ratio of a re-entrant cell
// with re-entrance angle alphaDeg (degrees):
//
//	ν = -sin(α) / (1 + cos(α))
//
// a and strain are accepted so a fuller model can slot in later; they do not
// affect the result today. As alpha approaches 180° the ratio diverges and
// negative infinity is returned.
func PoissonRatio(a, alphaDeg, strain float64) float64 {
	nu, _ := EvaluatePoissonRatio(a, alphaDeg, strain)
	return nu
}

// EvaluatePoissonRatio is PoissonRatio with the degenerate case reported as
// ErrDegenerateAngle. The returned value is still -Inf in that case.
func EvaluatePoissonRatio(a, alphaDeg, strain float64) (float64, error) {
	sin, cos := math.Sincos(degToRad(alphaDeg))
	if math.Abs(1+cos) < degenerateEpsilon {
		return math.Inf(-1), ErrDegenerateAngle
	}
	return -sin / (1 + cos), nil
}

// CapacitanceChange estimates the relative capacitance change ΔC/C₀ of a
// parallel-plate sensor whose electrode area follows the transverse strain
// and whose gap follows the longitudinal strain:
//
//	ΔC/C₀ ≈ ΔA/A₀ - Δd/d₀ = 2·(-ν·ε) - ε
//
// initialGap and dielectricConstant belong to C = ε₀·ε_r·A/d but cancel out
// of the linear ratio, so they are currently inert.
func CapacitanceChange(initialGap, strain, poissonRatio, dielectricConstant float64) float64 {
	transverse := -poissonRatio * strain
	areaChange := 2 * transverse
	gapChange := strain
	return areaChange - gapChange
}

// Sensitivity returns ΔC/C₀ per unit strain at the given strain. Zero strain
// returns the small-strain limit -2ν - 1.
func Sensitivity(poissonRatio, strain float64) float64 {
	if strain == 0 {
		return -2*poissonRatio - 1
	}
	return CapacitanceChange(0, strain, poissonRatio, DefaultDielectricConstant) / strain
}

// ParallelPlateCapacitance returns ε₀·ε_r·A/d in farads, or +Inf for a
// non-positive gap.
func ParallelPlateCapacitance(area, gap, dielectricConstant float64) float64 {
	if gap <= 0 {
		return math.Inf(1)
	}
	return VacuumPermittivity * dielectricConstant * area / gap
}

// DesignReport summarises the analytical response of one design.
type DesignReport struct {
	Name          string
	Params        model.CellParams
	Nodes         int
	Edges         int
	CellArea      float64
	PoissonRatio  float64
	Auxetic       bool
	Sensitivity   float64 // ΔC/C₀ per unit strain at 0.1 % strain
	MaxChange     float64 // ΔC/C₀ at MaxReportStrain
	DegenerateErr error
}

// MaxReportStrain is the strain DesignReport quotes the peak response at.
const MaxReportStrain = 0.05

const reportSensitivityStrain = 0.001

// Report evaluates the topology and response of a design with the given
// capacitor gap.
func Report(d model.Design, initialGap float64) DesignReport {
	p := d.Params
	cell := GenerateFromParams(p)
	nu, err := EvaluatePoissonRatio(p.A, p.AlphaDeg, DefaultStrain)

	return DesignReport{
		Name:          d.Name,
		Params:        p,
		Nodes:         len(cell.Nodes),
		Edges:         len(cell.Edges),
		CellArea:      PolygonArea(cell.Nodes),
		PoissonRatio:  nu,
		Auxetic:       nu < 0,
		Sensitivity:   Sensitivity(nu, reportSensitivityStrain),
		MaxChange:     CapacitanceChange(initialGap, MaxReportStrain, nu, DefaultDielectricConstant),
		DegenerateErr: err,
	}
}

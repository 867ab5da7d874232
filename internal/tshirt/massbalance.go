package tshirt

import (
	"fmt"
	"math"
)

// Tolerance bounds the residual accepted by CheckMassBalance:
// |residual| <= Absolute + Relative*max(inflow, outflow, |storage change|).
type Tolerance struct {
	Absolute float64 `yaml:"absolute" json:"absolute"`
	Relative float64 `yaml:"relative" json:"relative"`
}

func DefaultTolerance() Tolerance {
	return Tolerance{Absolute: 1e-12, Relative: 1e-9}
}

// MassBalance is the water budget of one step, all terms in metres.
type MassBalance struct {
	Inflow        float64 `json:"inflow"`
	Outflow       float64 `json:"outflow"`
	StorageChange float64 `json:"storage_change"`
	Residual      float64 `json:"residual"`
	Allowed       float64 `json:"allowed"`
}

func (b MassBalance) OK() bool {
	return math.Abs(b.Residual) <= b.Allowed
}

// Err returns an error wrapping ErrMassBalance when the budget does not close.
func (b MassBalance) Err() error {
	if b.OK() {
		return nil
	}
	return fmt.Errorf("%w: residual %.3e m exceeds %.3e m", ErrMassBalance, b.Residual, b.Allowed)
}

// CheckMassBalance recomputes the water budget of a step from its inputs
// and outputs alone. Outflow counts surface runoff before the unit
// hydrograph, since water still in the hydrograph delay has already left
// the soil column. It never modifies its arguments.
func CheckMassBalance(p Params, prev State, inputFlux float64, next State, f Fluxes, dt float64, tol Tolerance) MassBalance {
	var b MassBalance

	b.Inflow = inputFlux * dt
	b.Outflow = (f.SurfaceRunoffRaw+f.SoilLateralFlow+f.GroundwaterFlow)*dt + f.ETLoss

	b.StorageChange = (next.Soil - prev.Soil) + (next.Groundwater - prev.Groundwater)
	for i := 0; i < p.NashN(); i++ {
		b.StorageChange += stage(next, i) - stage(prev, i)
	}

	b.Residual = b.Inflow - b.Outflow - b.StorageChange
	scale := math.Max(b.Inflow, math.Max(b.Outflow, math.Abs(b.StorageChange)))
	b.Allowed = tol.Absolute + tol.Relative*scale
	return b
}

func stage(s State, i int) float64 {
	if i < len(s.Cascade) {
		return s.Cascade[i]
	}
	return math.NaN()
}

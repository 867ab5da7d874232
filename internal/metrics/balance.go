package metrics

import (
	"math"

	"github.com/san-kum/tshirt/internal/sim"
)

// MassResidual tracks the largest absolute water-balance residual (m).
type MassResidual struct {
	name string
	max  float64
}

func NewMassResidual() *MassResidual {
	return &MassResidual{name: "mass_residual"}
}

func (m *MassResidual) Name() string { return m.name }

func (m *MassResidual) Observe(s sim.Step) {
	m.max = math.Max(m.max, math.Abs(s.Balance.Residual))
}

func (m *MassResidual) Value() float64 { return m.max }

func (m *MassResidual) Reset() { m.max = 0 }

// TotalET is the evapotranspiration depth summed over the run (m).
type TotalET struct {
	name string
	sum  float64
}

func NewTotalET() *TotalET {
	return &TotalET{name: "total_et"}
}

func (e *TotalET) Name() string { return e.name }

func (e *TotalET) Observe(s sim.Step) {
	e.sum += s.Result.Fluxes.ETLoss
}

func (e *TotalET) Value() float64 { return e.sum }

func (e *TotalET) Reset() { e.sum = 0 }

// Overflow is the depth every reservoir could not hold, summed over the run (m).
type Overflow struct {
	name string
	sum  float64
}

func NewOverflow() *Overflow {
	return &Overflow{name: "overflow"}
}

func (o *Overflow) Name() string { return o.name }

func (o *Overflow) Observe(s sim.Step) {
	f := s.Result.Fluxes
	o.sum += f.SoilExcess + f.CascadeExcess + f.GroundwaterExcess
}

func (o *Overflow) Value() float64 { return o.sum }

func (o *Overflow) Reset() { o.sum = 0 }

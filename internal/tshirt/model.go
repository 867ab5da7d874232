package tshirt

import (
	"fmt"
	"math"

	"github.com/san-kum/tshirt/internal/et"
	"github.com/san-kum/tshirt/internal/giuh"
	"github.com/san-kum/tshirt/internal/partition"
	"github.com/san-kum/tshirt/internal/reservoir"
)

// Partitioner splits an input flux into surface runoff and infiltration.
// Outputs must be non-negative and sum to input.
type Partitioner interface {
	Partition(dt, constant, deficit, input float64) (runoff, infiltration float64)
}

type PartitionFunc func(dt, constant, deficit, input float64) (runoff, infiltration float64)

func (f PartitionFunc) Partition(dt, constant, deficit, input float64) (float64, float64) {
	return f(dt, constant, deficit, input)
}

// Hydrograph turns instantaneous runoff into the rate released this step.
// Release reports what Convolve would return without changing any state.
type Hydrograph interface {
	Release(dt, runoff float64) float64
	Convolve(dt, runoff float64) float64
}

// Evapotranspirer returns the ET depth taken from a soil store.
type Evapotranspirer interface {
	Loss(storage float64, cfg et.Config) float64
}

type Collaborators struct {
	Partitioner Partitioner
	Hydrograph  Hydrograph
	ET          Evapotranspirer
}

// DefaultCollaborators uses the Schaake partitioner, an identity unit
// hydrograph and the PDM evapotranspiration curve.
func DefaultCollaborators() Collaborators {
	return Collaborators{
		Partitioner: PartitionFunc(partition.Schaake),
		Hydrograph:  giuh.Identity(),
		ET:          et.PDM{},
	}
}

func (c Collaborators) withDefaults() Collaborators {
	d := DefaultCollaborators()
	if c.Partitioner == nil {
		c.Partitioner = d.Partitioner
	}
	if c.Hydrograph == nil {
		c.Hydrograph = d.Hydrograph
	}
	if c.ET == nil {
		c.ET = d.ET
	}
	return c
}

// soil reservoir outlet indices
const (
	lateralOutlet     = 0
	percolationOutlet = 1
)

type reservoirs struct {
	soil        *reservoir.Reservoir
	groundwater *reservoir.Reservoir
	cascade     []*reservoir.Reservoir
}

// ReservoirSet is a snapshot of every reservoir a model drives.
type ReservoirSet struct {
	Soil        reservoir.Config
	Groundwater reservoir.Config
	Cascade     []reservoir.Config
}

func buildReservoirs(p Params, s State, sfc float64) (reservoirs, error) {
	var r reservoirs
	var err error

	r.soil, err = reservoir.New(0, p.maxSoilStorage, s.Soil,
		reservoir.PowerLaw{A: p.spec.Klf, B: 1, Threshold: sfc, Max: p.maxLateralFlow},
		reservoir.PowerLaw{A: p.spec.SatDK * p.spec.Slope, B: 1, Threshold: sfc, Max: p.spec.SatDK},
	)
	if err != nil {
		return r, fmt.Errorf("soil reservoir: %w", err)
	}

	r.groundwater, err = reservoir.New(0, p.spec.MaxGroundwaterStorage, s.Groundwater,
		reservoir.Exponential{A: p.spec.Cgw, B: p.spec.Expon, Threshold: 0, Max: p.MaxGroundwaterVelocity()},
	)
	if err != nil {
		return r, fmt.Errorf("groundwater reservoir: %w", err)
	}

	r.cascade = make([]*reservoir.Reservoir, p.spec.NashN)
	for i := range r.cascade {
		r.cascade[i], err = reservoir.New(0, p.maxSoilStorage, s.Cascade[i],
			reservoir.PowerLaw{A: p.spec.Kn, B: 1, Threshold: sfc, Max: p.maxLateralFlow},
		)
		if err != nil {
			return r, fmt.Errorf("cascade stage %d: %w", i, err)
		}
	}
	return r, nil
}

// Model advances one catchment through time. It owns its reservoirs and
// keeps the previous and current state as separate values.
type Model struct {
	params   Params
	parts    Collaborators
	previous State
	current  State
	sfc      float64
	res      reservoirs
}

// NewModel builds a model whose first step starts from initial.
func NewModel(p Params, initial State, parts Collaborators) (*Model, error) {
	if err := p.CheckState(initial); err != nil {
		return nil, err
	}

	m := &Model{
		params:   p,
		parts:    parts.withDefaults(),
		previous: initial.Clone(),
		current:  initial.Clone(),
		sfc:      FieldCapacity(p),
	}
	if err := m.rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

// NewModelAtRest builds a model with every store empty.
func NewModelAtRest(p Params, parts Collaborators) (*Model, error) {
	return NewModel(p, p.ZeroState(), parts)
}

func (m *Model) rebuild() error {
	res, err := buildReservoirs(m.params, m.current, m.sfc)
	if err != nil {
		return &ConfigError{Field: "reservoir", Reason: err.Error()}
	}
	m.res = res
	return nil
}

func (m *Model) Params() Params { return m.params }

// Previous returns a copy of the state before the last step.
func (m *Model) Previous() State { return m.previous.Clone() }

// Current returns a copy of the state after the last step.
func (m *Model) Current() State { return m.current.Clone() }

// FieldCapacity returns the threshold the reservoirs are built with.
func (m *Model) FieldCapacity() float64 { return m.sfc }

func (m *Model) Reservoirs() ReservoirSet {
	set := ReservoirSet{
		Soil:        m.res.soil.Config(),
		Groundwater: m.res.groundwater.Config(),
		Cascade:     make([]reservoir.Config, len(m.res.cascade)),
	}
	for i, r := range m.res.cascade {
		set.Cascade[i] = r.Config()
	}
	return set
}

// Run advances the model by dt seconds with inputFlux (m/s) arriving at
// the surface. On error the model state and the hydrograph buffer are
// unchanged.
func (m *Model) Run(dt, inputFlux float64, etCfg et.Config) (Result, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return Result{}, &StepError{Stage: "input", Wrapped: fmt.Errorf("%w: dt=%g", ErrInvalidInput, dt)}
	}
	if !(inputFlux >= 0) || math.IsInf(inputFlux, 0) {
		return Result{}, &StepError{Stage: "input", Wrapped: fmt.Errorf("%w: input flux=%g", ErrInvalidInput, inputFlux)}
	}

	prev := m.current
	var f Fluxes

	deficit := m.params.maxSoilStorage - prev.Soil
	runoff, infiltration := m.parts.Partitioner.Partition(dt, m.params.cschaake, deficit, inputFlux)
	f.Infiltration = infiltration

	if sfc := FieldCapacity(m.params); sfc != m.sfc {
		m.sfc = sfc
		if err := m.rebuild(); err != nil {
			return Result{}, err
		}
	}

	_, soilExcess := m.res.soil.Respond(infiltration, dt)
	qlf, _ := m.res.soil.OutletVelocity(lateralOutlet)
	qperc, _ := m.res.soil.OutletVelocity(percolationOutlet)
	f.SoilPercolation = qperc
	f.SoilExcess = soilExcess

	soil := m.res.soil.Storage()
	loss := m.parts.ET.Loss(soil, etCfg)
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		m.restore()
		return Result{}, &StepError{Stage: "et", Wrapped: fmt.Errorf("%w: et loss=%g", ErrNumerical, loss)}
	}
	f.ETLoss = math.Max(0, math.Min(loss, soil))
	soil -= f.ETLoss
	m.res.soil.SetStorage(soil)

	next := State{
		Soil:    soil,
		Cascade: make([]float64, len(m.res.cascade)),
	}

	for i, stage := range m.res.cascade {
		var excess float64
		qlf, excess = stage.Respond(qlf, dt)
		f.CascadeExcess += excess
		next.Cascade[i] = stage.Storage()
	}
	f.SoilLateralFlow = qlf + f.CascadeExcess/dt

	qgw, gwExcess := m.res.groundwater.Respond(qperc, dt)
	f.GroundwaterExcess = gwExcess
	f.GroundwaterFlow = qgw + gwExcess/dt
	next.Groundwater = m.res.groundwater.Storage()

	f.SurfaceRunoffRaw = runoff + soilExcess/dt
	if err := checkFinite(f, next); err != nil {
		m.restore()
		return Result{}, err
	}
	if out := m.parts.Hydrograph.Release(dt, f.SurfaceRunoffRaw); math.IsNaN(out) || math.IsInf(out, 0) {
		m.restore()
		return Result{}, &StepError{Stage: "hydrograph", Wrapped: fmt.Errorf("%w: surface runoff=%g", ErrNumerical, out)}
	}
	f.SurfaceRunoff = m.parts.Hydrograph.Convolve(dt, f.SurfaceRunoffRaw)

	m.previous = prev
	m.current = next
	return Result{State: next.Clone(), Fluxes: f}, nil
}

// restore puts the reservoirs back to the current state after a failed step.
func (m *Model) restore() {
	_ = m.rebuild()
}

func checkFinite(f Fluxes, s State) error {
	values := []struct {
		stage string
		v     float64
	}{
		{"partition", f.SurfaceRunoffRaw},
		{"partition", f.Infiltration},
		{"soil", f.SoilPercolation},
		{"soil", s.Soil},
		{"et", f.ETLoss},
		{"cascade", f.SoilLateralFlow},
		{"groundwater", f.GroundwaterFlow},
		{"groundwater", s.Groundwater},
	}
	for _, c := range s.Cascade {
		values = append(values, struct {
			stage string
			v     float64
		}{"cascade", c})
	}
	for _, x := range values {
		if math.IsNaN(x.v) || math.IsInf(x.v, 0) {
			return &StepError{Stage: x.stage, Wrapped: fmt.Errorf("%w: got %g", ErrNumerical, x.v)}
		}
	}
	return nil
}

// Step runs a single step from prev without keeping a model around. It
// gives the same result as NewModel(p, prev, parts) followed by Run.
func Step(p Params, prev State, dt, inputFlux float64, etCfg et.Config, parts Collaborators) (Result, error) {
	m, err := NewModel(p, prev, parts)
	if err != nil {
		return Result{}, err
	}
	return m.Run(dt, inputFlux, etCfg)
}

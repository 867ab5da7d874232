package tshirt

// State holds the storages (m) at a step boundary.
type State struct {
	Soil        float64   `json:"soil" yaml:"soil"`
	Groundwater float64   `json:"groundwater" yaml:"groundwater"`
	Cascade     []float64 `json:"cascade" yaml:"cascade"`
}

func NewState(soil, groundwater float64, stages int) State {
	return State{
		Soil:        soil,
		Groundwater: groundwater,
		Cascade:     make([]float64, stages),
	}
}

func (s State) Clone() State {
	c := s
	c.Cascade = make([]float64, len(s.Cascade))
	copy(c.Cascade, s.Cascade)
	return c
}

// Total is the water held across every storage (m).
func (s State) Total() float64 {
	sum := s.Soil + s.Groundwater
	for _, c := range s.Cascade {
		sum += c
	}
	return sum
}

// Fluxes is what a single step produced. Rates are m/s, depths m.
type Fluxes struct {
	SurfaceRunoff   float64 `json:"surface_runoff"`
	GroundwaterFlow float64 `json:"groundwater_flow"`
	SoilPercolation float64 `json:"soil_percolation"`
	SoilLateralFlow float64 `json:"soil_lateral_flow"`
	ETLoss          float64 `json:"et_loss"`

	// SurfaceRunoffRaw is runoff before the unit hydrograph, including
	// saturation excess from the soil reservoir.
	SurfaceRunoffRaw float64 `json:"surface_runoff_raw"`
	Infiltration     float64 `json:"infiltration"`

	// Overflow depths already folded into the rates above.
	SoilExcess        float64 `json:"soil_excess"`
	CascadeExcess     float64 `json:"cascade_excess"`
	GroundwaterExcess float64 `json:"groundwater_excess"`
}

// Discharge is the total flow leaving the catchment in the step (m/s).
func (f Fluxes) Discharge() float64 {
	return f.SurfaceRunoff + f.SoilLateralFlow + f.GroundwaterFlow
}

type Result struct {
	State  State
	Fluxes Fluxes
}

package tshirt

import (
	"fmt"
	"math"
)

const (
	// SoilDepth is the fixed soil column depth (m).
	SoilDepth = 2.0

	AtmosphericPressure = 101325.0 // Pa
	WaterSpecificWeight = 9810.0   // N/m^3

	// reference conductivity of the Schaake scheme (m/s)
	refConductivity = 2.0e-6
)

// ParamsSpec holds the primary parameters as read from configuration.
type ParamsSpec struct {
	MaxSMC                float64 `yaml:"maxsmc" json:"maxsmc"`
	WltSMC                float64 `yaml:"wltsmc" json:"wltsmc"`
	SatDK                 float64 `yaml:"satdk" json:"satdk"`
	SatPsi                float64 `yaml:"satpsi" json:"satpsi"`
	Slope                 float64 `yaml:"slope" json:"slope"`
	B                     float64 `yaml:"b" json:"b"`
	Multiplier            float64 `yaml:"multiplier" json:"multiplier"`
	AlphaFC               float64 `yaml:"alpha_fc" json:"alpha_fc"`
	Klf                   float64 `yaml:"klf" json:"klf"`
	Kn                    float64 `yaml:"kn" json:"kn"`
	NashN                 int     `yaml:"nash_n" json:"nash_n"`
	Cgw                   float64 `yaml:"cgw" json:"cgw"`
	Expon                 float64 `yaml:"expon" json:"expon"`
	MaxGroundwaterStorage float64 `yaml:"max_gw_storage" json:"max_gw_storage"`
}

// Params is a validated parameter set. Derived values are computed once
// by NewParams and cannot be set any other way.
type Params struct {
	spec ParamsSpec

	maxSoilStorage float64
	cschaake       float64
	maxLateralFlow float64
}

func NewParams(s ParamsSpec) (Params, error) {
	if err := s.validate(); err != nil {
		return Params{}, err
	}

	p := Params{spec: s}
	p.maxSoilStorage = SoilDepth * s.MaxSMC
	p.cschaake = 3.0 * s.SatDK / refConductivity
	p.maxLateralFlow = s.SatDK * s.Multiplier * p.maxSoilStorage
	return p, nil
}

func (s ParamsSpec) validate() error {
	nonNegative := []struct {
		name string
		v    float64
	}{
		{"maxsmc", s.MaxSMC},
		{"wltsmc", s.WltSMC},
		{"satdk", s.SatDK},
		{"satpsi", s.SatPsi},
		{"slope", s.Slope},
		{"b", s.B},
		{"multiplier", s.Multiplier},
		{"alpha_fc", s.AlphaFC},
		{"klf", s.Klf},
		{"kn", s.Kn},
		{"cgw", s.Cgw},
		{"expon", s.Expon},
		{"max_gw_storage", s.MaxGroundwaterStorage},
	}
	for _, f := range nonNegative {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return &ConfigError{Field: f.name, Value: f.v, Reason: "must be finite and non-negative"}
		}
	}

	switch {
	case s.NashN < 0:
		return &ConfigError{Field: "nash_n", Value: float64(s.NashN), Reason: "must be non-negative"}
	case s.MaxSMC == 0:
		return &ConfigError{Field: "maxsmc", Value: s.MaxSMC, Reason: "maximum soil storage would be zero"}
	case s.MaxGroundwaterStorage == 0:
		return &ConfigError{Field: "max_gw_storage", Value: s.MaxGroundwaterStorage, Reason: "must be positive"}
	case s.WltSMC > s.MaxSMC:
		return &ConfigError{Field: "wltsmc", Value: s.WltSMC, Reason: fmt.Sprintf("exceeds maxsmc=%g", s.MaxSMC)}
	case s.SatPsi == 0:
		return &ConfigError{Field: "satpsi", Value: s.SatPsi, Reason: "must be positive"}
	case s.B == 0:
		return &ConfigError{Field: "b", Value: s.B, Reason: "must be positive"}
	case s.B == 1:
		return &ConfigError{Field: "b", Value: s.B, Reason: "field capacity integral is singular at b=1"}
	case headAboveWaterTable(s.AlphaFC) <= 0.5:
		return &ConfigError{Field: "alpha_fc", Value: s.AlphaFC, Reason: "suction head must exceed 0.5 m"}
	}
	return nil
}

// Spec returns a copy of the primary parameters.
func (p Params) Spec() ParamsSpec { return p.spec }

// MaxSoilStorage is SoilDepth * MaxSMC (m).
func (p Params) MaxSoilStorage() float64 { return p.maxSoilStorage }

// Cschaake is the soil-adjusted Schaake partitioning constant.
func (p Params) Cschaake() float64 { return p.cschaake }

// MaxLateralFlow is the maximum subsurface lateral flow velocity (m/s).
func (p Params) MaxLateralFlow() float64 { return p.maxLateralFlow }

func (p Params) NashN() int { return p.spec.NashN }

func (p Params) MaxGroundwaterStorage() float64 { return p.spec.MaxGroundwaterStorage }

// MaxGroundwaterVelocity is the groundwater outlet velocity at full storage.
func (p Params) MaxGroundwaterVelocity() float64 {
	return p.spec.Cgw * (math.Exp(p.spec.Expon) - 1)
}

// ZeroState returns an empty state shaped for p.
func (p Params) ZeroState() State {
	return NewState(0, 0, p.spec.NashN)
}

// CheckState reports whether s fits p: cascade length and storage bounds.
func (p Params) CheckState(s State) error {
	if len(s.Cascade) != p.spec.NashN {
		return &ConfigError{Field: "cascade", Value: float64(len(s.Cascade)), Reason: fmt.Sprintf("want %d stages", p.spec.NashN)}
	}
	if !within(s.Soil, p.maxSoilStorage) {
		return &ConfigError{Field: "soil_storage", Value: s.Soil, Reason: fmt.Sprintf("outside [0, %g]", p.maxSoilStorage)}
	}
	if !within(s.Groundwater, p.spec.MaxGroundwaterStorage) {
		return &ConfigError{Field: "groundwater_storage", Value: s.Groundwater, Reason: fmt.Sprintf("outside [0, %g]", p.spec.MaxGroundwaterStorage)}
	}
	for i, c := range s.Cascade {
		if !within(c, p.maxSoilStorage) {
			return &ConfigError{Field: fmt.Sprintf("cascade[%d]", i), Value: c, Reason: fmt.Sprintf("outside [0, %g]", p.maxSoilStorage)}
		}
	}
	return nil
}

func within(v, max float64) bool {
	return v >= 0 && v <= max
}

package config

import (
	"sort"

	"github.com/san-kum/tshirt/internal/tshirt"
)

// Soil holds the texture-dependent primaries of a NOAH soil class.
type Soil struct {
	MaxSMC float64
	WltSMC float64
	SatDK  float64
	SatPsi float64
	B      float64
}

// Soils lists NOAH SOILPARM texture classes by name.
var Soils = map[string]Soil{
	"sand":       {MaxSMC: 0.339, WltSMC: 0.010, SatDK: 4.66e-5, SatPsi: 0.069, B: 2.79},
	"loamy_sand": {MaxSMC: 0.421, WltSMC: 0.028, SatDK: 1.41e-5, SatPsi: 0.036, B: 4.26},
	"sandy_loam": {MaxSMC: 0.434, WltSMC: 0.047, SatDK: 5.23e-6, SatPsi: 0.141, B: 4.74},
	"silt_loam":  {MaxSMC: 0.476, WltSMC: 0.084, SatDK: 2.81e-6, SatPsi: 0.759, B: 5.33},
	"loam":       {MaxSMC: 0.439, WltSMC: 0.066, SatDK: 3.38e-6, SatPsi: 0.355, B: 5.25},
	"clay":       {MaxSMC: 0.468, WltSMC: 0.138, SatDK: 9.74e-7, SatPsi: 0.468, B: 11.55},
}

// spec fills the routing parameters shared by every preset.
func (s Soil) spec() tshirt.ParamsSpec {
	return tshirt.ParamsSpec{
		MaxSMC:                s.MaxSMC,
		WltSMC:                s.WltSMC,
		SatDK:                 s.SatDK,
		SatPsi:                s.SatPsi,
		Slope:                 0.1,
		B:                     s.B,
		Multiplier:            100.0,
		AlphaFC:               0.33,
		Klf:                   1e-6,
		Kn:                    3e-6,
		NashN:                 2,
		Cgw:                   1e-8,
		Expon:                 6.0,
		MaxGroundwaterStorage: 0.05,
	}
}

var scenarios = map[string]func(*Config){
	// a day of steady rain over a dry column, then ten days of drainage
	"storm": func(c *Config) {
		c.Steps = 240
		c.Forcing = ForcingConfig{Precip: 1e-5, PET: 5e-8, RainSteps: 24}
	},
	// a wet column drying out under summer demand
	"drydown": func(c *Config) {
		c.Steps = 720
		c.Initial.Soil = 0.8 * c.Params.MaxSMC * tshirt.SoilDepth
		c.Initial.Groundwater = 0.02
		c.Forcing = ForcingConfig{PET: 1.5e-7}
	},
	// short intense burst routed through a three-hour unit hydrograph
	"flash": func(c *Config) {
		c.Dt = 900
		c.Steps = 192
		c.Forcing = ForcingConfig{Precip: 8e-5, PET: 5e-8, RainSteps: 4}
		c.Hydrograph = HydrographConfig{
			Times:      []float64{0, 3600, 7200, 10800},
			Cumulative: []float64{0, 0.5, 0.85, 1},
		}
	},
}

// Presets maps soil class to scenario name to a ready-to-run configuration.
var Presets = buildPresets()

func buildPresets() map[string]map[string]*Config {
	out := make(map[string]map[string]*Config, len(Soils))
	for soil, s := range Soils {
		out[soil] = make(map[string]*Config, len(scenarios))
		for name, apply := range scenarios {
			cfg := DefaultConfig()
			cfg.Name = soil + "/" + name
			cfg.Soil = soil
			cfg.Params = s.spec()
			apply(cfg)
			out[soil][name] = cfg
		}
	}
	return out
}

// GetPreset returns a copy of a preset, or nil if it does not exist.
func GetPreset(soil, preset string) *Config {
	soilPresets, ok := Presets[soil]
	if !ok {
		return nil
	}
	cfg, ok := soilPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	c.Initial.Cascade = append([]float64(nil), cfg.Initial.Cascade...)
	c.Hydrograph.Times = append([]float64(nil), cfg.Hydrograph.Times...)
	c.Hydrograph.Cumulative = append([]float64(nil), cfg.Hydrograph.Cumulative...)
	c.Hydrograph.Ordinates = append([]float64(nil), cfg.Hydrograph.Ordinates...)
	return &c
}

func ListPresets(soil string) []string {
	soilPresets, ok := Presets[soil]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(soilPresets))
	for name := range soilPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func ListSoils() []string {
	names := make([]string, 0, len(Soils))
	for name := range Soils {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

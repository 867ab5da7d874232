package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/tshirt/internal/et"
	"github.com/san-kum/tshirt/internal/giuh"
	"github.com/san-kum/tshirt/internal/tshirt"
)

const (
	DefaultDt        = 3600.0
	DefaultSteps     = 240
	DefaultPrecip    = 1e-5
	DefaultRainSteps = 24
	DefaultPET       = 5e-8
	DefaultETB       = 1.0
)

type Config struct {
	Name        string            `yaml:"name"`
	Soil        string            `yaml:"soil,omitempty"`
	Params      tshirt.ParamsSpec `yaml:"params"`
	Initial     InitialConfig     `yaml:"initial"`
	Dt          float64           `yaml:"dt"`
	Steps       int               `yaml:"steps"`
	Forcing     ForcingConfig     `yaml:"forcing"`
	ET          ETConfig          `yaml:"et"`
	Hydrograph  HydrographConfig  `yaml:"hydrograph"`
	MassBalance MassBalanceConfig `yaml:"mass_balance"`
}

type InitialConfig struct {
	Soil        float64   `yaml:"soil"`
	Groundwater float64   `yaml:"groundwater"`
	Cascade     []float64 `yaml:"cascade,omitempty"`
}

// ForcingConfig selects a CSV forcing file, or a synthetic storm of
// Precip m/s lasting RainSteps steps when Path is empty.
type ForcingConfig struct {
	Path      string  `yaml:"path,omitempty"`
	Precip    float64 `yaml:"precip"`
	PET       float64 `yaml:"pet"`
	RainSteps int     `yaml:"rain_steps"`
}

type ETConfig struct {
	B float64 `yaml:"b"`
	// MaxStorage of zero uses the soil column's maximum storage.
	MaxStorage float64 `yaml:"max_storage,omitempty"`
}

// HydrographConfig holds either explicit ordinates or a cumulative
// frequency table. Neither means no routing delay.
type HydrographConfig struct {
	Ordinates  []float64 `yaml:"ordinates,omitempty"`
	Times      []float64 `yaml:"times,omitempty"`
	Cumulative []float64 `yaml:"cumulative,omitempty"`
}

type MassBalanceConfig struct {
	Absolute float64 `yaml:"absolute"`
	Relative float64 `yaml:"relative"`
	Strict   bool    `yaml:"strict"`
}

func DefaultConfig() *Config {
	tol := tshirt.DefaultTolerance()
	return &Config{
		Name:   "default",
		Soil:   "loam",
		Params: Soils["loam"].spec(),
		Dt:     DefaultDt,
		Steps:  DefaultSteps,
		Forcing: ForcingConfig{
			Precip:    DefaultPrecip,
			PET:       DefaultPET,
			RainSteps: DefaultRainSteps,
		},
		ET: ETConfig{B: DefaultETB},
		MassBalance: MassBalanceConfig{
			Absolute: tol.Absolute,
			Relative: tol.Relative,
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadOnto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOnto reads the YAML file at path over base. Fields the file leaves
// out keep their value in base.
func LoadOnto(path string, base *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the run settings. Parameter domains are checked by
// BuildParams.
func (c *Config) Validate() error {
	var errs []error
	if !(c.Dt > 0) {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", c.Dt))
	}
	if c.Forcing.Path == "" && c.Steps <= 0 {
		errs = append(errs, fmt.Errorf("steps must be positive without a forcing file, got %d", c.Steps))
	}
	if c.Forcing.Precip < 0 || c.Forcing.PET < 0 {
		errs = append(errs, errors.New("forcing rates must be non-negative"))
	}
	if !(c.ET.B > 0) {
		errs = append(errs, fmt.Errorf("et b must be positive, got %g", c.ET.B))
	}
	if c.MassBalance.Absolute < 0 || c.MassBalance.Relative < 0 {
		errs = append(errs, errors.New("mass balance tolerances must be non-negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", tshirt.ErrConfig, err)
	}
	return nil
}

func (c *Config) BuildParams() (tshirt.Params, error) {
	return tshirt.NewParams(c.Params)
}

// InitialState returns the configured starting state. An empty cascade
// list means every stage starts empty.
func (c *Config) InitialState(p tshirt.Params) (tshirt.State, error) {
	s := tshirt.NewState(c.Initial.Soil, c.Initial.Groundwater, p.NashN())
	if len(c.Initial.Cascade) > 0 {
		s.Cascade = append([]float64(nil), c.Initial.Cascade...)
	}
	if err := p.CheckState(s); err != nil {
		return tshirt.State{}, err
	}
	return s, nil
}

// BuildHydrograph returns the unit hydrograph kernel for the run's step length.
func (c *Config) BuildHydrograph() (*giuh.Kernel, error) {
	h := c.Hydrograph
	switch {
	case len(h.Ordinates) > 0:
		return giuh.New(h.Ordinates)
	case len(h.Times) > 0:
		return giuh.FromCDF(h.Times, h.Cumulative, c.Dt)
	default:
		return giuh.Identity(), nil
	}
}

func (c *Config) Collaborators() (tshirt.Collaborators, error) {
	k, err := c.BuildHydrograph()
	if err != nil {
		return tshirt.Collaborators{}, &tshirt.ConfigError{Field: "hydrograph", Reason: err.Error()}
	}
	parts := tshirt.DefaultCollaborators()
	parts.Hydrograph = k
	return parts, nil
}

// ETFor converts a PET rate in m/s into the per-step ET configuration.
func (c *Config) ETFor(p tshirt.Params, pet float64) et.Config {
	maxStorage := c.ET.MaxStorage
	if maxStorage == 0 {
		maxStorage = p.MaxSoilStorage()
	}
	return et.Config{PET: pet * c.Dt, MaxStorage: maxStorage, B: c.ET.B}
}

func (c *Config) Tolerance() tshirt.Tolerance {
	return tshirt.Tolerance{Absolute: c.MassBalance.Absolute, Relative: c.MassBalance.Relative}
}

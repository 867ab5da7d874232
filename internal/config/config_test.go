package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/tshirt/internal/tshirt"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Soil != "loam" {
		t.Errorf("expected soil loam, got %s", cfg.Soil)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Steps <= 0 {
		t.Error("steps should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if _, err := cfg.BuildParams(); err != nil {
		t.Errorf("default params should build: %v", err)
	}
	if cfg.Tolerance() != tshirt.DefaultTolerance() {
		t.Errorf("expected default tolerance, got %+v", cfg.Tolerance())
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := GetPreset("clay", "flash")
	cfg.MassBalance.Strict = true
	if err := Save(path, cfg); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.Params != cfg.Params {
		t.Errorf("params changed: %+v", loaded.Params)
	}
	if !loaded.MassBalance.Strict {
		t.Error("expected strict mass balance")
	}
	if len(loaded.Hydrograph.Times) != 4 {
		t.Errorf("expected 4 hydrograph times, got %d", len(loaded.Hydrograph.Times))
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("steps: 12\nparams:\n  maxsmc: 0.45\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Steps != 12 {
		t.Errorf("expected 12 steps, got %d", cfg.Steps)
	}
	if cfg.Params.MaxSMC != 0.45 {
		t.Errorf("expected maxsmc 0.45, got %f", cfg.Params.MaxSMC)
	}
	if cfg.Params.B != Soils["loam"].B {
		t.Errorf("expected default b, got %f", cfg.Params.B)
	}
	if cfg.Dt != DefaultDt {
		t.Errorf("expected default dt, got %f", cfg.Dt)
	}
}

func TestLoadOntoPreset(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("steps: 6\nparams:\n  slope: 0.2\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := GetPreset("clay", "flash")
	if err := LoadOnto(path, cfg); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Steps != 6 || cfg.Params.Slope != 0.2 {
		t.Errorf("file values not applied: steps=%d slope=%f", cfg.Steps, cfg.Params.Slope)
	}
	if cfg.Params.B != Soils["clay"].B || cfg.Soil != "clay" {
		t.Errorf("expected clay values to survive, got soil %q b=%f", cfg.Soil, cfg.Params.B)
	}
	if want := GetPreset("clay", "flash").Dt; cfg.Dt != want {
		t.Errorf("expected preset dt %g, got %g", want, cfg.Dt)
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("steps: [1, 2"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for malformed yaml")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"no steps", func(c *Config) { c.Steps = 0 }},
		{"negative precip", func(c *Config) { c.Forcing.Precip = -1 }},
		{"zero et shape", func(c *Config) { c.ET.B = 0 }},
		{"negative tolerance", func(c *Config) { c.MassBalance.Relative = -1e-9 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			if err := cfg.Validate(); !errors.Is(err, tshirt.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Steps = 0
	cfg.Forcing.Path = "forcing.csv"
	if err := cfg.Validate(); err != nil {
		t.Errorf("a forcing file sets the run length: %v", err)
	}
}

func TestInitialState(t *testing.T) {
	cfg := DefaultConfig()
	p, err := cfg.BuildParams()
	if err != nil {
		t.Fatal(err)
	}

	s, err := cfg.InitialState(p)
	if err != nil {
		t.Fatalf("initial state: %v", err)
	}
	if len(s.Cascade) != p.NashN() {
		t.Errorf("expected %d stages, got %d", p.NashN(), len(s.Cascade))
	}

	cfg.Initial.Cascade = []float64{0.1}
	if _, err := cfg.InitialState(p); !errors.Is(err, tshirt.ErrConfig) {
		t.Errorf("expected ErrConfig for short cascade, got %v", err)
	}

	cfg.Initial.Cascade = nil
	cfg.Initial.Soil = 5
	if _, err := cfg.InitialState(p); !errors.Is(err, tshirt.ErrConfig) {
		t.Errorf("expected ErrConfig for overfull soil, got %v", err)
	}
}

func TestBuildHydrograph(t *testing.T) {
	cfg := DefaultConfig()

	k, err := cfg.BuildHydrograph()
	if err != nil {
		t.Fatal(err)
	}
	if len(k.Ordinates()) != 1 {
		t.Errorf("expected identity kernel, got %v", k.Ordinates())
	}

	cfg.Hydrograph.Ordinates = []float64{1, 3}
	k, err = cfg.BuildHydrograph()
	if err != nil {
		t.Fatal(err)
	}
	if o := k.Ordinates(); math.Abs(o[0]-0.25) > 1e-15 {
		t.Errorf("expected normalised ordinates, got %v", o)
	}

	flash := GetPreset("loam", "flash")
	k, err = flash.BuildHydrograph()
	if err != nil {
		t.Fatal(err)
	}
	if n := len(k.Ordinates()); n != 12 {
		t.Errorf("expected 12 ordinates for 15 minute steps, got %d", n)
	}

	flash.Hydrograph.Cumulative = []float64{0, 1}
	if _, err := flash.Collaborators(); !errors.Is(err, tshirt.ErrConfig) {
		t.Errorf("expected ErrConfig, got %v", err)
	}
}

func TestETFor(t *testing.T) {
	cfg := DefaultConfig()
	p, _ := cfg.BuildParams()

	e := cfg.ETFor(p, 1e-7)
	if math.Abs(e.PET-1e-7*cfg.Dt) > 1e-18 {
		t.Errorf("expected PET depth %g, got %g", 1e-7*cfg.Dt, e.PET)
	}
	if e.MaxStorage != p.MaxSoilStorage() {
		t.Errorf("expected max storage %g, got %g", p.MaxSoilStorage(), e.MaxStorage)
	}

	cfg.ET.MaxStorage = 0.3
	if e := cfg.ETFor(p, 0); e.MaxStorage != 0.3 {
		t.Errorf("expected override 0.3, got %g", e.MaxStorage)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("sand", "drydown")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params.B != 2.79 {
		t.Errorf("expected b 2.79, got %f", cfg.Params.B)
	}
	if cfg.Forcing.Precip != 0 {
		t.Errorf("expected no rain, got %g", cfg.Forcing.Precip)
	}

	cfg.Params.B = 99
	if Presets["sand"]["drydown"].Params.B == 99 {
		t.Error("GetPreset returned the shared preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("sand", "nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if cfg := GetPreset("nonexistent", "storm"); cfg != nil {
		t.Error("expected nil for nonexistent soil")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets("clay")
	if len(presets) != 3 || presets[0] != "drydown" {
		t.Errorf("expected sorted presets, got %v", presets)
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent soil")
	}
}

func TestAllPresetsBuild(t *testing.T) {
	for _, soil := range ListSoils() {
		for _, name := range ListPresets(soil) {
			cfg := GetPreset(soil, name)
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", soil, name, err)
				continue
			}
			p, err := cfg.BuildParams()
			if err != nil {
				t.Errorf("%s/%s: %v", soil, name, err)
				continue
			}
			if _, err := cfg.InitialState(p); err != nil {
				t.Errorf("%s/%s: %v", soil, name, err)
			}
			if _, err := cfg.Collaborators(); err != nil {
				t.Errorf("%s/%s: %v", soil, name, err)
			}
		}
	}
}

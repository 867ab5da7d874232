package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/san-kum/tshirt/internal/config"
	"github.com/san-kum/tshirt/internal/tshirt"
)

func TestRunPreset(t *testing.T) {
	cfg := config.GetPreset("loam", "storm")
	e, err := New(cfg)
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if err := e.Setup(); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	result, err := e.Run(context.Background())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if result.StepsTaken != cfg.Steps {
		t.Errorf("expected %d steps, got %d", cfg.Steps, result.StepsTaken)
	}
	if len(result.Errors) != 0 {
		t.Errorf("expected a closed budget, got %v", result.Errors)
	}
	for _, name := range []string{"mass_residual", "peak_discharge", "runoff_ratio", "total_et", "overflow", "saturation"} {
		if _, ok := result.Metrics[name]; !ok {
			t.Errorf("missing metric %s", name)
		}
	}
	if r := result.Metrics["runoff_ratio"]; r < 0 || r > 1 {
		t.Errorf("runoff ratio %g outside [0, 1]", r)
	}
}

func TestSetupStartsOver(t *testing.T) {
	e, err := New(config.GetPreset("sandy_loam", "flash"))
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}

	run := func() []tshirt.Fluxes {
		if err := e.Setup(); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
		result, err := e.Run(context.Background())
		if err != nil {
			t.Fatalf("run failed: %v", err)
		}
		return result.Fluxes
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second run differs (-first +second):\n%s", diff)
	}
}

func TestRunWithoutSetup(t *testing.T) {
	e, err := New(config.DefaultConfig())
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if _, err := e.Run(context.Background()); err == nil {
		t.Error("expected an error before setup")
	}
}

func TestNewRejectsConfig(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*config.Config)
	}{
		{"zero dt", func(c *config.Config) { c.Dt = 0 }},
		{"bad params", func(c *config.Config) { c.Params.B = 1 }},
		{"overfull soil", func(c *config.Config) { c.Initial.Soil = 10 }},
		{"bad hydrograph", func(c *config.Config) { c.Hydrograph.Ordinates = []float64{-1} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mod(cfg)

			e, err := New(cfg)
			if err == nil {
				err = e.Setup()
			}
			if !errors.Is(err, tshirt.ErrConfig) {
				t.Errorf("expected ErrConfig, got %v", err)
			}
		})
	}
}

func TestSeriesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forcing.csv")
	data := "time,precip,pet\n0,1e-5,0\n3600,2e-5,0\n7200,0,1e-8\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Forcing.Path = path

	cfg.Steps = 2
	s, err := Series(cfg)
	if err != nil {
		t.Fatalf("series failed: %v", err)
	}
	if len(s) != 2 {
		t.Errorf("expected 2 records, got %d", len(s))
	}

	cfg.Steps = 0
	s, err = Series(cfg)
	if err != nil {
		t.Fatalf("series failed: %v", err)
	}
	if len(s) != 3 || s[2].PET != 1e-8 {
		t.Errorf("unexpected series %+v", s)
	}

	cfg.Dt = 900
	if _, err := Series(cfg); !errors.Is(err, tshirt.ErrConfig) {
		t.Errorf("expected ErrConfig for mismatched spacing, got %v", err)
	}
}

func TestSeriesSynthetic(t *testing.T) {
	cfg := config.DefaultConfig()
	s, err := Series(cfg)
	if err != nil {
		t.Fatalf("series failed: %v", err)
	}
	if len(s) != cfg.Steps {
		t.Fatalf("expected %d records, got %d", cfg.Steps, len(s))
	}
	if s[0].Precip != cfg.Forcing.Precip || s[cfg.Forcing.RainSteps].Precip != 0 {
		t.Errorf("storm shape wrong: first %+v, after rain %+v", s[0], s[cfg.Forcing.RainSteps])
	}
}

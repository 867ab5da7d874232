package storage

import (
	"context"
	"testing"

	"github.com/san-kum/tshirt/internal/et"
	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/sim"
	"github.com/san-kum/tshirt/internal/tshirt"
)

func testSpec() tshirt.ParamsSpec {
	return tshirt.ParamsSpec{
		MaxSMC: 0.439, WltSMC: 0.066, SatDK: 3.38e-6, SatPsi: 0.355, Slope: 0.1,
		B: 5.25, Multiplier: 100, AlphaFC: 0.33, Klf: 1e-6, Kn: 3e-6, NashN: 2,
		Cgw: 1e-8, Expon: 6, MaxGroundwaterStorage: 0.05,
	}
}

func testResult(t *testing.T, steps int) *sim.Result {
	t.Helper()
	p, err := tshirt.NewParams(testSpec())
	if err != nil {
		t.Fatal(err)
	}
	m, err := tshirt.NewModel(p, p.ZeroState(), tshirt.DefaultCollaborators())
	if err != nil {
		t.Fatal(err)
	}

	cfg := sim.Config{
		Dt:        3600,
		ET:        et.Config{MaxStorage: p.MaxSoilStorage(), B: 1},
		Tolerance: tshirt.DefaultTolerance(),
	}
	result, err := sim.New(m).Run(context.Background(), forcing.Storm(3600, steps, 1e-5, 5e-8, steps/2), cfg)
	if err != nil {
		t.Fatal(err)
	}
	result.Metrics["runoff_ratio"] = 0.25
	return result
}

package tshirt

import (
	"testing"

	"github.com/san-kum/tshirt/internal/et"
)

func scenarioSpec() ParamsSpec {
	return ParamsSpec{
		MaxSMC:                0.439,
		WltSMC:                0.066,
		SatDK:                 1e-6,
		SatPsi:                0.355,
		Slope:                 0.01,
		B:                     4.05,
		Multiplier:            0.0,
		AlphaFC:               0.33,
		Klf:                   0.01,
		Kn:                    0.03,
		NashN:                 2,
		Cgw:                   0.01,
		Expon:                 5.0,
		MaxGroundwaterStorage: 0.05,
	}
}

// activeSpec drains quickly enough for every outlet to run within a few
// days of heavy rain.
func activeSpec() ParamsSpec {
	s := scenarioSpec()
	s.SatDK = 2e-5
	s.Multiplier = 10
	s.Slope = 0.5
	s.Klf = 1e-5
	s.Kn = 1e-5
	s.NashN = 3
	s.Cgw = 1e-7
	s.MaxGroundwaterStorage = 0.02
	return s
}

func mustParams(t *testing.T, s ParamsSpec) Params {
	t.Helper()
	p, err := NewParams(s)
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	return p
}

func mustModel(t *testing.T, p Params, s State) *Model {
	t.Helper()
	m, err := NewModel(p, s, DefaultCollaborators())
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return m
}

func etFor(p Params, pet float64) et.Config {
	return et.Config{PET: pet, MaxStorage: p.MaxSoilStorage(), B: 1}
}

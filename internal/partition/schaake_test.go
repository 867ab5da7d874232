package partition

import (
	"math"
	"math/rand"
	"testing"
)

func TestSchaakeConservesInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 2000; i++ {
		dt := 60 + rng.Float64()*86400
		constant := rng.Float64() * 50
		deficit := rng.Float64()
		input := rng.Float64() * 1e-4

		runoff, inf := Schaake(dt, constant, deficit, input)

		if runoff < 0 || inf < 0 {
			t.Fatalf("negative output: runoff=%g infiltration=%g", runoff, inf)
		}
		if runoff+inf != input {
			t.Fatalf("case %d: runoff+infiltration=%g, want %g", i, runoff+inf, input)
		}
	}
}

func TestSchaakeEdgeCases(t *testing.T) {
	tests := []struct {
		name       string
		constant   float64
		deficit    float64
		input      float64
		wantRunoff float64
		wantInf    float64
	}{
		{"no input", 1.5, 0.5, 0, 0, 0},
		{"saturated column", 1.5, -0.01, 1e-5, 1e-5, 0},
		{"impermeable soil", 0, 0.5, 1e-5, 1e-5, 0},
		{"no deficit", 1.5, 0, 1e-5, 1e-5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runoff, inf := Schaake(3600, tt.constant, tt.deficit, tt.input)
			if runoff != tt.wantRunoff || inf != tt.wantInf {
				t.Errorf("expected (%g, %g), got (%g, %g)", tt.wantRunoff, tt.wantInf, runoff, inf)
			}
		})
	}
}

func TestSchaakeReference(t *testing.T) {
	// loam-like column, one hour of 1e-5 m/s rain
	runoff, inf := Schaake(3600, 1.5, 0.878, 1e-5)

	ic := 0.878 * (1 - math.Exp(-1.5/24))
	wantInf := 0.036 * ic / (0.036 + ic) / 3600

	if math.Abs(inf-wantInf) > 1e-18 {
		t.Errorf("expected infiltration %g, got %g", wantInf, inf)
	}
	if runoff <= 0 {
		t.Errorf("expected some runoff, got %g", runoff)
	}
}

package sim

import (
	"fmt"

	"github.com/san-kum/tshirt/internal/et"
	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/tshirt"
)

// Step describes one completed model step.
type Step struct {
	Index   int
	Time    float64 // seconds at the start of the step
	Dt      float64
	Forcing forcing.Record
	Prev    tshirt.State
	Result  tshirt.Result
	Balance tshirt.MassBalance
}

type Metric interface {
	Name() string
	Observe(s Step)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Step)
}

type Config struct {
	Dt float64
	// ET shapes the moisture-stress curve. Its PET is replaced each step by
	// the forcing rate times Dt.
	ET                et.Config
	Tolerance         tshirt.Tolerance
	StrictMassBalance bool
}

type Result struct {
	Times    []float64
	States   []tshirt.State
	Fluxes   []tshirt.Fluxes
	Forcing  forcing.Series
	Balances []tshirt.MassBalance
	Metrics  map[string]float64

	StepsTaken int
	// Errors holds advisory mass-balance violations.
	Errors []error
}

// RunError locates a failure within a run.
type RunError struct {
	Step int
	Time float64
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("step %d (t=%gs): %v", e.Step, e.Time, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }

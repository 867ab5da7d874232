// Package experiment assembles a run from a configuration: parameters,
// initial state, forcing and a simulator with the standard metrics.
package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/tshirt/internal/config"
	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/metrics"
	"github.com/san-kum/tshirt/internal/sim"
	"github.com/san-kum/tshirt/internal/tshirt"
)

type Experiment struct {
	cfg       *config.Config
	params    tshirt.Params
	initial   tshirt.State
	series    forcing.Series
	simulator *sim.Simulator
	extra     []sim.Metric
}

// New validates cfg and resolves its parameters, initial state and
// forcing. Call Setup before Run.
func New(cfg *config.Config) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := cfg.BuildParams()
	if err != nil {
		return nil, err
	}
	initial, err := cfg.InitialState(p)
	if err != nil {
		return nil, err
	}
	series, err := Series(cfg)
	if err != nil {
		return nil, err
	}
	return &Experiment{
		cfg:     cfg,
		params:  p,
		initial: initial,
		series:  series,
	}, nil
}

// Series returns the forcing a configuration describes: the CSV file at
// Forcing.Path, cut to Steps records when Steps is positive, or a
// synthetic storm.
func Series(cfg *config.Config) (forcing.Series, error) {
	f := cfg.Forcing
	if f.Path == "" {
		return forcing.Storm(cfg.Dt, cfg.Steps, f.Precip, f.PET, f.RainSteps), nil
	}

	s, err := forcing.Load(f.Path)
	if err != nil {
		return nil, err
	}
	if cfg.Steps > 0 && cfg.Steps < len(s) {
		s = s[:cfg.Steps]
	}
	if d, ok := s.Dt(); ok && math.Abs(d-cfg.Dt) > 1e-9*cfg.Dt {
		return nil, &tshirt.ConfigError{
			Field:  "dt",
			Value:  cfg.Dt,
			Reason: fmt.Sprintf("forcing %s is spaced %gs apart", f.Path, d),
		}
	}
	return s, nil
}

// Setup builds a fresh model from the initial state and attaches the
// standard metrics plus any extras. Calling it again starts over.
func (e *Experiment) Setup(extra ...sim.Metric) error {
	parts, err := e.cfg.Collaborators()
	if err != nil {
		return err
	}
	model, err := tshirt.NewModel(e.params, e.initial, parts)
	if err != nil {
		return err
	}

	if extra != nil {
		e.extra = extra
	}
	e.simulator = sim.New(model)
	for _, m := range metrics.Standard(e.params.MaxSoilStorage()) {
		e.simulator.AddMetric(m)
	}
	for _, m := range e.extra {
		m.Reset()
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.series, e.SimConfig())
}

// SimConfig is the per-run simulator configuration. Its ET PET is
// replaced by each forcing record.
func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:                e.cfg.Dt,
		ET:                e.cfg.ETFor(e.params, 0),
		Tolerance:         e.cfg.Tolerance(),
		StrictMassBalance: e.cfg.MassBalance.Strict,
	}
}

// GetSimulator returns the underlying simulator for adding observers.
func (e *Experiment) GetSimulator() *sim.Simulator { return e.simulator }

func (e *Experiment) Config() *config.Config  { return e.cfg }
func (e *Experiment) Params() tshirt.Params   { return e.params }
func (e *Experiment) Initial() tshirt.State   { return e.initial.Clone() }
func (e *Experiment) Forcing() forcing.Series { return e.series }

package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/tshirt/internal/forcing"
	"github.com/san-kum/tshirt/internal/logging"
	"github.com/san-kum/tshirt/internal/tshirt"
)

// Simulator drives a model through a forcing series, checking the water
// budget after every step.
type Simulator struct {
	model     *tshirt.Model
	metrics   []Metric
	observers []Observer
}

func New(model *tshirt.Model) *Simulator {
	return &Simulator{
		model:     model,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Model() *tshirt.Model { return s.model }

func (s *Simulator) Run(ctx context.Context, series forcing.Series, cfg Config) (*Result, error) {
	if err := s.Validate(series, cfg); err != nil {
		return nil, err
	}

	n := len(series)
	result := &Result{
		Times:    make([]float64, 0, n+1),
		States:   make([]tshirt.State, 0, n+1),
		Fluxes:   make([]tshirt.Fluxes, 0, n),
		Forcing:  series,
		Balances: make([]tshirt.MassBalance, 0, n),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	t0 := series[0].Time
	result.Times = append(result.Times, t0)
	result.States = append(result.States, s.model.Current())

	err := s.loop(ctx, series, cfg, func(st Step) bool {
		result.StepsTaken++
		result.Times = append(result.Times, st.Time+st.Dt)
		result.States = append(result.States, st.Result.State)
		result.Fluxes = append(result.Fluxes, st.Result.Fluxes)
		result.Balances = append(result.Balances, st.Balance)
		if berr := st.Balance.Err(); berr != nil {
			result.Errors = append(result.Errors, &RunError{Step: st.Index, Time: st.Time, Err: berr})
		}
		return true
	})

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	return result, err
}

// RunWithCallback advances the model one forcing record at a time and
// stops early when callback returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, series forcing.Series, cfg Config, callback func(Step) bool) error {
	if err := s.Validate(series, cfg); err != nil {
		return err
	}
	return s.loop(ctx, series, cfg, callback)
}

func (s *Simulator) loop(ctx context.Context, series forcing.Series, cfg Config, callback func(Step) bool) error {
	for i, rec := range series {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		st, err := s.Advance(ctx, i, rec, cfg)
		if errors.Is(err, tshirt.ErrMassBalance) {
			// the model has taken the step, so it is still recorded
			callback(st)
			return err
		}
		if err != nil {
			return err
		}
		if !callback(st) {
			return nil
		}
	}
	return nil
}

// Advance runs a single step of index i with forcing rec, checks its water
// budget and notifies metrics and observers. Callers driving the model
// interactively use it in place of Run. A strict mass balance failure is
// returned together with the step, after metrics and observers have seen it.
func (s *Simulator) Advance(ctx context.Context, i int, rec forcing.Record, cfg Config) (Step, error) {
	logger := logging.FromContext(ctx)

	etCfg := cfg.ET
	etCfg.PET = rec.PET * cfg.Dt

	prev := s.model.Current()
	res, err := s.model.Run(cfg.Dt, rec.Precip, etCfg)
	if err != nil {
		return Step{}, &RunError{Step: i, Time: rec.Time, Err: err}
	}

	bal := tshirt.CheckMassBalance(s.model.Params(), prev, rec.Precip, res.State, res.Fluxes, cfg.Dt, cfg.Tolerance)
	st := Step{
		Index:   i,
		Time:    rec.Time,
		Dt:      cfg.Dt,
		Forcing: rec,
		Prev:    prev,
		Result:  res,
		Balance: bal,
	}

	logger.Debug("step",
		"step", i,
		"soil", res.State.Soil,
		"groundwater", res.State.Groundwater,
		"runoff", res.Fluxes.SurfaceRunoff,
		"residual", bal.Residual)

	if berr := bal.Err(); berr != nil {
		logger.Warn("mass balance not closed",
			"step", i,
			"residual", bal.Residual,
			"allowed", bal.Allowed)
	}

	for _, m := range s.metrics {
		m.Observe(st)
	}
	for _, obs := range s.observers {
		obs.OnStep(st)
	}

	if berr := bal.Err(); berr != nil && cfg.StrictMassBalance {
		return st, &RunError{Step: i, Time: rec.Time, Err: berr}
	}
	return st, nil
}

// Validate checks cfg against series before any step is taken.
func (s *Simulator) Validate(series forcing.Series, cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", tshirt.ErrInvalidInput, cfg.Dt)
	}
	if len(series) == 0 {
		return fmt.Errorf("%w: empty forcing series", tshirt.ErrInvalidInput)
	}
	if cfg.Tolerance.Absolute < 0 || cfg.Tolerance.Relative < 0 {
		return fmt.Errorf("%w: negative mass balance tolerance", tshirt.ErrConfig)
	}
	if err := cfg.ET.Validate(); err != nil {
		return fmt.Errorf("%w: %w", tshirt.ErrConfig, err)
	}
	return nil
}

package tshirt

import (
	"errors"
	"fmt"
)

// Domain errors for model construction and stepping.
var (
	// ErrConfig indicates a parameter or state outside its valid domain.
	ErrConfig = errors.New("tshirt: invalid configuration")

	// ErrInvalidInput indicates a time step or input flux that cannot be used.
	ErrInvalidInput = errors.New("tshirt: invalid step input")

	// ErrNumerical indicates a step produced NaN or Inf.
	ErrNumerical = errors.New("tshirt: numerical failure")

	// ErrMassBalance indicates a step whose water balance does not close.
	ErrMassBalance = errors.New("tshirt: mass balance violated")
)

// ConfigError names the offending parameter.
type ConfigError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("tshirt: invalid %s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// StepError wraps a failed step with the stage that failed.
type StepError struct {
	Stage   string
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Wrapped)
}

func (e *StepError) Unwrap() error { return e.Wrapped }

// Status is the outcome of constructing a model or running a step.
type Status int

const (
	StatusOK Status = iota
	StatusConfigError
	StatusInputError
	StatusNumericalError
	StatusMassBalanceError
	StatusUnknownError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusConfigError:
		return "config_error"
	case StatusInputError:
		return "input_error"
	case StatusNumericalError:
		return "numerical_error"
	case StatusMassBalanceError:
		return "mass_balance_error"
	default:
		return "unknown_error"
	}
}

// StatusOf classifies err.
func StatusOf(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrConfig):
		return StatusConfigError
	case errors.Is(err, ErrInvalidInput):
		return StatusInputError
	case errors.Is(err, ErrNumerical):
		return StatusNumericalError
	case errors.Is(err, ErrMassBalance):
		return StatusMassBalanceError
	default:
		return StatusUnknownError
	}
}

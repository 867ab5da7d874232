// Package et computes actual evapotranspiration losses from a soil store.
package et

import (
	"errors"
	"fmt"
	"math"
)

// ErrConfig indicates evapotranspiration settings outside their domain.
var ErrConfig = errors.New("et: invalid configuration")

// Config carries the evaporative demand for one step and the shape of the
// moisture-stress curve.
type Config struct {
	// PET is the potential evapotranspiration depth for the step (m).
	PET float64 `yaml:"pet" json:"pet"`
	// MaxStorage is the store capacity at which ET runs at the potential
	// rate. Zero disables moisture stress.
	MaxStorage float64 `yaml:"max_storage" json:"max_storage"`
	// B shapes the probability-distributed capacity curve.
	B float64 `yaml:"b" json:"b"`
}

func (c Config) Validate() error {
	switch {
	case !(c.PET >= 0) || math.IsInf(c.PET, 0):
		return fmt.Errorf("%w: pet=%g", ErrConfig, c.PET)
	case !(c.MaxStorage >= 0):
		return fmt.Errorf("%w: max_storage=%g", ErrConfig, c.MaxStorage)
	case c.MaxStorage > 0 && !(c.B > 0):
		return fmt.Errorf("%w: b=%g must be positive", ErrConfig, c.B)
	}
	return nil
}

// PDM evaluates losses with the probability-distributed moisture store
// relation AET = PET * (1 - (1 - S/Smax)^B).
type PDM struct{}

// Loss returns the ET depth taken from a store holding storage metres.
// The result never exceeds storage.
func (PDM) Loss(storage float64, cfg Config) float64 {
	if !(storage > 0) || !(cfg.PET > 0) {
		return 0
	}

	ratio := 1.0
	if cfg.MaxStorage > 0 && storage < cfg.MaxStorage {
		ratio = 1 - math.Pow(1-storage/cfg.MaxStorage, cfg.B)
	}

	return math.Min(cfg.PET*ratio, storage)
}

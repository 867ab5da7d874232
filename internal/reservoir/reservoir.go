// Package reservoir implements bounded nonlinear storages with one or more
// outlets, advanced one time step at a time.
//
// A reservoir never leaves [min, max]. Inflow that cannot be held after
// every outlet has drained is reported as excess depth instead of being
// dropped, so callers can always close their water balance:
//
//	S(t) + in*dt == S(t+dt) + sum(v_i)*dt + excess
package reservoir

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var (
	// ErrBounds indicates storage limits or an initial storage that are inconsistent.
	ErrBounds = errors.New("reservoir: invalid storage bounds")

	// ErrNoOutlet indicates an outlet index that does not exist.
	ErrNoOutlet = errors.New("reservoir: no such outlet")
)

type Reservoir struct {
	min, max   float64
	storage    float64
	outlets    []Outlet
	order      []int
	velocities []float64
}

// Config is a snapshot of a reservoir's construction values and current storage.
type Config struct {
	Min     float64
	Max     float64
	Storage float64
	Outlets []Outlet
}

func New(min, max, initial float64, outlets ...Outlet) (*Reservoir, error) {
	if math.IsNaN(min) || math.IsNaN(max) || min > max {
		return nil, fmt.Errorf("%w: min=%g max=%g", ErrBounds, min, max)
	}
	if math.IsNaN(initial) || initial < min || initial > max {
		return nil, fmt.Errorf("%w: initial storage %g outside [%g, %g]", ErrBounds, initial, min, max)
	}

	r := &Reservoir{
		min:        min,
		max:        max,
		storage:    initial,
		outlets:    append([]Outlet(nil), outlets...),
		order:      make([]int, len(outlets)),
		velocities: make([]float64, len(outlets)),
	}
	for i := range r.order {
		r.order[i] = i
	}
	sort.SliceStable(r.order, func(a, b int) bool {
		return r.outlets[r.order[a]].ActivationThreshold() < r.outlets[r.order[b]].ActivationThreshold()
	})
	return r, nil
}

// Respond adds inflow*dt to storage, drains every outlet in ascending
// activation threshold and returns the summed outlet velocity together
// with the depth that overflowed the maximum storage.
func (r *Reservoir) Respond(inflow, dt float64) (velocity, excess float64) {
	r.storage += inflow * dt

	for _, i := range r.order {
		v := r.outlets[i].Velocity(r.storage, r.max)
		r.storage -= v * dt
		if r.storage < r.min {
			v -= (r.min - r.storage) / dt
			r.storage = r.min
		}
		r.velocities[i] = v
		velocity += v
	}

	if r.storage > r.max {
		excess = r.storage - r.max
		r.storage = r.max
	}
	return velocity, excess
}

func (r *Reservoir) Storage() float64 { return r.storage }

// SetStorage overwrites the storage height, clamped to the reservoir bounds.
func (r *Reservoir) SetStorage(h float64) {
	r.storage = math.Max(r.min, math.Min(h, r.max))
}

// OutletVelocity returns the velocity of outlet i from the last Respond
// call. Indices follow the order outlets were passed to New.
func (r *Reservoir) OutletVelocity(i int) (float64, error) {
	if i < 0 || i >= r.NumOutlets() {
		return 0, fmt.Errorf("%w: %d of %d", ErrNoOutlet, i, r.NumOutlets())
	}
	return r.velocities[i], nil
}

func (r *Reservoir) NumOutlets() int { return len(r.outlets) }

func (r *Reservoir) Config() Config {
	return Config{
		Min:     r.min,
		Max:     r.max,
		Storage: r.storage,
		Outlets: append([]Outlet(nil), r.outlets...),
	}
}

// Package giuh distributes instantaneous surface runoff over time with a
// geomorphological instantaneous unit hydrograph.
package giuh

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOrdinates indicates an unusable set of unit hydrograph ordinates.
	ErrOrdinates = errors.New("giuh: invalid ordinates")

	// ErrCDF indicates an unusable cumulative frequency table.
	ErrCDF = errors.New("giuh: invalid cumulative frequency table")
)

// Kernel holds unit hydrograph ordinates and the delay buffer of runoff
// still to be released. It is stateful and not safe for concurrent use.
type Kernel struct {
	ordinates []float64
	buffer    []float64
}

// New builds a kernel from per-step ordinates. Ordinates are normalised
// to sum to one.
func New(ordinates []float64) (*Kernel, error) {
	if len(ordinates) == 0 {
		return nil, fmt.Errorf("%w: empty", ErrOrdinates)
	}
	sum := 0.0
	for i, o := range ordinates {
		if o < 0 || math.IsNaN(o) || math.IsInf(o, 0) {
			return nil, fmt.Errorf("%w: ordinate %d is %g", ErrOrdinates, i, o)
		}
		sum += o
	}
	if sum <= 0 {
		return nil, fmt.Errorf("%w: ordinates sum to %g", ErrOrdinates, sum)
	}

	k := &Kernel{
		ordinates: make([]float64, len(ordinates)),
		buffer:    make([]float64, len(ordinates)),
	}
	for i, o := range ordinates {
		k.ordinates[i] = o / sum
	}
	return k, nil
}

// Identity returns a kernel that releases all runoff in the step it arrives.
func Identity() *Kernel {
	k, _ := New([]float64{1})
	return k
}

// FromCDF regularises a cumulative frequency table (times in seconds,
// fractions rising from 0 to 1) into ordinates for steps of dt seconds,
// interpolating linearly between table entries.
func FromCDF(times, cumulative []float64, dt float64) (*Kernel, error) {
	if len(times) != len(cumulative) || len(times) < 2 {
		return nil, fmt.Errorf("%w: need matching tables of at least two entries", ErrCDF)
	}
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: dt=%g", ErrCDF, dt)
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] || cumulative[i] < cumulative[i-1] {
			return nil, fmt.Errorf("%w: entry %d is not increasing", ErrCDF, i)
		}
	}

	end := times[len(times)-1]
	n := int(math.Ceil(end / dt))
	if n < 1 {
		n = 1
	}

	ordinates := make([]float64, n)
	prev := interpolate(times, cumulative, 0)
	for i := 0; i < n; i++ {
		next := interpolate(times, cumulative, float64(i+1)*dt)
		ordinates[i] = next - prev
		prev = next
	}
	return New(ordinates)
}

func interpolate(xs, ys []float64, x float64) float64 {
	if x <= xs[0] {
		return ys[0]
	}
	last := len(xs) - 1
	if x >= xs[last] {
		return ys[last]
	}
	i := 1
	for xs[i] < x {
		i++
	}
	frac := (x - xs[i-1]) / (xs[i] - xs[i-1])
	return ys[i-1] + frac*(ys[i]-ys[i-1])
}

// Convolve adds runoff (m/s) to the delay buffer spread over the ordinates
// and returns the rate released in this step. Ordinates are per step, so
// dt must be the step the kernel was built for.
func (k *Kernel) Convolve(dt, runoff float64) float64 {
	for i, o := range k.ordinates {
		k.buffer[i] += runoff * o
	}
	out := k.buffer[0]
	copy(k.buffer, k.buffer[1:])
	k.buffer[len(k.buffer)-1] = 0
	return out
}

// Release returns the rate Convolve would emit for runoff without
// touching the delay buffer.
func (k *Kernel) Release(dt, runoff float64) float64 {
	return k.buffer[0] + runoff*k.ordinates[0]
}

// Pending returns the depth (m) still held in the delay buffer.
func (k *Kernel) Pending(dt float64) float64 {
	sum := 0.0
	for _, v := range k.buffer {
		sum += v
	}
	return sum * dt
}

func (k *Kernel) Ordinates() []float64 {
	return append([]float64(nil), k.ordinates...)
}

func (k *Kernel) Reset() {
	for i := range k.buffer {
		k.buffer[i] = 0
	}
}

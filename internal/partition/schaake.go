// Package partition splits water arriving at the soil surface into
// surface runoff and infiltration.
package partition

import "math"

const secondsPerDay = 86400.0

// Schaake partitions an input flux (m/s) over a step of dt seconds using
// the Schaake et al. (1996) infiltration-excess scheme. constant is the
// soil-adjusted Schaake rate (1/day) and deficit the soil column moisture
// deficit (m). Outputs are fluxes in m/s and always satisfy
// runoff + infiltration == input.
func Schaake(dt, constant, deficit, input float64) (runoff, infiltration float64) {
	if !(input > 0) || !(dt > 0) {
		return 0, 0
	}
	if deficit < 0 {
		return input, 0
	}

	px := input * dt
	ic := deficit * (1 - math.Exp(-constant*dt/secondsPerDay))

	infDepth := 0.0
	if px+ic > 0 {
		infDepth = px * ic / (px + ic)
	}

	runoff = input - infDepth/dt
	if runoff < 0 {
		runoff = 0
	}
	return runoff, input - runoff
}

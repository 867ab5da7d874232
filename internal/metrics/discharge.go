package metrics

import "github.com/san-kum/tshirt/internal/sim"

// PeakDischarge is the largest total outflow rate seen (m/s).
type PeakDischarge struct {
	name string
	peak float64
	at   float64
}

func NewPeakDischarge() *PeakDischarge {
	return &PeakDischarge{name: "peak_discharge"}
}

func (p *PeakDischarge) Name() string { return p.name }

func (p *PeakDischarge) Observe(s sim.Step) {
	if q := s.Result.Fluxes.Discharge(); q > p.peak {
		p.peak = q
		p.at = s.Time + s.Dt
	}
}

func (p *PeakDischarge) Value() float64 { return p.peak }

// Time returns the end of the step in which the peak occurred.
func (p *PeakDischarge) Time() float64 { return p.at }

func (p *PeakDischarge) Reset() {
	p.peak = 0
	p.at = 0
}

// RunoffRatio is discharged depth over precipitated depth. A run without
// rain reports 0.
type RunoffRatio struct {
	name   string
	out    float64
	precip float64
}

func NewRunoffRatio() *RunoffRatio {
	return &RunoffRatio{name: "runoff_ratio"}
}

func (r *RunoffRatio) Name() string { return r.name }

func (r *RunoffRatio) Observe(s sim.Step) {
	r.out += s.Result.Fluxes.Discharge() * s.Dt
	r.precip += s.Forcing.Precip * s.Dt
}

func (r *RunoffRatio) Value() float64 {
	if r.precip == 0 {
		return 0
	}
	return r.out / r.precip
}

func (r *RunoffRatio) Reset() {
	r.out = 0
	r.precip = 0
}

// Saturation is the fraction of steps that ended with the soil at or
// above threshold times its maximum storage.
type Saturation struct {
	name      string
	threshold float64
	max       float64
	wet       int
	samples   int
}

func NewSaturation(threshold, maxSoilStorage float64) *Saturation {
	return &Saturation{
		name:      "saturation",
		threshold: threshold,
		max:       maxSoilStorage,
	}
}

func (s *Saturation) Name() string { return s.name }

func (s *Saturation) Observe(st sim.Step) {
	s.samples++
	if st.Result.State.Soil >= s.threshold*s.max {
		s.wet++
	}
}

func (s *Saturation) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.wet) / float64(s.samples)
}

func (s *Saturation) Reset() {
	s.wet = 0
	s.samples = 0
}

// Standard returns the metrics every run records.
func Standard(maxSoilStorage float64) []sim.Metric {
	return []sim.Metric{
		NewMassResidual(),
		NewPeakDischarge(),
		NewRunoffRatio(),
		NewTotalET(),
		NewOverflow(),
		NewSaturation(0.9, maxSoilStorage),
	}
}


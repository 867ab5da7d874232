package reservoir

import "math"

// Outlet is one discharge path of a reservoir. Velocity is evaluated
// against the storage at the moment the outlet drains, so outlets that
// run later see what earlier outlets left behind.
type Outlet interface {
	Velocity(storage, maxStorage float64) float64
	ActivationThreshold() float64
	MaxVelocity() float64
}

// PowerLaw discharges A*((S-Threshold)/(Smax-Threshold))^B once storage
// exceeds Threshold, capped at Max.
type PowerLaw struct {
	A         float64
	B         float64
	Threshold float64
	Max       float64
}

func (o PowerLaw) Velocity(storage, maxStorage float64) float64 {
	if storage <= o.Threshold {
		return 0
	}
	span := maxStorage - o.Threshold
	if span <= 0 {
		return o.Max
	}
	v := o.A * math.Pow((storage-o.Threshold)/span, o.B)
	return math.Min(v, o.Max)
}

func (o PowerLaw) ActivationThreshold() float64 { return o.Threshold }
func (o PowerLaw) MaxVelocity() float64         { return o.Max }

// Exponential discharges A*(exp(B*(S-Threshold)/(Smax-Threshold)) - 1),
// capped at Max. With Threshold 0 and a full reservoir the uncapped value
// is A*(e^B - 1).
type Exponential struct {
	A         float64
	B         float64
	Threshold float64
	Max       float64
}

func (o Exponential) Velocity(storage, maxStorage float64) float64 {
	if storage <= o.Threshold {
		return 0
	}
	span := maxStorage - o.Threshold
	if span <= 0 {
		return o.Max
	}
	v := o.A * (math.Exp(o.B*(storage-o.Threshold)/span) - 1)
	return math.Min(v, o.Max)
}

func (o Exponential) ActivationThreshold() float64 { return o.Threshold }
func (o Exponential) MaxVelocity() float64         { return o.Max }

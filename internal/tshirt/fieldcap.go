package tshirt

import "math"

func headAboveWaterTable(alphaFC float64) float64 {
	return alphaFC * (AtmosphericPressure / WaterSpecificWeight)
}

// FieldCapacity returns the soil storage (m) at which free gravity
// drainage stops, integrating the Clapp-Hornberger retention curve over
// the two metres of column above the suction head.
func FieldCapacity(p Params) float64 {
	s := p.spec
	z1 := headAboveWaterTable(s.AlphaFC) - 0.5
	z2 := z1 + 2

	e := (s.B - 1) / s.B
	integral := s.B*math.Pow(z2, e)/(s.B-1) - s.B*math.Pow(z1, e)/(s.B-1)

	return s.MaxSMC * math.Pow(1.0/s.SatPsi, -1.0/s.B) * integral
}

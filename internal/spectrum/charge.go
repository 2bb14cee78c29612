package spectrum

import "math"

// SPECharge is the single-photoelectron charge in attenuated mode, in pC.
// It converts expected photoelectron counts into charge-statistics variance.
const SPECharge = 1.0

// ChargeDensity returns the probability density of observing charge q (pC)
// from a deposit of energy keV at light yield y (pC/keV).
//
// The expected photoelectron count is n = y*energy/SPECharge; the compound
// counting statistics are approximated by a Gaussian with mean y*energy and
// standard deviation sqrt(n)*SPECharge, which holds for n not too small.
func ChargeDensity(q, y, energy float64) float64 {
	n := y * energy / SPECharge
	return gaussPDF(q, y*energy, math.Sqrt(n)*SPECharge)
}

// gaussPDF is a plain normal density, kept closed-form because it sits in the
// innermost loop of the convolution.
func gaussPDF(x, mu, sigma float64) float64 {
	d := (x - mu) / sigma
	return math.Exp(-0.5*d*d) / (sigma * math.Sqrt(2*math.Pi))
}

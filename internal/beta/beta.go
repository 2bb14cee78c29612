// Package beta computes the antineutrino kinetic energy spectrum of a
// single beta-decay branch.
package beta

import "math"

// electronMass is the electron rest mass in keV.
const electronMass = 511.0

// fermiSplit is the energy (keV) at which the empirical Fermi-function
// approximation switches between its low- and high-energy coefficient sets.
const fermiSplit = 613.2

// Forbiddenness classifies a beta transition. The classification selects a
// multiplicative shape correction applied to the allowed-transition spectrum.
type Forbiddenness int

const (
	// Allowed transitions need no shape correction.
	Allowed Forbiddenness = iota
	// FirstUnique is a first unique-forbidden transition.
	FirstUnique
	// SecondUnique is a second unique-forbidden transition.
	SecondUnique
	// ThirdUnique is a third unique-forbidden transition.
	ThirdUnique
)

// String returns the conventional shorthand for the transition class.
func (f Forbiddenness) String() string {
	switch f {
	case FirstUnique:
		return "1U"
	case SecondUnique:
		return "2U"
	case ThirdUnique:
		return "3U"
	default:
		return "allowed"
	}
}

// Intensity evaluates the branch antineutrino spectrum at kinetic energy e
// (keV) for a branch with endpoint q (keV) and daughter atomic number z.
// Energies outside (0, q] are outside the physical domain and return 0.
//
// The value is the product of a forbiddenness shape factor, an empirical
// Fermi-function approximation (two polynomial-in-Z coefficient regimes split
// at 613.2 keV), and the allowed phase-space factor.
func Intensity(e, q, z float64, forb Forbiddenness) float64 {
	if e <= 0 || e > q {
		return 0
	}

	// Fermi function approximation: exp(a + b*sqrt(W-1)) with W in units of
	// the electron rest mass, coefficients fit separately below and above
	// the regime boundary.
	var a, b float64
	if e < fermiSplit {
		a = -0.811 + 4.46e-2*z + 1.08e-4*z*z
		b = 0.673 - 1.82e-2*z + 6.38e-5*z*z
	} else {
		a = -8.46e-2 + 2.48e-2*z + 2.37e-4*z*z
		b = 1.15e-2 + 3.58e-4*z - 6.17e-5*z*z
	}

	w := e + electronMass
	p := math.Sqrt(w*w - electronMass*electronMass)
	fermi := (w / p) * math.Exp(a+b*math.Sqrt(w/electronMass-1))

	shape := shapeFactor(p, q-e, forb)

	// Allowed phase space: p_e * (Q-E)^2 * W with p_e the electron momentum.
	phase := math.Sqrt(e*e+2*e*electronMass) * (q - e) * (q - e) * w

	return shape * fermi * phase
}

// shapeFactor returns the unique-forbidden shape correction as a polynomial
// in the neutrino momentum p and the remaining endpoint distance d = Q-E.
func shapeFactor(p, d float64, forb Forbiddenness) float64 {
	p2 := p * p
	d2 := d * d
	switch forb {
	case FirstUnique:
		return p2 + d2
	case SecondUnique:
		return d2*d2 + (10.0/3.0)*p2*d2 + p2
	case ThirdUnique:
		return d2*d2*d2 + 7*p2*d2*d2 + 7*p2*p2*d2 + p2*p2*p2
	default:
		return 1
	}
}

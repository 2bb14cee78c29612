// Package spectrum implements the forward model of the LYSO intrinsic
// radiation spectrum: the beta-decay branch spectra of 176Lu convolved with
// photoelectron counting statistics and the light-yield non-uniformity of the
// crystal, tabulated and cached for use inside an iterative fit.
package spectrum

import (
	"fmt"
	"math"
)

// NumParams is the length of the model parameter vector.
const NumParams = 6

// Params is the forward-model parameter vector.
type Params struct {
	// AvgYield is the average light yield in pC/keV.
	AvgYield float64
	// FracDiff is the fractional difference between the light yield at the
	// center and the end of the crystal, in (0, 1).
	FracDiff float64
	// Amps are the relative rates of the four gamma-coincidence branches,
	// ordered by gamma offset: 88, 290, 395, 597 keV.
	Amps [4]float64
}

// ParamsFromSlice builds Params from a 6-element ordered vector.
func ParamsFromSlice(v []float64) (Params, error) {
	if len(v) != NumParams {
		return Params{}, fmt.Errorf("parameter vector has %d values, want %d", len(v), NumParams)
	}
	return Params{
		AvgYield: v[0],
		FracDiff: v[1],
		Amps:     [4]float64{v[2], v[3], v[4], v[5]},
	}, nil
}

// Slice returns the parameters as an ordered 6-element vector.
func (p Params) Slice() []float64 {
	return []float64{p.AvgYield, p.FracDiff, p.Amps[0], p.Amps[1], p.Amps[2], p.Amps[3]}
}

// paramKey is the structural cache identity of a parameter vector: the exact
// bit pattern of each value. Two vectors share a key only when every value is
// bit-identical, so optimizer perturbations never alias a cached table.
type paramKey [NumParams]uint64

// ampKey is the structural cache identity of a branch amplitude tuple.
type ampKey [4]uint64

func (p Params) key() paramKey {
	return paramKey{
		math.Float64bits(p.AvgYield),
		math.Float64bits(p.FracDiff),
		math.Float64bits(p.Amps[0]),
		math.Float64bits(p.Amps[1]),
		math.Float64bits(p.Amps[2]),
		math.Float64bits(p.Amps[3]),
	}
}

func ampsKey(amps [4]float64) ampKey {
	return ampKey{
		math.Float64bits(amps[0]),
		math.Float64bits(amps[1]),
		math.Float64bits(amps[2]),
		math.Float64bits(amps[3]),
	}
}

// Key returns a stable text form of the structural parameter key, suitable as
// an external storage key.
func (p Params) Key() string {
	k := p.key()
	return fmt.Sprintf("%016x%016x%016x%016x%016x%016x", k[0], k[1], k[2], k[3], k[4], k[5])
}

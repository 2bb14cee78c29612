package spectrum

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/integrate"

	"lyso-calib/internal/beta"
)

// Decay scheme of 176Lu -> 176Hf. Each beta branch is followed by a gamma
// cascade whose total energy offsets the deposited spectrum.
const (
	// EndpointQ is the branch endpoint energy in keV.
	EndpointQ = 593
	// DaughterZ is the atomic number of the daughter nucleus 176Hf.
	DaughterZ = 72
)

// BranchOffsets are the gamma cascade energies (keV) added to the beta energy
// for each of the four branches.
var BranchOffsets = [4]float64{88, 290, 395, 597}

// DefaultEpsilon is the additive floor applied to each raw branch spectrum
// before normalization, keeping every branch strictly positive and
// normalizable even where the true intensity vanishes across the grid.
const DefaultEpsilon = 1e-10

// BranchSet evaluates the four gamma-offset branch spectra of 176Lu on a
// fixed energy grid and combines them into amplitude-weighted totals.
// Totals are memoized per amplitude tuple; the set is safe for concurrent use.
type BranchSet struct {
	grid     []float64
	branches [4][]float64 // normalized, amplitude-independent

	mu     sync.Mutex
	totals map[ampKey][]float64
	evals  int
}

// NewBranchSet builds a BranchSet over the given energy grid (keV). The grid
// must be strictly increasing and hold at least two samples; it doubles as
// the trapezoidal integration grid for branch normalization.
func NewBranchSet(grid []float64, epsilon float64) (*BranchSet, error) {
	if len(grid) < 2 {
		return nil, fmt.Errorf("energy grid needs at least 2 samples, got %d", len(grid))
	}
	for i := 1; i < len(grid); i++ {
		if grid[i] <= grid[i-1] {
			return nil, fmt.Errorf("energy grid not strictly increasing at index %d (%g after %g)", i, grid[i], grid[i-1])
		}
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}

	s := &BranchSet{
		grid:   grid,
		totals: make(map[ampKey][]float64),
	}
	for b, offset := range BranchOffsets {
		raw := make([]float64, len(grid))
		for i, e := range grid {
			raw[i] = beta.Intensity(e-offset, EndpointQ, DaughterZ, beta.Allowed) + epsilon
		}
		norm := integrate.Trapezoidal(grid, raw)
		for i := range raw {
			raw[i] /= norm
		}
		s.branches[b] = raw
	}
	return s, nil
}

// Grid returns the energy grid the set was built on.
func (s *BranchSet) Grid() []float64 {
	return s.grid
}

// Branch returns the normalized spectrum of branch b (0..3). Each branch
// integrates to 1 over the grid by the trapezoidal rule.
func (s *BranchSet) Branch(b int) []float64 {
	return s.branches[b]
}

// Total returns the emission energy density: the sum of the four normalized
// branch spectra weighted by amps. The amplitudes are relative event rates
// and need not sum to 1. Results are memoized on the exact amplitude tuple;
// callers must not mutate the returned slice.
func (s *BranchSet) Total(amps [4]float64) []float64 {
	k := ampsKey(amps)

	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.totals[k]; ok {
		return t
	}

	t := make([]float64, len(s.grid))
	for b := range s.branches {
		for i, v := range s.branches[b] {
			t[i] += amps[b] * v
		}
	}
	s.totals[k] = t
	s.evals++
	return t
}

// TotalEvals reports how many distinct amplitude tuples have been combined,
// i.e. the number of cache misses on Total.
func (s *BranchSet) TotalEvals() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evals
}

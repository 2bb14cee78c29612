// Package fitter drives the staged calibration fit of the LYSO forward model
// against a measured charge histogram.
package fitter

import "fmt"

// ModelFunc evaluates a parametrized model at x.
type ModelFunc func(x float64, params []float64) float64

// Problem describes one constrained least-squares fit: binned data, a model,
// an initial guess, per-parameter bounds and fixed flags.
type Problem struct {
	Model ModelFunc

	// X, Y are the bin centers and contents inside the fit window.
	X []float64
	Y []float64

	Init  []float64
	Lower []float64
	Upper []float64
	// Fixed parameters keep their Init value and get zero standard error.
	Fixed []bool
}

// Validate reports the first structural defect of the problem, if any.
func (p Problem) Validate() error {
	n := len(p.Init)
	switch {
	case p.Model == nil:
		return fmt.Errorf("problem has no model")
	case len(p.X) != len(p.Y):
		return fmt.Errorf("x and y differ in length: %d vs %d", len(p.X), len(p.Y))
	case len(p.X) == 0:
		return fmt.Errorf("problem has no data points")
	case n == 0:
		return fmt.Errorf("problem has no parameters")
	case len(p.Lower) != n || len(p.Upper) != n || len(p.Fixed) != n:
		return fmt.Errorf("bounds/fixed length mismatch with %d parameters", n)
	}
	for i := range p.Init {
		if p.Fixed[i] {
			continue
		}
		if p.Lower[i] >= p.Upper[i] {
			return fmt.Errorf("parameter %d: bounds [%g,%g] invalid", i, p.Lower[i], p.Upper[i])
		}
		if p.Init[i] < p.Lower[i] || p.Init[i] > p.Upper[i] {
			return fmt.Errorf("parameter %d: initial value %g outside [%g,%g]", i, p.Init[i], p.Lower[i], p.Upper[i])
		}
	}
	return nil
}

// Result is one solver outcome. Valid reports whether the solver converged to
// a usable minimum; an invalid result still carries the last parameter values
// for diagnostics.
type Result struct {
	Params []float64
	Errors []float64
	Chi2   float64
	Valid  bool
}

// Optimizer is the constrained nonlinear least-squares capability. The fit
// core depends only on this interface; LeastSquares is the bundled
// implementation.
type Optimizer interface {
	Fit(p Problem) (Result, error)
}

package fitter

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LeastSquares is the bundled Optimizer: a chi-square minimizer built on
// gonum's Nelder-Mead simplex. Bounds are enforced with a sine transform of
// each free parameter, so the simplex works in an unconstrained space while
// the model only ever sees values inside [lower, upper]. Fixed parameters are
// excluded from the search entirely.
//
// Bin contents are weighted with Poisson errors sqrt(max(y, 1)).
type LeastSquares struct {
	// MaxIterations caps the simplex iterations; 0 means 2000.
	MaxIterations int
}

// Fit minimizes the chi-square of the problem and derives standard errors
// from the numerical curvature at the minimum.
func (ls *LeastSquares) Fit(p Problem) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid fit problem: %w", err)
	}

	var free []int
	for i := range p.Init {
		if !p.Fixed[i] {
			free = append(free, i)
		}
	}

	params := append([]float64(nil), p.Init...)
	chi2 := func(x []float64) float64 {
		var sum float64
		for i := range p.X {
			sigma2 := p.Y[i]
			if sigma2 < 1 {
				sigma2 = 1
			}
			r := p.Y[i] - p.Model(p.X[i], x)
			sum += r * r / sigma2
		}
		return sum
	}

	// All parameters fixed: nothing to optimize, report the chi-square of
	// the initial point.
	if len(free) == 0 {
		return Result{
			Params: params,
			Errors: make([]float64, len(params)),
			Chi2:   chi2(params),
			Valid:  true,
		}, nil
	}

	objective := func(t []float64) float64 {
		for j, i := range free {
			params[i] = fromInternal(t[j], p.Lower[i], p.Upper[i])
		}
		return chi2(params)
	}

	t0 := make([]float64, len(free))
	for j, i := range free {
		t0[j] = toInternal(p.Init[i], p.Lower[i], p.Upper[i])
	}

	maxIter := ls.MaxIterations
	if maxIter == 0 {
		maxIter = 2000
	}
	problem := optimize.Problem{Func: objective}
	settings := &optimize.Settings{MajorIterations: maxIter}
	res, err := optimize.Minimize(problem, t0, settings, &optimize.NelderMead{})
	if err != nil {
		return Result{Params: params, Errors: make([]float64, len(params))}, nil
	}

	best := append([]float64(nil), p.Init...)
	for j, i := range free {
		best[i] = fromInternal(res.X[j], p.Lower[i], p.Upper[i])
	}

	valid := converged(res.Status) && !math.IsNaN(res.F) && !math.IsInf(res.F, 0)
	for _, v := range best {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			valid = false
		}
	}

	errors := make([]float64, len(p.Init))
	if valid {
		ls.standardErrors(p, chi2, best, free, errors)
	}

	return Result{Params: best, Errors: errors, Chi2: res.F, Valid: valid}, nil
}

// standardErrors fills errs with the per-parameter standard errors of the
// free parameters: the square roots of the diagonal of 2*H^-1, where H is the
// numerical Hessian of the chi-square at the minimum. Fixed parameters keep
// zero error.
func (ls *LeastSquares) standardErrors(p Problem, chi2 func([]float64) float64, best []float64, free []int, errs []float64) {
	n := len(free)
	steps := make([]float64, n)
	for j, i := range free {
		steps[j] = 1e-4 * math.Max(math.Abs(best[i]), 1)
	}

	at := func(offsets map[int]float64) float64 {
		x := append([]float64(nil), best...)
		for j, d := range offsets {
			i := free[j]
			v := x[i] + d
			if v < p.Lower[i] {
				v = p.Lower[i]
			}
			if v > p.Upper[i] {
				v = p.Upper[i]
			}
			x[i] = v
		}
		return chi2(x)
	}

	f0 := chi2(best)
	hess := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		d := at(map[int]float64{j: steps[j]}) + at(map[int]float64{j: -steps[j]}) - 2*f0
		hess.Set(j, j, d/(steps[j]*steps[j]))
		for k := j + 1; k < n; k++ {
			d := at(map[int]float64{j: steps[j], k: steps[k]}) -
				at(map[int]float64{j: steps[j], k: -steps[k]}) -
				at(map[int]float64{j: -steps[j], k: steps[k]}) +
				at(map[int]float64{j: -steps[j], k: -steps[k]})
			v := d / (4 * steps[j] * steps[k])
			hess.Set(j, k, v)
			hess.Set(k, j, v)
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(hess); err != nil {
		if _, ok := err.(mat.Condition); !ok {
			// Curvature is singular; leave the errors at zero rather than
			// invalidating an otherwise converged fit.
			return
		}
	}
	for j, i := range free {
		cov := 2 * inv.At(j, j)
		if cov > 0 {
			errs[i] = math.Sqrt(cov)
		}
	}
}

// converged reports whether the solver stopped because it found a minimum.
// Hitting an iteration, evaluation or runtime limit leaves the result at
// wherever the search happened to be and must surface as an invalid fit.
func converged(s optimize.Status) bool {
	switch s {
	case optimize.Failure, optimize.NotTerminated,
		optimize.IterationLimit, optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit, optimize.HessianEvaluationLimit,
		optimize.RuntimeLimit:
		return false
	}
	return true
}

// toInternal maps an external value in [lo, hi] to the unconstrained search
// space; fromInternal is its inverse. The sine transform keeps every internal
// point mapped strictly inside the bounds.
func toInternal(x, lo, hi float64) float64 {
	u := 2*(x-lo)/(hi-lo) - 1
	if u < -1 {
		u = -1
	}
	if u > 1 {
		u = 1
	}
	return math.Asin(u)
}

func fromInternal(t, lo, hi float64) float64 {
	return lo + (hi-lo)*(math.Sin(t)+1)/2
}

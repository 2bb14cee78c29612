package fitter

import (
	"fmt"
	"log/slog"

	"lyso-calib/internal/spectrum"
	"lyso-calib/pkg/histdata"
)

// Options configures the staged calibration fit. The defaults reproduce the
// standard procedure; see DefaultOptions.
type Options struct {
	// PeakThreshold is the minimum bin center considered when seeding the
	// peak position (keV-equivalent charge).
	PeakThreshold float64
	// SeedPeakEnergy is the assumed energy of the seed peak; the initial
	// yield guess is xmax/SeedPeakEnergy.
	SeedPeakEnergy float64
	// SeedFracDiff is the initial yield-spread guess.
	SeedFracDiff float64
	// Window is the half-width of the fit window around the seed peak.
	Window float64

	// YieldBounds and FracDiffBounds constrain the shape parameters in the
	// full-fit stage; AmpBound caps every branch amplitude from above.
	YieldBounds    [2]float64
	FracDiffBounds [2]float64
	AmpBound       float64

	// FloatHighBranches releases the 395 and 597 keV branch amplitudes.
	// They default to fixed at zero: with the current readout those gammas
	// saturate the waveform and are unobservable. This is a hardware
	// restriction, not a physical null result.
	FloatHighBranches bool
}

// DefaultOptions returns the standard fit configuration.
func DefaultOptions() Options {
	return Options{
		PeakThreshold:     100,
		SeedPeakEnergy:    300,
		SeedFracDiff:      0.1,
		Window:            100,
		YieldBounds:       [2]float64{0.1, 10},
		FracDiffBounds:    [2]float64{0.01, 0.2},
		AmpBound:          1e9,
		FloatHighBranches: false,
	}
}

// FitResult is a successful calibration fit: best-fit parameters with their
// standard errors and the final chi-square.
type FitResult struct {
	Params spectrum.Params
	Errors [spectrum.NumParams]float64
	Chi2   float64
}

// Stage is one step of the staged fit: a name, a mask of floating parameters
// and the fit window; each stage is seeded from the previous stage's result.
type Stage struct {
	Name   string
	Float  [spectrum.NumParams]bool
	Window [2]float64
}

// Fitter runs the staged calibration fit.
type Fitter struct {
	eval *spectrum.Evaluator
	opt  Optimizer
	opts Options
	log  *slog.Logger
}

// New builds a Fitter around a forward-model evaluator and a solver. A nil
// optimizer selects the bundled LeastSquares; a nil logger selects the slog
// default.
func New(eval *spectrum.Evaluator, opt Optimizer, opts Options, log *slog.Logger) *Fitter {
	if opt == nil {
		opt = &LeastSquares{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fitter{eval: eval, opt: opt, opts: opts, log: log}
}

// Fit fits the forward model against h. A nil result with a nil error means
// no fit was found: either no seed peak exists above the threshold or the
// solver did not converge. Both are expected outcomes, not faults.
func (f *Fitter) Fit(h histdata.View) (*FitResult, error) {
	xmax, ymax, ok := seedPeak(h, f.opts.PeakThreshold)
	if !ok {
		f.log.Info("no seed peak above threshold, skipping fit",
			"threshold", f.opts.PeakThreshold)
		return nil, nil
	}
	f.log.Info("seed peak located", "charge", xmax, "content", ymax)

	fitWindow := [2]float64{xmax - f.opts.Window, xmax + f.opts.Window}

	model := func(x float64, params []float64) float64 {
		p, err := spectrum.ParamsFromSlice(params)
		if err != nil {
			return 0
		}
		return f.eval.Evaluate(x, p)
	}

	yieldSeed := xmax / f.opts.SeedPeakEnergy
	if yieldSeed < f.opts.YieldBounds[0] {
		yieldSeed = f.opts.YieldBounds[0]
	}
	if yieldSeed > f.opts.YieldBounds[1] {
		yieldSeed = f.opts.YieldBounds[1]
	}
	init := []float64{
		yieldSeed,
		f.opts.SeedFracDiff,
		h.Entries(),
		h.Entries(),
		0,
		0,
	}
	lower := []float64{f.opts.YieldBounds[0], f.opts.FracDiffBounds[0], 0, 0, 0, 0}
	upper := []float64{f.opts.YieldBounds[1], f.opts.FracDiffBounds[1],
		f.opts.AmpBound, f.opts.AmpBound, f.opts.AmpBound, f.opts.AmpBound}

	// Stage A pins the shape parameters at their seeds and fits only the
	// amplitude scale; stage B releases the shape parameters from A's
	// optimum. Floating all six from a raw seed tends to find local minima.
	stages := []Stage{
		{
			Name:   "amplitudes",
			Float:  [spectrum.NumParams]bool{false, false, true, true, f.opts.FloatHighBranches, f.opts.FloatHighBranches},
			Window: fitWindow,
		},
		{
			Name:   "full",
			Float:  [spectrum.NumParams]bool{true, true, true, true, f.opts.FloatHighBranches, f.opts.FloatHighBranches},
			Window: fitWindow,
		},
	}

	var last Result
	for _, stage := range stages {
		xs, ys := window(h, stage.Window[0], stage.Window[1])
		if len(xs) == 0 {
			f.log.Info("fit window contains no bins",
				"stage", stage.Name, "window_lo", stage.Window[0], "window_hi", stage.Window[1])
			return nil, nil
		}
		fixed := make([]bool, spectrum.NumParams)
		for i := range fixed {
			fixed[i] = !stage.Float[i]
		}
		problem := Problem{
			Model: model,
			X:     xs,
			Y:     ys,
			Init:  init,
			Lower: lower,
			Upper: upper,
			Fixed: fixed,
		}
		res, err := f.opt.Fit(problem)
		if err != nil {
			return nil, fmt.Errorf("stage %q: %w", stage.Name, err)
		}
		f.log.Info("fit stage finished",
			"stage", stage.Name, "chi2", res.Chi2, "valid", res.Valid,
			"avg_yield", res.Params[0], "frac_diff", res.Params[1])
		init = res.Params
		last = res
	}

	if !last.Valid {
		f.log.Info("final fit stage did not converge")
		return nil, nil
	}

	p, err := spectrum.ParamsFromSlice(last.Params)
	if err != nil {
		return nil, err
	}
	out := &FitResult{Params: p, Chi2: last.Chi2}
	copy(out.Errors[:], last.Errors)
	return out, nil
}

// seedPeak returns the center and content of the highest-content bin with
// center above threshold.
func seedPeak(h histdata.View, threshold float64) (xmax, ymax float64, ok bool) {
	for i := 0; i < h.Bins(); i++ {
		x := h.Center(i)
		v := h.Content(i)
		if x > threshold && v > ymax {
			xmax, ymax, ok = x, v, true
		}
	}
	return xmax, ymax, ok
}

// window extracts the bins with centers inside [lo, hi].
func window(h histdata.View, lo, hi float64) (xs, ys []float64) {
	for i := 0; i < h.Bins(); i++ {
		x := h.Center(i)
		if x < lo || x > hi {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, h.Content(i))
	}
	return xs, ys
}

package fitter

import (
	"math"
	"testing"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"lyso-calib/internal/spectrum"
	"lyso-calib/pkg/histdata"
)

// recordingOptimizer captures every problem it is handed and replays queued
// results.
type recordingOptimizer struct {
	problems []Problem
	queue    []Result
}

func (r *recordingOptimizer) Fit(p Problem) (Result, error) {
	r.problems = append(r.problems, p)
	if len(r.queue) == 0 {
		return Result{Params: append([]float64(nil), p.Init...), Errors: make([]float64, len(p.Init)), Valid: true}, nil
	}
	res := r.queue[0]
	r.queue = r.queue[1:]
	return res, nil
}

func coarseEvaluator(t *testing.T) *spectrum.Evaluator {
	t.Helper()
	tun := spectrum.DefaultTunables()
	tun.EnergySamples = 200
	tun.YieldSamples = 6
	tun.ChargePoints = 200
	tun.Workers = 2
	ev, err := spectrum.NewEvaluator(tun)
	if err != nil {
		t.Fatalf("NewEvaluator: %v", err)
	}
	return ev
}

func TestFitNoPeak(t *testing.T) {
	ev := coarseEvaluator(t)
	opt := &recordingOptimizer{}
	f := New(ev, opt, DefaultOptions(), nil)

	// Content only below the peak threshold: no seed candidate exists.
	hist, err := histdata.Uniform(50, 0, 500)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	for i := 0; i < 30; i++ {
		hist.Fill(50)
	}

	result, err := f.Fit(hist)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if result != nil {
		t.Error("expected no result for a histogram without a seed peak")
	}
	if len(opt.problems) != 0 {
		t.Errorf("solver was invoked %d times, want 0", len(opt.problems))
	}
}

func TestFitStaging(t *testing.T) {
	ev := coarseEvaluator(t)

	// One clear peak at 300.
	centers := []float64{150, 250, 300, 350, 450}
	contents := []float64{10, 40, 100, 35, 5}
	hist, err := histdata.New(centers, contents)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stageA := Result{Params: []float64{1.0, 0.1, 120, 90, 0, 0}, Errors: make([]float64, 6), Valid: true}
	stageB := Result{Params: []float64{1.1, 0.06, 130, 95, 0, 0}, Errors: []float64{0.1, 0.01, 5, 4, 0, 0}, Valid: true}
	opt := &recordingOptimizer{queue: []Result{stageA, stageB}}
	f := New(ev, opt, DefaultOptions(), nil)

	result, err := f.Fit(hist)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if result == nil {
		t.Fatal("expected a fit result")
	}
	if len(opt.problems) != 2 {
		t.Fatalf("solver invoked %d times, want 2 stages", len(opt.problems))
	}

	a, b := opt.problems[0], opt.problems[1]

	t.Run("stage A fixes shape, floats low amplitudes", func(t *testing.T) {
		wantFixed := []bool{true, true, false, false, true, true}
		for i, want := range wantFixed {
			if a.Fixed[i] != want {
				t.Errorf("stage A fixed[%d] = %v, want %v", i, a.Fixed[i], want)
			}
		}
		if got := a.Init[0]; math.Abs(got-300.0/300.0) > 1e-12 {
			t.Errorf("stage A yield seed = %g, want xmax/300 = 1", got)
		}
		if a.Init[1] != 0.1 {
			t.Errorf("stage A frac_diff seed = %g, want 0.1", a.Init[1])
		}
		if a.Init[2] != hist.Entries() || a.Init[3] != hist.Entries() {
			t.Errorf("stage A amplitude seeds = %g, %g, want entry count %g", a.Init[2], a.Init[3], hist.Entries())
		}
	})

	t.Run("stage B releases shape with bounds", func(t *testing.T) {
		wantFixed := []bool{false, false, false, false, true, true}
		for i, want := range wantFixed {
			if b.Fixed[i] != want {
				t.Errorf("stage B fixed[%d] = %v, want %v", i, b.Fixed[i], want)
			}
		}
		if b.Lower[0] != 0.1 || b.Upper[0] != 10 {
			t.Errorf("yield bounds [%g,%g], want [0.1,10]", b.Lower[0], b.Upper[0])
		}
		if b.Lower[1] != 0.01 || b.Upper[1] != 0.2 {
			t.Errorf("frac_diff bounds [%g,%g], want [0.01,0.2]", b.Lower[1], b.Upper[1])
		}
		if b.Upper[2] != 1e9 {
			t.Errorf("amplitude bound %g, want 1e9", b.Upper[2])
		}
	})

	t.Run("stage B seeded from stage A", func(t *testing.T) {
		for i := range stageA.Params {
			if b.Init[i] != stageA.Params[i] {
				t.Errorf("stage B init[%d] = %g, want stage A result %g", i, b.Init[i], stageA.Params[i])
			}
		}
	})

	t.Run("window spans xmax +/- 100", func(t *testing.T) {
		for _, x := range a.X {
			if x < 200 || x > 400 {
				t.Errorf("window contains bin at %g, want [200,400]", x)
			}
		}
		if len(a.X) != 3 {
			t.Errorf("window holds %d bins, want 3", len(a.X))
		}
	})

	t.Run("result carries stage B values", func(t *testing.T) {
		if result.Params.AvgYield != 1.1 || result.Params.FracDiff != 0.06 {
			t.Errorf("result params = %+v, want stage B values", result.Params)
		}
		if result.Errors[1] != 0.01 {
			t.Errorf("result errors[1] = %g, want 0.01", result.Errors[1])
		}
	})
}

func TestFitInvalidFinalStage(t *testing.T) {
	ev := coarseEvaluator(t)
	hist, err := histdata.New([]float64{250, 300, 350}, []float64{40, 100, 35})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	opt := &recordingOptimizer{queue: []Result{
		{Params: []float64{1, 0.1, 10, 10, 0, 0}, Errors: make([]float64, 6), Valid: true},
		{Params: []float64{1, 0.1, 10, 10, 0, 0}, Errors: make([]float64, 6), Valid: false},
	}}
	f := New(ev, opt, DefaultOptions(), nil)

	result, err := f.Fit(hist)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if result != nil {
		t.Error("expected no result when the final stage is invalid")
	}
}

func TestFitFloatHighBranches(t *testing.T) {
	ev := coarseEvaluator(t)
	hist, err := histdata.New([]float64{250, 300, 350}, []float64{40, 100, 35})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	opts := DefaultOptions()
	opts.FloatHighBranches = true
	opt := &recordingOptimizer{}
	f := New(ev, opt, opts, nil)
	if _, err := f.Fit(hist); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	for _, problem := range opt.problems {
		if problem.Fixed[4] || problem.Fixed[5] {
			t.Error("high branch amplitudes should float when configured")
		}
	}
}

func TestFitRecoversTruth(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end fit in short mode")
	}

	ev := coarseEvaluator(t)
	truth := spectrum.Params{
		AvgYield: 1.0,
		FracDiff: 0.05,
		Amps:     [4]float64{1e5, 8e4, 0, 0},
	}

	// Synthetic histogram: expected contents from the forward model plus
	// Poisson counting noise.
	hist, err := histdata.Uniform(80, 88, 500)
	if err != nil {
		t.Fatalf("Uniform: %v", err)
	}
	src := rand.NewSource(7)
	centers := make([]float64, hist.Bins())
	contents := make([]float64, hist.Bins())
	for i := 0; i < hist.Bins(); i++ {
		centers[i] = hist.Center(i)
		lambda := ev.Evaluate(centers[i], truth)
		if lambda > 0 {
			contents[i] = distuv.Poisson{Lambda: lambda, Src: src}.Rand()
		}
	}
	hist, err = histdata.New(centers, contents)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	f := New(ev, &LeastSquares{}, DefaultOptions(), nil)
	result, err := f.Fit(hist)
	if err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if result == nil {
		t.Fatal("expected a valid fit result")
	}

	if rel := math.Abs(result.Params.AvgYield-truth.AvgYield) / truth.AvgYield; rel > 0.1 {
		t.Errorf("avg_yield = %g, want %g within 10%% (off by %.1f%%)",
			result.Params.AvgYield, truth.AvgYield, 100*rel)
	}
	if rel := math.Abs(result.Params.FracDiff-truth.FracDiff) / truth.FracDiff; rel > 0.1 {
		t.Errorf("frac_diff = %g, want %g within 10%% (off by %.1f%%)",
			result.Params.FracDiff, truth.FracDiff, 100*rel)
	}
}

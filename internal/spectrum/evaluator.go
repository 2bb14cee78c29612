package spectrum

import (
	"fmt"
	"runtime"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Evaluator is the public forward-model entry point. The first evaluation for
// a given exact parameter vector tabulates the convolver over a fixed charge
// grid; every later evaluation with the same vector only interpolates.
//
// Direct convolution during fitting would cost on the order of 1e7 primitive
// evaluations per solver query; tabulate-once-per-vector plus linear
// interpolation trades a bounded accuracy loss for tractable iterations.
type Evaluator struct {
	conv    *Convolver
	charges []float64
	cache   *tableCache
	workers int
}

// NewEvaluator builds an Evaluator with the given tunables.
func NewEvaluator(t Tunables) (*Evaluator, error) {
	conv, err := NewConvolver(t)
	if err != nil {
		return nil, err
	}
	workers := t.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &Evaluator{
		conv:    conv,
		charges: floats.Span(make([]float64, t.ChargePoints), t.ChargeMin, t.ChargeMax),
		cache:   newTableCache(t.TableCacheSize),
		workers: workers,
	}, nil
}

// Convolver exposes the underlying convolver, mainly for evaluation counters.
func (ev *Evaluator) Convolver() *Convolver {
	return ev.conv
}

// ChargeGrid returns the tabulation grid.
func (ev *Evaluator) ChargeGrid() []float64 {
	return ev.charges
}

// Evaluate returns the model density at charge q for parameters p. Queries
// outside the tabulation grid extend the end segments linearly; that region
// is outside the fitted range and the extension is only there to keep the
// function defined for the solver.
func (ev *Evaluator) Evaluate(q float64, p Params) float64 {
	return interpLinear(ev.charges, ev.Table(p), q)
}

// Spectrum evaluates the model at every query point in qs.
func (ev *Evaluator) Spectrum(qs []float64, p Params) []float64 {
	table := ev.Table(p)
	out := make([]float64, len(qs))
	for i, q := range qs {
		out[i] = interpLinear(ev.charges, table, q)
	}
	return out
}

// Table returns the tabulated spectrum for p, computing it on first use.
// Callers must not mutate the returned slice.
func (ev *Evaluator) Table(p Params) []float64 {
	k := p.key()
	if t, ok := ev.cache.get(k); ok {
		return t
	}
	return ev.cache.put(k, ev.tabulate(p))
}

// Preload seeds the cache with an externally stored table for p, e.g. one
// loaded from a spectrum store. The table must match the charge grid length.
func (ev *Evaluator) Preload(p Params, table []float64) error {
	if len(table) != len(ev.charges) {
		return fmt.Errorf("table has %d points, grid has %d", len(table), len(ev.charges))
	}
	ev.cache.put(p.key(), table)
	return nil
}

// CacheStats reports table cache hits, misses and current size.
func (ev *Evaluator) CacheStats() (hits, misses, size int) {
	hits, misses = ev.cache.stats()
	return hits, misses, ev.cache.len()
}

// tabulate runs the convolution at every charge grid point. Grid points are
// independent, so the work is striped across workers.
func (ev *Evaluator) tabulate(p Params) []float64 {
	table := make([]float64, len(ev.charges))

	// Combining the branches once up front keeps the workers off the
	// branch-set mutex.
	ev.conv.Branches().Total(p.Amps)

	perWorker := (len(ev.charges) + ev.workers - 1) / ev.workers
	var wg sync.WaitGroup
	for w := 0; w < ev.workers; w++ {
		start := w * perWorker
		end := start + perWorker
		if end > len(ev.charges) {
			end = len(ev.charges)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				table[i] = ev.conv.Likelihood(ev.charges[i], p.AvgYield, p.FracDiff, p.Amps)
			}
		}(start, end)
	}
	wg.Wait()

	return table
}

// interpLinear interpolates ys over the strictly increasing grid xs at x,
// extending the first and last segments linearly outside the grid.
func interpLinear(xs, ys []float64, x float64) float64 {
	i := sort.SearchFloat64s(xs, x)
	switch {
	case i == 0:
		i = 1
	case i == len(xs):
		i = len(xs) - 1
	}
	x0, x1 := xs[i-1], xs[i]
	y0, y1 := ys[i-1], ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

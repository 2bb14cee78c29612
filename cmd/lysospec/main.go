// Command lysospec tabulates the LYSO forward-model spectrum and writes it as
// CSV, one column per yield-spread value. Useful for eyeballing how the
// light-yield non-uniformity smears the spectrum.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"

	"lyso-calib/internal/config"
	"lyso-calib/internal/spectrum"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults used when empty)")
	yield := flag.Float64("yield", 1.0, "Average light yield (pC/keV)")
	spreads := flag.String("dy", "0.001,0.1", "Comma-separated fractional yield spreads")
	amps := flag.String("amps", "1,1,0,0", "Comma-separated branch amplitudes (88,290,395,597)")
	min := flag.Float64("min", 0, "Lowest query charge (pC)")
	max := flag.Float64("max", 500, "Highest query charge (pC)")
	points := flag.Int("points", 500, "Number of query points")
	out := flag.String("o", "", "Output file (stdout when empty)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	dys, err := parseFloats(*spreads)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Bad -dy value: %v\n", err)
		os.Exit(1)
	}
	ampVals, err := parseFloats(*amps)
	if err != nil || len(ampVals) != 4 {
		fmt.Fprintf(os.Stderr, "Bad -amps value: want 4 comma-separated numbers\n")
		os.Exit(1)
	}
	if *points < 2 || *max <= *min {
		fmt.Fprintf(os.Stderr, "Bad query range: %d points over [%g,%g]\n", *points, *min, *max)
		os.Exit(1)
	}

	eval, err := spectrum.NewEvaluator(cfg.Tunables())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build evaluator: %v\n", err)
		os.Exit(1)
	}

	qs := floats.Span(make([]float64, *points), *min, *max)
	columns := make([][]float64, len(dys))
	for i, dy := range dys {
		p := spectrum.Params{
			AvgYield: *yield,
			FracDiff: dy,
			Amps:     [4]float64{ampVals[0], ampVals[1], ampVals[2], ampVals[3]},
		}
		fmt.Fprintf(os.Stderr, "Tabulating dy=%g...\n", dy)
		columns[i] = eval.Spectrum(qs, p)
	}

	w := bufio.NewWriter(os.Stdout)
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create output: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		w = bufio.NewWriter(f)
	}
	defer w.Flush()

	fmt.Fprint(w, "charge")
	for _, dy := range dys {
		fmt.Fprintf(w, ",dy=%g", dy)
	}
	fmt.Fprintln(w)
	for i, q := range qs {
		fmt.Fprintf(w, "%g", q)
		for _, col := range columns {
			fmt.Fprintf(w, ",%g", col[i])
		}
		fmt.Fprintln(w)
	}
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	return vals, nil
}

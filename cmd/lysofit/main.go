// Command lysofit fits the LYSO intrinsic radiation model to a charge
// histogram and prints the calibration parameters.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"lyso-calib/internal/config"
	"lyso-calib/internal/fitter"
	"lyso-calib/internal/spectrum"
	"lyso-calib/internal/store"
	"lyso-calib/internal/version"
	"lyso-calib/pkg/histdata"
)

var paramNames = [spectrum.NumParams]string{
	"avg_yield", "frac_diff", "a88", "a290", "a395", "a597",
}

func main() {
	histPath := flag.String("hist", "", "Path to histogram file (two columns: bin center, content)")
	cfgPath := flag.String("config", "", "Path to YAML config (defaults used when empty)")
	cacheDB := flag.String("cache-db", "", "Optional SQLite spectrum cache")
	floatHigh := flag.Bool("float-high", false, "Float the 395/597 keV branch amplitudes")
	verbose := flag.Bool("v", false, "Verbose logging")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("lysofit %s (%s, built %s)\n", version.Version, version.GitCommit, version.BuildTime)
		return
	}
	if *histPath == "" {
		fmt.Println("Usage: lysofit -hist <path> [-config cfg.yaml] [-cache-db spectra.db] [-float-high]")
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *floatHigh {
		cfg.FloatHighBranches = true
	}

	hist, err := histdata.Load(*histPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load histogram: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded histogram: %d bins, %.0f entries\n", hist.Bins(), hist.Entries())

	eval, err := spectrum.NewEvaluator(cfg.Tunables())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build evaluator: %v\n", err)
		os.Exit(1)
	}

	var db *store.Store
	if *cacheDB != "" {
		db, err = store.Open(*cacheDB)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to open spectrum cache: %v\n", err)
			os.Exit(1)
		}
		defer db.Close()

		n, err := db.Warm(eval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to warm spectrum cache: %v\n", err)
			os.Exit(1)
		}
		log.Info("spectrum cache warmed", "tables", n)
	}

	f := fitter.New(eval, nil, cfg.FitOptions(), log)
	result, err := f.Fit(hist)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Fit failed: %v\n", err)
		os.Exit(1)
	}
	if result == nil {
		fmt.Println("No fit result (no seed peak or fit did not converge)")
		os.Exit(2)
	}

	fmt.Printf("\nFit converged (chi2 = %.2f):\n", result.Chi2)
	values := result.Params.Slice()
	for i, name := range paramNames {
		fmt.Printf("  %-10s %12.6g +/- %g\n", name, values[i], result.Errors[i])
	}

	if db != nil {
		if err := db.Save(result.Params, eval.ChargeGrid(), eval.Table(result.Params)); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to save best-fit spectrum: %v\n", err)
			os.Exit(1)
		}
		log.Info("best-fit spectrum saved", "key", result.Params.Key())
	}
}

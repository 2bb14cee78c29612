// Package config loads the YAML configuration for the calibration tools:
// numerical tunables of the forward model and options of the staged fit.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"lyso-calib/internal/fitter"
	"lyso-calib/internal/spectrum"
)

// Config is the full tool configuration. Zero values fall back to the model
// defaults, so a partial file only overrides what it names.
type Config struct {
	// Forward-model resolutions.
	Epsilon       float64 `yaml:"epsilon"`
	EnergyMin     float64 `yaml:"energy_min"`
	EnergyMax     float64 `yaml:"energy_max"`
	EnergySamples int     `yaml:"energy_samples"`
	YieldSamples  int     `yaml:"yield_samples"`
	ChargeMin     float64 `yaml:"charge_min"`
	ChargeMax     float64 `yaml:"charge_max"`
	ChargePoints  int     `yaml:"charge_points"`

	// Tabulation and caching.
	Workers        int `yaml:"workers"`
	TableCacheSize int `yaml:"table_cache_size"`

	// Fit options.
	PeakThreshold     float64 `yaml:"peak_threshold"`
	SeedPeakEnergy    float64 `yaml:"seed_peak_energy"`
	SeedFracDiff      float64 `yaml:"seed_frac_diff"`
	FitWindow         float64 `yaml:"fit_window"`
	FloatHighBranches bool    `yaml:"float_high_branches"`
}

// Default returns the configuration matching the model defaults.
func Default() *Config {
	t := spectrum.DefaultTunables()
	f := fitter.DefaultOptions()
	return &Config{
		Epsilon:           t.Epsilon,
		EnergyMin:         t.EnergyMin,
		EnergyMax:         t.EnergyMax,
		EnergySamples:     t.EnergySamples,
		YieldSamples:      t.YieldSamples,
		ChargeMin:         t.ChargeMin,
		ChargeMax:         t.ChargeMax,
		ChargePoints:      t.ChargePoints,
		Workers:           t.Workers,
		TableCacheSize:    t.TableCacheSize,
		PeakThreshold:     f.PeakThreshold,
		SeedPeakEnergy:    f.SeedPeakEnergy,
		SeedFracDiff:      f.SeedFracDiff,
		FitWindow:         f.Window,
		FloatHighBranches: f.FloatHighBranches,
	}
}

// Load reads configuration from path. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Tunables().Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Tunables maps the configuration onto the forward-model tunables.
func (c *Config) Tunables() spectrum.Tunables {
	return spectrum.Tunables{
		Epsilon:        c.Epsilon,
		EnergyMin:      c.EnergyMin,
		EnergyMax:      c.EnergyMax,
		EnergySamples:  c.EnergySamples,
		YieldSamples:   c.YieldSamples,
		ChargeMin:      c.ChargeMin,
		ChargeMax:      c.ChargeMax,
		ChargePoints:   c.ChargePoints,
		Workers:        c.Workers,
		TableCacheSize: c.TableCacheSize,
	}
}

// FitOptions maps the configuration onto the fit options.
func (c *Config) FitOptions() fitter.Options {
	opts := fitter.DefaultOptions()
	opts.PeakThreshold = c.PeakThreshold
	opts.SeedPeakEnergy = c.SeedPeakEnergy
	opts.SeedFracDiff = c.SeedFracDiff
	opts.Window = c.FitWindow
	opts.FloatHighBranches = c.FloatHighBranches
	return opts
}

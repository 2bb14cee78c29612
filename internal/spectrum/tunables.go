package spectrum

import "fmt"

// Tunables collects the numerical resolution knobs of the forward model.
// The defaults reproduce the resolutions the model was validated with; they
// are exposed because coarser grids are useful for quick scans and tests.
type Tunables struct {
	// Epsilon is the additive floor applied to raw branch spectra.
	Epsilon float64
	// EnergyMin/EnergyMax bound the deposited-energy marginalization (keV).
	EnergyMin float64
	EnergyMax float64
	// EnergySamples is the energy quadrature resolution.
	EnergySamples int
	// YieldSamples is the yield quadrature resolution.
	YieldSamples int
	// ChargeMin/ChargeMax bound the tabulation grid (pC).
	ChargeMin float64
	ChargeMax float64
	// ChargePoints is the tabulation grid resolution.
	ChargePoints int
	// Workers is the tabulation worker count; 0 means one per CPU.
	Workers int
	// TableCacheSize bounds the spectrum table cache (entries); 0 disables
	// the bound.
	TableCacheSize int
}

// DefaultTunables returns the standard model resolutions.
func DefaultTunables() Tunables {
	return Tunables{
		Epsilon:        DefaultEpsilon,
		EnergyMin:      1,
		EnergyMax:      1000,
		EnergySamples:  1000,
		YieldSamples:   10,
		ChargeMin:      88,
		ChargeMax:      500,
		ChargePoints:   1000,
		Workers:        0,
		TableCacheSize: 64,
	}
}

// Validate reports the first invalid tunable, if any.
func (t Tunables) Validate() error {
	switch {
	case t.Epsilon <= 0:
		return fmt.Errorf("epsilon must be positive, got %g", t.Epsilon)
	case t.EnergyMin <= 0 || t.EnergyMax <= t.EnergyMin:
		return fmt.Errorf("energy range [%g,%g] invalid", t.EnergyMin, t.EnergyMax)
	case t.EnergySamples < 2:
		return fmt.Errorf("energy samples must be >= 2, got %d", t.EnergySamples)
	case t.YieldSamples < 2:
		return fmt.Errorf("yield samples must be >= 2, got %d", t.YieldSamples)
	case t.ChargeMax <= t.ChargeMin:
		return fmt.Errorf("charge range [%g,%g] invalid", t.ChargeMin, t.ChargeMax)
	case t.ChargePoints < 2:
		return fmt.Errorf("charge points must be >= 2, got %d", t.ChargePoints)
	case t.Workers < 0:
		return fmt.Errorf("workers must be >= 0, got %d", t.Workers)
	case t.TableCacheSize < 0:
		return fmt.Errorf("table cache size must be >= 0, got %d", t.TableCacheSize)
	}
	return nil
}

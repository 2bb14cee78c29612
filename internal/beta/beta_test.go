package beta

import (
	"math"
	"testing"
)

func TestIntensityDomain(t *testing.T) {
	const q, z = 593.0, 72.0

	t.Run("zero outside physical domain", func(t *testing.T) {
		for _, e := range []float64{-100, -1e-9, 0, q + 1e-9, q + 500} {
			for _, forb := range []Forbiddenness{Allowed, FirstUnique, SecondUnique, ThirdUnique} {
				if got := Intensity(e, q, z, forb); got != 0 {
					t.Errorf("Intensity(%g, %g, %g, %v) = %g, want 0", e, q, z, forb, got)
				}
			}
		}
	})

	t.Run("positive inside domain", func(t *testing.T) {
		for _, e := range []float64{1, 100, 300, 592, q} {
			got := Intensity(e, q, z, Allowed)
			if got <= 0 && e < q {
				t.Errorf("Intensity(%g) = %g, want > 0", e, got)
			}
			if math.IsNaN(got) || math.IsInf(got, 0) {
				t.Errorf("Intensity(%g) = %g, want finite", e, got)
			}
		}
	})

	t.Run("vanishes at endpoint", func(t *testing.T) {
		// The phase space carries a (Q-E)^2 factor.
		if got := Intensity(q, q, z, Allowed); got != 0 {
			t.Errorf("Intensity(Q) = %g, want 0", got)
		}
	})
}

func TestIntensityRegimeBoundary(t *testing.T) {
	// The Fermi approximation switches coefficient sets at 613.2 keV; the
	// spectrum should stay finite and positive on both sides.
	const q, z = 1000.0, 72.0
	below := Intensity(613.2-0.1, q, z, Allowed)
	above := Intensity(613.2+0.1, q, z, Allowed)
	if below <= 0 || above <= 0 {
		t.Errorf("intensity around regime boundary: below=%g above=%g, want both > 0", below, above)
	}
}

func TestShapeFactorOrdering(t *testing.T) {
	// Forbiddenness corrections multiply the allowed spectrum, so each
	// variant must stay strictly positive inside the domain.
	const q, z = 593.0, 72.0
	base := Intensity(300, q, z, Allowed)
	for _, forb := range []Forbiddenness{FirstUnique, SecondUnique, ThirdUnique} {
		got := Intensity(300, q, z, forb)
		if got <= 0 {
			t.Errorf("Intensity with %v = %g, want > 0", forb, got)
		}
		if got == base {
			t.Errorf("Intensity with %v equals allowed value, correction not applied", forb)
		}
	}
}

func TestForbiddennessString(t *testing.T) {
	cases := map[Forbiddenness]string{
		Allowed:      "allowed",
		FirstUnique:  "1U",
		SecondUnique: "2U",
		ThirdUnique:  "3U",
	}
	for forb, want := range cases {
		if got := forb.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", forb, got, want)
		}
	}
}

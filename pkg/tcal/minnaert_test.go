package tcal

import (
	"math"
	"testing"

	"tmc2cal/pkg/tgrid"
)

func constGrid(w, h int, v float64) *tgrid.Grid {
	g := tgrid.NewGrid(w, h, tgrid.UnitProfile(w, h))
	for i := range g.Values() {
		g.Values()[i] = v
	}
	return g
}

func TestCorrectReferenceScenario(t *testing.T) {
	// DN=100, dark=10, gain=0.002, k=0.7, incidence=30, emission=10
	c := Corrector{Cfg: MinnaertConfig{DarkCurrent: 10, Gain: 0.002, KExponent: 0.7}}
	geom := Geometry{IncidenceDeg: 30, EmissionDeg: 10}

	refl := c.Correct(constGrid(2, 2, 100), geom)

	mu0 := math.Cos(30 * math.Pi / 180)
	mu := math.Cos(10 * math.Pi / 180)
	want := 0.18 * math.Pow(mu0, -0.7) * math.Pow(mu, -0.3)

	got := refl.Get(0, 0)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("reflectance = %.6f, want %.6f", got, want)
	}
	if math.Abs(got-0.2006) > 1e-3 {
		t.Errorf("reflectance = %.4f, expected about 0.2006", got)
	}
}

func TestCosineFloors(t *testing.T) {
	// mu0 and mu never fall below the floor anywhere in [0, 90].
	for deg := 0.0; deg <= 90.0; deg += 0.5 {
		mu0, mu := muPair(Geometry{IncidenceDeg: deg, EmissionDeg: deg})
		if mu0 < cosineFloor || mu < cosineFloor {
			t.Fatalf("floor violated at %v deg: mu0=%v mu=%v", deg, mu0, mu)
		}
	}
}

func TestCorrectGrazingGeometryFinite(t *testing.T) {
	c := Corrector{Cfg: MinnaertConfig{DarkCurrent: 0, Gain: 1, KExponent: 0.7}}
	refl := c.Correct(constGrid(2, 2, 1), Geometry{IncidenceDeg: 90, EmissionDeg: 90})
	v := refl.Get(0, 0)
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		t.Errorf("grazing geometry produced %v", v)
	}
}

func TestCorrectFloorsNegativeRadiance(t *testing.T) {
	// DN below dark current everywhere -> reflectance 0 everywhere.
	c := Corrector{Cfg: MinnaertConfig{DarkCurrent: 50, Gain: 0.002, KExponent: 0.9}}
	refl := c.Correct(constGrid(3, 3, 12), Geometry{IncidenceDeg: 45, EmissionDeg: 10})

	for _, v := range refl.Values() {
		if v != 0 {
			t.Fatalf("expected zero reflectance, got %v", v)
		}
	}
}

func TestCorrectDoesNotMutateInput(t *testing.T) {
	c := Corrector{Cfg: MinnaertConfig{DarkCurrent: 10, Gain: 0.002, KExponent: 0.7}}
	raw := constGrid(2, 2, 100)
	_ = c.Correct(raw, Geometry{IncidenceDeg: 30, EmissionDeg: 10})
	if raw.Get(1, 1) != 100 {
		t.Errorf("input raster was mutated")
	}
}

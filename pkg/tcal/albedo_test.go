package tcal

import (
	"math"
	"testing"

	"tmc2cal/pkg/tgrid"
)

func TestNormalizeTargetMean(t *testing.T) {
	n := Normalizer{Cfg: AlbedoConfig{Sigma: 2.0, TargetMean: 0.1}}

	// A non-degenerate raster with a strong left-right gradient.
	g := tgrid.NewGrid(32, 24, tgrid.UnitProfile(32, 24))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			g.Set(x, y, 0.05+0.01*float64(x)+0.002*float64(y%3))
		}
	}

	norm := n.Normalize(g)
	if got := norm.Mean(); math.Abs(got-0.1) > 1e-4 {
		t.Errorf("normalized mean = %v, want 0.1 within 1e-4", got)
	}
}

func TestNormalizeSanitizesInput(t *testing.T) {
	n := Normalizer{Cfg: AlbedoConfig{Sigma: 1.0, TargetMean: 0.1}}

	g := tgrid.NewGrid(8, 8, tgrid.UnitProfile(8, 8))
	for i := range g.Values() {
		g.Values()[i] = 0.2
	}
	g.Set(0, 0, math.NaN())
	g.Set(1, 0, math.Inf(1))
	g.Set(2, 0, -5.0)

	norm := n.Normalize(g)
	for _, v := range norm.Values() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			t.Fatalf("normalized output not finite/non-negative: %v", v)
		}
	}
	if got := norm.Mean(); math.Abs(got-0.1) > 1e-4 {
		t.Errorf("normalized mean = %v, want 0.1", got)
	}
}

func TestNormalizeDegenerateAllZero(t *testing.T) {
	n := Normalizer{Cfg: AlbedoConfig{Sigma: 2.0, TargetMean: 0.1}}
	norm := n.Normalize(tgrid.NewGrid(4, 4, tgrid.UnitProfile(4, 4)))
	for _, v := range norm.Values() {
		if v != 0 {
			t.Fatalf("all-zero input should stay zero, got %v", v)
		}
	}
}

func TestNormalizeFlattensTrend(t *testing.T) {
	n := Normalizer{Cfg: AlbedoConfig{Sigma: 4.0, TargetMean: 0.1}}

	// Smooth illumination gradient and nothing else: after dividing
	// out the trend the spread should shrink a lot.
	g := tgrid.NewGrid(48, 8, tgrid.UnitProfile(48, 8))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			g.Set(x, y, 0.02+0.005*float64(x))
		}
	}

	norm := n.Normalize(g)
	inMin, inMax := g.MinMax()
	outMin, outMax := norm.MinMax()
	inSpread := (inMax - inMin) / g.Mean()
	outSpread := (outMax - outMin) / norm.Mean()
	if outSpread > inSpread/2 {
		t.Errorf("relative spread %.3f not reduced enough from %.3f", outSpread, inSpread)
	}
}

package tgrid

import (
	"image"
	"math"
	"testing"
)

func TestSanitized(t *testing.T) {
	g := NewGrid(2, 2, UnitProfile(2, 2))
	g.Set(0, 0, math.NaN())
	g.Set(1, 0, math.Inf(1))
	g.Set(0, 1, -3.5)
	g.Set(1, 1, 0.7)

	s := g.Sanitized()
	want := []float64{0, 0, 0, 0.7}
	for i, v := range s.Values() {
		if v != want[i] {
			t.Errorf("value %d: got %v, want %v", i, v, want[i])
		}
	}
	// original untouched
	if !math.IsNaN(g.Get(0, 0)) {
		t.Errorf("Sanitized mutated its input")
	}
}

func TestGaussianBlurConstant(t *testing.T) {
	g := NewGrid(16, 12, UnitProfile(16, 12))
	for i := range g.Values() {
		g.Values()[i] = 0.25
	}
	b := g.GaussianBlur(2.5)
	for _, v := range b.Values() {
		if math.Abs(v-0.25) > 1e-12 {
			t.Fatalf("blur of constant grid not constant: got %v", v)
		}
	}
}

func TestGaussianBlurSmooths(t *testing.T) {
	g := NewGrid(11, 11, UnitProfile(11, 11))
	g.Set(5, 5, 1.0)
	b := g.GaussianBlur(1.5)

	if peak := b.Get(5, 5); peak >= 1.0 || peak <= 0 {
		t.Errorf("impulse not spread: peak %v", peak)
	}
	if b.Get(4, 5) <= b.Get(2, 5) {
		t.Errorf("response should decay away from the impulse")
	}
}

func TestCrop(t *testing.T) {
	prof := UnitProfile(4, 4)
	prof.Transform = GeoTransform{10, 0, 100, 0, -10, 200}
	g := NewGrid(4, 4, prof)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			g.Set(x, y, float64(10*y+x))
		}
	}

	c, err := g.Crop(image.Rect(1, 2, 3, 4))
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if c.Dx() != 2 || c.Dy() != 2 {
		t.Fatalf("crop shape %dx%d, want 2x2", c.Dx(), c.Dy())
	}
	if c.Get(0, 0) != 21 || c.Get(1, 1) != 32 {
		t.Errorf("crop values wrong: %v %v", c.Get(0, 0), c.Get(1, 1))
	}

	// Map coords preserved: cropped (0,0) == original (1,2)
	wantX, wantY := prof.Transform.PixelToMap(1, 2)
	gotX, gotY := c.Profile().Transform.PixelToMap(0, 0)
	if gotX != wantX || gotY != wantY {
		t.Errorf("geotransform not rebased: got (%v,%v), want (%v,%v)", gotX, gotY, wantX, wantY)
	}

	if _, err := g.Crop(image.Rect(2, 2, 9, 9)); err == nil {
		t.Errorf("out-of-bounds crop should fail")
	}
}

func TestMinMaxMean(t *testing.T) {
	g := NewGrid(2, 2, UnitProfile(2, 2))
	g.Set(0, 0, -1)
	g.Set(1, 0, 3)
	g.Set(0, 1, 1)
	g.Set(1, 1, 1)

	min, max := g.MinMax()
	if min != -1 || max != 3 {
		t.Errorf("minmax: got (%v,%v)", min, max)
	}
	if m := g.Mean(); m != 1 {
		t.Errorf("mean: got %v, want 1", m)
	}
}

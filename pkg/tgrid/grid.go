package tgrid

import (
	"fmt"
	"image"
	"math"
)

// A Grid is a single-band raster of float64 values, with the
// georeferencing Profile of the file it was read from. Pipeline stages
// never mutate a Grid they were handed; each stage builds a new one.
type Grid struct {
	stride int
	values []float64
	prof   Profile
}

func NewGrid(w, h int, prof Profile) *Grid {
	return &Grid{
		stride: w,
		values: make([]float64, w*h),
		prof:   prof,
	}
}

func (g *Grid) NewFromThis() *Grid         { return NewGrid(g.Dx(), g.Dy(), g.prof) }
func (g *Grid) Set(x, y int, v float64)    { g.values[g.stride*y+x] = v }
func (g *Grid) Get(x, y int) float64       { return g.values[g.stride*y+x] }
func (g *Grid) Dx() int                    { return g.stride }
func (g *Grid) Dy() int                    { return len(g.values) / g.stride }
func (g *Grid) Profile() Profile           { return g.prof }
func (g *Grid) Values() []float64          { return g.values }

func (g1 *Grid) Copy() *Grid {
	g2 := &Grid{stride: g1.stride, values: make([]float64, len(g1.values)), prof: g1.prof}
	copy(g2.values, g1.values)
	return g2
}

// Sanitized returns a copy with non-finite values replaced by 0 and
// negative values clipped to 0.
func (g1 *Grid) Sanitized() *Grid {
	g2 := g1.Copy()
	for i, v := range g2.values {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			g2.values[i] = 0
		}
	}
	return g2
}

// Map builds a new grid by applying f to every value.
func (g1 *Grid) Map(f func(float64) float64) *Grid {
	g2 := g1.NewFromThis()
	for i, v := range g1.values {
		g2.values[i] = f(v)
	}
	return g2
}

func (g *Grid) Mean() float64 {
	sum := 0.0
	for _, v := range g.values {
		sum += v
	}
	return sum / float64(len(g.values))
}

func (g *Grid) MinMax() (float64, float64) {
	min := math.MaxFloat64
	max := -1.0 * min
	for _, v := range g.values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// Crop returns the sub-grid covered by r, with the profile's
// geotransform shifted so map coordinates are preserved.
func (g1 *Grid) Crop(r image.Rectangle) (*Grid, error) {
	full := image.Rect(0, 0, g1.Dx(), g1.Dy())
	if !r.In(full) || r.Empty() {
		return nil, fmt.Errorf("crop %v outside grid %v", r, full)
	}
	prof := g1.prof
	prof.Width = r.Dx()
	prof.Height = r.Dy()
	prof.Transform = prof.Transform.ShiftOrigin(float64(r.Min.X), float64(r.Min.Y))

	g2 := NewGrid(r.Dx(), r.Dy(), prof)
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			g2.Set(x, y, g1.Get(x+r.Min.X, y+r.Min.Y))
		}
	}
	return g2, nil
}

func (g *Grid) Stats() string {
	min, max := g.MinMax()
	return fmt.Sprintf("grid[%dx%d, vals{%f,%f}]", g.Dx(), g.Dy(), min, max)
}

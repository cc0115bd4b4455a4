package tgrid

import "math"

// GaussianBlur runs an isotropic Gaussian of scale sigma over the grid
// and returns the smoothed copy. The kernel is separable, truncated at
// 3 sigma, and edges are handled by clamping the sample coordinate, so
// a constant grid blurs to itself.
func (g1 *Grid) GaussianBlur(sigma float64) *Grid {
	if sigma <= 0 {
		return g1.Copy()
	}

	kernel := gaussianKernel(sigma)
	radius := len(kernel) / 2
	width := g1.Dx()
	height := g1.Dy()

	// X pass, build up in T
	T := g1.NewFromThis()
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			t := 0.0
			for k := -radius; k <= radius; k++ {
				t += kernel[k+radius] * g1.Get(clamp(x+k, width), y)
			}
			T.Set(x, y, t)
		}
	}

	// Y pass, read from T and generate output
	g2 := g1.NewFromThis()
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			t := 0.0
			for k := -radius; k <= radius; k++ {
				t += kernel[k+radius] * T.Get(x, clamp(y+k, height))
			}
			g2.Set(x, y, t)
		}
	}

	return g2
}

func gaussianKernel(sigma float64) []float64 {
	radius := int(3.0*sigma + 0.5)
	if radius < 1 {
		radius = 1
	}
	kernel := make([]float64, 2*radius+1)
	sum := 0.0
	for i := range kernel {
		d := float64(i - radius)
		kernel[i] = math.Exp(-d * d / (2.0 * sigma * sigma))
		sum += kernel[i]
	}
	for i := range kernel {
		kernel[i] /= sum
	}
	return kernel
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

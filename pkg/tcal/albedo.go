package tcal

import (
	"tmc2cal/pkg/tgrid"
)

// trendFloor stops the division blowing up over near-zero trend
// regions (deep shadow, nodata fringes).
const trendFloor = 1e-6

// Normalizer removes the large-scale photometric trend from a
// reflectance raster. The trend is approximated by a Gaussian blur at
// a scale chosen to ride over small-scale albedo variation; dividing
// it out and rescaling to a fixed target mean makes scenes comparable
// regardless of absolute photometric level, at the cost of absolute
// calibration.
type Normalizer struct {
	Cfg AlbedoConfig
}

// Normalize never fails: input is sanitized first (non-finite -> 0,
// negatives clipped), and a degenerate all-zero raster passes through
// as zeros.
func (n Normalizer) Normalize(refl *tgrid.Grid) *tgrid.Grid {
	arr := refl.Sanitized()

	trend := arr.GaussianBlur(n.Cfg.Sigma)
	trend = trend.Map(func(v float64) float64 {
		if v < trendFloor {
			return trendFloor
		}
		return v
	})

	norm := arr.NewFromThis()
	for y := 0; y < arr.Dy(); y++ {
		for x := 0; x < arr.Dx(); x++ {
			norm.Set(x, y, arr.Get(x, y)/trend.Get(x, y))
		}
	}

	mean := norm.Mean()
	if mean <= 0 {
		return norm
	}
	scale := n.Cfg.TargetMean / mean
	return norm.Map(func(v float64) float64 { return v * scale })
}

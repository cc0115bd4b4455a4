package tcal

import (
	"fmt"

	"tmc2cal/pkg/tgrid"
)

// Coverage is the per-scene shadow accounting row: append-only, one
// per scene, with the branch's reason string for auditability.
type Coverage struct {
	Stem   string  `json:"tile"`
	Pct    float64 `json:"shadow_coverage_pct"`
	Method string  `json:"method"`
}

// Segmenter derives a binary shadow mask from a normalized raster.
//
// Two branches: under grazing illumination (sun below the configured
// elevation threshold) photometry can't tell true shadow from dark
// terrain, so the whole frame is conservatively flagged. Otherwise a
// pixel is shadow if it falls below either an absolute cutoff or a
// scene-relative one, so uniformly dark scenes and locally dark
// patches in bright scenes are both caught. Opening-then-closing
// cleanup runs last; opening first so closing can't reintroduce the
// speckle it removed.
type Segmenter struct {
	Cfg ShadowConfig
}

func (s Segmenter) Segment(norm *tgrid.Grid, sunElDeg float64) (*tgrid.Mask, Coverage) {
	mask := tgrid.NewMask(norm.Dx(), norm.Dy())
	var method string

	if sunElDeg < s.Cfg.SunElThreshold {
		mask.Fill(true)
		method = fmt.Sprintf("sun low (%.1f°)", sunElDeg)
	} else {
		meanValid := s.meanValid(norm)
		relThr := s.Cfg.ThresholdFactor * meanValid
		for y := 0; y < norm.Dy(); y++ {
			for x := 0; x < norm.Dx(); x++ {
				v := norm.Get(x, y)
				mask.Set(x, y, v < s.Cfg.AbsIFThreshold || v < relThr)
			}
		}
		method = fmt.Sprintf("mean_IF=%.3f, rel_thr=%.3f", meanValid, relThr)
	}

	mask = mask.Open(s.Cfg.MorphIters).Close(s.Cfg.MorphIters)

	return mask, Coverage{Pct: mask.CoveragePct(), Method: method}
}

// meanValid averages only pixels at or above the validity floor;
// anything below is treated as already-invalid noise, excluded from
// the statistic rather than dragging it down.
func (s Segmenter) meanValid(g *tgrid.Grid) float64 {
	sum := 0.0
	n := 0
	for _, v := range g.Values() {
		if v >= s.Cfg.MinIFValid {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

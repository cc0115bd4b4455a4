package tcal

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"tmc2cal/pkg/tgrid"
)

// Visualizer renders QA artifacts (previews, shadow overlays, the
// coverage chart) into its directory. Purely advisory output; the
// calibrated products never pass through here.
type Visualizer struct {
	Dir string
}

var shadowTint = colorful.Color{R: 0.85, G: 0.10, B: 0.10}

// GridPreview saves a gamma-scaled grayscale rendering of a grid,
// stretched over its value range.
func (v Visualizer) GridPreview(g *tgrid.Grid, title, filename string) error {
	img := renderGray(g, nil)
	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 20, 30)
	return v.save(dc, filename)
}

// ShadowOverlay draws the normalized raster with shadow pixels tinted
// red, side by side with the reason baked into the title.
func (v Visualizer) ShadowOverlay(norm *tgrid.Grid, mask *tgrid.Mask, title, filename string) error {
	img := renderGray(norm, mask)
	dc := gg.NewContextForImage(img)
	dc.SetRGB(1, 1, 1)
	dc.DrawString(title, 20, 30)
	return v.save(dc, filename)
}

// CoverageBar charts per-scene shadow coverage with a 50% reference
// line.
func (v Visualizer) CoverageBar(covs []Coverage, filename string) error {
	const (
		barW    = 28.0
		gap     = 8.0
		chartH  = 300.0
		marginX = 40.0
		marginY = 40.0
	)
	w := int(marginX*2 + float64(len(covs))*(barW+gap))
	if w < 320 {
		w = 320
	}
	h := int(chartH + marginY*2)

	dc := gg.NewContext(w, h)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	for i, c := range covs {
		x := marginX + float64(i)*(barW+gap)
		barH := chartH * c.Pct / 100.0
		dc.SetRGB(0.1, 0.1, 0.45)
		dc.DrawRectangle(x, marginY+chartH-barH, barW, barH)
		dc.Fill()
		dc.SetRGB(0, 0, 0)
		dc.DrawStringAnchored(c.Stem, x+barW/2, marginY+chartH+14, 0.5, 0.5)
	}

	// 50% reference line
	dc.SetRGB(0.8, 0.1, 0.1)
	dc.SetLineWidth(1)
	dc.DrawLine(marginX, marginY+chartH/2, float64(w)-marginX, marginY+chartH/2)
	dc.Stroke()
	dc.SetRGB(0, 0, 0)
	dc.DrawString("shadow coverage (%)", marginX, marginY-10)

	return v.save(dc, filename)
}

func (v Visualizer) save(dc *gg.Context, filename string) error {
	path := filepath.Join(v.Dir, filename)
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// renderGray maps grid values to gamma-corrected gray, optionally
// tinting masked pixels.
func renderGray(g *tgrid.Grid, mask *tgrid.Mask) image.Image {
	min, max := g.MinMax()
	span := max - min
	if span <= 0 {
		span = 1
	}

	img := image.NewRGBA(image.Rect(0, 0, g.Dx(), g.Dy()))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			gray := gammaExpand((g.Get(x, y) - min) / span)
			c := colorful.Color{R: gray, G: gray, B: gray}
			if mask != nil && mask.Get(x, y) {
				c = c.BlendLab(shadowTint, 0.4).Clamped()
			}
			img.Set(x, y, color.RGBA{
				R: uint8(c.R * 255.0),
				G: uint8(c.G * 255.0),
				B: uint8(c.B * 255.0),
				A: 0xFF,
			})
		}
	}
	return img
}

// sRGB gamma, so linear reflectance looks normal to human vision.
func gammaExpand(f float64) float64 {
	if f <= 0.0031308 {
		return 12.92 * f
	}
	return 1.055*math.Pow(f, 1.0/2.4) - 0.055
}

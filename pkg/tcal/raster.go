package tcal

import (
	"fmt"
	"image"
	"image/color"
	"os"

	"github.com/mdouchement/hdr"
	"github.com/mdouchement/hdr/codec/rgbe"
	"github.com/mdouchement/hdr/hdrcolor"
	"golang.org/x/image/tiff"

	"tmc2cal/pkg/tgrid"
)

// RasterIO is the raster-format collaborator at the pipeline boundary.
// DN input arrives as single-band grayscale TIFF; float products leave
// as Radiance HDR (the stack's float codec; x/image/tiff cannot encode
// float samples); masks leave as 8-bit gray TIFF holding {0,1}.
type RasterIO interface {
	ReadDN(path string) (*tgrid.Grid, error)
	WriteFloat(path string, g *tgrid.Grid) error
	WriteMask(path string, m *tgrid.Mask, prof tgrid.Profile) error
	WriteQuicklook(path string, g *tgrid.Grid) error
}

// FileRasterIO is the on-disk implementation.
type FileRasterIO struct{}

// ReadDN decodes a raw digital-count raster into a float grid.
func (FileRasterIO) ReadDN(path string) (*tgrid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRasterIO, path, err)
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: tiff decode %s: %v", ErrRasterIO, path, err)
	}

	b := img.Bounds()
	g := tgrid.NewGrid(b.Dx(), b.Dy(), tgrid.UnitProfile(b.Dx(), b.Dy()))

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g.Set(x, y, float64(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	case *image.Gray16:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				g.Set(x, y, float64(im.Gray16At(b.Min.X+x, b.Min.Y+y).Y))
			}
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				g.Set(x, y, float64(c.Y))
			}
		}
	}

	return g, nil
}

// hdrGrid adapts a Grid to hdr.Image so the rgbe codec can walk it.
// Single-band data rides in all three channels.
type hdrGrid struct {
	g *tgrid.Grid
}

func (h hdrGrid) ColorModel() color.Model { return hdrcolor.RGBModel }
func (h hdrGrid) Bounds() image.Rectangle { return image.Rect(0, 0, h.g.Dx(), h.g.Dy()) }
func (h hdrGrid) At(x, y int) color.Color { return h.HDRAt(x, y) }
func (h hdrGrid) Size() int               { return h.g.Dx() * h.g.Dy() }

func (h hdrGrid) HDRAt(x, y int) hdrcolor.Color {
	v := h.g.Get(x, y)
	return hdrcolor.RGB{R: v, G: v, B: v}
}

// WriteFloat persists a float raster RGBE-encoded: one shared exponent
// and 8-bit mantissas per pixel, so values survive within ~0.5%
// relative error rather than bit-exactly.
func (FileRasterIO) WriteFloat(path string, g *tgrid.Grid) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: open+w %s: %v", ErrRasterIO, path, err)
	}
	defer f.Close()

	if err := rgbe.Encode(f, hdrGrid{g}); err != nil {
		return fmt.Errorf("%w: rgbe encode %s: %v", ErrRasterIO, path, err)
	}
	return nil
}

// ReadFloat loads a raster written by WriteFloat. The pipeline itself
// is one-way and never re-reads its float products; this is the decode
// side of the codec for downstream consumers.
func (FileRasterIO) ReadFloat(path string) (*tgrid.Grid, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrRasterIO, path, err)
	}
	defer f.Close()

	img, err := rgbe.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: rgbe decode %s: %v", ErrRasterIO, path, err)
	}
	him, ok := img.(hdr.Image)
	if !ok {
		return nil, fmt.Errorf("%w: %s decoded to %T, not an hdr image", ErrRasterIO, path, img)
	}

	b := him.Bounds()
	g := tgrid.NewGrid(b.Dx(), b.Dy(), tgrid.UnitProfile(b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			r, _, _, _ := him.HDRAt(b.Min.X+x, b.Min.Y+y).HDRRGBA()
			g.Set(x, y, r)
		}
	}
	return g, nil
}

// WriteMask writes the shadow mask as an 8-bit gray TIFF with pixel
// values drawn from exactly {0,1}.
func (FileRasterIO) WriteMask(path string, m *tgrid.Mask, prof tgrid.Profile) error {
	img := image.NewGray(image.Rect(0, 0, m.Dx(), m.Dy()))
	for y := 0; y < m.Dy(); y++ {
		for x := 0; x < m.Dx(); x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 1})
			}
		}
	}
	return writeTIFF(path, img)
}

// WriteQuicklook writes a min-max stretched Gray16 rendering of a
// float grid, for eyeballing. Not a calibrated product.
func (FileRasterIO) WriteQuicklook(path string, g *tgrid.Grid) error {
	min, max := g.MinMax()
	span := max - min
	if span <= 0 {
		span = 1
	}

	img := image.NewGray16(image.Rect(0, 0, g.Dx(), g.Dy()))
	for y := 0; y < g.Dy(); y++ {
		for x := 0; x < g.Dx(); x++ {
			v := (g.Get(x, y) - min) / span
			img.SetGray16(x, y, color.Gray16{Y: uint16(v * 65535.0)})
		}
	}
	return writeTIFF(path, img)
}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: open+w %s: %v", ErrRasterIO, path, err)
	}
	defer f.Close()

	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		return fmt.Errorf("%w: tiff encode %s: %v", ErrRasterIO, path, err)
	}
	return nil
}

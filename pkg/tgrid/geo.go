package tgrid

import (
	"fmt"

	"golang.org/x/image/math/f64" // Will be "image/math/f64" at some point, hopefully make this file redundant
)

// Use a local type so we can hang methods off it. Laid out row-major:
// {a, b, c, d, e, f} maps pixel (x,y) to map coords
// (a*x + b*y + c, d*x + e*y + f).
type GeoTransform f64.Aff3

// Profile is the georeferencing carried alongside a raster: it travels
// unchanged through every pipeline stage except Crop.
type Profile struct {
	Width     int
	Height    int
	Transform GeoTransform
	Nodata    float64
	HasNodata bool
}

func UnitProfile(w, h int) Profile {
	return Profile{Width: w, Height: h, Transform: Identity()}
}

func Identity() GeoTransform {
	return GeoTransform{1, 0, 0, 0, 1, 0}
}

// Cut-n-pasted from image@0.7.0/draw/scale:matMul
func (p GeoTransform) Mult(q GeoTransform) GeoTransform {
	return GeoTransform{
		p[3*0+0]*q[3*0+0] + p[3*0+1]*q[3*1+0],
		p[3*0+0]*q[3*0+1] + p[3*0+1]*q[3*1+1],
		p[3*0+0]*q[3*0+2] + p[3*0+1]*q[3*1+2] + p[3*0+2],
		p[3*1+0]*q[3*0+0] + p[3*1+1]*q[3*1+0],
		p[3*1+0]*q[3*0+1] + p[3*1+1]*q[3*1+1],
		p[3*1+0]*q[3*0+2] + p[3*1+1]*q[3*1+2] + p[3*1+2],
	}
}

// PixelToMap maps a pixel coordinate into map space.
func (t GeoTransform) PixelToMap(x, y float64) (float64, float64) {
	return t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]
}

// ShiftOrigin rebases the transform so that pixel (0,0) of a cropped
// grid lands on the same map coordinate as pixel (dx,dy) did before.
func (t GeoTransform) ShiftOrigin(dx, dy float64) GeoTransform {
	return t.Mult(GeoTransform{1, 0, dx, 0, 1, dy})
}

func (t GeoTransform) String() string {
	return fmt.Sprintf("geoxform[%g %g %g; %g %g %g]", t[0], t[1], t[2], t[3], t[4], t[5])
}

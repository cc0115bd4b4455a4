package tcal

import (
	"math"

	"tmc2cal/pkg/tgrid"
)

// cosineFloor keeps mu0/mu away from the grazing-angle singularity of
// the Minnaert law. An accuracy/robustness trade-off, not physics.
const cosineFloor = 1e-6

// Corrector converts raw digital counts into I/F reflectance via the
// Minnaert photometric law.
type Corrector struct {
	Cfg MinnaertConfig
}

// Correct applies dark-current subtraction, gain scaling, and the
// Minnaert limb-darkening correction for the resolved geometry:
//
//	radiance    = clip((DN - dark) * gain, 0)
//	reflectance = radiance * mu0^(-k) * mu^(k-1)
//
// Negative radiance after dark subtraction is physically invalid and
// floors to zero, so the output is always finite and >= 0.
func (c Corrector) Correct(raw *tgrid.Grid, geom Geometry) *tgrid.Grid {
	mu0, mu := muPair(geom)
	k := c.Cfg.KExponent
	minnaert := math.Pow(mu0, -k) * math.Pow(mu, k-1)

	return raw.Map(func(dn float64) float64 {
		radiance := (dn - c.Cfg.DarkCurrent) * c.Cfg.Gain
		if radiance < 0 {
			radiance = 0
		}
		return radiance * minnaert
	})
}

func muPair(geom Geometry) (mu0, mu float64) {
	mu0 = math.Max(math.Cos(geom.IncidenceDeg*math.Pi/180.0), cosineFloor)
	mu = math.Max(math.Cos(geom.EmissionDeg*math.Pi/180.0), cosineFloor)
	return mu0, mu
}

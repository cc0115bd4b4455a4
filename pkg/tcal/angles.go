package tcal

import (
	"fmt"
	"sort"
	"time"
)

// An AngleSample is one telemetry point: an angle in degrees at an
// instant. Immutable once created.
type AngleSample struct {
	Time  time.Time
	Angle float64
}

// An AngleSeries is an ordered run of samples, non-decreasing by time.
// It is built once per run and is read-only afterward, so Interpolate
// is safe to call concurrently from every scene worker.
type AngleSeries []AngleSample

func NewAngleSeries(samples []AngleSample) AngleSeries {
	s := make(AngleSeries, len(samples))
	copy(s, samples)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
	return s
}

func (s AngleSeries) Empty() bool { return len(s) == 0 }

// Interpolate answers the angle at time t. Queries before the first
// sample clamp to it, queries after the last clamp to that; in between
// it is linear in time across the bracketing pair. Must not be called
// on an empty series - use the fallback geometry path instead.
func (s AngleSeries) Interpolate(t time.Time) float64 {
	idx := sort.Search(len(s), func(i int) bool { return !s[i].Time.Before(t) })
	if idx == 0 {
		return s[0].Angle
	}
	if idx >= len(s) {
		return s[len(s)-1].Angle
	}

	t0, v0 := s[idx-1].Time, s[idx-1].Angle
	t1, v1 := s[idx].Time, s[idx].Angle
	frac := t.Sub(t0).Seconds() / t1.Sub(t0).Seconds()
	return v0 + frac*(v1-v0)
}

// Geometry is the viewing/illumination geometry resolved for one
// scene. Derived per scene, never cached across runs.
type Geometry struct {
	IncidenceDeg float64
	EmissionDeg  float64
	Source       string // SourceInterpolated or SourceFallback
}

const (
	SourceInterpolated = "interpolated"
	SourceFallback     = "fallback"
)

func (g Geometry) String() string {
	return fmt.Sprintf("geom[inc %.2f emi %.2f %s]", g.IncidenceDeg, g.EmissionDeg, g.Source)
}

// ResolveGeometry derives incidence/emission angles for a scene at its
// acquisition instant. With both telemetry series present the angles
// are interpolated; the sun-elevation series yields incidence as its
// complement. Otherwise it falls back to a static per-scene estimate:
// the catalog row's own incidence column if it has one, else the
// scene's label (an explicit incidence field, then 90 - elevation,
// then the configured default), with the configured default emission.
// The fallback path cannot fail.
func ResolveGeometry(scene SceneRecord, sunEl, emission AngleSeries, labelPath string, cfg GeometryConfig) Geometry {
	if !sunEl.Empty() && !emission.Empty() && scene.HasTime {
		return Geometry{
			IncidenceDeg: 90.0 - sunEl.Interpolate(scene.Time),
			EmissionDeg:  emission.Interpolate(scene.Time),
			Source:       SourceInterpolated,
		}
	}

	incidence := scene.IncidenceDeg
	if !scene.HasIncidence {
		incidence = labelIncidence(labelPath, cfg)
	}
	return Geometry{
		IncidenceDeg: incidence,
		EmissionDeg:  cfg.DefaultEmissionDeg,
		Source:       SourceFallback,
	}
}

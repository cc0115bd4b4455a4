package tcal

import (
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/skypies/util/histogram"
	"gonum.org/v1/gonum/stat"

	"tmc2cal/pkg/tgrid"
	"tmc2cal/pkg/tlog"
)

// SceneQA is the per-scene radiometric QA/provenance record. The core
// produces the values; writing them anywhere is the sink's business.
// Shaped both ways the collaborators want it: CSV row and JSON line.
type SceneQA struct {
	File         string  `json:"file"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	IncidenceDeg float64 `json:"incidence_angle_deg"`
	EmissionDeg  float64 `json:"emission_angle_deg"`
	AngleSource  string  `json:"angle_source"`
	ShadowPct    float64 `json:"shadow_coverage_pct"`
	Method       string  `json:"method"`
}

// AngleProvenance records how a scene's geometry was resolved.
type AngleProvenance struct {
	ImageFile       string  `json:"image_file"`
	Stem            string  `json:"original_stem"`
	Timestamp       string  `json:"timestamp"`
	IncidenceDeg    float64 `json:"incidence_angle_deg"`
	EmissionDeg     float64 `json:"emission_angle_deg"`
	SunElevationDeg float64 `json:"sun_elevation_deg"`
	AngleSource     string  `json:"angle_source"`
}

func NewSceneQA(file string, refl *tgrid.Grid, geom Geometry, cov Coverage) SceneQA {
	min, max := refl.MinMax()
	vals := refl.Values()
	return SceneQA{
		File:         file,
		Min:          min,
		Max:          max,
		Mean:         stat.Mean(vals, nil),
		Std:          stat.StdDev(vals, nil),
		IncidenceDeg: geom.IncidenceDeg,
		EmissionDeg:  geom.EmissionDeg,
		AngleSource:  geom.Source,
		ShadowPct:    cov.Pct,
		Method:       cov.Method,
	}
}

func NewAngleProvenance(scene SceneRecord, geom Geometry, file string) AngleProvenance {
	ts := ""
	if scene.HasTime {
		ts = scene.Time.Format("2006-01-02T15:04:05")
	}
	return AngleProvenance{
		ImageFile:       file,
		Stem:            scene.Stem,
		Timestamp:       ts,
		IncidenceDeg:    geom.IncidenceDeg,
		EmissionDeg:     geom.EmissionDeg,
		SunElevationDeg: 90.0 - geom.IncidenceDeg,
		AngleSource:     geom.Source,
	}
}

// ReflectanceHistogram accumulates the I/F distribution of a scene,
// one permille per bucket, for the run log.
func ReflectanceHistogram(g *tgrid.Grid) histogram.Histogram {
	h := histogram.Histogram{NumBuckets: 100, ValMin: 0, ValMax: 1000}
	for _, v := range g.Values() {
		h.Add(histogram.ScalarVal(int(v * 1000.0)))
	}
	return h
}

func qaHeader() []string {
	return []string{"file", "min", "max", "mean", "std", "incidence", "emission", "angle_source", "shadow_pct", "method"}
}

func (q SceneQA) csvRow() []string {
	return []string{
		q.File,
		fmt.Sprintf("%.6f", q.Min),
		fmt.Sprintf("%.6f", q.Max),
		fmt.Sprintf("%.6f", q.Mean),
		fmt.Sprintf("%.6f", q.Std),
		fmt.Sprintf("%.2f", q.IncidenceDeg),
		fmt.Sprintf("%.2f", q.EmissionDeg),
		q.AngleSource,
		fmt.Sprintf("%.2f", q.ShadowPct),
		q.Method,
	}
}

// EmitQA writes the QA table (CSV) and provenance stream (JSONL)
// through the run sink. Records are written in the order given; the
// batch runner hands them over already sorted by stem.
func EmitQA(run *tlog.Run, recs []SceneQA) error {
	cw, err := run.Sink("radiometric_qc.csv")
	if err != nil {
		return err
	}
	w := csv.NewWriter(cw)
	if err := w.Write(qaHeader()); err != nil {
		return fmt.Errorf("qa csv: %w", err)
	}
	for _, rec := range recs {
		if err := w.Write(rec.csvRow()); err != nil {
			return fmt.Errorf("qa csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("qa csv: %w", err)
	}

	jw, err := run.Sink("radiometric_provenance.jsonl")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(jw)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("qa jsonl: %w", err)
		}
	}
	return nil
}

// EmitCoverage writes the shadow coverage table, sorted by the caller.
func EmitCoverage(run *tlog.Run, covs []Coverage) error {
	cw, err := run.Sink("shadow_coverage.csv")
	if err != nil {
		return err
	}
	w := csv.NewWriter(cw)
	if err := w.Write([]string{"tile", "shadow_coverage_pct", "method"}); err != nil {
		return fmt.Errorf("coverage csv: %w", err)
	}
	for _, c := range covs {
		if err := w.Write([]string{c.Stem, fmt.Sprintf("%.2f", c.Pct), c.Method}); err != nil {
			return fmt.Errorf("coverage csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("coverage csv: %w", err)
	}
	return nil
}

// EmitAngleProvenance writes one JSON line per scene describing the
// resolved geometry.
func EmitAngleProvenance(run *tlog.Run, recs []AngleProvenance) error {
	jw, err := run.Sink("sun_angles.jsonl")
	if err != nil {
		return err
	}
	enc := json.NewEncoder(jw)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("angles jsonl: %w", err)
		}
	}
	return nil
}

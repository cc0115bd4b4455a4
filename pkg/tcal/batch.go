package tcal

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/codahale/hdrhistogram"

	"tmc2cal/pkg/tlog"
)

// A Scene is one unit of batch work: the DN raster plus its label.
type Scene struct {
	Stem       string
	RasterPath string
	LabelPath  string
}

// ListScenes enumerates the *.tif rasters under dir, sorted by stem,
// pairing each with its sibling label file.
func ListScenes(dir string) ([]Scene, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.tif"))
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	scenes := make([]Scene, 0, len(paths))
	for _, path := range paths {
		stem := stemOf(path)
		scenes = append(scenes, Scene{
			Stem:       stem,
			RasterPath: path,
			LabelPath:  filepath.Join(filepath.Dir(path), stem+".xml"),
		})
	}
	sort.Slice(scenes, func(i, j int) bool { return scenes[i].Stem < scenes[j].Stem })
	return scenes, nil
}

type SceneFailure struct {
	Stem string
	Err  error
}

// BatchResult is the explicit success/failure split of a run. Slices
// are ordered by stem, whatever order the workers finished in.
type BatchResult struct {
	Succeeded []SceneQA
	Failed    []SceneFailure
	Coverage  []Coverage
	Angles    []AngleProvenance

	// Per-scene wall time, milliseconds.
	WallTimes *hdrhistogram.Histogram
}

// Pipeline wires the four stages together with their collaborators.
// Catalog and the two angle series are read-only for the whole run;
// each scene's rasters belong to that scene's worker alone.
type Pipeline struct {
	Cfg      Config
	Catalog  Catalog
	SunEl    AngleSeries
	Emission AngleSeries
	IO       RasterIO
	Run      *tlog.Run
	Vis      *Visualizer // nil disables QA renders
	OutDir   string
}

type sceneOutcome struct {
	qa     SceneQA
	cov    Coverage
	prov   AngleProvenance
	wallMs int64
	err    error
}

// concLimiter caps how many scene workers run at once.
type concLimiter struct {
	*sync.WaitGroup
	pool chan struct{}
}

func newConcLimiter(level int) *concLimiter {
	var wg sync.WaitGroup
	return &concLimiter{&wg, make(chan struct{}, level)}
}

func (c *concLimiter) increase() {
	c.Add(1)
	c.pool <- struct{}{}
}

func (c *concLimiter) decrease() {
	<-c.pool
	c.Done()
}

// RunBatch processes every scene through the four-stage chain,
// fail-soft: a scene either completes or fails as a unit, and no
// failure aborts the batch. Aggregate artifacts come out sorted by
// stem regardless of completion order.
func (p *Pipeline) RunBatch(scenes []Scene) (BatchResult, error) {
	res := BatchResult{
		WallTimes: hdrhistogram.New(1, int64(time.Hour/time.Millisecond), 3),
	}

	if err := p.Cfg.Validate(); err != nil {
		return res, err
	}
	if p.Catalog == nil {
		return res, fmt.Errorf("no metadata catalog for batch")
	}
	if err := os.MkdirAll(p.OutDir, 0755); err != nil {
		return res, fmt.Errorf("out dir %s: %w", p.OutDir, err)
	}

	sorted := make([]Scene, len(scenes))
	copy(sorted, scenes)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Stem < sorted[j].Stem })

	workers := p.Cfg.Run.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	outcomes := make([]sceneOutcome, len(sorted))
	cl := newConcLimiter(workers)
	for i := range sorted {
		cl.increase()
		go func(i int) {
			defer cl.decrease()
			outcomes[i] = p.runScene(sorted[i])
		}(i)
	}
	cl.Wait()

	for i, out := range outcomes {
		if out.err != nil {
			res.Failed = append(res.Failed, SceneFailure{Stem: sorted[i].Stem, Err: out.err})
			p.Run.Log.Errorw("scene failed", "stem", sorted[i].Stem, "err", out.err)
			continue
		}
		res.Succeeded = append(res.Succeeded, out.qa)
		res.Coverage = append(res.Coverage, out.cov)
		res.Angles = append(res.Angles, out.prov)
		_ = res.WallTimes.RecordValue(out.wallMs)
	}

	if err := EmitQA(p.Run, res.Succeeded); err != nil {
		return res, err
	}
	if err := EmitCoverage(p.Run, res.Coverage); err != nil {
		return res, err
	}
	if err := EmitAngleProvenance(p.Run, res.Angles); err != nil {
		return res, err
	}
	if p.Vis != nil {
		if err := p.Vis.CoverageBar(res.Coverage, "shadow_coverage_bar.png"); err != nil {
			p.Run.Log.Warnw("coverage chart failed", "err", err)
		}
	}

	p.Run.Log.Infow("batch complete",
		"scenes", len(sorted),
		"succeeded", len(res.Succeeded),
		"failed", len(res.Failed),
		"wall_ms_p50", res.WallTimes.ValueAtQuantile(50),
		"wall_ms_max", res.WallTimes.Max(),
	)
	return res, nil
}

// runScene is the per-scene unit of work. Panics out of any stage are
// demoted to raster-class per-scene failures rather than killing the
// batch.
func (p *Pipeline) runScene(sc Scene) (out sceneOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("%w: %s: panic: %v", ErrRasterIO, sc.Stem, r)
		}
	}()
	start := time.Now()

	rec, err := p.sceneRecord(sc)
	if err != nil {
		out.err = err
		return out
	}

	geom := ResolveGeometry(rec, p.SunEl, p.Emission, sc.LabelPath, p.Cfg.Geometry)

	raw, err := p.IO.ReadDN(sc.RasterPath)
	if err != nil {
		out.err = err
		return out
	}
	if !p.Cfg.Run.Crop.Empty() {
		if raw, err = raw.Crop(p.Cfg.Run.Crop); err != nil {
			out.err = fmt.Errorf("%w: %s: %v", ErrRasterIO, sc.Stem, err)
			return out
		}
	}

	refl := Corrector{Cfg: p.Cfg.Minnaert}.Correct(raw, geom)
	if err := p.IO.WriteFloat(p.outPath(sc.Stem+"_if.hdr"), refl); err != nil {
		out.err = err
		return out
	}

	norm := Normalizer{Cfg: p.Cfg.Albedo}.Normalize(refl)
	if err := p.IO.WriteFloat(p.outPath(sc.Stem+"_albnorm.hdr"), norm); err != nil {
		out.err = err
		return out
	}

	sunEl := p.Cfg.Shadow.DefaultSunElevationDeg
	if rec.HasSunElevation {
		sunEl = rec.SunElevationDeg
	}
	mask, cov := Segmenter{Cfg: p.Cfg.Shadow}.Segment(norm, sunEl)
	cov.Stem = sc.Stem
	if err := p.IO.WriteMask(p.outPath(sc.Stem+"_shadowmask.tif"), mask, norm.Profile()); err != nil {
		out.err = err
		return out
	}

	if p.Cfg.Run.Quicklooks {
		if err := p.IO.WriteQuicklook(p.outPath(sc.Stem+"_if_ql.tif"), refl); err != nil {
			p.Run.Log.Warnw("quicklook failed", "stem", sc.Stem, "err", err)
		}
	}
	if p.Vis != nil {
		if err := p.Vis.GridPreview(refl, sc.Stem+" I/F", sc.Stem+"_if_preview.png"); err != nil {
			p.Run.Log.Warnw("preview failed", "stem", sc.Stem, "err", err)
		}
		if err := p.Vis.ShadowOverlay(norm, mask, sc.Stem, sc.Stem+"_shadow_overlay.png"); err != nil {
			p.Run.Log.Warnw("overlay failed", "stem", sc.Stem, "err", err)
		}
	}

	out.qa = NewSceneQA(sc.Stem+"_if.hdr", refl, geom, cov)
	out.cov = cov
	out.prov = NewAngleProvenance(rec, geom, filepath.Base(sc.RasterPath))
	out.wallMs = time.Since(start).Milliseconds()
	if out.wallMs < 1 {
		out.wallMs = 1
	}

	p.Run.Log.Infow("scene complete",
		"stem", sc.Stem,
		"incidence", geom.IncidenceDeg,
		"emission", geom.EmissionDeg,
		"angle_source", geom.Source,
		"mean_if", out.qa.Mean,
		"shadow_pct", cov.Pct,
	)
	p.Run.Log.Debugf("%s I/F distribution: %s", sc.Stem, ReflectanceHistogram(refl))
	return out
}

// sceneRecord resolves the scene's catalog row. A stem missing from
// the catalog gets one more chance via the raster's EXIF DateTime; a
// scene with no timestamp at all is skipped.
func (p *Pipeline) sceneRecord(sc Scene) (SceneRecord, error) {
	rec, err := p.Catalog.Scene(sc.Stem)
	if err != nil {
		if t, exifErr := ExifTime(sc.RasterPath); exifErr == nil {
			p.Run.Log.Infow("timestamp recovered from EXIF", "stem", sc.Stem)
			return SceneRecord{Stem: sc.Stem, Time: t, HasTime: true}, nil
		}
		return SceneRecord{}, err
	}
	if !rec.HasTime {
		if t, exifErr := ExifTime(sc.RasterPath); exifErr == nil {
			rec.Time = t
			rec.HasTime = true
			return rec, nil
		}
		return SceneRecord{}, fmt.Errorf("%w: %s has no start_time", ErrMissingTimingRecord, sc.Stem)
	}
	return rec, nil
}

func (p *Pipeline) outPath(name string) string {
	return filepath.Join(p.OutDir, name)
}

package main

import (
	"errors"
	"flag"
	"fmt"
	"image"
	"log"
	"os"
	"strconv"
	"strings"

	"tmc2cal/pkg/tcal"
	"tmc2cal/pkg/tlog"
)

var (
	fConfig  string
	fIn      string
	fOut     string
	fLogDir  string
	fCatalog string
	fSPM     string
	fOAT     string
	fWorkers int
	fCrop    string
	fVisuals bool
	fQuick   bool
	fDebug   bool
)

func init() {
	flag.StringVar(&fConfig, "config", "", "pipeline config YAML (defaults used if empty)")
	flag.StringVar(&fIn, "in", "level0", "directory of input DN rasters (*.tif) and label XMLs")
	flag.StringVar(&fOut, "out", "level1", "directory for calibrated outputs")
	flag.StringVar(&fLogDir, "logs", "logs", "directory for QA/provenance artifacts")
	flag.StringVar(&fCatalog, "catalog", "logs/metadata_catalog.csv", "metadata catalog CSV")
	flag.StringVar(&fSPM, "spm", "", "sun-elevation telemetry file (.spm); empty degrades to fallback geometry")
	flag.StringVar(&fOAT, "oat", "", "emission-angle telemetry file (.oat); empty degrades to fallback geometry")
	flag.IntVar(&fWorkers, "workers", 0, "concurrent scene workers (0 = GOMAXPROCS)")
	flag.StringVar(&fCrop, "crop", "", "crop rectangle x0,y0,x1,y1 applied to every scene")
	flag.BoolVar(&fVisuals, "visuals", false, "render QA overlays and the coverage chart")
	flag.BoolVar(&fQuick, "quicklooks", false, "write Gray16 quicklook TIFFs")
	flag.BoolVar(&fDebug, "v", false, "verbose (development) logging")
	flag.Parse()
}

func main() {
	if err := pipeline(); err != nil {
		log.Fatal(err)
	}
}

// pipeline returns rather than exiting so the deferred sink release
// runs on every path, including failures.
func pipeline() error {
	run, err := tlog.Open(fLogDir, fDebug)
	if err != nil {
		return err
	}
	defer run.Close()

	cfg := tcal.NewConfig()
	if fConfig != "" {
		if cfg, err = tcal.LoadConfig(fConfig); err != nil {
			return err
		}
		run.Log.Infof("loaded configuration from %s", fConfig)
	}
	if fWorkers > 0 {
		cfg.Run.Workers = fWorkers
	}
	cfg.Run.Visuals = cfg.Run.Visuals || fVisuals
	cfg.Run.Quicklooks = cfg.Run.Quicklooks || fQuick
	if fCrop != "" {
		rect, err := parseCrop(fCrop)
		if err != nil {
			return fmt.Errorf("crop: %w", err)
		}
		cfg.Run.Crop = rect
	}

	// A bad constant is a setup error: halt before touching any scene.
	if err := cfg.Validate(); err != nil {
		return err
	}
	if fDebug {
		run.Log.Debugf("final configuration:\n%s", cfg.AsYaml())
	}

	catalog, err := tcal.LoadCatalog(fCatalog)
	if err != nil {
		return err // missing shared input: batch-wide fatal
	}

	sunEl := loadSeries(run, fSPM, tcal.FieldSunElevation, "sun elevation")
	emission := loadSeries(run, fOAT, tcal.FieldEmissionAngle, "emission angle")

	scenes, err := tcal.ListScenes(fIn)
	if err != nil {
		return err
	}
	if len(scenes) == 0 {
		run.Log.Warnf("no scenes found under %s", fIn)
	}

	p := tcal.Pipeline{
		Cfg:      cfg,
		Catalog:  catalog,
		SunEl:    sunEl,
		Emission: emission,
		IO:       tcal.FileRasterIO{},
		Run:      run,
		OutDir:   fOut,
	}
	if cfg.Run.Visuals {
		p.Vis = &tcal.Visualizer{Dir: run.Dir()}
	}

	res, err := p.RunBatch(scenes)
	if err != nil {
		return err
	}
	for _, f := range res.Failed {
		fmt.Fprintf(os.Stderr, "FAILED %s: %v\n", f.Stem, f.Err)
	}
	fmt.Printf("%d scenes: %d succeeded, %d failed\n",
		len(scenes), len(res.Succeeded), len(res.Failed))
	return nil
}

// loadSeries degrades gracefully: an absent or unreadable telemetry
// stream just means the fallback geometry path for every scene.
func loadSeries(run *tlog.Run, path string, field tcal.TelemetryField, what string) tcal.AngleSeries {
	if path == "" {
		return nil
	}
	series, rejected, err := tcal.LoadTelemetry(path, field)
	if err != nil {
		run.Log.Warnf("%s telemetry: %v (falling back to label geometry)", what, err)
		return nil
	}
	run.Log.Infow("telemetry loaded", "what", what, "samples", len(series), "rejected", rejected)
	return series
}

func parseCrop(s string) (image.Rectangle, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return image.Rectangle{}, fmt.Errorf("want x0,y0,x1,y1, got %q", s)
	}
	vals := make([]int, 4)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return image.Rectangle{}, fmt.Errorf("bad coordinate %q: %v", p, err)
		}
		vals[i] = v
	}
	r := image.Rect(vals[0], vals[1], vals[2], vals[3])
	if r.Empty() {
		return image.Rectangle{}, errors.New("empty crop rectangle")
	}
	return r, nil
}

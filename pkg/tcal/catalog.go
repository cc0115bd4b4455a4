package tcal

import (
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
)

// A SceneRecord is the per-scene row from the metadata catalog: the
// acquisition timestamp plus the label angles the shadow and fallback
// paths need. Calibration constants ride along from the config so the
// corrector sees one value per scene.
type SceneRecord struct {
	Stem string

	Time    time.Time
	HasTime bool

	SunAzimuthDeg   float64
	SunElevationDeg float64
	HasSunElevation bool

	IncidenceDeg float64
	HasIncidence bool
}

// A Catalog is the read-only stem -> SceneRecord table shared by every
// scene worker.
type Catalog map[string]SceneRecord

// LoadCatalog reads the metadata CSV (file_name, start_time,
// sun_azimuth, sun_elevation, optional solar_incidence). A missing
// catalog is fatal for the run; a row with unparsable optional fields
// still yields a usable record.
func LoadCatalog(path string) (Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog open %s: %w", path, err)
	}
	defer f.Close()

	return ParseCatalog(f)
}

func ParseCatalog(r io.Reader) (Catalog, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("catalog header: %w", err)
	}
	col := map[string]int{}
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	if _, ok := col["file_name"]; !ok {
		return nil, fmt.Errorf("catalog has no file_name column")
	}

	cat := Catalog{}
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("catalog row: %w", err)
		}

		field := func(name string) string {
			if i, ok := col[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		stem := stemOf(field("file_name"))
		if stem == "" {
			continue
		}
		rec := SceneRecord{Stem: stem}

		if t, err := parseCatalogTime(field("start_time")); err == nil {
			rec.Time = t
			rec.HasTime = true
		}
		if v, err := strconv.ParseFloat(field("sun_azimuth"), 64); err == nil {
			rec.SunAzimuthDeg = v
		}
		if v, err := strconv.ParseFloat(field("sun_elevation"), 64); err == nil {
			rec.SunElevationDeg = v
			rec.HasSunElevation = true
		}
		if v, err := strconv.ParseFloat(field("solar_incidence"), 64); err == nil {
			rec.IncidenceDeg = v
			rec.HasIncidence = true
		}

		cat[stem] = rec
	}

	return cat, nil
}

// Scene looks up a stem. An unknown stem is ErrMissingTimingRecord:
// that scene is skipped, the batch continues.
func (c Catalog) Scene(stem string) (SceneRecord, error) {
	rec, ok := c[stem]
	if !ok {
		return SceneRecord{}, fmt.Errorf("%w: %s not in catalog", ErrMissingTimingRecord, stem)
	}
	return rec, nil
}

// parseCatalogTime takes the leading ISO 8601 date-time, ignoring any
// trailing fractional seconds or zone suffix the label writer added.
func parseCatalogTime(s string) (time.Time, error) {
	if len(s) < 19 {
		return time.Time{}, fmt.Errorf("start_time too short: %q", s)
	}
	return time.Parse("2006-01-02T15:04:05", s[:19])
}

func stemOf(filename string) string {
	base := filepath.Base(filename)
	for ext := filepath.Ext(base); ext != ""; ext = filepath.Ext(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}

// ExifTime recovers an acquisition timestamp from the raster's own
// EXIF DateTime tag. Last-ditch source, used only when the catalog has
// no usable start_time for the scene.
func ExifTime(rasterPath string) (time.Time, error) {
	f, err := os.Open(rasterPath)
	if err != nil {
		return time.Time{}, fmt.Errorf("open+r exif '%s': %v", rasterPath, err)
	}
	defer f.Close()

	ex, err := exif.Decode(f)
	if err != nil {
		return time.Time{}, fmt.Errorf("exif parsing '%s': %v", rasterPath, err)
	}
	return ex.DateTime()
}

// labelIncidence pulls a static incidence estimate out of the scene's
// label XML: an explicit solar_incidence element wins, else the
// complement of sun_elevation, else the configured default. Any
// trouble at all (no file, bad XML) also lands on the default - this
// path must never fail.
func labelIncidence(labelPath string, cfg GeometryConfig) float64 {
	f, err := os.Open(labelPath)
	if err != nil {
		return cfg.DefaultIncidenceDeg
	}
	defer f.Close()

	incidence, sunEl, ok := scanLabelAngles(f)
	switch {
	case ok && incidence != nil:
		return *incidence
	case ok && sunEl != nil:
		return 90.0 - *sunEl
	default:
		return cfg.DefaultIncidenceDeg
	}
}

// scanLabelAngles walks the label document for solar_incidence and
// sun_elevation elements, namespace-agnostically: label files come
// from more than one agency schema revision.
func scanLabelAngles(r io.Reader) (incidence, sunEl *float64, ok bool) {
	dec := xml.NewDecoder(r)
	var current string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return incidence, sunEl, true
		}
		if err != nil {
			return nil, nil, false
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
		case xml.CharData:
			if current != "solar_incidence" && current != "sun_elevation" {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
			if err != nil {
				continue
			}
			if current == "solar_incidence" && incidence == nil {
				incidence = &v
			}
			if current == "sun_elevation" && sunEl == nil {
				sunEl = &v
			}
		case xml.EndElement:
			current = ""
		}
	}
}

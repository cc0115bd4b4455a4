package tcal

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const catalogCSV = `file_name,start_time,sun_azimuth,sun_elevation,solar_incidence
ch2_tmc_a.img,2024-03-15T10:30:00.123Z,120.5,60.0,
ch2_tmc_b.img,2024-03-15T11:00:00,121.0,8.5,81.5
ch2_tmc_c.img,,119.0,,
`

func TestParseCatalog(t *testing.T) {
	cat, err := ParseCatalog(strings.NewReader(catalogCSV))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(cat) != 3 {
		t.Fatalf("got %d records, want 3", len(cat))
	}

	a, err := cat.Scene("ch2_tmc_a")
	if err != nil {
		t.Fatalf("scene a: %v", err)
	}
	if !a.HasTime || a.Time.Hour() != 10 || a.Time.Minute() != 30 {
		t.Errorf("scene a time wrong: %+v", a)
	}
	if !a.HasSunElevation || a.SunElevationDeg != 60.0 {
		t.Errorf("scene a sun elevation wrong: %+v", a)
	}
	if a.HasIncidence {
		t.Errorf("scene a should have no incidence field")
	}

	b, _ := cat.Scene("ch2_tmc_b")
	if !b.HasIncidence || b.IncidenceDeg != 81.5 {
		t.Errorf("scene b incidence wrong: %+v", b)
	}

	// row with no start_time still loads, just without a timestamp
	c, _ := cat.Scene("ch2_tmc_c")
	if c.HasTime || c.HasSunElevation {
		t.Errorf("scene c should have no time or sun elevation: %+v", c)
	}
}

func TestCatalogMissingScene(t *testing.T) {
	cat, _ := ParseCatalog(strings.NewReader(catalogCSV))
	_, err := cat.Scene("nope")
	if !errors.Is(err, ErrMissingTimingRecord) {
		t.Errorf("got %v, want ErrMissingTimingRecord", err)
	}
}

func TestParseCatalogNoHeader(t *testing.T) {
	if _, err := ParseCatalog(strings.NewReader("a,b,c\n1,2,3\n")); err == nil {
		t.Errorf("catalog without file_name column should fail")
	}
}

func TestLoadCatalogMissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "missing.csv")); err == nil {
		t.Errorf("missing catalog is a fatal shared input, should error")
	}
}

func TestStemOf(t *testing.T) {
	tests := []struct{ in, want string }{
		{"ch2_tmc_a.img", "ch2_tmc_a"},
		{"/data/level0/scene.img.tif", "scene"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := stemOf(tt.in); got != tt.want {
			t.Errorf("stemOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

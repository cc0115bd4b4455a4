package tcal

import (
	"fmt"
	"image"
	"log"
	"os"

	"gopkg.in/yaml.v2"
)

type Config struct {
	Run      RunConfig      `yaml:"run"`
	Minnaert MinnaertConfig `yaml:"minnaert"`
	Albedo   AlbedoConfig   `yaml:"albedo"`
	Shadow   ShadowConfig   `yaml:"shadow"`
	Geometry GeometryConfig `yaml:"geometry"`
}

type RunConfig struct {
	Workers    int  `yaml:"workers"`     // 0 means GOMAXPROCS
	Visuals    bool `yaml:"visuals"`     // render QA overlays and charts
	Quicklooks bool `yaml:"quicklooks"`  // write Gray16 quicklook TIFFs

	// Optional crop applied to every scene before correction,
	// in pixel coords. Zero rectangle means no crop.
	Crop image.Rectangle `yaml:"-"`
}

type MinnaertConfig struct {
	DarkCurrent float64 `yaml:"dark_current"`
	Gain        float64 `yaml:"gain"`
	KExponent   float64 `yaml:"k_exponent"` // Minnaert k, typically in [0.5, 1.0]
}

type AlbedoConfig struct {
	Sigma float64 `yaml:"sigma"` // Gaussian scale of the albedo trend, in pixels

	// Every normalized scene is rescaled to this global mean, so
	// brightness is comparable across scenes. Absolute radiometric
	// calibration is lost at this step.
	TargetMean float64 `yaml:"target_mean"`
}

type ShadowConfig struct {
	SunElThreshold  float64 `yaml:"sun_el_threshold"`  // below this, the whole frame is flagged
	AbsIFThreshold  float64 `yaml:"abs_if_threshold"`  // absolute global cutoff
	ThresholdFactor float64 `yaml:"threshold_factor"`  // scene-relative cutoff, as a fraction of mean valid I/F
	MinIFValid      float64 `yaml:"min_if_valid"`      // pixels below this don't count toward the scene mean
	MorphIters      int     `yaml:"morph_iters"`

	// Substituted when a scene has no sun elevation in the catalog.
	DefaultSunElevationDeg float64 `yaml:"default_sun_elevation_deg"`
}

type GeometryConfig struct {
	// Static estimates used when no telemetry series is available
	// and the scene label offers nothing better.
	DefaultIncidenceDeg float64 `yaml:"default_incidence_deg"`
	DefaultEmissionDeg  float64 `yaml:"default_emission_deg"`
}

func NewConfig() Config {
	return Config{
		Minnaert: MinnaertConfig{
			DarkCurrent: 10.0,
			Gain:        0.002,
			KExponent:   0.7,
		},
		Albedo: AlbedoConfig{
			Sigma:      15.0,
			TargetMean: 0.1,
		},
		Shadow: ShadowConfig{
			SunElThreshold:         10.0,
			AbsIFThreshold:         0.05,
			ThresholdFactor:        0.5,
			MinIFValid:             0.05,
			MorphIters:             1,
			DefaultSunElevationDeg: 45.0,
		},
		Geometry: GeometryConfig{
			DefaultIncidenceDeg: 45.0,
			DefaultEmissionDeg:  10.0,
		},
	}
}

func LoadConfig(filename string) (Config, error) {
	contents, err := os.ReadFile(filename)
	if err != nil {
		return Config{}, fmt.Errorf("config read %s: %w", filename, err)
	}
	c := NewConfig()
	if err := yaml.Unmarshal(contents, &c); err != nil {
		return Config{}, fmt.Errorf("config parse %s: %w", filename, err)
	}
	return c, nil
}

func (c Config) AsYaml() string {
	b, err := yaml.Marshal(c)
	if err != nil {
		log.Fatalf("Can't marshal config yaml: %v\n", err)
	}
	return string(b)
}

// Validate runs before any scene is touched. A bad constant here is a
// setup error, not a data problem, so it halts the whole run.
func (c Config) Validate() error {
	fail := func(format string, args ...interface{}) error {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
	}

	if c.Minnaert.Gain <= 0 {
		return fail("minnaert gain must be > 0, got %g", c.Minnaert.Gain)
	}
	if c.Minnaert.DarkCurrent < 0 {
		return fail("minnaert dark_current must be >= 0, got %g", c.Minnaert.DarkCurrent)
	}
	if c.Minnaert.KExponent <= 0 || c.Minnaert.KExponent > 1.5 {
		return fail("minnaert k_exponent out of range (0, 1.5], got %g", c.Minnaert.KExponent)
	}
	if c.Albedo.Sigma <= 0 {
		return fail("albedo sigma must be > 0, got %g", c.Albedo.Sigma)
	}
	if c.Albedo.TargetMean <= 0 {
		return fail("albedo target_mean must be > 0, got %g", c.Albedo.TargetMean)
	}
	if c.Shadow.AbsIFThreshold < 0 || c.Shadow.MinIFValid < 0 {
		return fail("shadow thresholds must be >= 0")
	}
	if c.Shadow.ThresholdFactor < 0 || c.Shadow.ThresholdFactor > 1 {
		return fail("shadow threshold_factor out of range [0, 1], got %g", c.Shadow.ThresholdFactor)
	}
	if c.Shadow.MorphIters < 0 {
		return fail("shadow morph_iters must be >= 0, got %d", c.Shadow.MorphIters)
	}
	if c.Geometry.DefaultIncidenceDeg < 0 || c.Geometry.DefaultIncidenceDeg > 90 {
		return fail("geometry default_incidence_deg out of range [0, 90], got %g", c.Geometry.DefaultIncidenceDeg)
	}
	if c.Geometry.DefaultEmissionDeg < 0 || c.Geometry.DefaultEmissionDeg > 90 {
		return fail("geometry default_emission_deg out of range [0, 90], got %g", c.Geometry.DefaultEmissionDeg)
	}
	if c.Run.Workers < 0 {
		return fail("run workers must be >= 0, got %d", c.Run.Workers)
	}
	return nil
}

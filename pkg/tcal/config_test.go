package tcal

import (
	"errors"
	"testing"
)

func TestValidateDefaults(t *testing.T) {
	if err := NewConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadConstants(t *testing.T) {
	tests := []struct {
		name  string
		mutip func(*Config)
	}{
		{"negative gain", func(c *Config) { c.Minnaert.Gain = -0.002 }},
		{"zero gain", func(c *Config) { c.Minnaert.Gain = 0 }},
		{"negative dark current", func(c *Config) { c.Minnaert.DarkCurrent = -1 }},
		{"zero k", func(c *Config) { c.Minnaert.KExponent = 0 }},
		{"oversized k", func(c *Config) { c.Minnaert.KExponent = 3.0 }},
		{"zero sigma", func(c *Config) { c.Albedo.Sigma = 0 }},
		{"zero target mean", func(c *Config) { c.Albedo.TargetMean = 0 }},
		{"negative abs threshold", func(c *Config) { c.Shadow.AbsIFThreshold = -0.1 }},
		{"threshold factor above 1", func(c *Config) { c.Shadow.ThresholdFactor = 1.5 }},
		{"negative morph iters", func(c *Config) { c.Shadow.MorphIters = -1 }},
		{"incidence default out of range", func(c *Config) { c.Geometry.DefaultIncidenceDeg = 120 }},
		{"negative workers", func(c *Config) { c.Run.Workers = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConfig()
			tt.mutip(&c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("got %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
minnaert:
  dark_current: 12.5
  gain: 0.003
  k_exponent: 0.8
shadow:
  sun_el_threshold: 12.0
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Minnaert.DarkCurrent != 12.5 || cfg.Minnaert.Gain != 0.003 {
		t.Errorf("minnaert section not applied: %+v", cfg.Minnaert)
	}
	if cfg.Shadow.SunElThreshold != 12.0 {
		t.Errorf("shadow section not applied: %+v", cfg.Shadow)
	}
	// untouched sections keep their defaults
	if cfg.Albedo.Sigma != 15.0 || cfg.Albedo.TargetMean != 0.1 {
		t.Errorf("albedo defaults lost: %+v", cfg.Albedo)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("no-such-config.yaml"); err == nil {
		t.Errorf("missing config file should error")
	}
}

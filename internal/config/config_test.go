package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

const minimalConfig = `
[ingest]
input_dir = "/data/in"

[output]
dir = "/data/out"
`

func TestLoadAndValidateDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("unexpected logging defaults: %q %q", cfg.Logging.Level, cfg.Logging.Format)
	}
	if cfg.Ingest.FilePattern != "*.csv" {
		t.Errorf("expected default file pattern *.csv, got %q", cfg.Ingest.FilePattern)
	}
	if cfg.Ingest.ChunkSizeFiles != 5 {
		t.Errorf("expected default chunk size 5, got %d", cfg.Ingest.ChunkSizeFiles)
	}
	if cfg.Output.FilePrefix != "uk_flights_day_" {
		t.Errorf("expected default file prefix, got %q", cfg.Output.FilePrefix)
	}
	if cfg.Airports.CountryCode != "GB" {
		t.Errorf("expected default country GB, got %q", cfg.Airports.CountryCode)
	}

	seg := cfg.Segmentation
	if seg.SoftGapMinutes != 45 || seg.LongGroundGapMinutes != 50 {
		t.Errorf("unexpected gap defaults: %v, %v", seg.SoftGapMinutes, seg.LongGroundGapMinutes)
	}
	if seg.HardGapHours != 6.0 {
		t.Errorf("expected hard gap 6h, got %v", seg.HardGapHours)
	}
	if seg.MaxJumpKM != 500 || seg.SameHeadingDeg != 90 {
		t.Errorf("unexpected spatial defaults: %v, %v", seg.MaxJumpKM, seg.SameHeadingDeg)
	}
	if seg.MinConsecutivePoints != 3 {
		t.Errorf("expected min points 3, got %d", seg.MinConsecutivePoints)
	}
	if seg.LookbackHorizonHours != 6 {
		t.Errorf("expected lookback horizon 6h, got %v", seg.LookbackHorizonHours)
	}
}

func TestDurationHelpers(t *testing.T) {
	seg := SegmentationConfig{
		SoftGapMinutes:       45,
		LongGroundGapMinutes: 50,
		HardGapHours:         6,
		LookbackHorizonHours: 1.5,
	}
	if seg.SoftGap() != 45*time.Minute {
		t.Errorf("SoftGap = %v", seg.SoftGap())
	}
	if seg.LongGroundGap() != 50*time.Minute {
		t.Errorf("LongGroundGap = %v", seg.LongGroundGap())
	}
	if seg.HardGap() != 6*time.Hour {
		t.Errorf("HardGap = %v", seg.HardGap())
	}
	if seg.LookbackHorizon() != 90*time.Minute {
		t.Errorf("LookbackHorizon = %v", seg.LookbackHorizon())
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing input dir", func(c *Config) { c.Ingest.InputDir = "" }},
		{"missing output dir", func(c *Config) { c.Output.Dir = "" }},
		{"invalid log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"invalid log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"negative chunk size", func(c *Config) { c.Ingest.ChunkSizeFiles = -1 }},
		{"regional filter without airports db", func(c *Config) { c.Output.RegionalOnly = true }},
		{"invalid server port", func(c *Config) {
			c.Server.Enabled = true
			c.Server.Port = 70000
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.Ingest.InputDir = "/data/in"
			cfg.Output.Dir = "/data/out"
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadWithFallbackPreferredPath(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	cfg, err := LoadWithFallback(path)
	if err != nil {
		t.Fatalf("LoadWithFallback failed: %v", err)
	}
	if cfg.Ingest.InputDir != "/data/in" {
		t.Errorf("unexpected input dir %q", cfg.Ingest.InputDir)
	}
}

func TestLoadWithFallbackNoConfig(t *testing.T) {
	// Run from an empty directory so the fallback locations do not resolve.
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(cwd)

	if _, err := LoadWithFallback(""); err == nil {
		t.Error("expected error when no config exists anywhere")
	}
}

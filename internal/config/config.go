package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Logging      LoggingConfig      `toml:"logging"`      // Application logging settings
	Ingest       IngestConfig       `toml:"ingest"`       // Input batch discovery and chunking settings
	Segmentation SegmentationConfig `toml:"segmentation"` // Flight segmentation parameters
	Output       OutputConfig       `toml:"output"`       // Day-partitioned output settings
	Airports     AirportsConfig     `toml:"airports"`     // Airport database settings
	Server       ServerConfig       `toml:"server"`       // Optional status/results HTTP server
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// IngestConfig controls how input batch files are discovered and chunked
type IngestConfig struct {
	InputDir       string `toml:"input_dir"`        // Directory containing position-record batch files
	FilePattern    string `toml:"file_pattern"`     // Glob pattern for batch files within input_dir (default: "*.csv")
	ChunkSizeFiles int    `toml:"chunk_size_files"` // Files per processing chunk (default: 5, throughput knob only)
}

// SegmentationConfig contains the flight segmentation parameters. The soft
// gap, long ground gap, max jump and same heading thresholds are reserved
// extension points carried in configuration but not consulted by the shipped
// algorithm.
type SegmentationConfig struct {
	SoftGapMinutes       float64 `toml:"soft_gap_minutes"`        // "Soft" in-air gap where consistency checks would apply (default: 45)
	LongGroundGapMinutes float64 `toml:"long_ground_gap_minutes"` // Long ground gap between flights (default: 50)
	HardGapHours         float64 `toml:"hard_gap_hours"`          // Hard "always new flight" gap (default: 6.0)
	MaxJumpKM            float64 `toml:"max_jump_km"`             // Big spatial jump threshold in km (default: 500)
	SameHeadingDeg       float64 `toml:"same_heading_deg"`        // "Same heading" threshold in degrees (default: 90)
	MinConsecutivePoints int     `toml:"min_consecutive_points"`  // A new flight needs more than this many records (default: 3)
	LookbackHorizonHours float64 `toml:"lookback_horizon_hours"`  // How long a quiescent flight stays open across chunks (default: 6)
}

// OutputConfig contains day-partitioned output settings
type OutputConfig struct {
	Dir          string `toml:"dir"`           // Directory for day-partition database files
	FilePrefix   string `toml:"file_prefix"`   // Partition file name prefix (default: "uk_flights_day_")
	RegionalOnly bool   `toml:"regional_only"` // Keep only flights touching the configured country
}

// AirportsConfig contains airport database settings
type AirportsConfig struct {
	DBPath      string `toml:"db_path"`      // Path to airport database CSV file (OurAirports format)
	CountryCode string `toml:"country_code"` // ISO country for the regional output filter (default: "GB")
}

// ServerConfig contains the optional status/results HTTP server settings
type ServerConfig struct {
	Enabled          bool   `toml:"enabled"`               // Serve the status/results API during and after the run
	Host             string `toml:"host"`                  // Host address to bind to (default: 127.0.0.1)
	Port             int    `toml:"port"`                  // HTTP port (default: 8080)
	ReadTimeoutSecs  int    `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int    `toml:"write_timeout_seconds"` // Maximum duration for writing the response
}

// HardGap returns the hard gap threshold as a duration.
func (c SegmentationConfig) HardGap() time.Duration {
	return time.Duration(c.HardGapHours * float64(time.Hour))
}

// LookbackHorizon returns the lookback horizon as a duration.
func (c SegmentationConfig) LookbackHorizon() time.Duration {
	return time.Duration(c.LookbackHorizonHours * float64(time.Hour))
}

// SoftGap returns the soft gap threshold as a duration.
func (c SegmentationConfig) SoftGap() time.Duration {
	return time.Duration(c.SoftGapMinutes * float64(time.Minute))
}

// LongGroundGap returns the long ground gap threshold as a duration.
func (c SegmentationConfig) LongGroundGap() time.Duration {
	return time.Duration(c.LongGroundGapMinutes * float64(time.Minute))
}

// Load loads the configuration from the specified file path
func Load(path string) (*Config, error) {
	var config Config

	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	// Read the config file
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference
func LoadWithFallback(preferredPath string) (*Config, error) {
	// List of paths to check in order of preference
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	// Remove duplicates while preserving order
	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			// File exists, try to load it
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

// Validate validates the configuration and applies defaults
func (c *Config) Validate() error {
	// Validate logging config
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid log level
	default:
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	switch c.Logging.Format {
	case "json", "console":
		// Valid log format
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	// Validate ingest config
	if c.Ingest.InputDir == "" {
		return fmt.Errorf("ingest input_dir is required")
	}
	if c.Ingest.FilePattern == "" {
		c.Ingest.FilePattern = "*.csv"
	}
	if c.Ingest.ChunkSizeFiles == 0 {
		c.Ingest.ChunkSizeFiles = 5
	}
	if c.Ingest.ChunkSizeFiles < 0 {
		return fmt.Errorf("invalid chunk_size_files: %d (must be positive)", c.Ingest.ChunkSizeFiles)
	}

	// Validate segmentation config
	if err := c.ValidateSegmentation(); err != nil {
		return err
	}

	// Validate output config
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir is required")
	}
	if c.Output.FilePrefix == "" {
		c.Output.FilePrefix = "uk_flights_day_"
	}

	// Validate airports config
	if c.Airports.CountryCode == "" {
		c.Airports.CountryCode = "GB"
	}
	if c.Output.RegionalOnly && c.Airports.DBPath == "" {
		return fmt.Errorf("airports db_path is required when output regional_only is enabled")
	}

	// Validate server config
	if c.Server.Enabled {
		if c.Server.Host == "" {
			c.Server.Host = "127.0.0.1"
		}
		if c.Server.Port == 0 {
			c.Server.Port = 8080
		}
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			return fmt.Errorf("invalid server port: %d", c.Server.Port)
		}
		if c.Server.ReadTimeoutSecs == 0 {
			c.Server.ReadTimeoutSecs = 30
		}
		if c.Server.WriteTimeoutSecs == 0 {
			c.Server.WriteTimeoutSecs = 30
		}
	}

	return nil
}

// ValidateSegmentation validates the segmentation parameters and applies the
// documented defaults.
func (c *Config) ValidateSegmentation() error {
	if c.Segmentation.SoftGapMinutes == 0 {
		c.Segmentation.SoftGapMinutes = 45
	}
	if c.Segmentation.LongGroundGapMinutes == 0 {
		c.Segmentation.LongGroundGapMinutes = 50
	}
	if c.Segmentation.HardGapHours == 0 {
		c.Segmentation.HardGapHours = 6.0
	}
	if c.Segmentation.MaxJumpKM == 0 {
		c.Segmentation.MaxJumpKM = 500
	}
	if c.Segmentation.SameHeadingDeg == 0 {
		c.Segmentation.SameHeadingDeg = 90
	}
	if c.Segmentation.MinConsecutivePoints == 0 {
		c.Segmentation.MinConsecutivePoints = 3
	}
	if c.Segmentation.LookbackHorizonHours == 0 {
		c.Segmentation.LookbackHorizonHours = 6
	}

	if c.Segmentation.HardGapHours < 0 {
		return fmt.Errorf("invalid hard_gap_hours: %f (must be positive)", c.Segmentation.HardGapHours)
	}
	if c.Segmentation.LookbackHorizonHours < 0 {
		return fmt.Errorf("invalid lookback_horizon_hours: %f (must be positive)", c.Segmentation.LookbackHorizonHours)
	}
	if c.Segmentation.MinConsecutivePoints < 0 {
		return fmt.Errorf("invalid min_consecutive_points: %d (must be non-negative)", c.Segmentation.MinConsecutivePoints)
	}
	if c.Segmentation.SameHeadingDeg < 0 || c.Segmentation.SameHeadingDeg > 180 {
		return fmt.Errorf("invalid same_heading_deg: %f (must be between 0 and 180)", c.Segmentation.SameHeadingDeg)
	}
	return nil
}

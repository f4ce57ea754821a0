// Package config reads the server's settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ironsheep/image-grid-mcp/internal/library"
)

// Environment variables read by Load.
const (
	EnvLogLevel    = "IMAGE_GRID_LOG_LEVEL"
	EnvOutputDir   = "IMAGE_GRID_OUTPUT_DIR"
	EnvFormat      = "IMAGE_GRID_FORMAT"
	EnvJPEGQuality = "IMAGE_GRID_JPEG_QUALITY"
	EnvS3Endpoint  = "IMAGE_GRID_S3_ENDPOINT"
	EnvS3Region    = "IMAGE_GRID_S3_REGION"
	EnvS3AccessKey = "IMAGE_GRID_S3_ACCESS_KEY"
	EnvS3SecretKey = "IMAGE_GRID_S3_SECRET_KEY"
	EnvS3Bucket    = "IMAGE_GRID_S3_BUCKET"
	EnvS3Prefix    = "IMAGE_GRID_S3_PREFIX"
)

// Config holds runtime configuration. The grid shape is not configurable.
type Config struct {
	// LogLevel is "info" or "debug".
	LogLevel string

	// OutputDir is where the local sink writes tiles.
	OutputDir string

	// Format and JPEGQuality control how tiles are encoded by every sink.
	Format      library.Format
	JPEGQuality int

	// S3 is only used when Bucket is set.
	S3 library.S3Config
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		OutputDir:   defaultOutputDir(),
		Format:      library.FormatPNG,
		JPEGQuality: 90,
		S3: library.S3Config{
			Region: "us-east-1",
		},
	}
}

func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "image-grid")
	}
	return filepath.Join(home, "Pictures", "image-grid")
}

// Load starts from DefaultConfig, applies environment overrides through
// getenv (os.Getenv when nil), and validates the result.
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	c := DefaultConfig()

	if v := getenv(EnvLogLevel); v != "" {
		c.LogLevel = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv(EnvOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := getenv(EnvFormat); v != "" {
		f, err := library.ParseFormat(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvFormat, err)
		}
		c.Format = f
	}
	if v := getenv(EnvJPEGQuality); v != "" {
		q, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvJPEGQuality, err)
		}
		c.JPEGQuality = q
	}
	if v := getenv(EnvS3Endpoint); v != "" {
		c.S3.Endpoint = v
	}
	if v := getenv(EnvS3Region); v != "" {
		c.S3.Region = v
	}
	c.S3.AccessKey = getenv(EnvS3AccessKey)
	c.S3.SecretKey = getenv(EnvS3SecretKey)
	c.S3.Bucket = getenv(EnvS3Bucket)
	c.S3.Prefix = getenv(EnvS3Prefix)

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate clamps/normalizes values to safe ranges and rejects settings
// that cannot work.
func (c *Config) Validate() error {
	if c.LogLevel != "debug" {
		c.LogLevel = "info"
	}
	if c.OutputDir == "" {
		c.OutputDir = defaultOutputDir()
	}
	if c.Format == "" {
		c.Format = library.FormatPNG
	}
	if c.JPEGQuality < 1 {
		c.JPEGQuality = 1
	}
	if c.JPEGQuality > 100 {
		c.JPEGQuality = 100
	}
	if c.S3.Region == "" {
		c.S3.Region = "us-east-1"
	}
	c.S3.Prefix = strings.Trim(c.S3.Prefix, "/")
	if (c.S3.AccessKey == "") != (c.S3.SecretKey == "") {
		return fmt.Errorf("%s and %s must be set together", EnvS3AccessKey, EnvS3SecretKey)
	}
	return nil
}

// Debug reports whether debug logging is enabled.
func (c *Config) Debug() bool {
	return c.LogLevel == "debug"
}

// S3Enabled reports whether a bucket is configured.
func (c *Config) S3Enabled() bool {
	return c.S3.Bucket != ""
}

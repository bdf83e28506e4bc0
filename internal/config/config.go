// Package config provides unified configuration for the Parqstat binaries.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the configuration shared by the query, index, and serve
// binaries.
type Config struct {
	// DataDir is the base directory for catalog and scratch files
	DataDir string `json:"data_dir" yaml:"data_dir"`

	// HTTP holds the stats service configuration
	HTTP HTTPConfig `json:"http" yaml:"http"`

	// Catalog holds the file catalog configuration
	Catalog CatalogConfig `json:"catalog" yaml:"catalog"`

	// Store holds the columnar store access configuration
	Store StoreConfig `json:"store" yaml:"store"`
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	// Addr is the listen address of the stats service
	Addr string `json:"addr" yaml:"addr"`

	// ReadTimeout is the HTTP read timeout
	ReadTimeout time.Duration `json:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout is the HTTP write timeout
	WriteTimeout time.Duration `json:"write_timeout" yaml:"write_timeout"`

	// IdleTimeout is the HTTP idle timeout
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// CatalogConfig holds file catalog configuration.
type CatalogConfig struct {
	// Path is the catalog database location; empty derives it from DataDir
	Path string `json:"path" yaml:"path"`
}

// StoreConfig holds columnar store access configuration.
type StoreConfig struct {
	// ScratchDir receives temporary downloads; empty derives it from DataDir
	ScratchDir string `json:"scratch_dir" yaml:"scratch_dir"`

	// S3 configuration, used for s3:// paths
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 access configuration.
type S3Config struct {
	// Enabled turns on s3:// path support
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// UsePathStyle enables path-style addressing (required for MinIO)
	UsePathStyle bool `json:"use_path_style" yaml:"use_path_style"`
}

// DefaultConfig returns the default configuration for local use.
func DefaultConfig() *Config {
	return &Config{
		DataDir: "./data/parqstat",
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Load builds the effective configuration: .env file if present, then the
// optional config file, then environment overrides, then path resolution
// and validation.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	LoadFromEnv(cfg)
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv applies environment variable overrides. Variables use the
// PARQSTAT_ prefix.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("PARQSTAT_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("PARQSTAT_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("PARQSTAT_CATALOG_PATH"); v != "" {
		cfg.Catalog.Path = v
	}
	if v := os.Getenv("PARQSTAT_SCRATCH_DIR"); v != "" {
		cfg.Store.ScratchDir = v
	}
	if v := os.Getenv("PARQSTAT_S3_ENABLED"); v != "" {
		cfg.Store.S3.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("PARQSTAT_S3_REGION"); v != "" {
		cfg.Store.S3.Region = v
	}
	if v := os.Getenv("PARQSTAT_S3_ENDPOINT"); v != "" {
		cfg.Store.S3.Endpoint = v
	}
	if v := os.Getenv("PARQSTAT_S3_USE_PATH_STYLE"); v != "" {
		cfg.Store.S3.UsePathStyle = v == "true" || v == "1"
	}
}

// Resolve fills in paths derived from DataDir.
func (c *Config) Resolve() {
	if c.DataDir == "" {
		c.DataDir = "./data/parqstat"
	}
	if c.Catalog.Path == "" {
		c.Catalog.Path = filepath.Join(c.DataDir, "catalog.db")
	}
	if c.Store.ScratchDir == "" {
		c.Store.ScratchDir = filepath.Join(c.DataDir, "scratch")
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	if c.Store.S3.Enabled && c.Store.S3.Region == "" && c.Store.S3.Endpoint == "" {
		return fmt.Errorf("s3 requires a region or endpoint when enabled")
	}
	return nil
}

// EnsureDirectories creates the directories the binaries write to.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.DataDir, c.Store.ScratchDir} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

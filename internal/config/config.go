// Package config provides configuration loading and structs for the palette API.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/ironsheep/color-palette-api/internal/cluster"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application. It is loaded once at
// startup and treated as immutable afterwards.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	CORS       CORSConfig       `yaml:"cors"`
	Palette    PaletteConfig    `yaml:"palette"`
	Clustering ClusteringConfig `yaml:"clustering"`
	Workers    WorkerConfig     `yaml:"workers"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string        `yaml:"host"`
	Port           int           `yaml:"port"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

// CORSConfig holds the cross-origin allow-list.
type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowCredentials *bool    `yaml:"allow_credentials"`
}

// AllowCredentialsOrDefault returns whether credentials are allowed; defaults to true when unset.
func (c *CORSConfig) AllowCredentialsOrDefault() bool {
	if c.AllowCredentials != nil {
		return *c.AllowCredentials
	}
	return true
}

// PaletteConfig holds palette extraction settings.
type PaletteConfig struct {
	// Resize is the square edge length images are resized to before clustering.
	Resize int `yaml:"resize"`
	// DefaultCount is used by callers that may omit the color count.
	DefaultCount int `yaml:"default_count"`
}

// ClusteringConfig holds k-means settings shared by both operations.
type ClusteringConfig struct {
	Seed          uint64  `yaml:"seed"`
	MaxIterations int     `yaml:"max_iterations"`
	Tolerance     float64 `yaml:"tolerance"`
	Inits         int     `yaml:"inits"`
	// Parallel clusters the source and target images of a transfer concurrently.
	Parallel *bool `yaml:"parallel"`
}

// ParallelOrDefault returns whether transfer clustering runs concurrently; defaults to true when unset.
func (c *ClusteringConfig) ParallelOrDefault() bool {
	if c.Parallel != nil {
		return *c.Parallel
	}
	return true
}

// WorkerConfig holds the pipeline worker pool settings.
type WorkerConfig struct {
	Size           int           `yaml:"size"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

// Default returns a config with every default applied.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// ApplyEnv overrides config values from PALETTE_API_* environment variables.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv("PALETTE_API_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := getenv("PALETTE_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PALETTE_API_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if getenv("PALETTE_API_LOG_LEVEL") == "debug" {
		cfg.Debug = true
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes must be positive: %d", c.Server.MaxUploadBytes))
	}
	if c.Palette.Resize <= 0 {
		errs = append(errs, fmt.Errorf("palette.resize must be positive: %d", c.Palette.Resize))
	}
	if c.Palette.DefaultCount <= 0 {
		errs = append(errs, fmt.Errorf("palette.default_count must be positive: %d", c.Palette.DefaultCount))
	}
	if c.Clustering.MaxIterations <= 0 {
		errs = append(errs, fmt.Errorf("clustering.max_iterations must be positive: %d", c.Clustering.MaxIterations))
	}
	if c.Clustering.Tolerance < 0 {
		errs = append(errs, fmt.Errorf("clustering.tolerance must not be negative: %v", c.Clustering.Tolerance))
	}
	if c.Clustering.Inits <= 0 {
		errs = append(errs, fmt.Errorf("clustering.inits must be positive: %d", c.Clustering.Inits))
	}
	if c.Workers.Size <= 0 {
		errs = append(errs, fmt.Errorf("workers.size must be positive: %d", c.Workers.Size))
	}
	return errors.Join(errs...)
}

// KMeans returns a clusterer configured from these settings.
func (c *ClusteringConfig) KMeans() *cluster.KMeans {
	return &cluster.KMeans{
		Seed:          c.Seed,
		MaxIterations: c.MaxIterations,
		Tolerance:     c.Tolerance,
		Inits:         c.Inits,
	}
}

package config

import (
	"runtime"
	"time"

	"github.com/ironsheep/color-palette-api/internal/cluster"
	"github.com/ironsheep/color-palette-api/internal/imaging"
)

// DefaultAllowedOrigins is the cross-origin allow-list used when none is configured.
var DefaultAllowedOrigins = []string{
	"http://frontend:3000",
	"http://54.36.101.216",
	"*",
}

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 60 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 120 * time.Second
	}
	if cfg.CORS.AllowedOrigins == nil {
		cfg.CORS.AllowedOrigins = append([]string(nil), DefaultAllowedOrigins...)
	}
	if cfg.Palette.Resize == 0 {
		cfg.Palette.Resize = imaging.DefaultPaletteSize
	}
	if cfg.Palette.DefaultCount == 0 {
		cfg.Palette.DefaultCount = 5
	}
	if cfg.Clustering.Seed == 0 {
		cfg.Clustering.Seed = cluster.DefaultSeed
	}
	if cfg.Clustering.MaxIterations == 0 {
		cfg.Clustering.MaxIterations = cluster.DefaultMaxIterations
	}
	if cfg.Clustering.Tolerance == 0 {
		cfg.Clustering.Tolerance = cluster.DefaultTolerance
	}
	if cfg.Clustering.Inits == 0 {
		cfg.Clustering.Inits = cluster.DefaultInits
	}
	if cfg.Workers.Size == 0 {
		cfg.Workers.Size = runtime.NumCPU()
	}
	if cfg.Workers.AcquireTimeout == 0 {
		cfg.Workers.AcquireTimeout = 30 * time.Second
	}
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ironsheep/color-palette-api/internal/api"
	"github.com/ironsheep/color-palette-api/internal/config"
	"github.com/ironsheep/color-palette-api/internal/logging"
	"github.com/ironsheep/color-palette-api/internal/pipeline"
	"github.com/ironsheep/color-palette-api/internal/server"
	"go.uber.org/zap"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("palette-api %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printUsage()
			return
		}
	}

	fs := flag.NewFlagSet("palette-api", flag.ExitOnError)
	configPath := fs.String("config", "", "config file path (optional)")
	mcp := fs.Bool("mcp", false, "serve MCP tools over stdin/stdout instead of HTTP")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[1:])

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug

	var logger *zap.Logger
	if *mcp {
		// stdout is for MCP protocol
		logger, err = logging.NewStderrLogger(debugMode)
	} else {
		logger, err = logging.NewLogger(debugMode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", *configPath),
		zap.String("level", logging.Level(debugMode)),
		zap.String("version", Version),
	)

	pool := pipeline.NewPool(cfg.Workers.Size, cfg.Workers.AcquireTimeout)
	defer pool.Close()
	svc := pipeline.NewService(pool, cfg.Clustering.KMeans(), pipeline.Options{
		Resize:   cfg.Palette.Resize,
		Parallel: cfg.Clustering.ParallelOrDefault(),
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mcp {
		srv := server.New(svc, cfg.Palette.DefaultCount, logger)
		if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal("MCP server error", zap.Error(err))
		}
		return
	}

	runHTTP(ctx, api.NewServer(svc, cfg, logger), logger)
}

// loadConfig reads path when given, otherwise starts from defaults, then
// applies environment overrides and validates the result.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		var err error
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}
	if err := config.ApplyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runHTTP(ctx context.Context, srv *api.Server, logger *zap.Logger) {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
		}
	}
}

func printUsage() {
	fmt.Println("palette-api - color palette extraction and color transfer")
	fmt.Println()
	fmt.Println("Usage: palette-api [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config <path>   YAML config file (defaults are used when omitted)")
	fmt.Println("  -mcp             Serve MCP tools over stdin/stdout instead of HTTP")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  PALETTE_API_HOST             Listen host (default 0.0.0.0)")
	fmt.Println("  PALETTE_API_PORT             Listen port (default 8000)")
	fmt.Println("  PALETTE_API_LOG_LEVEL=debug  Enable debug logging")
}

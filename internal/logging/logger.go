// Package logging builds the zap loggers used by the HTTP and MCP entry points.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a zap logger. When debug is true, uses development config
// (human-readable, debug level); otherwise uses production config (JSON, info level).
func NewLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// NewStderrLogger returns a logger that never writes to stdout. MCP mode uses
// it because stdout carries the JSON-RPC stream.
func NewStderrLogger(debug bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Level reports the configured level name for logging at startup.
func Level(debug bool) string {
	if debug {
		return zapcore.DebugLevel.String()
	}
	return zapcore.InfoLevel.String()
}

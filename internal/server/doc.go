// Package server implements the MCP (Model Context Protocol) server for the palette tools.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods are initialize, tools/list, tools/call and ping.
//
// # Available Tools
//
//   - palette_extract: dominant colors of one image, most frequent first
//   - palette_transfer: recolor a target image with a source image's clusters
//
// Images are given either as a file path or as base64 data (a bare payload
// or a data URI). The color count is optional and falls back to the
// configured default. Nothing is cached between calls.
//
// # Error Handling
//
// Tool errors are returned as JSON-RPC error responses:
//   - -32602: invalid params, including a count that is not greater than 0
//   - -32000: tool execution failure (decode, clustering, encode, file I/O)
//
// The data field carries the Go error string.
//
// # Usage
//
//	srv := server.New(service, cfg.Palette.DefaultCount, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("mcp server failed", zap.Error(err))
//	}
package server

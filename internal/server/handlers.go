package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/ironsheep/color-palette-api/internal/palette"
	"github.com/ironsheep/color-palette-api/internal/pipeline"
	"go.uber.org/zap"
)

// errInvalidArgs marks argument problems reported as JSON-RPC invalid params.
var errInvalidArgs = errors.New("invalid arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "palette_extract").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Bad arguments, including a non-positive count, return -32602. Processing
// failures return -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errInvalidArgs) || pipeline.IsInvalidInput(err) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		s.logger.Error("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "palette_extract":
		return s.handlePaletteExtract(ctx, args)
	case "palette_transfer":
		return s.handlePaletteTransfer(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errInvalidArgs, err)
	}
	return nil
}

// count resolves an optional count argument. An explicit value is passed
// through unchanged so that the pipeline rejects non-positive counts.
func (s *Server) count(v *int) int {
	if v == nil {
		return s.defaultCount
	}
	return *v
}

// loadImage reads image bytes from path, or decodes b64 when path is empty.
// b64 may be a bare base64 payload or a data URI.
func loadImage(field, path, b64 string) ([]byte, error) {
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", field, err)
		}
		return data, nil
	}
	if b64 == "" {
		return nil, fmt.Errorf("%w: %s path or base64 data is required", errInvalidArgs, field)
	}
	if i := strings.Index(b64, ";base64,"); strings.HasPrefix(b64, "data:") && i >= 0 {
		b64 = b64[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(b64))
	if err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %v", errInvalidArgs, field, err)
	}
	return data, nil
}

// === Palette Handlers ===

type paletteExtractArgs struct {
	Path        string `json:"path"`
	ImageBase64 string `json:"image_base64"`
	Count       *int   `json:"count"`
}

type paletteExtractResult struct {
	Palette  palette.Palette  `json:"palette"`
	Swatches []palette.Swatch `json:"swatches"`
}

func (s *Server) handlePaletteExtract(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paletteExtractArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	data, err := loadImage("image", a.Path, a.ImageBase64)
	if err != nil {
		return nil, err
	}

	swatches, err := s.service.ExtractSwatches(ctx, data, s.count(a.Count))
	if err != nil {
		return nil, err
	}
	return &paletteExtractResult{
		Palette:  palette.FromSwatches(swatches),
		Swatches: swatches,
	}, nil
}

type paletteTransferArgs struct {
	SourcePath   string `json:"source_path"`
	SourceBase64 string `json:"source_base64"`
	TargetPath   string `json:"target_path"`
	TargetBase64 string `json:"target_base64"`
	Count        *int   `json:"count"`
	OutputPath   string `json:"output_path"`
}

type paletteTransferResult struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ImageDataURI string `json:"image_data_uri,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`
}

func (s *Server) handlePaletteTransfer(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a paletteTransferArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	source, err := loadImage("source", a.SourcePath, a.SourceBase64)
	if err != nil {
		return nil, err
	}
	target, err := loadImage("target", a.TargetPath, a.TargetBase64)
	if err != nil {
		return nil, err
	}

	out, err := s.service.TransferColors(ctx, source, target, s.count(a.Count))
	if err != nil {
		return nil, err
	}

	result := &paletteTransferResult{Width: out.Image.Width, Height: out.Image.Height}
	if a.OutputPath == "" {
		result.ImageDataURI = out.DataURI()
		return result, nil
	}

	if err := imgio.Save(a.OutputPath, out.Image.ToNRGBA(), imgio.PNGEncoder()); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", a.OutputPath, err)
	}
	s.logger.Debug("transfer written", zap.String("path", a.OutputPath))
	result.OutputPath = a.OutputPath
	return result, nil
}

package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// createTestImageFile writes a solid width×height PNG and returns its path.
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.png")
	if err := os.WriteFile(path, encodeTestImage(t, width, height, c), 0600); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	return path
}

func encodeTestImage(t *testing.T, width, height int, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

// callTool runs a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()
	paramsJSON, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatal(err)
	}
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// toolText decodes the JSON text content of a successful tool response into v.
func toolText(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("content: got %v", result["content"])
	}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), v); err != nil {
		t.Fatalf("content text is not JSON: %v", err)
	}
}

type extractOutput struct {
	Palette  []string `json:"palette"`
	Swatches []struct {
		Hex        string  `json:"hex"`
		Population int     `json:"population"`
		Percentage float64 `json:"percentage"`
	} `json:"swatches"`
}

func TestPaletteExtract_Path(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 2, 2, color.RGBA{255, 0, 0, 255})

	var out extractOutput
	toolText(t, callTool(t, s, "palette_extract", map[string]interface{}{"path": path, "count": 1}), &out)

	if len(out.Palette) != 1 || out.Palette[0] != "#ff0000" {
		t.Errorf("palette: got %v, want [#ff0000]", out.Palette)
	}
	if len(out.Swatches) != 1 || out.Swatches[0].Percentage != 100 {
		t.Errorf("swatches: got %+v", out.Swatches)
	}
}

func TestPaletteExtract_Base64(t *testing.T) {
	s := newTestServer(t)
	data := encodeTestImage(t, 4, 4, color.RGBA{0, 0, 255, 255})
	raw := base64.StdEncoding.EncodeToString(data)

	for name, payload := range map[string]string{
		"bare":     raw,
		"data uri": "data:image/png;base64," + raw,
	} {
		t.Run(name, func(t *testing.T) {
			var out extractOutput
			toolText(t, callTool(t, s, "palette_extract", map[string]interface{}{"image_base64": payload, "count": 1}), &out)
			if len(out.Palette) != 1 || out.Palette[0] != "#0000ff" {
				t.Errorf("palette: got %v", out.Palette)
			}
		})
	}
}

func TestPaletteExtract_DefaultCount(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 3, 3, color.RGBA{10, 200, 30, 255})

	var out extractOutput
	toolText(t, callTool(t, s, "palette_extract", map[string]interface{}{"path": path}), &out)

	if len(out.Palette) != s.defaultCount {
		t.Errorf("palette length: got %d, want %d", len(out.Palette), s.defaultCount)
	}
}

func TestPaletteTools_Errors(t *testing.T) {
	s := newTestServer(t)
	path := createTestImageFile(t, 2, 2, color.RGBA{255, 255, 0, 255})
	missing := filepath.Join(t.TempDir(), "missing.png")

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		wantCode int
	}{
		{"zero count", "palette_extract", map[string]interface{}{"path": path, "count": 0}, -32602},
		{"negative count", "palette_transfer", map[string]interface{}{"source_path": path, "target_path": path, "count": -1}, -32602},
		{"no image", "palette_extract", map[string]interface{}{"count": 2}, -32602},
		{"bad base64", "palette_extract", map[string]interface{}{"image_base64": "!!!", "count": 2}, -32602},
		{"no target", "palette_transfer", map[string]interface{}{"source_path": path, "count": 2}, -32602},
		{"wrong arg type", "palette_extract", map[string]interface{}{"path": 12}, -32602},
		{"missing file", "palette_extract", map[string]interface{}{"path": missing, "count": 2}, -32000},
		{"undecodable", "palette_extract", map[string]interface{}{"image_base64": base64.StdEncoding.EncodeToString([]byte("text")), "count": 2}, -32000},
		{"unknown tool", "palette_mix", map[string]interface{}{}, -32000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatalf("expected error, got result %v", resp.Result)
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("Code: got %d, want %d (%v)", resp.Error.Code, tt.wantCode, resp.Error.Data)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)
	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  json.RawMessage(`"not an object"`),
	})
	if resp == nil || resp.Error == nil || resp.Error.Code != -32602 {
		t.Fatalf("expected -32602, got %+v", resp)
	}
}

type transferOutput struct {
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	ImageDataURI string `json:"image_data_uri"`
	OutputPath   string `json:"output_path"`
}

func TestPaletteTransfer_Inline(t *testing.T) {
	s := newTestServer(t)
	source := createTestImageFile(t, 6, 6, color.RGBA{200, 40, 40, 255})
	target := base64.StdEncoding.EncodeToString(encodeTestImage(t, 7, 3, color.RGBA{20, 20, 220, 255}))

	var out transferOutput
	toolText(t, callTool(t, s, "palette_transfer", map[string]interface{}{
		"source_path":   source,
		"target_base64": target,
		"count":         1,
	}), &out)

	if out.Width != 7 || out.Height != 3 {
		t.Errorf("size: got %dx%d, want 7x3", out.Width, out.Height)
	}
	if !strings.HasPrefix(out.ImageDataURI, "data:image/png;base64,") {
		t.Errorf("image_data_uri: %.40q", out.ImageDataURI)
	}
	if out.OutputPath != "" {
		t.Errorf("output_path should be empty, got %q", out.OutputPath)
	}
}

func TestPaletteTransfer_OutputPath(t *testing.T) {
	s := newTestServer(t)
	source := createTestImageFile(t, 5, 5, color.RGBA{0, 255, 0, 255})
	target := createTestImageFile(t, 8, 4, color.RGBA{90, 90, 90, 255})
	outPath := filepath.Join(t.TempDir(), "recolored.png")

	var out transferOutput
	toolText(t, callTool(t, s, "palette_transfer", map[string]interface{}{
		"source_path": source,
		"target_path": target,
		"count":       1,
		"output_path": outPath,
	}), &out)

	if out.OutputPath != outPath || out.ImageDataURI != "" {
		t.Errorf("unexpected result: %+v", out)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("output not written: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Errorf("output size: got %dx%d, want 8x4", b.Dx(), b.Dy())
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	if r>>8 != 0 || g>>8 != 255 || b>>8 != 0 {
		t.Errorf("output pixel: got (%d,%d,%d), want pure green", r>>8, g>>8, b>>8)
	}
}

package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func countProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": "Number of colors (clusters), must be greater than 0. Defaults to the configured palette size.",
		"minimum":     1,
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "palette_extract",
			Description: "Extract the dominant colors of an image with k-means clustering. " +
				"Returns hex colors ordered from most to least frequent, plus per-color pixel share.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"image_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded image, or a data URI. Used when path is empty.",
					},
					"count": countProperty(),
				},
			},
		},
		{
			Name: "palette_transfer",
			Description: "Recolor the target image with the color clusters of the source image. " +
				"The target keeps its layout and size; each of its clusters takes the nearest source color.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image providing the colors",
					},
					"source_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded source image, used when source_path is empty",
					},
					"target_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image to recolor",
					},
					"target_base64": map[string]interface{}{
						"type":        "string",
						"description": "Base64-encoded target image, used when target_path is empty",
					},
					"count": countProperty(),
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Optional PNG file to write. When set the result is not inlined.",
					},
				},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}

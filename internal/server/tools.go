package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Absolute path to the image file",
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Picked Image
		{
			Name:        "image_load",
			Description: "Load a photo and return its dimensions, format, and the size each tile of the 3x3 grid will have. The photo stays cached for the grid and split tools.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},

		// Grid Preview
		{
			Name:        "image_grid_lines",
			Description: "Return the guide lines of the 3x3 grid for an image as segments in pixel coordinates. The lines sit exactly where the image will be cut.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_grid_overlay",
			Description: "Draw the 3x3 cut grid over the image and return the preview as base64-encoded PNG.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"line_color": map[string]interface{}{
						"type":        "string",
						"description": "Line color as #RRGGBB or #RRGGBBAA. Default #FFFFFF99 (white, 60% opacity)",
						"default":     "#FFFFFF99",
					},
				},
				"required": []string{"path"},
			},
		},

		// Tiling
		{
			Name:        "image_partition",
			Description: "Cut the image into a 3x3 grid of equal tiles and describe each tile in row-major order (left to right, then top to bottom). Pixels left over when the size does not divide by 3 are not part of any tile.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"include_images": map[string]interface{}{
						"type":        "boolean",
						"description": "Also return every tile as base64-encoded PNG. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_split_save",
			Description: "Cut the image into a 3x3 grid and save each of the nine tiles. Every tile is saved independently; the result lists whether each one was saved or why it failed.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty(),
					"destination": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"local", "s3"},
						"description": "Where to save the tiles: the local output directory or the configured S3 bucket. Default local",
						"default":     "local",
					},
				},
				"required": []string{"path"},
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

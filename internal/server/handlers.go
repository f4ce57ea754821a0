package server

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/ironsheep/image-grid-mcp/internal/imaging"
	"github.com/ironsheep/image-grid-mcp/internal/library"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_split_save").
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
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
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
	// Picked Image
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Grid Preview
	case "image_grid_lines":
		return s.handleImageGridLines(args)
	case "image_grid_overlay":
		return s.handleImageGridOverlay(args)

	// Tiling
	case "image_partition":
		return s.handleImagePartition(args)
	case "image_split_save":
		return s.handleImageSplitSave(ctx, args)

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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Picked Image Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Grid Preview Handlers ===

// GridLinesResult lists the guide lines for a loaded image.
type GridLinesResult struct {
	Width   int               `json:"width"`
	Height  int               `json:"height"`
	Rows    int               `json:"rows"`
	Columns int               `json:"columns"`
	Lines   []imaging.Segment `json:"lines"`
}

func (s *Server) handleImageGridLines(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()
	return &GridLinesResult{
		Width:   bounds.Dx(),
		Height:  bounds.Dy(),
		Rows:    imaging.DefaultGrid.Rows,
		Columns: imaging.DefaultGrid.Columns,
		Lines:   imaging.GridLines(bounds, imaging.DefaultGrid),
	}, nil
}

type imageGridOverlayArgs struct {
	Path      string `json:"path"`
	LineColor string `json:"line_color"`
}

func (s *Server) handleImageGridOverlay(args json.RawMessage) (interface{}, error) {
	var a imageGridOverlayArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.LineColor == "" {
		a.LineColor = imaging.DefaultLineColor
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.GridOverlay(img, imaging.DefaultGrid, a.LineColor)
}

// === Tiling Handlers ===

type imagePartitionArgs struct {
	Path          string `json:"path"`
	IncludeImages bool   `json:"include_images"`
}

func (s *Server) handleImagePartition(args json.RawMessage) (interface{}, error) {
	var a imagePartitionArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	result, _, err := imaging.PartitionReport(img, imaging.DefaultGrid, a.IncludeImages)
	return result, err
}

type imageSplitSaveArgs struct {
	Path        string `json:"path"`
	Destination string `json:"destination"`
}

// SavedTile is one tile's save outcome with the text shown to the user.
type SavedTile struct {
	library.Outcome
	Title   string `json:"title"`
	Message string `json:"message"`
}

// SplitSaveResult reports a whole split-and-save call.
type SplitSaveResult struct {
	BatchID     string      `json:"batch_id"`
	Destination string      `json:"destination"`
	Location    string      `json:"location"`
	Saved       int         `json:"saved"`
	Failed      int         `json:"failed"`
	Tiles       []SavedTile `json:"tiles"`
}

func (s *Server) handleImageSplitSave(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageSplitSaveArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Destination == "" {
		a.Destination = "local"
	}

	var (
		sink     library.Sink
		location string
	)
	switch a.Destination {
	case "local":
		sink = s.local
		location = s.cfg.OutputDir
	case "s3":
		if s.remote == nil {
			return nil, fmt.Errorf("destination s3 is not configured")
		}
		sink = s.remote
		location = "s3://" + path.Join(s.cfg.S3.Bucket, s.cfg.S3.Prefix)
	default:
		return nil, fmt.Errorf("unknown destination: %s", a.Destination)
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	tiles, err := imaging.Partition(img, imaging.DefaultGrid)
	if err != nil {
		return nil, err
	}

	batchID := library.NewBatchID()
	outcomes := library.SaveTiles(ctx, sink, s.notifier, batchID, imaging.DefaultGrid, tiles)
	s.cache.Evict(a.Path)

	result := &SplitSaveResult{
		BatchID:     batchID,
		Destination: a.Destination,
		Location:    location,
		Failed:      library.Failed(outcomes),
		Tiles:       make([]SavedTile, 0, len(outcomes)),
	}
	result.Saved = len(outcomes) - result.Failed
	for _, o := range outcomes {
		result.Tiles = append(result.Tiles, SavedTile{Outcome: o, Title: o.Title(), Message: o.Message()})
	}
	return result, nil
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ironsheep/image-grid-mcp/internal/imaging"
	"github.com/ironsheep/image-grid-mcp/internal/library"
)

// createTestImageFile creates a test image file and returns its path
func createTestImageFile(t *testing.T, width, height int, c color.Color) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, c)
		}
	}

	path := filepath.Join(t.TempDir(), "handler-test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return path
}

// callTool runs a tools/call request and decodes the text content into out.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}, out interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("marshal params: %v", err)
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
	if resp.Error != nil || out == nil {
		return resp
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("unexpected content: %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), out); err != nil {
		t.Fatalf("decode tool result: %v\n%s", err, text)
	}
	return resp
}

// recordingSink keeps saved tiles in memory.
type recordingSink struct {
	mu    sync.Mutex
	saved map[string]image.Image
}

func newRecordingSink() *recordingSink {
	return &recordingSink{saved: make(map[string]image.Image)}
}

func (r *recordingSink) Save(_ context.Context, name string, img image.Image) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saved[name] = img
	return nil
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 100, 80, color.RGBA{255, 0, 0, 255})

	var info imaging.ImageInfo
	resp := callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}, &info)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if info.Width != 100 || info.Height != 80 {
		t.Errorf("size: got %dx%d, want 100x80", info.Width, info.Height)
	}
	if info.TileWidth != 33 || info.TileHeight != 26 {
		t.Errorf("tile size: got %dx%d, want 33x26", info.TileWidth, info.TileHeight)
	}
}

func TestHandleToolsCall_ImageDimensions(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 200, 150, color.RGBA{0, 255, 0, 255})

	var dims imaging.DimensionsResult
	resp := callTool(t, s, "image_dimensions", map[string]interface{}{"path": imgPath}, &dims)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if dims.Width != 200 || dims.Height != 150 {
		t.Errorf("got %dx%d, want 200x150", dims.Width, dims.Height)
	}
}

func TestHandleToolsCall_NonExistentFile(t *testing.T) {
	s := newTestServer(t)

	for _, tool := range []string{"image_load", "image_grid_lines", "image_grid_overlay", "image_partition", "image_split_save"} {
		t.Run(tool, func(t *testing.T) {
			resp := callTool(t, s, tool, map[string]interface{}{"path": "/nonexistent/image.png"}, nil)
			if resp.Error == nil {
				t.Fatal("expected an error for a missing file")
			}
			if resp.Error.Code != -32000 {
				t.Errorf("Error code: got %d, want -32000", resp.Error.Code)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := newTestServer(t)

	resp := s.handleToolsCall(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`{"name": 5}`),
	})
	if resp.Error == nil {
		t.Fatal("expected an error for malformed params")
	}
	if resp.Error.Code != -32602 {
		t.Errorf("Error code: got %d, want -32602", resp.Error.Code)
	}
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := newTestServer(t)

	resp := callTool(t, s, "image_crop", map[string]interface{}{"path": "/x.png"}, nil)
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown tool")
	}
	if !strings.Contains(resp.Error.Data.(string), "unknown tool") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_BadArguments(t *testing.T) {
	s := newTestServer(t)

	paramsJSON := json.RawMessage(`{"name":"image_partition","arguments":{"path":7}}`)
	resp := s.handleToolsCall(context.Background(), &MCPRequest{JSONRPC: "2.0", ID: 1, Params: paramsJSON})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Fatalf("expected tool failure, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_GridLines(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 300, 300, color.White)

	var result GridLinesResult
	resp := callTool(t, s, "image_grid_lines", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if result.Rows != 3 || result.Columns != 3 {
		t.Errorf("grid: got %dx%d, want 3x3", result.Rows, result.Columns)
	}
	if len(result.Lines) != 4 {
		t.Fatalf("lines: got %d, want 4", len(result.Lines))
	}
	if result.Lines[0].X1 != 100 || result.Lines[1].X1 != 200 {
		t.Errorf("vertical lines at %d and %d, want 100 and 200", result.Lines[0].X1, result.Lines[1].X1)
	}
	if result.Lines[2].Y1 != 100 || result.Lines[3].Y1 != 200 {
		t.Errorf("horizontal lines at %d and %d, want 100 and 200", result.Lines[2].Y1, result.Lines[3].Y1)
	}
}

func TestHandleToolsCall_GridOverlay(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 90, 60, color.Black)

	var result imaging.GridOverlayResult
	resp := callTool(t, s, "image_grid_overlay", map[string]interface{}{
		"path":       imgPath,
		"line_color": "#FF0000",
	}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if result.Width != 90 || result.Height != 60 {
		t.Errorf("size: got %dx%d, want 90x60", result.Width, result.Height)
	}
	if result.MimeType != "image/png" {
		t.Errorf("MimeType: got %s", result.MimeType)
	}
	if result.ImageBase64 == "" {
		t.Error("ImageBase64 should not be empty")
	}
}

func TestHandleToolsCall_GridOverlayDefaultColor(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 30, color.Black)

	var result imaging.GridOverlayResult
	resp := callTool(t, s, "image_grid_overlay", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	if len(result.Lines) != 4 {
		t.Errorf("lines: got %d, want 4", len(result.Lines))
	}
}

func TestHandleToolsCall_Partition(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 301, 300, color.White)

	var result imaging.PartitionResult
	resp := callTool(t, s, "image_partition", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if len(result.Tiles) != 9 {
		t.Fatalf("tiles: got %d, want 9", len(result.Tiles))
	}
	if result.DroppedColumns != 1 || result.DroppedRows != 0 {
		t.Errorf("dropped: got %d cols %d rows, want 1 and 0", result.DroppedColumns, result.DroppedRows)
	}
	for i, tile := range result.Tiles {
		if tile.Index != i {
			t.Errorf("tile %d: index %d", i, tile.Index)
		}
		if tile.Width != 100 || tile.Height != 100 {
			t.Errorf("tile %d: size %dx%d, want 100x100", i, tile.Width, tile.Height)
		}
		if tile.ImageBase64 != "" {
			t.Errorf("tile %d: image data should be omitted by default", i)
		}
	}
	last := result.Tiles[8]
	if last.Source.X1 != 200 || last.Source.Y1 != 200 {
		t.Errorf("tile 8 origin: got (%d,%d), want (200,200)", last.Source.X1, last.Source.Y1)
	}
}

func TestHandleToolsCall_PartitionIncludeImages(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 30, color.White)

	var result imaging.PartitionResult
	resp := callTool(t, s, "image_partition", map[string]interface{}{
		"path":           imgPath,
		"include_images": true,
	}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}
	for i, tile := range result.Tiles {
		if tile.ImageBase64 == "" || tile.MimeType != "image/png" {
			t.Errorf("tile %d: missing image data", i)
		}
	}
}

func TestHandleToolsCall_SplitSaveLocal(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 90, 90, color.RGBA{10, 20, 30, 255})

	// Load first so the eviction after saving is observable.
	if _, err := s.cache.Load(imgPath); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	var result SplitSaveResult
	resp := callTool(t, s, "image_split_save", map[string]interface{}{"path": imgPath}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if result.Destination != "local" {
		t.Errorf("Destination: got %s, want local", result.Destination)
	}
	if result.Location != s.cfg.OutputDir {
		t.Errorf("Location: got %s, want %s", result.Location, s.cfg.OutputDir)
	}
	if result.BatchID == "" {
		t.Error("BatchID should not be empty")
	}
	if result.Saved != 9 || result.Failed != 0 {
		t.Errorf("saved/failed: got %d/%d, want 9/0", result.Saved, result.Failed)
	}
	if len(result.Tiles) != 9 {
		t.Fatalf("tiles: got %d, want 9", len(result.Tiles))
	}

	for i, tile := range result.Tiles {
		row, col := imaging.TilePosition(i, imaging.DefaultGrid)
		if tile.Row != row || tile.Column != col {
			t.Errorf("tile %d: position (%d,%d), want (%d,%d)", i, tile.Row, tile.Column, row, col)
		}
		if tile.Name != library.TileName(result.BatchID, row, col) {
			t.Errorf("tile %d: name %s", i, tile.Name)
		}
		if tile.Title != "Saved!" {
			t.Errorf("tile %d: title %q", i, tile.Title)
		}
		if tile.Message != "Your cropped image has been saved to your photos." {
			t.Errorf("tile %d: message %q", i, tile.Message)
		}

		path := filepath.Join(s.cfg.OutputDir, tile.Name+".png")
		f, err := os.Open(path)
		if err != nil {
			t.Errorf("tile %d: %v", i, err)
			continue
		}
		cfg, err := png.DecodeConfig(f)
		f.Close()
		if err != nil {
			t.Errorf("tile %d: decode: %v", i, err)
			continue
		}
		if cfg.Width != 30 || cfg.Height != 30 {
			t.Errorf("tile %d: saved size %dx%d, want 30x30", i, cfg.Width, cfg.Height)
		}
	}

	if s.cache.Size() != 0 {
		t.Errorf("photo should be evicted after saving, cache size %d", s.cache.Size())
	}
}

func TestHandleToolsCall_SplitSaveTwiceGetsNewBatch(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 9, 9, color.White)

	var first, second SplitSaveResult
	callTool(t, s, "image_split_save", map[string]interface{}{"path": imgPath}, &first)
	callTool(t, s, "image_split_save", map[string]interface{}{"path": imgPath}, &second)

	if first.BatchID == second.BatchID {
		t.Error("each split should get its own batch id")
	}
	if second.Failed != 0 {
		t.Errorf("second split should not collide with the first: %+v", second.Tiles)
	}

	entries, err := os.ReadDir(s.cfg.OutputDir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 18 {
		t.Errorf("files: got %d, want 18", len(entries))
	}
}

func TestHandleToolsCall_SplitSaveS3(t *testing.T) {
	s := newTestServer(t)
	s.cfg.S3.Bucket = "photos"
	s.cfg.S3.Prefix = "grids"
	sink := newRecordingSink()
	s.SetRemoteSink(sink)

	imgPath := createTestImageFile(t, 60, 60, color.White)

	var result SplitSaveResult
	resp := callTool(t, s, "image_split_save", map[string]interface{}{
		"path":        imgPath,
		"destination": "s3",
	}, &result)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if result.Location != "s3://photos/grids" {
		t.Errorf("Location: got %s", result.Location)
	}
	if len(sink.saved) != 9 {
		t.Errorf("remote sink got %d tiles, want 9", len(sink.saved))
	}

	entries, _ := os.ReadDir(s.cfg.OutputDir)
	if len(entries) != 0 {
		t.Errorf("nothing should be written locally, found %d files", len(entries))
	}
}

func TestHandleToolsCall_SplitSavePartialFailure(t *testing.T) {
	s := newTestServer(t)
	// Batch ids are random, so the center tile is matched by suffix.
	s.SetRemoteSink(failCenter{newRecordingSink()})

	imgPath := createTestImageFile(t, 60, 60, color.White)

	var result SplitSaveResult
	resp := callTool(t, s, "image_split_save", map[string]interface{}{
		"path":        imgPath,
		"destination": "s3",
	}, &result)
	if resp.Error != nil {
		t.Fatalf("a failed tile should not fail the call: %v", resp.Error)
	}

	if result.Saved != 8 || result.Failed != 1 {
		t.Errorf("saved/failed: got %d/%d, want 8/1", result.Saved, result.Failed)
	}
	center := result.Tiles[4]
	if center.Saved {
		t.Error("center tile should have failed")
	}
	if center.Title != "Save error" {
		t.Errorf("title: got %q", center.Title)
	}
	if !strings.Contains(center.Message, "bucket is full") {
		t.Errorf("message: got %q", center.Message)
	}
	for i, tile := range result.Tiles {
		if i != 4 && !tile.Saved {
			t.Errorf("tile %d should have been saved", i)
		}
	}
}

// failCenter fails the tile at row 1, column 1.
type failCenter struct {
	*recordingSink
}

func (f failCenter) Save(ctx context.Context, name string, img image.Image) error {
	if strings.HasSuffix(name, "_r1_c1") {
		return errors.New("bucket is full")
	}
	return f.recordingSink.Save(ctx, name, img)
}

func TestHandleToolsCall_SplitSaveS3NotConfigured(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 30, color.White)

	resp := callTool(t, s, "image_split_save", map[string]interface{}{
		"path":        imgPath,
		"destination": "s3",
	}, nil)
	if resp.Error == nil {
		t.Fatal("expected an error when s3 is not configured")
	}
	if !strings.Contains(resp.Error.Data.(string), "not configured") {
		t.Errorf("Error data: got %v", resp.Error.Data)
	}
}

func TestHandleToolsCall_SplitSaveUnknownDestination(t *testing.T) {
	s := newTestServer(t)
	imgPath := createTestImageFile(t, 30, 30, color.White)

	resp := callTool(t, s, "image_split_save", map[string]interface{}{
		"path":        imgPath,
		"destination": "ftp",
	}, nil)
	if resp.Error == nil {
		t.Fatal("expected an error for an unknown destination")
	}
}

func TestHandleToolsCall_SplitSaveNotifies(t *testing.T) {
	s := newTestServer(t)
	var titles []string
	s.notifier = library.NotifierFunc(func(o library.Outcome) {
		titles = append(titles, o.Title())
	})

	imgPath := createTestImageFile(t, 30, 30, color.White)
	resp := callTool(t, s, "image_split_save", map[string]interface{}{"path": imgPath}, nil)
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	if len(titles) != 9 {
		t.Fatalf("notifications: got %d, want 9", len(titles))
	}
	for i, title := range titles {
		if title != "Saved!" {
			t.Errorf("notification %d: %q", i, title)
		}
	}
}

func TestMustMarshalJSON(t *testing.T) {
	got := mustMarshalJSON(map[string]int{"a": 1})
	if !strings.Contains(got, `"a": 1`) {
		t.Errorf("got %s", got)
	}
	if mustMarshalJSON(make(chan int)) != "" {
		t.Error("unmarshalable values should yield an empty string")
	}
}

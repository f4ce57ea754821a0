package imaging

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestPartitionReport(t *testing.T) {
	img := createInMemoryImage(301, 302, color.RGBA{0, 0, 255, 255})

	result, tiles, err := PartitionReport(img, DefaultGrid, false)
	if err != nil {
		t.Fatalf("PartitionReport failed: %v", err)
	}

	if result.SourceWidth != 301 || result.SourceHeight != 302 {
		t.Errorf("source: got %dx%d, want 301x302", result.SourceWidth, result.SourceHeight)
	}
	if result.Rows != 3 || result.Columns != 3 {
		t.Errorf("grid: got %dx%d, want 3x3", result.Rows, result.Columns)
	}
	if result.DroppedColumns != 1 || result.DroppedRows != 2 {
		t.Errorf("dropped: got %d columns %d rows, want 1 and 2", result.DroppedColumns, result.DroppedRows)
	}
	if len(tiles) != 9 || len(result.Tiles) != 9 {
		t.Fatalf("tiles: got %d images and %d reports, want 9", len(tiles), len(result.Tiles))
	}

	rects := TileRects(img.Bounds(), DefaultGrid)
	for i, tr := range result.Tiles {
		row, col := TilePosition(i, DefaultGrid)
		if tr.Index != i || tr.Row != row || tr.Column != col {
			t.Errorf("tile %d: got index %d at (%d,%d)", i, tr.Index, tr.Row, tr.Column)
		}
		want := Region{X1: rects[i].Min.X, Y1: rects[i].Min.Y, X2: rects[i].Max.X, Y2: rects[i].Max.Y}
		if tr.Source != want {
			t.Errorf("tile %d: source %+v, want %+v", i, tr.Source, want)
		}
		if tr.Width != 100 || tr.Height != 100 {
			t.Errorf("tile %d: size %dx%d, want 100x100", i, tr.Width, tr.Height)
		}
		if tr.ImageBase64 != "" || tr.MimeType != "" {
			t.Errorf("tile %d: image data should be omitted", i)
		}
		if tr.AverageColor == nil || tr.AverageColor.Hex != "#0000ff" {
			t.Errorf("tile %d: average color %+v, want #0000ff", i, tr.AverageColor)
		}
		if !tiles[i].Bounds().Eq(image.Rect(0, 0, tr.Width, tr.Height)) {
			t.Errorf("tile %d: returned image bounds %v", i, tiles[i].Bounds())
		}
	}
}

func TestPartitionReport_IncludeImages(t *testing.T) {
	img := createCoordinateImage(30, 30)

	result, _, err := PartitionReport(img, DefaultGrid, true)
	if err != nil {
		t.Fatalf("PartitionReport failed: %v", err)
	}

	for i, tr := range result.Tiles {
		if tr.MimeType != "image/png" {
			t.Errorf("tile %d: MimeType %q", i, tr.MimeType)
		}
		data, err := base64.StdEncoding.DecodeString(tr.ImageBase64)
		if err != nil {
			t.Fatalf("tile %d: bad base64: %v", i, err)
		}
		decoded, err := png.Decode(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("tile %d: bad png: %v", i, err)
		}
		if decoded.Bounds().Dx() != 10 || decoded.Bounds().Dy() != 10 {
			t.Errorf("tile %d: decoded size %v", i, decoded.Bounds())
		}
		// The top-left pixel of each tile is the source pixel at its origin.
		got := sourcePoint(decoded.At(0, 0))
		want := image.Pt(tr.Source.X1, tr.Source.Y1)
		if got != want {
			t.Errorf("tile %d: top-left came from %v, want %v", i, got, want)
		}
	}
}

func TestPartitionReport_MoreCellsThanPixels(t *testing.T) {
	img := createInMemoryImage(2, 2, color.White)

	result, _, err := PartitionReport(img, DefaultGrid, true)
	if err != nil {
		t.Fatalf("PartitionReport failed: %v", err)
	}
	for i, tr := range result.Tiles {
		if tr.Width != 0 || tr.Height != 0 {
			t.Errorf("tile %d: size %dx%d, want 0x0", i, tr.Width, tr.Height)
		}
		if tr.AverageColor != nil {
			t.Errorf("tile %d: empty tile should have no average color", i)
		}
	}
	if result.DroppedColumns != 2 || result.DroppedRows != 2 {
		t.Errorf("dropped: got %d and %d, want 2 and 2", result.DroppedColumns, result.DroppedRows)
	}
}

func TestPartitionReport_Errors(t *testing.T) {
	if _, _, err := PartitionReport(createInMemoryImage(9, 9, color.White), GridShape{0, 3}, false); !errors.Is(err, ErrInvalidGridShape) {
		t.Errorf("got %v, want ErrInvalidGridShape", err)
	}
	if _, _, err := PartitionReport(nil, DefaultGrid, false); !errors.Is(err, ErrImageUnavailable) {
		t.Errorf("got %v, want ErrImageUnavailable", err)
	}
}

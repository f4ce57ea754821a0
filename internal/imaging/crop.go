package imaging

import (
	"image"
)

// Region is a rectangle in source image coordinates.
// (X1,Y1) is inclusive and (X2,Y2) is exclusive.
type Region struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// TileResult describes one cropped tile and where it came from.
type TileResult struct {
	Index       int    `json:"index"`
	Row         int    `json:"row"`
	Column      int    `json:"column"`
	Source      Region `json:"source"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`

	// AverageColor is nil for a tile with no pixels.
	AverageColor *ColorResult `json:"average_color,omitempty"`
}

// PartitionResult is the report for a whole partition call.
type PartitionResult struct {
	SourceWidth  int          `json:"source_width"`
	SourceHeight int          `json:"source_height"`
	Rows         int          `json:"rows"`
	Columns      int          `json:"columns"`
	Tiles        []TileResult `json:"tiles"`

	// DroppedColumns and DroppedRows count the source pixel columns and rows
	// that fall outside every tile because the size does not divide evenly.
	DroppedColumns int `json:"dropped_columns"`
	DroppedRows    int `json:"dropped_rows"`
}

// PartitionReport partitions img and describes every tile.
//
// With includeImages set, each non-empty tile is also returned as a base64 PNG.
// The tiles themselves are returned alongside the report so callers can
// hand them to a sink without cropping twice.
func PartitionReport(img image.Image, shape GridShape, includeImages bool) (*PartitionResult, []image.Image, error) {
	tiles, err := Partition(img, shape)
	if err != nil {
		return nil, nil, err
	}

	bounds := img.Bounds()
	rects := TileRects(bounds, shape)
	result := &PartitionResult{
		SourceWidth:    bounds.Dx(),
		SourceHeight:   bounds.Dy(),
		Rows:           shape.Rows,
		Columns:        shape.Columns,
		Tiles:          make([]TileResult, 0, len(tiles)),
		DroppedColumns: bounds.Dx() - shape.Columns*(bounds.Dx()/shape.Columns),
		DroppedRows:    bounds.Dy() - shape.Rows*(bounds.Dy()/shape.Rows),
	}

	for i, tile := range tiles {
		row, col := TilePosition(i, shape)
		r := rects[i]
		tr := TileResult{
			Index:  i,
			Row:    row,
			Column: col,
			Source: Region{X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y},
			Width:  tile.Bounds().Dx(),
			Height: tile.Bounds().Dy(),

			AverageColor: AverageColor(tile),
		}
		// PNG cannot hold a zero-area image.
		if includeImages && !tile.Bounds().Empty() {
			encoded, err := encodePNGBase64(tile)
			if err != nil {
				return nil, nil, err
			}
			tr.ImageBase64 = encoded
			tr.MimeType = "image/png"
		}
		result.Tiles = append(result.Tiles, tr)
	}

	return result, tiles, nil
}

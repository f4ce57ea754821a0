package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/anthonynsimon/bild/clone"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultLineColor is the preview guide color: white at 60% opacity.
const DefaultLineColor = "#FFFFFF99"

// Segment is a straight guide line in image coordinates.
// Both end points are inclusive of the line's pixel column or row.
type Segment struct {
	Orientation string `json:"orientation"` // "vertical" or "horizontal"
	X1          int    `json:"x1"`
	Y1          int    `json:"y1"`
	X2          int    `json:"x2"`
	Y2          int    `json:"y2"`
}

// GridLines returns the guide lines that preview where Partition will cut.
//
// There are Columns-1 vertical lines followed by Rows-1 horizontal lines.
// Line i sits on the first pixel of column (or row) i, using the same
// floor(i*W/C) rule as TileRects, so the preview matches the real cut.
// A 1×1 grid has no lines.
func GridLines(bounds image.Rectangle, shape GridShape) []Segment {
	width := bounds.Dx()
	height := bounds.Dy()
	if shape.Rows < 1 || shape.Columns < 1 || bounds.Empty() {
		return nil
	}

	lines := make([]Segment, 0, shape.Rows+shape.Columns-2)
	for i := 1; i < shape.Columns; i++ {
		x := bounds.Min.X + i*width/shape.Columns
		lines = append(lines, Segment{
			Orientation: "vertical",
			X1:          x,
			Y1:          bounds.Min.Y,
			X2:          x,
			Y2:          bounds.Max.Y - 1,
		})
	}
	for i := 1; i < shape.Rows; i++ {
		y := bounds.Min.Y + i*height/shape.Rows
		lines = append(lines, Segment{
			Orientation: "horizontal",
			X1:          bounds.Min.X,
			Y1:          y,
			X2:          bounds.Max.X - 1,
			Y2:          y,
		})
	}
	return lines
}

// GridOverlayResult contains the preview image with grid lines drawn on it.
type GridOverlayResult struct {
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Rows        int       `json:"rows"`
	Columns     int       `json:"columns"`
	Lines       []Segment `json:"lines"`
	ImageBase64 string    `json:"image_base64"`
	MimeType    string    `json:"mime_type"`
}

// GridOverlay draws the grid preview for shape on a copy of img.
//
// Each line pixel is blended toward lineColorHex by the color's alpha
// ("#RRGGBB" is opaque, "#RRGGBBAA" carries its own alpha). An unparsable
// or empty color falls back to DefaultLineColor. Pixels off the lines are
// copied unchanged, and img itself is never modified.
func GridOverlay(img image.Image, shape GridShape, lineColorHex string) (*GridOverlayResult, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	src, err := readable(img)
	if err != nil {
		return nil, err
	}

	line, alpha, err := parseLineColor(lineColorHex)
	if err != nil {
		line, alpha, _ = parseLineColor(DefaultLineColor)
	}

	canvas := clone.AsRGBA(src)
	bounds := canvas.Bounds()
	lines := GridLines(bounds, shape)
	for _, seg := range lines {
		for y := seg.Y1; y <= seg.Y2; y++ {
			for x := seg.X1; x <= seg.X2; x++ {
				blendPixel(canvas, x, y, line, alpha)
			}
		}
	}

	encoded, err := encodePNGBase64(canvas)
	if err != nil {
		return nil, err
	}

	return &GridOverlayResult{
		Width:       bounds.Dx(),
		Height:      bounds.Dy(),
		Rows:        shape.Rows,
		Columns:     shape.Columns,
		Lines:       lines,
		ImageBase64: encoded,
		MimeType:    "image/png",
	}, nil
}

func blendPixel(canvas *image.RGBA, x, y int, line colorful.Color, alpha float64) {
	orig := canvas.RGBAAt(x, y)
	base, ok := colorful.MakeColor(orig)
	if !ok {
		// Fully transparent pixel: the guide is all that shows.
		base = line
	}
	r, g, b := base.BlendRgb(line, alpha).Clamped().RGB255()
	a := orig.A
	if la := uint8(math.Round(alpha * 255)); a < la {
		a = la
	}
	canvas.Set(x, y, color.NRGBA{R: r, G: g, B: b, A: a})
}

// parseLineColor parses "#RRGGBB" or "#RRGGBBAA" into a color and an opacity in [0,1].
func parseLineColor(hex string) (colorful.Color, float64, error) {
	hex = strings.TrimPrefix(strings.TrimSpace(hex), "#")
	alpha := 1.0

	switch len(hex) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return colorful.Color{}, 0, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = float64(a) / 255
		hex = hex[:6]
	default:
		return colorful.Color{}, 0, fmt.Errorf("invalid hex color length: %q", hex)
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return colorful.Color{}, 0, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	return c, alpha, nil
}

package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
//
// HSL is easier to read than RGB when telling tiles apart:
//   - Hue represents the color type (red, green, blue, etc.)
//   - Saturation represents color intensity (gray to vivid)
//   - Lightness represents brightness (black to white)
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex   string   `json:"hex"`   // Hex format "#RRGGBB" (no alpha)
	RGB   RGBColor `json:"rgb"`   // RGB components
	HSL   HSLColor `json:"hsl"`   // HSL representation
	Alpha uint8    `json:"alpha"` // Mean opacity (0-255)
}

// AverageColor returns the mean color of img, or nil when img has no pixels.
//
// The image is box-filtered down to a single pixel, so every source pixel
// contributes. Partition reports use it to give each tile a color summary
// that can be checked without decoding the tile itself.
func AverageColor(img image.Image) *ColorResult {
	if img == nil || img.Bounds().Empty() {
		return nil
	}

	px := imaging.Resize(img, 1, 1, imaging.Box)
	if len(px.Pix) < 4 {
		return nil
	}
	r8, g8, b8, a8 := px.Pix[0], px.Pix[1], px.Pix[2], px.Pix[3]

	c := colorful.Color{R: float64(r8) / 255.0, G: float64(g8) / 255.0, B: float64(b8) / 255.0}
	h, s, l := c.Hsl()
	if math.IsNaN(h) {
		h = 0
	}

	return &ColorResult{
		Hex:   c.Hex(),
		RGB:   RGBColor{R: r8, G: g8, B: b8},
		HSL:   HSLColor{H: int(math.Round(h)) % 360, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		Alpha: a8,
	}
}

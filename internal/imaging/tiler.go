package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidGridShape is returned when a grid has fewer than one row or column.
	ErrInvalidGridShape = errors.New("invalid grid shape")

	// ErrImageUnavailable is returned when the source image has no pixels that
	// can be read (nil image, empty bounds, or a missing backing buffer).
	ErrImageUnavailable = errors.New("image unavailable")
)

// GridShape describes how many equal slices to cut along each axis.
type GridShape struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
}

// DefaultGrid is the fixed grid used by the tools and the CLI.
var DefaultGrid = GridShape{Rows: 3, Columns: 3}

// Validate reports ErrInvalidGridShape when either dimension is below one.
func (g GridShape) Validate() error {
	if g.Rows < 1 || g.Columns < 1 {
		return fmt.Errorf("%w: %dx%d (rows and columns must be >= 1)", ErrInvalidGridShape, g.Rows, g.Columns)
	}
	return nil
}

// Count returns the number of tiles the grid produces.
func (g GridShape) Count() int {
	return g.Rows * g.Columns
}

// TilePosition maps a row-major tile index back to its grid cell.
func TilePosition(index int, shape GridShape) (row, column int) {
	return index / shape.Columns, index % shape.Columns
}

// TileRects computes the source rectangle of every tile in row-major order.
//
// Tile k covers row k/Columns and column k%Columns. For a source of width W
// cut into C columns, column x starts at floor(x*W/C) and is floor(W/C)
// pixels wide; rows are handled the same way. Integer division gives the
// floor exactly, so there is no floating point drift.
//
// When W is not a multiple of C (or H of R), the W mod C remainder pixels
// belong to no tile. They are dropped, never turned into an extra partial
// tile. With a remainder of one (301 px in 3 columns) the dropped pixel is
// the last column; larger remainders leave single-pixel seams where
// floor(x*W/C) skips ahead. A grid with more cells than pixels along an
// axis yields zero-area rectangles.
//
// The shape must be valid; TileRects does not check it.
func TileRects(bounds image.Rectangle, shape GridShape) []image.Rectangle {
	width := bounds.Dx()
	height := bounds.Dy()
	tileW := width / shape.Columns
	tileH := height / shape.Rows

	rects := make([]image.Rectangle, 0, shape.Count())
	for y := 0; y < shape.Rows; y++ {
		originY := bounds.Min.Y + y*height/shape.Rows
		for x := 0; x < shape.Columns; x++ {
			originX := bounds.Min.X + x*width/shape.Columns
			rects = append(rects, image.Rect(originX, originY, originX+tileW, originY+tileH))
		}
	}
	return rects
}

// Partition slices img into shape.Rows × shape.Columns tiles.
//
// The returned images are in row-major order: every column of row 0, then
// row 1, and so on. Each tile is a freshly allocated *image.NRGBA whose
// bounds start at (0,0); nothing is shared with img or with other tiles.
//
// Partition either returns all tiles or none. It fails with
// ErrInvalidGridShape for a non-positive grid and ErrImageUnavailable when
// img cannot be read.
func Partition(img image.Image, shape GridShape) ([]image.Image, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	src, err := readable(img)
	if err != nil {
		return nil, err
	}

	rects := TileRects(src.Bounds(), shape)
	tiles := make([]image.Image, 0, len(rects))
	for _, r := range rects {
		if r.Empty() {
			tiles = append(tiles, image.NewNRGBA(image.Rect(0, 0, r.Dx(), r.Dy())))
			continue
		}
		tiles = append(tiles, imaging.Crop(src, r))
	}
	return tiles, nil
}

// readable returns an image whose pixels are known to be readable.
//
// Standard library image types are checked in place and returned as is.
// Any other implementation is copied once into an *image.RGBA; if reading
// it panics, the image is reported as unavailable. Cropping runs rows on
// several goroutines, where a panic could not be recovered.
func readable(img image.Image) (image.Image, error) {
	known, err := checkSampleable(img)
	if err != nil {
		return nil, err
	}
	if known {
		return img, nil
	}
	return materialize(img)
}

func materialize(img image.Image) (rgba image.Image, err error) {
	defer func() {
		if p := recover(); p != nil {
			rgba = nil
			err = fmt.Errorf("%w: reading pixels: %v", ErrImageUnavailable, p)
		}
	}()
	return clone.AsRGBA(img), nil
}

// checkSampleable rejects images whose pixels cannot be read at all. For the
// standard library image types it verifies the backing buffer covers the
// bounds and reports known as true.
func checkSampleable(img image.Image) (known bool, err error) {
	if img == nil {
		return false, fmt.Errorf("%w: nil image", ErrImageUnavailable)
	}

	var pix, stride, bpp int
	switch m := img.(type) {
	case *image.RGBA:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.RGBA", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 4
	case *image.NRGBA:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.NRGBA", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 4
	case *image.RGBA64:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.RGBA64", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 8
	case *image.NRGBA64:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.NRGBA64", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 8
	case *image.Gray:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.Gray", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 1
	case *image.Gray16:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.Gray16", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 2
	case *image.Alpha:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.Alpha", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 1
	case *image.Paletted:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.Paletted", ErrImageUnavailable)
		}
		if len(m.Palette) == 0 {
			return false, fmt.Errorf("%w: empty palette", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Pix), m.Stride, 1
	case *image.YCbCr:
		if m == nil {
			return false, fmt.Errorf("%w: nil *image.YCbCr", ErrImageUnavailable)
		}
		pix, stride, bpp = len(m.Y), m.YStride, 1
	default:
		pix, stride, bpp = -1, 0, 0
	}

	bounds, err := boundsOf(img)
	if err != nil {
		return false, err
	}
	if bounds.Empty() {
		return false, fmt.Errorf("%w: empty bounds %v", ErrImageUnavailable, bounds)
	}
	if pix < 0 {
		return false, nil
	}

	// Last row only needs Dx pixels, not a full stride.
	need := (bounds.Dy()-1)*stride + bounds.Dx()*bpp
	if pix < need {
		return false, fmt.Errorf("%w: pixel buffer has %d bytes, bounds %v need %d", ErrImageUnavailable, pix, bounds, need)
	}

	switch m := img.(type) {
	case *image.YCbCr:
		// Chroma offsets grow toward the bottom-right corner.
		c := m.COffset(bounds.Max.X-1, bounds.Max.Y-1)
		if c < 0 || len(m.Cb) <= c || len(m.Cr) <= c {
			return false, fmt.Errorf("%w: chroma planes have %d/%d bytes, bounds %v need %d",
				ErrImageUnavailable, len(m.Cb), len(m.Cr), bounds, c+1)
		}
	case *image.Paletted:
		if err := checkPaletteIndexes(m, bounds); err != nil {
			return false, err
		}
	}
	return true, nil
}

// checkPaletteIndexes rejects a paletted image holding an index past the end
// of its palette. The buffer length has already been checked.
func checkPaletteIndexes(m *image.Paletted, bounds image.Rectangle) error {
	n := len(m.Palette)
	if n >= 256 {
		return nil
	}
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		i := m.PixOffset(bounds.Min.X, y)
		for x, idx := range m.Pix[i : i+bounds.Dx()] {
			if int(idx) >= n {
				return fmt.Errorf("%w: palette index %d at (%d,%d), palette has %d colors",
					ErrImageUnavailable, idx, bounds.Min.X+x, y, n)
			}
		}
	}
	return nil
}

func boundsOf(img image.Image) (b image.Rectangle, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: reading bounds: %v", ErrImageUnavailable, p)
		}
	}()
	return img.Bounds(), nil
}

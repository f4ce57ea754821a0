package library

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/google/uuid"

	"github.com/ironsheep/image-grid-mcp/internal/imaging"
)

// ErrPersistenceFailure marks an error from saving a single tile.
var ErrPersistenceFailure = errors.New("save failed")

// Sink stores one image under a name. Implementations choose the extension
// and location; the name carries no extension.
type Sink interface {
	Save(ctx context.Context, name string, img image.Image) error
}

// Format is the encoding used when a sink writes a tile.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
)

// ParseFormat accepts "png", "jpeg" or "jpg" in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	default:
		return "", fmt.Errorf("unsupported tile format: %q", s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return ".png"
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatJPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Encoder returns the bild encoder for the format. quality only applies to JPEG.
func (f Format) Encoder(quality int) imgio.Encoder {
	if f == FormatJPEG {
		return imgio.JPEGEncoder(quality)
	}
	return imgio.PNGEncoder()
}

// NewBatchID returns a fresh identifier used to prefix the tiles of one save.
func NewBatchID() string {
	return uuid.NewString()
}

// TileName names tile (row, column) of a batch, e.g. "<batch>_r0_c2".
func TileName(batchID string, row, column int) string {
	if batchID == "" {
		batchID = "tile"
	}
	return fmt.Sprintf("%s_r%d_c%d", batchID, row, column)
}

// Outcome is the result of saving one tile.
type Outcome struct {
	Index  int    `json:"index"`
	Row    int    `json:"row"`
	Column int    `json:"column"`
	Name   string `json:"name"`
	Saved  bool   `json:"saved"`
	Error  string `json:"error,omitempty"`

	Err error `json:"-"`
}

// Title is the short heading shown to the user for this outcome.
func (o Outcome) Title() string {
	if o.Saved {
		return "Saved!"
	}
	return "Save error"
}

// Message is the body shown to the user: a confirmation, or the sink's
// description of what went wrong.
func (o Outcome) Message() string {
	if o.Saved {
		return "Your cropped image has been saved to your photos."
	}
	return o.Error
}

// Notifier tells the user how each save went.
type Notifier interface {
	Notify(Outcome)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Outcome)

// Notify calls f(o).
func (f NotifierFunc) Notify(o Outcome) { f(o) }

// LogNotifier reports outcomes through a standard logger.
// A nil Logger uses the package-level log functions.
type LogNotifier struct {
	Logger *log.Logger
}

// Notify logs one line per outcome.
func (n LogNotifier) Notify(o Outcome) {
	msg := fmt.Sprintf("%s [%s] %s", o.Title(), o.Name, o.Message())
	if n.Logger != nil {
		n.Logger.Print(msg)
		return
	}
	log.Print(msg)
}

// SaveTiles hands every tile to sink, one at a time and in order, and
// returns one Outcome per tile.
//
// Tiles are expected in row-major order for shape; the order is what ties
// each image to its grid cell and its name. Each save is independent: a
// failure is recorded in that tile's Outcome and the remaining tiles are
// still attempted. Nothing is retried or rolled back. Once ctx is done,
// every remaining tile is recorded as failed with the context error.
//
// notifier may be nil.
func SaveTiles(ctx context.Context, sink Sink, notifier Notifier, batchID string, shape imaging.GridShape, tiles []image.Image) []Outcome {
	outcomes := make([]Outcome, 0, len(tiles))
	for i, tile := range tiles {
		row, col := imaging.TilePosition(i, shape)
		o := Outcome{
			Index:  i,
			Row:    row,
			Column: col,
			Name:   TileName(batchID, row, col),
		}

		err := ctx.Err()
		if err == nil {
			err = sink.Save(ctx, o.Name, tile)
		}
		if err != nil {
			o.Err = fmt.Errorf("%w: %s: %w", ErrPersistenceFailure, o.Name, err)
			o.Error = err.Error()
		} else {
			o.Saved = true
		}

		if notifier != nil {
			notifier.Notify(o)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

// Failed counts the outcomes that were not saved.
func Failed(outcomes []Outcome) int {
	n := 0
	for _, o := range outcomes {
		if !o.Saved {
			n++
		}
	}
	return n
}

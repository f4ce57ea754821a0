// Package imaging provides the image operations behind the grid splitter.
//
// It loads the photo a user picked, previews a grid over it, and cuts it into
// equal tiles. All operations work with standard Go image.Image values and
// use a coordinate system where (0,0) is at the top-left corner, X increases
// rightward, and Y increases downward.
//
// # Tiling
//
// Partition cuts an image into Rows × Columns tiles and returns them in
// row-major order: every column of the first row, left to right, then the
// next row. Tile k belongs to row k/Columns and column k%Columns; no other
// label travels with the tile, so callers must keep the order.
//
// Tile sizes are floor(W/Columns) × floor(H/Rows). Pixels left over when the
// size does not divide evenly are not part of any tile. This is deliberate
// and stable: the same input always produces the same bytes.
//
// PartitionReport describes every tile: its source region, size and average
// color, and optionally the tile itself as base64 PNG.
//
// # Grid Preview
//
// GridLines computes the guide lines as plain segments from the bounds and
// grid shape, using the same floor rule as the tiler, and GridOverlay draws
// them on a copy of the image. Nothing is retained between calls.
//
// # Coordinate System
//
// For regions, (x1,y1) is inclusive (top-left) and (x2,y2) is exclusive
// (bottom-right). Grid line segments are inclusive at both ends.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. Partition, TileRects, GridLines and
// GridOverlay are stateless and may be called concurrently on independent
// inputs. They never modify the source image.
//
// # Error Handling
//
// Partition and GridOverlay return ErrInvalidGridShape for a grid with fewer
// than one row or column and ErrImageUnavailable when the source has no
// readable pixels. Both are sentinel errors; test with errors.Is. A failed
// Partition returns no tiles at all.
package imaging

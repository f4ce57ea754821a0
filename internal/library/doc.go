// Package library saves tiles somewhere durable and reports how each save went.
//
// A Sink stores one image under a name. DirSink writes files into a local
// directory and S3Sink uploads objects to an S3 or MinIO bucket. SaveTiles
// drives a sink over the tiles of one partition, in row-major order, and
// returns an Outcome per tile instead of invoking a callback per save.
//
// # Error Handling
//
// Saves are independent. A failed tile is reported in its Outcome, with Err
// wrapping ErrPersistenceFailure and the sink's error, and the other tiles
// are still attempted. There are no retries.
//
// # Naming
//
// Tiles of one save share a batch ID (a UUID) and are named
// "<batch>_r<row>_c<column>", so saving the same photo twice never
// overwrites the first set.
package library

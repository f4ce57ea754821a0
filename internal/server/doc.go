// Package server implements the MCP (Model Context Protocol) server for the
// photo grid tools.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Picked Image:
//   - image_load: Load a photo and report its size and tile size
//   - image_dimensions: Get width and height
//
// Grid Preview:
//   - image_grid_lines: Guide line segments where the photo will be cut
//   - image_grid_overlay: The photo with the 3x3 grid drawn on it
//
// Tiling:
//   - image_partition: Describe (and optionally return) the nine tiles
//   - image_split_save: Cut the photo and save every tile to a sink
//
// # Saving
//
// image_split_save saves each tile independently and reports a per-tile
// outcome. A failed tile never stops the others. The "local" destination
// writes to the configured output directory; "s3" is only available when
// main wires a remote sink with SetRemoteSink.
//
// # Image Caching
//
// Photos are cached by path and reused across tool calls. A photo is evicted
// after it has been split and saved.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// Per-tile save failures are not JSON-RPC errors; they appear in the
// tool result with Saved set to false.
//
// # Usage
//
//	cfg, err := config.Load(nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

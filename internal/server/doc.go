// Package server implements the MCP (Model Context Protocol) server for
// document rectification.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses and notifications on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - document_detect_edges: Locate the four document corners
//   - document_correct_perspective: Rectify given four corners
//   - document_process: Full pipeline with quality and performance metrics
//   - document_quality: Quality signals of a rectified page
//   - document_overlay: Draw the document outline for review
//   - document_ocr: Process, then recognize text when quality allows
//
// # Errors
//
// Tool failures are reported as JSON-RPC error -32000 whose data holds the
// error code (INVALID_INPUT, INVALID_CORNERS, TRANSFORM_FAILED, ...), the
// stage and a reason. Malformed arguments and unknown tools are -32602.
//
// # Progress
//
// document_process sends notifications/progress when the request's _meta
// carries a progressToken. Progress runs from 0 to 1 for the pipeline, and
// on to 2 when enhancement is requested.
//
// # Image Caching
//
// Decoded photographs are cached by path, bounded by server.cacheSize, and
// reloaded when the file changes on disk.
package server

// Package server implements the MCP (Model Context Protocol) server for
// grading bubble answer sheets.
//
// # Protocol
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
// Sheet Processing:
//   - omr_process: Detect bubbles and map answers for one sheet
//   - omr_process_batch: Process many sheets concurrently
//
// Grading:
//   - omr_grade: Grade mapped answers against a key
//   - omr_grade_batch: Process and grade many sheets, with a class summary
//
// Review:
//   - omr_overlay: Annotated sheet with every detected bubble outlined
//   - omr_review_row: Crop of one detected row
//   - omr_read_header: OCR of a printed header label
//
// Every tool that runs the pipeline accepts the detection settings as
// optional overrides of the server configuration.
//
// # Sheet Caching
//
// Sheet files are cached by path so repeated calls on one sheet (process,
// then overlay, then review) read the disk once. Batch tools evict their
// sheets when done.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// A failing sheet inside a batch is not a tool error; it is listed in the
// batch result's errors with a code such as DECODE_FAILED.
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(cfg)
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

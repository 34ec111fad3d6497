// Package server implements an MCP (Model Context Protocol) server that
// exposes dataset preparation as tools.
//
// An assistant connected over MCP can check how label paths resolve, run a
// dry run, prepare the dataset, and spot-check images with OCR, all
// against the same configuration the CLI uses.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr so they never interleave with protocol output.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Dataset:
//   - dataset_prepare: Run the full pipeline, or a dry run
//   - dataset_resolve: Show where declared image paths resolve
//   - dataset_audit: OCR baseline over a written split
//
// Images:
//   - image_probe: Header metadata (format, size) of an image file
//   - plate_read: Recognize the plate text of one image
//
// Alphabet:
//   - charset_list: The fixed plate alphabet
//   - charset_write: Write the alphabet file
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv := server.New(server.Options{Config: cfg, Logger: logger})
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server failed", zap.Error(err))
//	}
package server

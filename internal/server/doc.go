// Package server implements the MCP (Model Context Protocol) tool server for
// the perception core.
//
// The server is a JSON-RPC 2.0 loop over stdio that exposes ball scanning,
// ground projection, horizon and ellipse fitting to MCP-compatible clients,
// so recorded frames can be inspected against a calibrated camera pose.
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
// Lines that are not valid JSON are logged and skipped.
//
// # Available Tools
//
//   - image_load: Load a frame and report its size and format
//   - perception_scan_ball: Score ball hypotheses with the integral image scorer
//   - perception_project: Project pixels onto the ground or another plane
//   - perception_horizon: Horizon line in image coordinates
//   - perception_pixel_radius: Expected image radius of an object at a distance
//   - perception_fit_ellipse: Fit an ellipse, optionally checked as the center circle
//   - perception_calibration: Show or update the calibration offsets
//   - perception_overlay: Render horizon, hypotheses and ellipses onto a frame
//
// Most perception tools take a pose. Either pass legacy=true with pitch, roll
// and height, or pass joint angles with the camera name and leg_height.
//
// # Frame Caching
//
// Loaded frames are cached by path for the lifetime of the server process.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool failure), -32602 (invalid params) or -32601 (unknown method)
//   - message: Human-readable error description
//   - data: The Go error string
//
// # Usage
//
//	srv, err := server.New(server.Options{Tuning: tuning, Store: store, Logger: logger})
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx, os.Stdin, os.Stdout)
package server

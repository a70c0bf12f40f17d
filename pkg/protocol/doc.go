// Package protocol defines the wire shapes the probe harness speaks: JSON-RPC
// 2.0 requests, notifications and responses, plus the three MCP messages a
// probe session needs.
//
// # Message Flow
//
// Every probe session is the same three lines on the server's stdin:
//
//  1. initialize request (id 1) carrying protocol version and client identity
//  2. notifications/initialized notification (no id, never answered)
//  3. tools/call request (id 3) naming the tool and its arguments
//
// Only the response to the tools/call request is consumed. Its result holds a
// content list whose first element's text is the probe payload.
//
// # Arguments
//
// Tool arguments are an ordered key/value mapping. Keys serialize in
// insertion order so the encoded session is stable across runs:
//
//	args := protocol.NewArguments().
//	    Set("repoPath", "/repo").
//	    Set("target_dir", "src")
package protocol

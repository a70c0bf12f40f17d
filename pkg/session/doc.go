// Package session builds the fixed initialize / initialized / tools/call
// exchange for one probe, serializes it as line-delimited JSON, and feeds it
// to a freshly launched tool server whose output is captured in full.
//
// A session is short-lived: one subprocess, one stdin blob, one RawOutput.
// Nothing is shared between sessions.
package session

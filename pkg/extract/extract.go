// Package extract finds the one response that matters in a tool server's
// stdout. Servers interleave log lines, malformed output and answers to
// other requests with it, so the search is a reverse scan for the
// correlation id and every non-matching line is ignored.
package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
	"github.com/ajitpratap0/mcp-probe/pkg/session"
)

// SentinelPrefix starts every extraction failure report
const SentinelPrefix = "PARSE_ERROR"

// Failure reasons
const (
	ReasonNoMatch      = "no response with the target id"
	ReasonRemoteError  = "server returned an error"
	ReasonEmptyContent = "response has no content"
	ReasonNoResult     = "response has no result"
)

// Result is the outcome of one extraction. When Matched is false, Text is
// empty and Reason says why.
type Result struct {
	Text    string
	Matched bool
	IsError bool
	Reason  string
	Skipped int
	// Remote is the JSON-RPC error carried by a matched record that had no
	// result.
	Remote *protocol.Error

	stdout string
	stderr string
}

// String returns the payload text, or the sentinel block carrying the raw
// output when extraction failed.
func (r Result) String() string {
	if r.Matched {
		return r.Text
	}
	return Sentinel(r.Reason, r.stdout, r.stderr)
}

// Sentinel formats a failure report. stdout and stderr are embedded
// verbatim.
func Sentinel(reason, stdout, stderr string) string {
	return Evidence(SentinelPrefix, reason, stdout, stderr)
}

// Evidence formats a "MARKER: reason" line followed by the raw output of a
// session under --- stdout --- and --- stderr --- headers.
func Evidence(marker, reason, stdout, stderr string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", marker, reason)
	b.WriteString("--- stdout ---\n")
	b.WriteString(stdout)
	if !strings.HasSuffix(stdout, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString("--- stderr ---\n")
	b.WriteString(stderr)
	return b.String()
}

// Extract returns the first content text of the last response whose id
// equals target. It never fails; problems are reported through the sentinel.
func Extract(out *session.RawOutput, target int64) Result {
	if out == nil {
		out = &session.RawOutput{}
	}

	resp, skipped, err := ExtractResponse(out.Stdout, target)
	result := Result{Skipped: skipped, stdout: out.Stdout, stderr: out.Stderr}

	switch {
	case err != nil:
		result.Reason = err.Error()
		return result
	case resp == nil:
		result.Reason = ReasonNoMatch
		return result
	}

	if resp.Error != nil && len(resp.Result) == 0 {
		result.Reason = fmt.Sprintf("%s: %s", ReasonRemoteError, resp.Error.Message)
		result.Remote = resp.Error
		return result
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		result.Reason = ReasonNoResult
		return result
	}

	var call protocol.CallToolResult
	if err := json.Unmarshal(resp.Result, &call); err != nil {
		result.Reason = fmt.Sprintf("%s: %v", ReasonNoResult, err)
		return result
	}
	if len(call.Content) == 0 {
		result.Reason = ReasonEmptyContent
		return result
	}

	result.Matched = true
	result.IsError = call.IsError
	if text := call.Content[0].Text; text != nil {
		result.Text = *text
	}
	return result
}

// ExtractResponse scans stdout from its last line to its first and returns
// the first response whose id numerically equals target, along with the
// number of lines skipped because they were not JSON objects. Members other
// than the envelope are not type checked, so a record with the target id is
// never dropped over an odd jsonrpc or error member. A nil response with a
// nil error means nothing matched.
func ExtractResponse(stdout string, target int64) (*protocol.Response, int, error) {
	lines := strings.Split(stdout, "\n")
	skipped := 0

	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		resp, err := protocol.ParseResponse([]byte(line))
		if err != nil {
			if isMalformed(err) {
				skipped++
				continue
			}
			return nil, skipped, probeerrors.DecodeFailed(i+1, err)
		}

		if resp.HasID(target) {
			return resp, skipped, nil
		}
	}
	return nil, skipped, nil
}

// Handshake returns the server's answer to initialize when stdout holds one
func Handshake(stdout string) (*protocol.InitializeResult, bool) {
	resp, _, err := ExtractResponse(stdout, session.InitializeID)
	if err != nil || resp == nil || len(resp.Result) == 0 {
		return nil, false
	}

	var init protocol.InitializeResult
	if err := json.Unmarshal(resp.Result, &init); err != nil {
		return nil, false
	}
	return &init, true
}

// isMalformed reports whether err means the line simply is not a JSON
// object, as opposed to a failure of the decoder itself.
func isMalformed(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

// NoMatchError describes a failed extraction for structured logging
func NoMatchError(r Result, target int64) probeerrors.ProbeError {
	code := probeerrors.CodeNoMatchingResponse
	switch {
	case strings.HasPrefix(r.Reason, ReasonRemoteError):
		code = probeerrors.CodeRemoteError
	case r.Reason == ReasonEmptyContent || strings.HasPrefix(r.Reason, ReasonNoResult):
		code = probeerrors.CodeEmptyContent
	}
	err := probeerrors.NewError(code, r.Reason, probeerrors.CategoryProtocol, probeerrors.SeverityWarning).
		WithDetail(fmt.Sprintf("target id %d, %d malformed lines skipped", target, r.Skipped))
	if r.Remote != nil {
		err = err.WithData(map[string]interface{}{"rpc_error": r.Remote.Error()})
	}
	return err
}

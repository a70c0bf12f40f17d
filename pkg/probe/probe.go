// Package probe runs a table of probes against a tool server, one fresh
// session per probe, and prints a truncated summary of each response.
//
// A probe that fails in any way, including a panic, produces a marker block
// in place of its output and the run moves on to the next probe.
package probe

import (
	"strings"
	"time"

	probeerrors "github.com/ajitpratap0/mcp-probe/pkg/errors"
	"github.com/ajitpratap0/mcp-probe/pkg/protocol"
)

// DefaultMaxLines is the display cap used when a probe sets none
const DefaultMaxLines = 30

// Probe is one named tool invocation
type Probe struct {
	Title     string
	Tool      string
	Arguments *protocol.Arguments
	MaxLines  int
}

// Outcome classifies how a probe ended
type Outcome string

const (
	OutcomeOK          Outcome = "ok"
	OutcomeToolError   Outcome = "tool_error"
	OutcomeNoMatch     Outcome = "no_match"
	OutcomeTimeout     Outcome = "timeout"
	OutcomeLaunchError Outcome = "launch_error"
	OutcomeInvalid     Outcome = "invalid"
	OutcomeCancelled   Outcome = "cancelled"
	OutcomeInternal    Outcome = "internal_error"
)

// Markers that start the display text of a failed probe
const (
	MarkerTimeout   = "TIMEOUT"
	MarkerLaunch    = "LAUNCH_ERROR"
	MarkerInvalid   = "INVALID_PROBE"
	MarkerCancelled = "CANCELLED"
	MarkerInternal  = "INTERNAL_ERROR"
)

// Result is what one probe produced
type Result struct {
	Title    string
	Tool     string
	Outcome  Outcome
	Text     string
	ExitCode int
	Skipped  int
	Duration time.Duration
	Issues   []probeerrors.ProbeError
	Err      error
}

// Passed reports whether the probe got a regular tool response
func (r Result) Passed() bool {
	return r.Outcome == OutcomeOK
}

// Report collects the results of one run, in probe order
type Report struct {
	RunID    string
	Results  []Result
	Duration time.Duration
}

// Count returns how many results have outcome o
func (r *Report) Count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Summary returns the number of results per outcome
func (r *Report) Summary() map[Outcome]int {
	summary := make(map[Outcome]int)
	for _, res := range r.Results {
		summary[res.Outcome]++
	}
	return summary
}

// Filter returns the probes whose title contains substr, ignoring case. An
// empty substr keeps every probe.
func Filter(probes []Probe, substr string) []Probe {
	if substr == "" {
		return probes
	}
	needle := strings.ToLower(substr)
	var out []Probe
	for _, p := range probes {
		if strings.Contains(strings.ToLower(p.Title), needle) {
			out = append(out, p)
		}
	}
	return out
}

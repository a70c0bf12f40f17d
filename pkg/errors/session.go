package errors

import (
	"fmt"
	"time"
)

// SessionErrorData contains structured data for subprocess failures
type SessionErrorData struct {
	Command  string        `json:"command"`
	Args     []string      `json:"args,omitempty"`
	Timeout  time.Duration `json:"timeout,omitempty"`
	Elapsed  time.Duration `json:"elapsed,omitempty"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exit_code,omitempty"`
	Reason   string        `json:"reason,omitempty"`
}

// LaunchFailed creates an error for a subprocess that could not be started
// (missing binary, permission denied, bad working directory).
func LaunchFailed(command string, args []string, cause error) ProbeError {
	message := fmt.Sprintf("failed to launch %s", command)
	reason := "launch failed"
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
		reason = cause.Error()
	}

	return WrapError(
		cause,
		CodeLaunchFailed,
		message,
		CategoryLaunch,
		SeverityCritical,
	).WithData(&SessionErrorData{
		Command: command,
		Args:    args,
		Reason:  reason,
	})
}

// SessionTimeout creates an error for a subprocess that did not exit within
// its bound. Whatever output was captured before the kill is kept in the data.
func SessionTimeout(command string, timeout time.Duration, stdout, stderr string) ProbeError {
	return NewError(
		CodeSessionTimeout,
		fmt.Sprintf("%s did not exit within %v", command, timeout),
		CategoryTimeout,
		SeverityError,
	).WithData(&SessionErrorData{
		Command: command,
		Timeout: timeout,
		Elapsed: timeout,
		Stdout:  stdout,
		Stderr:  stderr,
		Reason:  "timeout",
	})
}

// SessionCancelled creates an error for a session abandoned because its
// parent context was cancelled.
func SessionCancelled(command string, cause error) ProbeError {
	return WrapError(
		cause,
		CodeSessionCancelled,
		fmt.Sprintf("session with %s cancelled", command),
		CategoryCancelled,
		SeverityInfo,
	).WithData(&SessionErrorData{
		Command: command,
		Reason:  "cancelled",
	})
}

// SessionIOError creates an error for failures capturing subprocess output
func SessionIOError(command, operation string, cause error) ProbeError {
	message := fmt.Sprintf("%s failed for %s", operation, command)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}

	return WrapError(
		cause,
		CodeSessionIO,
		message,
		CategoryInternal,
		SeverityError,
	).WithData(&SessionErrorData{
		Command: command,
		Reason:  operation,
	})
}

// EncodeFailed creates an error for a message that could not be serialized
func EncodeFailed(method string, cause error) ProbeError {
	return WrapErrorf(
		cause,
		CodeEncodeFailed,
		CategoryProtocol,
		SeverityError,
		"failed to encode %s message", method,
	)
}

// DecodeFailed creates an error for an output line that failed to decode for
// a reason other than being malformed JSON.
func DecodeFailed(line int, cause error) ProbeError {
	return WrapErrorf(
		cause,
		CodeDecodeFailed,
		CategoryProtocol,
		SeverityError,
		"failed to decode output line %d", line,
	)
}

// InternalError wraps an unexpected failure, including recovered panics.
func InternalError(operation string, cause error) ProbeError {
	message := fmt.Sprintf("internal error during %s", operation)
	if cause != nil {
		message = fmt.Sprintf("%s: %s", message, cause.Error())
	}
	return WrapError(cause, CodeInternalError, message, CategoryInternal, SeverityCritical)
}

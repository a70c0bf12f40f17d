// Package errors provides structured error handling for the probe harness.
// Every failure a probe can hit is classified by code, category and severity
// so the driver can render a distinct marker for it and the logger can emit
// the context it was raised in.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Category represents the type/category of an error for classification and handling
type Category string

const (
	CategoryValidation Category = "validation"
	CategoryLaunch     Category = "launch"
	CategoryTimeout    Category = "timeout"
	CategoryCancelled  Category = "cancelled"
	CategoryProtocol   Category = "protocol"
	CategoryConfig     Category = "config"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context provides additional context about where and when an error occurred
type Context struct {
	RunID     string    `json:"run_id,omitempty"`
	Probe     string    `json:"probe,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Component string    `json:"component,omitempty"`
	Operation string    `json:"operation,omitempty"`
}

// ProbeError defines the interface for all harness errors
type ProbeError interface {
	error

	// Code returns the numeric error code
	Code() int

	// Message returns a human-readable error message
	Message() string

	// Details returns detailed technical description for debugging
	Details() string

	// Data returns structured error data for programmatic handling
	Data() interface{}

	// Category returns the error category for classification
	Category() Category

	// Severity returns the error severity level
	Severity() Severity

	// Context returns the error context information
	Context() *Context

	// WithContext returns a new error with the provided context
	WithContext(ctx *Context) ProbeError

	// WithDetail returns a new error with additional detail
	WithDetail(detail string) ProbeError

	// WithData returns a new error with structured data
	WithData(data interface{}) ProbeError

	// Unwrap returns the underlying error for error chain traversal
	Unwrap() error

	// ToJSON returns the error as a JSON-serializable map
	ToJSON() map[string]interface{}
}

type baseError struct {
	code     int
	message  string
	details  string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.details != "" {
		return fmt.Sprintf("%s: %s", e.message, e.details)
	}
	return e.message
}

func (e *baseError) Code() int {
	return e.code
}

func (e *baseError) Message() string {
	return e.message
}

func (e *baseError) Details() string {
	return e.details
}

func (e *baseError) Data() interface{} {
	return e.data
}

func (e *baseError) Category() Category {
	return e.category
}

func (e *baseError) Severity() Severity {
	return e.severity
}

func (e *baseError) Context() *Context {
	return e.context
}

// WithContext returns a copy carrying ctx. A zero timestamp is filled in
// from the previous context so callers only set the fields they know.
func (e *baseError) WithContext(ctx *Context) ProbeError {
	newErr := *e
	if ctx != nil && ctx.Timestamp.IsZero() && e.context != nil {
		merged := *ctx
		merged.Timestamp = e.context.Timestamp
		ctx = &merged
	}
	newErr.context = ctx
	return &newErr
}

func (e *baseError) WithDetail(detail string) ProbeError {
	newErr := *e
	if newErr.details != "" {
		newErr.details = fmt.Sprintf("%s; %s", newErr.details, detail)
	} else {
		newErr.details = detail
	}
	return &newErr
}

func (e *baseError) WithData(data interface{}) ProbeError {
	newErr := *e
	newErr.data = data
	return &newErr
}

func (e *baseError) Unwrap() error {
	return e.cause
}

func (e *baseError) ToJSON() map[string]interface{} {
	result := map[string]interface{}{
		"code":     e.code,
		"name":     GetErrorCodeName(e.code),
		"message":  e.message,
		"category": string(e.category),
		"severity": string(e.severity),
	}

	if e.details != "" {
		result["details"] = e.details
	}
	if e.data != nil {
		result["data"] = e.data
	}
	if e.context != nil {
		result["context"] = e.context
	}
	if e.cause != nil {
		result["cause"] = e.cause.Error()
	}

	return result
}

// MarshalJSON implements json.Marshaler for baseError
func (e *baseError) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToJSON())
}

// NewError creates a new ProbeError with the specified parameters
func NewError(code int, message string, category Category, severity Severity) ProbeError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		context: &Context{
			Timestamp: time.Now(),
		},
	}
}

// NewErrorf creates a new ProbeError with formatted message
func NewErrorf(code int, category Category, severity Severity, format string, args ...interface{}) ProbeError {
	return NewError(code, fmt.Sprintf(format, args...), category, severity)
}

// WrapError wraps an existing error as a ProbeError
func WrapError(err error, code int, message string, category Category, severity Severity) ProbeError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    err,
		context: &Context{
			Timestamp: time.Now(),
		},
	}
}

// WrapErrorf wraps an existing error as a ProbeError with formatted message
func WrapErrorf(err error, code int, category Category, severity Severity, format string, args ...interface{}) ProbeError {
	return WrapError(err, code, fmt.Sprintf(format, args...), category, severity)
}

// AsProbeError finds the first ProbeError in err's chain.
func AsProbeError(err error) (ProbeError, bool) {
	if err == nil {
		return nil, false
	}

	var probeErr ProbeError
	if errors.As(err, &probeErr) {
		return probeErr, true
	}
	return nil, false
}

// IsProbeError checks if an error is a ProbeError
func IsProbeError(err error) bool {
	_, ok := AsProbeError(err)
	return ok
}

// IsCategory checks if an error is of a specific category
func IsCategory(err error, category Category) bool {
	if probeErr, ok := AsProbeError(err); ok {
		return probeErr.Category() == category
	}
	return false
}

// IsCode checks if an error has a specific error code
func IsCode(err error, code int) bool {
	if probeErr, ok := AsProbeError(err); ok {
		return probeErr.Code() == code
	}
	return false
}

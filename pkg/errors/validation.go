package errors

import (
	"fmt"
	"strings"
)

// ArgumentErrorData contains structured data for argument problems
type ArgumentErrorData struct {
	Tool     string `json:"tool"`
	Argument string `json:"argument,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// ValidationError creates a generic validation error
func ValidationError(message string) ProbeError {
	return NewError(CodeValidationError, message, CategoryValidation, SeverityError)
}

// ValidationErrorf creates a generic validation error with formatting
func ValidationErrorf(format string, args ...interface{}) ProbeError {
	return NewErrorf(CodeValidationError, CategoryValidation, SeverityError, format, args...)
}

// MissingArgument reports a probe that omits an argument its tool documents
// as required.
func MissingArgument(tool, argument string) ProbeError {
	return NewError(
		CodeMissingArgument,
		fmt.Sprintf("%s: missing required argument %q", tool, argument),
		CategoryValidation,
		SeverityWarning,
	).WithData(&ArgumentErrorData{
		Tool:     tool,
		Argument: argument,
		Reason:   "required",
	})
}

// InvalidArgument reports an argument value rejected by the tool's schema.
func InvalidArgument(tool, argument, reason string) ProbeError {
	return NewError(
		CodeInvalidArgument,
		fmt.Sprintf("%s: invalid argument %q: %s", tool, argument, reason),
		CategoryValidation,
		SeverityWarning,
	).WithData(&ArgumentErrorData{
		Tool:     tool,
		Argument: argument,
		Reason:   reason,
	})
}

// InvalidSession reports a session that breaks the correlation invariant.
func InvalidSession(reason string) ProbeError {
	return NewError(
		CodeInvalidSession,
		fmt.Sprintf("invalid session: %s", reason),
		CategoryValidation,
		SeverityError,
	)
}

// ConfigInvalid reports a configuration value that failed validation.
func ConfigInvalid(field, reason string) ProbeError {
	return NewError(
		CodeConfigInvalid,
		fmt.Sprintf("invalid configuration for %s: %s", field, reason),
		CategoryConfig,
		SeverityCritical,
	)
}

// ConfigLoad reports a configuration file that could not be read or parsed.
func ConfigLoad(path string, cause error) ProbeError {
	return WrapErrorf(cause, CodeConfigLoad, CategoryConfig, SeverityCritical,
		"failed to load configuration %s: %v", path, cause)
}

// CombineValidationErrors folds several validation errors into one. It
// returns nil for an empty slice and the sole element for a single one.
func CombineValidationErrors(errs []ProbeError) ProbeError {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	messages := make([]string, len(errs))
	errorData := make([]interface{}, len(errs))
	severity := SeverityWarning
	for i, err := range errs {
		messages[i] = err.Message()
		errorData[i] = err.Data()
		if err.Severity() == SeverityError || err.Severity() == SeverityCritical {
			severity = SeverityError
		}
	}

	return NewError(
		CodeValidationError,
		fmt.Sprintf("%d validation errors: %s", len(errs), strings.Join(messages, "; ")),
		CategoryValidation,
		severity,
	).WithData(map[string]interface{}{
		"errors": errorData,
		"count":  len(errs),
	})
}

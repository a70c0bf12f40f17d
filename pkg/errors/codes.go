package errors

// Harness error codes. They live outside the JSON-RPC reserved range since
// they are never sent on the wire; they only classify local failures.
const (
	// Session construction (1000-1099)
	CodeValidationError int = 1000 // Generic validation error
	CodeMissingArgument int = 1001 // Probe omits an argument the capability documents as required
	CodeInvalidArgument int = 1002 // Argument value fails the capability schema
	CodeInvalidSession  int = 1003 // Session breaks the single-correlation-id invariant
	CodeEncodeFailed    int = 1004 // Message could not be serialized

	// Subprocess lifecycle (1100-1199)
	CodeLaunchFailed     int = 1100 // Subprocess could not be started
	CodeSessionTimeout   int = 1101 // Subprocess did not exit within the bound
	CodeSessionCancelled int = 1102 // Parent context cancelled the session
	CodeSessionIO        int = 1103 // Capturing subprocess output failed

	// Response handling (1200-1299)
	CodeNoMatchingResponse int = 1200 // No output line carried the correlation id
	CodeEmptyContent       int = 1201 // Matching response had no content list
	CodeRemoteError        int = 1202 // Matching response carried a JSON-RPC error
	CodeDecodeFailed       int = 1203 // Output line failed in a way other than malformed JSON

	// Configuration (1300-1399)
	CodeConfigInvalid int = 1300 // Configuration failed validation
	CodeConfigLoad    int = 1301 // Configuration file could not be read or parsed

	// Internal (1900-1999)
	CodeInternalError int = 1900 // Unexpected failure, including recovered panics
)

// ErrorCodeInfo provides human-readable information about error codes
type ErrorCodeInfo struct {
	Code        int
	Name        string
	Description string
	Category    Category
	Severity    Severity
}

var errorCodeRegistry = map[int]ErrorCodeInfo{
	CodeValidationError: {CodeValidationError, "ValidationError", "Validation error", CategoryValidation, SeverityError},
	CodeMissingArgument: {CodeMissingArgument, "MissingArgument", "Required argument missing", CategoryValidation, SeverityWarning},
	CodeInvalidArgument: {CodeInvalidArgument, "InvalidArgument", "Invalid argument value", CategoryValidation, SeverityWarning},
	CodeInvalidSession:  {CodeInvalidSession, "InvalidSession", "Invalid session", CategoryValidation, SeverityError},
	CodeEncodeFailed:    {CodeEncodeFailed, "EncodeFailed", "Message encoding failed", CategoryProtocol, SeverityError},

	CodeLaunchFailed:     {CodeLaunchFailed, "LaunchFailed", "Subprocess launch failed", CategoryLaunch, SeverityCritical},
	CodeSessionTimeout:   {CodeSessionTimeout, "SessionTimeout", "Subprocess timed out", CategoryTimeout, SeverityError},
	CodeSessionCancelled: {CodeSessionCancelled, "SessionCancelled", "Session cancelled", CategoryCancelled, SeverityInfo},
	CodeSessionIO:        {CodeSessionIO, "SessionIO", "Subprocess I/O failed", CategoryInternal, SeverityError},

	CodeNoMatchingResponse: {CodeNoMatchingResponse, "NoMatchingResponse", "No correlated response", CategoryProtocol, SeverityError},
	CodeEmptyContent:       {CodeEmptyContent, "EmptyContent", "Response content empty", CategoryProtocol, SeverityWarning},
	CodeRemoteError:        {CodeRemoteError, "RemoteError", "Response carried an error", CategoryProtocol, SeverityError},
	CodeDecodeFailed:       {CodeDecodeFailed, "DecodeFailed", "Output line decode failed", CategoryProtocol, SeverityError},

	CodeConfigInvalid: {CodeConfigInvalid, "ConfigInvalid", "Invalid configuration", CategoryConfig, SeverityCritical},
	CodeConfigLoad:    {CodeConfigLoad, "ConfigLoad", "Configuration load failed", CategoryConfig, SeverityCritical},

	CodeInternalError: {CodeInternalError, "InternalError", "Internal error", CategoryInternal, SeverityCritical},
}

// GetErrorCodeInfo returns information about an error code
func GetErrorCodeInfo(code int) (ErrorCodeInfo, bool) {
	info, exists := errorCodeRegistry[code]
	return info, exists
}

// GetErrorCodeName returns the name of an error code
func GetErrorCodeName(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Name
	}
	return "UnknownError"
}

// GetErrorCodeDescription returns the description of an error code
func GetErrorCodeDescription(code int) string {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Description
	}
	return "Unknown error"
}

// GetErrorCodeCategory returns the category of an error code
func GetErrorCodeCategory(code int) Category {
	if info, exists := errorCodeRegistry[code]; exists {
		return info.Category
	}
	return CategoryInternal
}

package models

// APIError represents a standardized error response format for the API,
// including an application-specific error code, a human-readable message,
// and optional details.
type APIError struct {
	Code    string      `json:"code"`              // Application-specific error code (e.g., "REMOTE_FETCH_FAILED")
	Message string      `json:"message"`           // Human-readable message describing the error
	Details interface{} `json:"details,omitempty"` // Optional field for additional error details
}

// Predefined application-specific error codes
const (
	// Generic Errors
	ErrorCodeInternalServerError = "INTERNAL_SERVER_ERROR"

	// Input Validation Errors
	ErrorCodeValidation  = "VALIDATION_ERROR" // General validation failure
	ErrorCodeInvalidJSON = "INVALID_JSON"     // Malformed JSON payload

	// Upstream / Pipeline Errors
	ErrorCodeRemoteFetchFailed = "REMOTE_FETCH_FAILED" // FMR service unreachable or non-OK
	ErrorCodeMalformedResponse = "MALFORMED_RESPONSE"  // Hierarchy JSON missing expected keys
	ErrorCodeMalformedCode     = "MALFORMED_CODE"      // URN did not split into expected segments
	ErrorCodeSourceLoadFailed  = "SOURCE_LOAD_FAILED"  // Boundary source could not be loaded
	ErrorCodeFileWriteFailed   = "FILE_WRITE_FAILED"   // Output path unwritable
)

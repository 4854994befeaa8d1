package http

import "fmt"

// ErrorType represents the category of provider failure.
type ErrorType int

const (
	// ErrTypeMissingCredential means the backend's API key is not present
	// in the environment. A configuration error, surfaced per-request
	// because the credential is lazily bound.
	ErrTypeMissingCredential ErrorType = iota
	// ErrTypeRequestRejected means the backend answered with a non-success
	// HTTP status.
	ErrTypeRequestRejected
	// ErrTypeMalformedResponse means the backend answered 2xx but the body
	// did not match the expected schema (or held no candidates).
	ErrTypeMalformedResponse
	// ErrTypeEmptyResponse means a streaming backend produced no text at
	// all after concatenating every parseable chunk.
	ErrTypeEmptyResponse
	// ErrTypeTimeout means the request did not complete in time.
	ErrTypeTimeout
	// ErrTypeUnknown covers transport failures with no better category.
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeMissingCredential:
		return "missing credential"
	case ErrTypeRequestRejected:
		return "request rejected"
	case ErrTypeMalformedResponse:
		return "malformed response"
	case ErrTypeEmptyResponse:
		return "empty response"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeUnknown:
		return "unknown error"
	default:
		return "unknown error"
	}
}

// Error is a provider failure with enough context to diagnose without
// re-running the request. The pipeline performs no retries; Retryable only
// tells the caller whether retrying externally could help.
type Error struct {
	Type       ErrorType
	Message    string
	StatusCode int
	// Body holds the raw upstream response body for rejected requests and
	// malformed responses.
	Body      string
	Retryable bool
	Provider  string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s: %s (status: %d)", e.Provider, e.Type.String(), e.Message, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Type.String(), e.Message)
}

// Is implements error equality checking for errors.Is, matching by type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable reports whether an external retry could plausibly succeed.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewMissingCredentialError creates a missing credential error.
func NewMissingCredentialError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeMissingCredential,
		Message:   message,
		Retryable: false,
		Provider:  provider,
	}
}

// NewRequestRejectedError creates an error for a non-success upstream
// status, preserving the raw body for diagnosis.
func NewRequestRejectedError(provider string, statusCode int, body string) *Error {
	return &Error{
		Type:       ErrTypeRequestRejected,
		Message:    fmt.Sprintf("upstream returned HTTP %d", statusCode),
		StatusCode: statusCode,
		Body:       body,
		Retryable:  statusCode == 429 || statusCode >= 500,
		Provider:   provider,
	}
}

// NewMalformedResponseError creates an error for a response that does not
// match the expected schema, preserving the raw body.
func NewMalformedResponseError(provider, detail, body string) *Error {
	return &Error{
		Type:      ErrTypeMalformedResponse,
		Message:   detail,
		Body:      body,
		Retryable: true,
		Provider:  provider,
	}
}

// NewEmptyResponseError creates an error for a backend that produced no
// text.
func NewEmptyResponseError(provider string) *Error {
	return &Error{
		Type:      ErrTypeEmptyResponse,
		Message:   "backend produced no response text",
		Retryable: true,
		Provider:  provider,
	}
}

// NewTimeoutError creates a timeout error.
func NewTimeoutError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
		Provider:  provider,
	}
}

// NewTransportError creates an error for a failed HTTP round trip.
func NewTransportError(provider, message string) *Error {
	return &Error{
		Type:      ErrTypeUnknown,
		Message:   message,
		Retryable: false,
		Provider:  provider,
	}
}

// Package errors defines the error taxonomy shared by the chat core.
package errors

// Code classifies an error for retry and surfacing decisions.
type Code string

const (
	// CodeValidation is a bad or unknown race, class, or item identifier.
	CodeValidation Code = "validation"
	// CodeConflict means another attempt already holds the resource.
	CodeConflict Code = "conflict"
	// CodeTransientBackend covers network and read-after-write failures.
	CodeTransientBackend Code = "transient_backend"
	// CodeStaleEvent marks a live event for a conversation that is no longer active.
	CodeStaleEvent Code = "stale_event"
	// CodeDuplicateEvent marks a live event whose response is already on the timeline.
	CodeDuplicateEvent Code = "duplicate_event"
	// CodeNotFound is returned by stores when a record does not exist.
	CodeNotFound Code = "not_found"
	// CodeInvalidState is an operation attempted in the wrong session state.
	CodeInvalidState Code = "invalid_state"
)

// Sentinels for errors.Is checks; matching is by code only.
var (
	ErrValidation       = New(CodeValidation, "validation failed")
	ErrConflict         = New(CodeConflict, "already in progress")
	ErrTransientBackend = New(CodeTransientBackend, "backend unavailable")
	ErrStaleEvent       = New(CodeStaleEvent, "stale event")
	ErrDuplicateEvent   = New(CodeDuplicateEvent, "duplicate event")
	ErrNotFound         = New(CodeNotFound, "not found")
	ErrInvalidState     = New(CodeInvalidState, "invalid state")
)

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Additional context
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithMetadata creates a domain error with metadata.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Metadata: metadata,
	}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Code
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return ""
		}
		err = u.Unwrap()
	}
	return ""
}

// Retryable reports whether err is worth retrying.
func (c Code) Retryable() bool {
	return c == CodeTransientBackend || c == CodeNotFound
}

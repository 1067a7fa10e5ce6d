package provision

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a provisioning pipeline error
type ErrorType int

const (
	// ErrTypeInputTooLarge indicates a value did not fit its fixed-capacity buffer
	ErrTypeInputTooLarge ErrorType = iota
	// ErrTypeMalformed indicates the form body does not have the expected shape
	ErrTypeMalformed
	// ErrTypeTransport indicates writing to the response stream failed
	ErrTypeTransport
	// ErrTypeState indicates an operation was attempted in the wrong state
	ErrTypeState
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeInputTooLarge:
		return "Input Too Large"
	case ErrTypeMalformed:
		return "Malformed Input"
	case ErrTypeTransport:
		return "Transport Error"
	case ErrTypeState:
		return "State Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Sentinel errors wrapped by *Error so callers can use errors.Is.
var (
	ErrInputTooLarge     = errors.New("input too large")
	ErrMissingSSIDToken  = errors.New("form body does not start with SSID")
	ErrBusy              = errors.New("provisioning attempt already in progress")
	ErrAlreadyConfigured = errors.New("device already configured")
)

// Error is returned by the decoder, extractor and fragment builder
type Error struct {
	Type    ErrorType
	Message string
	Field   string // Buffer or field involved (e.g. "ssid"), if any
	Limit   int    // Capacity that was exceeded, for ErrTypeInputTooLarge
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// NewInputTooLargeError reports that field needed size bytes but only limit fit
func NewInputTooLargeError(field string, size, limit int) *Error {
	return &Error{
		Type:    ErrTypeInputTooLarge,
		Message: fmt.Sprintf("%s is %d bytes, capacity is %d", field, size, limit),
		Field:   field,
		Limit:   limit,
		Err:     ErrInputTooLarge,
	}
}

// NewMalformedError reports a form body that could not be parsed
func NewMalformedError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeMalformed,
		Message: message,
		Err:     err,
	}
}

// NewTransportError wraps a response stream write failure
func NewTransportError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeTransport,
		Message: message,
		Err:     err,
	}
}

// NewStateError reports an operation rejected by the state tracker
func NewStateError(message string, err error) *Error {
	return &Error{
		Type:    ErrTypeState,
		Message: message,
		Err:     err,
	}
}

func isType(err error, t ErrorType) bool {
	var pErr *Error
	if errors.As(err, &pErr) {
		return pErr.Type == t
	}
	return false
}

// IsInputTooLarge checks if an error is a capacity overflow
func IsInputTooLarge(err error) bool {
	return isType(err, ErrTypeInputTooLarge)
}

// IsMalformed checks if an error is a malformed-input error
func IsMalformed(err error) bool {
	return isType(err, ErrTypeMalformed)
}

// IsTransportError checks if an error is a response write failure
func IsTransportError(err error) bool {
	return isType(err, ErrTypeTransport)
}

// IsStateError checks if an error was caused by the provisioning state
func IsStateError(err error) bool {
	return isType(err, ErrTypeState)
}

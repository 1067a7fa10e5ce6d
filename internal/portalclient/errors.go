package portalclient

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the portal refused the connection
	ErrTypeConnectionRefused
	// ErrTypeHTTP indicates an unexpected HTTP status code
	ErrTypeHTTP
	// ErrTypeParse indicates a response that could not be understood
	ErrTypeParse
	// ErrTypeValidation indicates credentials rejected before or by the portal
	ErrTypeValidation
	// ErrTypeProvisioningFailed indicates the device could not join the network
	ErrTypeProvisioningFailed
	// ErrTypeBusy indicates another connection attempt was in flight
	ErrTypeBusy
	// ErrTypeAlreadyConfigured indicates the portal ignored the request
	// because the device is already provisioned
	ErrTypeAlreadyConfigured
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	case ErrTypeProvisioningFailed:
		return "Provisioning Failed"
	case ErrTypeBusy:
		return "Portal Busy"
	case ErrTypeAlreadyConfigured:
		return "Already Configured"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// ClientError represents an error that occurred while talking to a portal
type ClientError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *ClientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ClientError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError maps a transport error to a ClientError
func ClassifyNetworkError(message string, err error) *ClientError {
	if err == nil {
		return nil
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}

	if os.IsTimeout(err) || errors.Is(err, os.ErrDeadlineExceeded) {
		return &ClientError{Type: ErrTypeTimeout, Message: message, Err: err, Retryable: true}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &ClientError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &ClientError{Type: ErrTypeConnectionRefused, Message: message, Err: err, Retryable: true}
	}

	return &ClientError{Type: ErrTypeNetwork, Message: message, Err: err, Retryable: true}
}

// NewHTTPError creates an HTTP-level error. Server errors are retryable.
func NewHTTPError(statusCode int, message string) *ClientError {
	return &ClientError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  statusCode >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *ClientError {
	return &ClientError{Type: ErrTypeParse, Message: message, Err: err}
}

// NewValidationError creates a validation error
func NewValidationError(message string) *ClientError {
	return &ClientError{Type: ErrTypeValidation, Message: message}
}

func newStatusError(t ErrorType, statusCode int, message string) *ClientError {
	return &ClientError{Type: t, Message: message, StatusCode: statusCode}
}

func isType(err error, types ...ErrorType) bool {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return false
	}
	for _, t := range types {
		if ce.Type == t {
			return true
		}
	}
	return false
}

// IsNetworkError reports network, timeout and refused errors
func IsNetworkError(err error) bool {
	return isType(err, ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return isType(err, ErrTypeValidation)
}

// IsProvisioningFailed reports whether the device tried and failed to join
func IsProvisioningFailed(err error) bool {
	return isType(err, ErrTypeProvisioningFailed)
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// GetTroubleshootingHint returns operator-facing advice for an error
func GetTroubleshootingHint(err error) string {
	var ce *ClientError
	if !errors.As(err, &ce) {
		return "An unexpected error occurred. Please try again."
	}

	switch ce.Type {
	case ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeNetwork:
		return strings.Join([]string{
			"The portal could not be reached.",
			"Troubleshooting:",
			"  • Join the device's setup Wi-Fi network first",
			"  • Check the portal address (softap-cfg scan finds it)",
			"  • The device may already be provisioned and have left setup mode",
		}, "\n")
	case ErrTypeProvisioningFailed:
		return strings.Join([]string{
			"The device could not join the network.",
			"Troubleshooting:",
			"  • Check the network name and password",
			"  • Make sure the network is in range of the device",
			"  • Rejoin the setup network and try again",
		}, "\n")
	case ErrTypeBusy:
		return "Another connection attempt is in progress. Wait for it to finish and try again."
	case ErrTypeAlreadyConfigured:
		return "The device is already provisioned. Reset it to run setup again."
	case ErrTypeValidation:
		return "The credentials are invalid. Check the error message for details."
	case ErrTypeHTTP:
		return fmt.Sprintf("The portal returned HTTP error %d.", ce.StatusCode)
	case ErrTypeParse:
		return "The portal's response could not be understood. Check that the address points at a provisioning portal."
	default:
		return "An error occurred. Please check the error message for details."
	}
}

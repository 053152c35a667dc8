package cloud

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/muurk/goveectl/internal/urls"
)

// Error types for cloud API operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection refused, reset, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates a request timeout
	ErrTypeTimeout
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates a missing or rejected API key
	ErrTypeAuth
	// ErrTypeRateLimited indicates the API rejected the request with 429
	ErrTypeRateLimited
	// ErrTypeHTTP indicates an HTTP-level error (non-200 status code)
	ErrTypeHTTP
	// ErrTypeAPI indicates a 200 response whose body reports a failure code
	ErrTypeAPI
	// ErrTypeParse indicates a parsing error (malformed JSON, missing fields)
	ErrTypeParse
	// ErrTypeValidation indicates a request rejected before it was sent
	ErrTypeValidation
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeRateLimited:
		return "Rate Limited"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeAPI:
		return "API Error"
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeValidation:
		return "Validation Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents an error that occurred talking to the cloud API
type APIError struct {
	Type       ErrorType     // Category of error
	Message    string        // Human-readable error message
	Endpoint   string        // API path, e.g. "device/control"
	StatusCode int           // HTTP status code (if applicable)
	Code       int           // Code from the response body (if applicable)
	RetryAfter time.Duration // Server-requested backoff for rate limiting
	Err        error         // Underlying error (if any)
	Retryable  bool          // Whether the error is retryable
}

// Error implements the error interface
func (e *APIError) Error() string {
	msg := e.Message
	if e.Endpoint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Endpoint)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, msg)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes a transport error and returns a typed error
func ClassifyNetworkError(err error) *APIError {
	if err == nil {
		return nil
	}

	// Check for timeout errors
	if os.IsTimeout(err) {
		return &APIError{
			Type:      ErrTypeTimeout,
			Message:   "Request timed out",
			Err:       err,
			Retryable: true,
		}
	}

	// Check for DNS errors
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &APIError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			Err:       err,
			Retryable: dnsErr.IsTemporary,
		}
	}

	// Check for connection refused
	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &APIError{
			Type:      ErrTypeNetwork,
			Message:   "Connection refused",
			Err:       err,
			Retryable: true,
		}
	}

	// Check for URL errors
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		// Recursively classify the underlying error
		return ClassifyNetworkError(urlErr.Err)
	}

	// Generic network error
	return &APIError{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Err:       err,
		Retryable: true,
	}
}

// NewNetworkError creates a network-level error with automatic classification
func NewNetworkError(message string, err error) *APIError {
	classified := ClassifyNetworkError(err)
	if classified != nil {
		classified.Message = message
		return classified
	}
	return &APIError{
		Type:      ErrTypeNetwork,
		Message:   message,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(statusCode int, message string) *APIError {
	return &APIError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  false,
	}
}

// NewRateLimitError creates a rate limit error
func NewRateLimitError(retryAfter time.Duration) *APIError {
	return &APIError{
		Type:       ErrTypeRateLimited,
		Message:    "too many requests",
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
		Retryable:  true,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, message string) *APIError {
	retryable := statusCode >= 500 // Server errors are retryable
	return &APIError{
		Type:       ErrTypeHTTP,
		Message:    message,
		StatusCode: statusCode,
		Retryable:  retryable,
	}
}

// NewAPIError creates an error for a failure code in a response body
func NewAPIError(code int, message string) *APIError {
	return &APIError{
		Type:      ErrTypeAPI,
		Message:   message,
		Code:      code,
		Retryable: code >= 500,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *APIError {
	return &APIError{
		Type:      ErrTypeParse,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewValidationError creates a validation error
func NewValidationError(message string, err error) *APIError {
	return &APIError{
		Type:      ErrTypeValidation,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// IsNetworkError checks if an error is a network error (including timeout and DNS)
func IsNetworkError(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Type == ErrTypeNetwork ||
			apiErr.Type == ErrTypeTimeout ||
			apiErr.Type == ErrTypeDNS
	}
	return false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeAuth
}

// IsRateLimitError checks if an error is a rate limit error
func IsRateLimitError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeRateLimited
}

// IsHTTPError checks if an error is an HTTP error
func IsHTTPError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeHTTP
}

// IsAPIErrorCode checks if an error is a body-level failure with the given code
func IsAPIErrorCode(err error, code int) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeAPI && apiErr.Code == code
}

// IsParseError checks if an error is a parse error
func IsParseError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeParse
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeValidation
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	if apiErr, ok := asAPIError(err); ok {
		return apiErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetTroubleshootingHint returns user-friendly troubleshooting advice for an error
func GetTroubleshootingHint(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return "An unexpected error occurred. Please try again."
	}

	switch apiErr.Type {
	case ErrTypeTimeout, ErrTypeNetwork, ErrTypeDNS:
		return strings.Join([]string{
			"Could not reach the Govee cloud API.",
			"Troubleshooting:",
			"  • Check your internet connection",
			"  • Verify " + urls.CloudAPI + " is reachable from this machine",
			"  • Try again in a few seconds",
		}, "\n")

	case ErrTypeAuth:
		return strings.Join([]string{
			"The API key was rejected.",
			"Troubleshooting:",
			"  • Set " + APIKeyEnvVar + " to the key from the Govee Home app",
			"  • Keys are sent by email after requesting one in the app settings",
			"  • See " + urls.DeveloperPortal,
			"  • Check for stray whitespace when copying the key",
		}, "\n")

	case ErrTypeRateLimited:
		return strings.Join([]string{
			"The Govee API is rate limiting this key.",
			"Troubleshooting:",
			"  • Wait a minute before sending more commands",
			"  • Control lights over Bluetooth when they are in range",
		}, "\n")

	case ErrTypeHTTP:
		if apiErr.StatusCode >= 500 {
			return fmt.Sprintf("The Govee API returned a server error (HTTP %d). Try again later.", apiErr.StatusCode)
		}
		return fmt.Sprintf("The Govee API returned HTTP error %d. Check the device id and model.", apiErr.StatusCode)

	case ErrTypeAPI:
		return "The Govee API refused the command. Check that the device supports it with 'goveectl cloud devices'."

	case ErrTypeParse:
		return "Failed to parse the API response. The API format may have changed."

	case ErrTypeValidation:
		return "The command values are invalid. Check the error message for details."

	default:
		return "An error occurred. Please check the error message for details."
	}
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err.Error()
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return "Govee API not responding (timeout)"
	case ErrTypeDNS:
		return "Cannot resolve Govee API hostname"
	case ErrTypeNetwork:
		return "Network error - check connection"
	case ErrTypeAuth:
		return "API key rejected"
	case ErrTypeRateLimited:
		return "Rate limited by Govee API"
	case ErrTypeHTTP:
		return fmt.Sprintf("Govee API error (HTTP %d)", apiErr.StatusCode)
	case ErrTypeAPI:
		return fmt.Sprintf("Command rejected (code %d): %s", apiErr.Code, apiErr.Message)
	case ErrTypeParse:
		return "Failed to parse API response"
	default:
		return apiErr.Message
	}
}

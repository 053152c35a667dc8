package protocol

import (
	"errors"
	"fmt"
)

// Sentinel errors for local validation failures
var (
	ErrInvalidCommand  = errors.New("invalid command")
	ErrPayloadTooLarge = errors.New("payload too large")
	ErrInvalidHeader   = errors.New("invalid header")
	ErrUnknownEffect   = errors.New("unknown effect")
	ErrUnsupported     = errors.New("unsupported command")
)

// Sentinel errors returned by the frame parser
var (
	ErrFrameSize        = errors.New("invalid frame size")
	ErrChecksumMismatch = errors.New("checksum mismatch")
	ErrFrameSequence    = errors.New("invalid frame sequence")
)

// ValidationError reports a command that was rejected before reaching the
// transport. It is never retried.
type ValidationError struct {
	Err     error  // One of the sentinel errors above
	Message string // Details about the rejected value
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

// Unwrap returns the sentinel error for errors.Is matching
func (e *ValidationError) Unwrap() error {
	return e.Err
}

func newValidationError(kind error, format string, args ...interface{}) *ValidationError {
	return &ValidationError{
		Err:     kind,
		Message: fmt.Sprintf(format, args...),
	}
}

// DataIntegrityError reports stored effect data that could not be decoded.
type DataIntegrityError struct {
	Source string // What was being decoded, e.g. an effect index
	Err    error
}

// Error implements the error interface
func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("corrupt effect data for %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying decode error
func (e *DataIntegrityError) Unwrap() error {
	return e.Err
}

// IsValidationError checks if an error is a local validation failure
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsDataIntegrityError checks if an error reports undecodable effect data
func IsDataIntegrityError(err error) bool {
	var target *DataIntegrityError
	return errors.As(err, &target)
}

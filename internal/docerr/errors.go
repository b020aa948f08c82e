// Package docerr defines the error taxonomy shared by the rectification stages.
//
// Every stage surfaces failures as *Error values carrying a Code. Callers
// branch on the code with errors.Is against the sentinel values:
//
//	if errors.Is(err, docerr.ErrInvalidCorners) {
//	    // ask the user to adjust the corners
//	}
package docerr

import (
	"errors"
	"fmt"
	"time"
)

// Code identifies the class of a rectification failure.
type Code string

const (
	// InvalidInput indicates a nil, zero-size or undecodable image.
	InvalidInput Code = "INVALID_INPUT"

	// ProcessingFailed indicates a filter stage could not produce output.
	ProcessingFailed Code = "PROCESSING_FAILED"

	// InvalidCorners indicates a corner set without exactly four points.
	InvalidCorners Code = "INVALID_CORNERS"

	// TransformFailed indicates the perspective transform could not be
	// computed or rasterized.
	TransformFailed Code = "TRANSFORM_FAILED"

	// GPUNotAvailable is a capability result: no accelerated context exists.
	// It is not fatal on its own.
	GPUNotAvailable Code = "GPU_NOT_AVAILABLE"

	// Cancelled indicates the caller's context ended mid-operation.
	Cancelled Code = "CANCELLED"
)

// Sentinels for errors.Is. Only the Code is compared.
var (
	ErrInvalidInput     = &Error{Code: InvalidInput}
	ErrProcessingFailed = &Error{Code: ProcessingFailed}
	ErrInvalidCorners   = &Error{Code: InvalidCorners}
	ErrTransformFailed  = &Error{Code: TransformFailed}
	ErrGPUNotAvailable  = &Error{Code: GPUNotAvailable}
	ErrCancelled        = &Error{Code: Cancelled}
)

// Error is a typed rectification failure.
type Error struct {
	Code      Code
	Stage     string
	Reason    string
	Timestamp time.Time
	Cause     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Stage != "" {
		msg = fmt.Sprintf("[%s] %s", e.Stage, msg)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// ToMap renders the error for JSON responses.
func (e *Error) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"code":      string(e.Code),
		"reason":    e.Reason,
		"timestamp": e.Timestamp.Format(time.RFC3339),
	}
	if e.Stage != "" {
		m["stage"] = e.Stage
	}
	if e.Cause != nil {
		m["cause"] = e.Cause.Error()
	}
	return m
}

// New creates an Error with the given code.
func New(code Code, stage, reason string, cause error) *Error {
	return &Error{
		Code:      code,
		Stage:     stage,
		Reason:    reason,
		Timestamp: time.Now(),
		Cause:     cause,
	}
}

// InvalidInputf creates an InvalidInput error.
func InvalidInputf(stage, format string, args ...interface{}) *Error {
	return New(InvalidInput, stage, fmt.Sprintf(format, args...), nil)
}

// ProcessingFailedf creates a ProcessingFailed error wrapping cause.
func ProcessingFailedf(stage string, cause error, format string, args ...interface{}) *Error {
	return New(ProcessingFailed, stage, fmt.Sprintf(format, args...), cause)
}

// InvalidCornersf creates an InvalidCorners error.
func InvalidCornersf(stage, format string, args ...interface{}) *Error {
	return New(InvalidCorners, stage, fmt.Sprintf(format, args...), nil)
}

// TransformFailedf creates a TransformFailed error wrapping cause.
func TransformFailedf(stage string, cause error, format string, args ...interface{}) *Error {
	return New(TransformFailed, stage, fmt.Sprintf(format, args...), cause)
}

// GPUNotAvailablef creates a GPUNotAvailable error.
func GPUNotAvailablef(format string, args ...interface{}) *Error {
	return New(GPUNotAvailable, "context", fmt.Sprintf(format, args...), nil)
}

// FromContext converts a finished context's error into a Cancelled error.
// errors.Is(result, context.Canceled) still holds through Unwrap.
func FromContext(stage string, ctxErr error) *Error {
	return New(Cancelled, stage, "operation cancelled", ctxErr)
}

// CodeOf extracts the Code from err, or "" when err carries none.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

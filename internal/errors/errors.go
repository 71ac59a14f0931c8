package errors

import (
	"errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsCode reports whether err (or anything it wraps) carries the given code.
func IsCode(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes. The pipeline-facing codes mirror the failure
// taxonomy the prediction flow surfaces to callers: any stage failure
// aborts the whole request, there is no partial output.
const (
	CodeConfigInvalid       = "CONFIG_INVALID"
	CodeSourceUnavailable   = "SOURCE_UNAVAILABLE"
	CodeInsufficientHistory = "INSUFFICIENT_HISTORY"
	CodeSchemaDrift         = "SCHEMA_DRIFT"
	CodeInferenceError      = "INFERENCE_ERROR"
	CodeUploadConflict      = "UPLOAD_CONFLICT"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeNotFound            = "NOT_FOUND"
	CodeInternalError       = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func SourceUnavailable(source string, cause error) *AppError {
	return &AppError{
		Code:    CodeSourceUnavailable,
		Message: fmt.Sprintf("source %s unavailable", source),
		Cause:   cause,
	}
}

func InsufficientHistory(message string) *AppError {
	return New(CodeInsufficientHistory, message)
}

func SchemaDrift(message string) *AppError {
	return New(CodeSchemaDrift, message)
}

func InferenceError(cause error) *AppError {
	return &AppError{
		Code:    CodeInferenceError,
		Message: "model inference failed",
		Cause:   cause,
	}
}

func UploadConflict(message string) *AppError {
	return New(CodeUploadConflict, message)
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func NotFound(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

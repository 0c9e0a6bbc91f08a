package utils

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
)

// AppError represents an application error with context
type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	File    string `json:"file,omitempty"`
	Line    int    `json:"line,omitempty"`

	cause error
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying driver or library error, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewAppError creates a new application error
func NewAppError(code, message string, details ...string) *AppError {
	_, file, line, _ := runtime.Caller(1)

	err := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
	}

	if len(details) > 0 {
		err.Details = details[0]
	}

	return err
}

// WrapAppError creates an application error that keeps cause in its chain.
func WrapAppError(code, message string, cause error) *AppError {
	_, file, line, _ := runtime.Caller(1)

	err := &AppError{
		Code:    code,
		Message: message,
		File:    file,
		Line:    line,
		cause:   cause,
	}
	if cause != nil {
		err.Details = cause.Error()
	}

	return err
}

// Error codes
const (
	ErrCodeInvalidBody      = "INVALID_BODY"
	ErrCodeMissingField     = "MISSING_FIELD"
	ErrCodeInvalidUID       = "INVALID_UID"
	ErrCodeStoreUnavailable = "STORE_UNAVAILABLE"
	ErrCodeStoreNotReady    = "STORE_NOT_READY"
	ErrCodeStoreError       = "STORE_ERROR"
	ErrCodeConfiguration    = "CONFIGURATION_ERROR"
	ErrCodeInternal         = "INTERNAL_ERROR"
)

// CodeOf returns the AppError code found in err's chain, or "" when err is
// not classified.
func CodeOf(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given AppError code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// HTTPStatus maps an error to the status code it is reported with.
// Unclassified errors map to 500.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeInvalidBody, ErrCodeMissingField, ErrCodeInvalidUID:
		return http.StatusBadRequest
	case ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	return HTTPStatus(err) == http.StatusBadRequest
}

// IsStoreError reports whether err originated in the storage layer.
func IsStoreError(err error) bool {
	switch CodeOf(err) {
	case ErrCodeStoreError, ErrCodeStoreNotReady, ErrCodeStoreUnavailable:
		return true
	}
	return false
}

package errors

import (
	"errors"
	"fmt"
)

// CompareError is the structured error type used throughout imagecompare.
type CompareError struct {
	Code     string
	Message  string
	Category Category
	Severity Severity
	Cause    error
	Context  map[string]any
}

// Error implements the error interface.
func (e *CompareError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is / errors.As chains.
func (e *CompareError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a CompareError with the same code.
func (e *CompareError) Is(target error) bool {
	var ce *CompareError
	if errors.As(target, &ce) {
		return e.Code == ce.Code
	}
	return false
}

// WithContext attaches a key/value pair to the error for logging.
func (e *CompareError) WithContext(key string, value any) *CompareError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// New creates a CompareError with the given code and message.
func New(code, message string) *CompareError {
	return &CompareError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
	}
}

// Newf creates a CompareError with a formatted message.
func Newf(code, format string, args ...any) *CompareError {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a CompareError wrapping an underlying cause.
func Wrap(code, message string, cause error) *CompareError {
	e := New(code, message)
	e.Cause = cause
	return e
}

// Wrapf wraps a cause with a formatted message.
func Wrapf(code string, cause error, format string, args ...any) *CompareError {
	e := Newf(code, format, args...)
	e.Cause = cause
	return e
}

// CodeOf returns the code of err if it is a CompareError, "" otherwise.
func CodeOf(err error) string {
	var ce *CompareError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsWarning reports whether err is a warning-severity CompareError.
func IsWarning(err error) bool {
	var ce *CompareError
	if errors.As(err, &ce) {
		return ce.Severity == SeverityWarning
	}
	return false
}

package errors

import (
	"fmt"
)

// ErrorType represents the category of error
type ErrorType int

const (
	// NotFound - a referenced workspace/repository id or path does not resolve
	ErrorTypeNotFound ErrorType = iota
	// Validation - missing or invalid input parameters
	ErrorTypeValidation
	// Inaccessible - a registered path exists but fails a liveness check
	ErrorTypeInaccessible
	// PartialScan - an individual repository query failed inside an aggregate
	ErrorTypePartialScan
	// CacheBuild - a month bucket build failed as a whole
	ErrorTypeCacheBuild
	// Database - store connection or query failures
	ErrorTypeDatabase
	// FileSystem - file I/O failures during discovery
	ErrorTypeFileSystem
)

// Error is a structured error carrying its category. Nothing in the engine is
// fatal to the process: callers degrade to fewer results instead of crashing.
type Error struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error type
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// New creates a new error with the given type and message
func New(errType ErrorType, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Wrap wraps an existing error with a category and context message
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Type: errType, Message: message, Cause: err}
}

// NotFoundf creates a not-found error with formatting
func NotFoundf(format string, args ...interface{}) *Error {
	return New(ErrorTypeNotFound, fmt.Sprintf(format, args...))
}

// ValidationErrorf creates a validation error with formatting
func ValidationErrorf(format string, args ...interface{}) *Error {
	return New(ErrorTypeValidation, fmt.Sprintf(format, args...))
}

// Inaccessiblef creates an inaccessible-source error with formatting
func Inaccessiblef(format string, args ...interface{}) *Error {
	return New(ErrorTypeInaccessible, fmt.Sprintf(format, args...))
}

// PartialScanError wraps a per-repository failure inside an aggregate operation
func PartialScanError(err error, message string) *Error {
	return Wrap(err, ErrorTypePartialScan, message)
}

// CacheBuildError wraps a failure to build a whole cache bucket
func CacheBuildError(err error, message string) *Error {
	return Wrap(err, ErrorTypeCacheBuild, message)
}

// DatabaseError wraps a store error
func DatabaseError(err error, message string) *Error {
	return Wrap(err, ErrorTypeDatabase, message)
}

// FileSystemError wraps a filesystem error
func FileSystemError(err error, message string) *Error {
	return Wrap(err, ErrorTypeFileSystem, message)
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if e, ok := err.(*Error); ok {
		return e.Type == ErrorTypeNotFound
	}
	return false
}

// GetType returns the category of an error
func GetType(err error) ErrorType {
	if e, ok := err.(*Error); ok {
		return e.Type
	}
	return ErrorTypePartialScan
}

// Package utils provides structured errors and logging shared by the
// automation engine.
package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns string representation of error severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// ErrorCode represents predefined error codes for categorization
type ErrorCode string

const (
	// Remote execution
	ErrCodeRemoteTimeout ErrorCode = "REMOTE_TIMEOUT"
	ErrCodeRemoteFailed  ErrorCode = "REMOTE_FAILED"

	// Traversal
	ErrCodePageNotLoaded    ErrorCode = "PAGE_NOT_LOADED"
	ErrCodePatternUnknown   ErrorCode = "PATTERN_UNKNOWN"
	ErrCodeNavigationFailed ErrorCode = "NAVIGATION_FAILED"
	ErrCodeExtractionFailed ErrorCode = "EXTRACTION_FAILED"

	// Persistence
	ErrCodeCommitFailed ErrorCode = "COMMIT_FAILED"
	ErrCodeExportFailed ErrorCode = "EXPORT_FAILED"
	ErrCodeStoreFailed  ErrorCode = "STORE_FAILED"

	// Control
	ErrCodeWorkerBusy      ErrorCode = "WORKER_BUSY"
	ErrCodeTaskFailed      ErrorCode = "TASK_FAILED"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeInvalidConfig   ErrorCode = "INVALID_CONFIG"
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	ErrCodeInternal        ErrorCode = "INTERNAL_ERROR"
)

// StructuredError provides rich error information for better debugging and handling
type StructuredError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Severity  ErrorSeverity          `json:"severity"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Timestamp time.Time              `json:"timestamp"`
	Retryable bool                   `json:"retryable"`
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error unwrapping
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// Is matches any StructuredError carrying the same code, so package level
// sentinels work with errors.Is.
func (e *StructuredError) Is(target error) bool {
	var se *StructuredError
	if errors.As(target, &se) {
		return e.Code == se.Code
	}
	return false
}

// WithContext adds contextual information to the error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// ErrorBuilder provides a fluent interface for creating structured errors
type ErrorBuilder struct {
	error *StructuredError
}

// NewError creates a new error builder
func NewError(code ErrorCode, message string) *ErrorBuilder {
	return &ErrorBuilder{
		error: &StructuredError{
			Code:      code,
			Message:   message,
			Severity:  SeverityError,
			Timestamp: time.Now(),
		},
	}
}

// WithSeverity sets the error severity
func (eb *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	eb.error.Severity = severity
	return eb
}

// WithCause sets the underlying cause
func (eb *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	eb.error.Cause = cause
	return eb
}

// WithContext adds contextual information
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	if eb.error.Context == nil {
		eb.error.Context = make(map[string]interface{})
	}
	eb.error.Context[key] = value
	return eb
}

// WithRetryable marks the error as retryable
func (eb *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	eb.error.Retryable = retryable
	return eb
}

// Build returns the constructed error
func (eb *ErrorBuilder) Build() *StructuredError {
	return eb.error
}

// Sentinel creates a bare error usable as an errors.Is target for a code.
func Sentinel(code ErrorCode, message string) *StructuredError {
	return &StructuredError{Code: code, Message: message, Severity: SeverityError}
}

// WrapError wraps an existing error in a structured error
func WrapError(err error, code ErrorCode, message string) *StructuredError {
	return NewError(code, message).WithCause(err).Build()
}

// CodeOf returns the code of the outermost StructuredError in err's chain.
func CodeOf(err error) ErrorCode {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// IsRetryableError checks if an error should be retried
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Retryable
	}

	errorStr := strings.ToLower(err.Error())
	retryablePatterns := []string{
		"timeout",
		"connection refused",
		"temporary failure",
		"503 service unavailable",
		"502 bad gateway",
		"504 gateway timeout",
	}
	for _, pattern := range retryablePatterns {
		if strings.Contains(errorStr, pattern) {
			return true
		}
	}
	return false
}

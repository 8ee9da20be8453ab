package errors

import (
	"errors"
	"fmt"
	"runtime"
	"sort"
	"strings"
	"time"
)

// ErrorCode represents a unique error code for categorizing errors
type ErrorCode string

const (
	// Source errors (1xxx)
	ErrCodeSourceNotFound ErrorCode = "MART1001"
	ErrCodeSourceRead     ErrorCode = "MART1002"
	ErrCodeSourceFormat   ErrorCode = "MART1003"

	// Data quality errors (2xxx)
	ErrCodeCastFailed       ErrorCode = "MART2001"
	ErrCodeTestFailed       ErrorCode = "MART2002"
	ErrCodeReferentialCheck ErrorCode = "MART2003"
	ErrCodeBusinessRule     ErrorCode = "MART2004"

	// Configuration errors (3xxx)
	ErrCodeConfigNotFound ErrorCode = "MART3001"
	ErrCodeConfigInvalid  ErrorCode = "MART3002"
	ErrCodeConfigMissing  ErrorCode = "MART3003"

	// Warehouse errors (4xxx)
	ErrCodeConnectionFailed     ErrorCode = "MART4001"
	ErrCodeAuthenticationFailed ErrorCode = "MART4002"
	ErrCodeSQLExecution         ErrorCode = "MART4003"
	ErrCodeSQLTransaction       ErrorCode = "MART4004"
	ErrCodeUnsupportedTarget    ErrorCode = "MART4005"

	// File system errors (5xxx)
	ErrCodeFileNotFound   ErrorCode = "MART5001"
	ErrCodeFilePermission ErrorCode = "MART5002"
	ErrCodeFileOperation  ErrorCode = "MART5003"

	// System errors (9xxx)
	ErrCodeInternal           ErrorCode = "MART9001"
	ErrCodeTimeout            ErrorCode = "MART9002"
	ErrCodeCanceled           ErrorCode = "MART9003"
	ErrCodeMaxRetriesExceeded ErrorCode = "MART9004"
)

// ErrorSeverity represents the severity level of an error
type ErrorSeverity string

const (
	SeverityCritical ErrorSeverity = "CRITICAL" // The run cannot continue
	SeverityError    ErrorSeverity = "ERROR"    // Operation failed
	SeverityWarning  ErrorSeverity = "WARNING"  // Operation succeeded with issues
	SeverityInfo     ErrorSeverity = "INFO"
)

// AppError represents a structured application error with context
type AppError struct {
	Code        ErrorCode
	Message     string
	Severity    ErrorSeverity
	Context     map[string]interface{}
	Cause       error
	Stack       string
	Timestamp   time.Time
	Recoverable bool
	Suggestions []string
}

// Error implements the error interface
func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[%s] %s: %s", e.Code, e.Severity, e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		b.WriteString(" (" + strings.Join(parts, ", ") + ")")
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf("\nCaused by: %v", e.Cause))
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\nSuggestions:")
		for i, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  %d. %s", i+1, suggestion))
		}
	}

	return b.String()
}

// Unwrap returns the cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison by code
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Severity:  SeverityError,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
		Timestamp: time.Now(),
	}
}

// Wrap wraps an existing error with AppError
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	appErr := New(code, message)
	appErr.Cause = err

	// Inherit context from a wrapped AppError
	var ae *AppError
	if errors.As(err, &ae) {
		for k, v := range ae.Context {
			appErr.Context[k] = v
		}
	}

	return appErr
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithSeverity sets the error severity
func (e *AppError) WithSeverity(severity ErrorSeverity) *AppError {
	e.Severity = severity
	return e
}

// WithSuggestions adds recovery suggestions
func (e *AppError) WithSuggestions(suggestions ...string) *AppError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// AsRecoverable marks the error as recoverable
func (e *AppError) AsRecoverable() *AppError {
	e.Recoverable = true
	return e
}

func captureStack() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])

	var b strings.Builder
	frames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "runtime/") {
			b.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		}
		if !more {
			break
		}
	}

	return b.String()
}

// Common error constructors

// CastError reports a raw value that cannot be converted to its declared
// column type. It is always fatal for the run.
func CastError(model, column, recordID, value string, cause error) *AppError {
	return Wrap(cause, ErrCodeCastFailed,
		fmt.Sprintf("cannot cast %s.%s for record %s", model, column, recordID)).
		WithContext("model", model).
		WithContext("column", column).
		WithContext("record", recordID).
		WithContext("value", truncateString(value, 64)).
		WithSeverity(SeverityCritical).
		WithSuggestions(
			fmt.Sprintf("Fix the %s value of record %s in the source", column, recordID),
			"Re-run after correcting the source file",
		)
}

// SourceError creates a source read or layout error
func SourceError(code ErrorCode, message, path string, cause error) *AppError {
	var err *AppError
	if cause != nil {
		err = Wrap(cause, code, message)
	} else {
		err = New(code, message)
	}
	return err.WithContext("path", path).
		WithSuggestions(
			"Check sources.path in martflow.yaml",
			"Run 'martflow ls' to see the expected source tables",
		)
}

// ConfigError creates a configuration-related error
func ConfigError(message string, field string) *AppError {
	return New(ErrCodeConfigInvalid, message).
		WithContext("field", field).
		WithSuggestions(
			fmt.Sprintf("Check the '%s' configuration value", field),
			"Run 'martflow init' to regenerate martflow.yaml",
		)
}

// ConnectionError creates a warehouse connection error
func ConnectionError(message string, cause error) *AppError {
	return Wrap(cause, ErrCodeConnectionFailed, message).
		WithSuggestions(
			"Check your network connection",
			"Verify the target account and credentials",
		)
}

// SQLError creates an SQL execution error
func SQLError(message string, query string, cause error) *AppError {
	err := Wrap(cause, ErrCodeSQLExecution, message).
		WithContext("query", truncateString(query, 200))

	lower := strings.ToLower(fmt.Sprint(cause))
	if strings.Contains(lower, "permission") || strings.Contains(lower, "access denied") {
		_ = err.WithSuggestions(
			"Check the role has CREATE TABLE on the target schema",
		)
	}

	return err
}

// IsRecoverable checks if an error is recoverable
func IsRecoverable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Recoverable
	}
	return false
}

// GetErrorCode extracts the error code from an error
func GetErrorCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// IsCode reports whether err carries the given code anywhere in its chain
func IsCode(err error, code ErrorCode) bool {
	return errors.Is(err, &AppError{Code: code})
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

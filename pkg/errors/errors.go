package errors

import (
	"errors"
	"fmt"
)

// ErrorCode identifies an error kind independently of its message
type ErrorCode string

const (
	// General errors
	ErrUnknown       ErrorCode = "UNKNOWN"
	ErrInternal      ErrorCode = "INTERNAL"
	ErrInvalidInput  ErrorCode = "INVALID_INPUT"
	ErrNotFound      ErrorCode = "NOT_FOUND"
	ErrAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrPermission    ErrorCode = "PERMISSION"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigParse ErrorCode = "CONFIG_PARSE"

	// Template errors
	ErrTemplateNotFound ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrManifestInvalid  ErrorCode = "MANIFEST_INVALID"

	// Variable errors
	ErrMissingRequiredVariable ErrorCode = "MISSING_REQUIRED_VARIABLE"
	ErrVariableValidation      ErrorCode = "VARIABLE_VALIDATION"

	// Generation errors
	ErrTargetNotEmpty        ErrorCode = "TARGET_NOT_EMPTY"
	ErrUnsafePath            ErrorCode = "UNSAFE_PATH"
	ErrUnresolvedPlaceholder ErrorCode = "UNRESOLVED_PLACEHOLDER"
	ErrHookFailed            ErrorCode = "HOOK_FAILED"
	ErrIOFailure             ErrorCode = "IO_FAILURE"
	ErrCancelled             ErrorCode = "CANCELLED"
)

// ProplateError is a structured error with a stable code and free-form details
type ProplateError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *ProplateError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *ProplateError) Unwrap() error {
	return e.Wrapped
}

// Is reports whether target is a ProplateError with the same code
func (e *ProplateError) Is(target error) bool {
	var targetErr *ProplateError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new ProplateError with the given code and message
func New(code ErrorCode, message string) *ProplateError {
	return &ProplateError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new ProplateError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *ProplateError {
	return &ProplateError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps err with a code and message. It returns nil when err is nil.
func Wrap(err error, code ErrorCode, message string) *ProplateError {
	if err == nil {
		return nil
	}
	return &ProplateError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps err with a code and formatted message. It returns nil when err is nil.
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *ProplateError {
	if err == nil {
		return nil
	}
	return &ProplateError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// IO wraps a filesystem failure together with the action and path it happened on
func IO(err error, action, path string) *ProplateError {
	if err == nil {
		return nil
	}
	return Wrapf(err, ErrIOFailure, "%s %s", action, path).
		WithDetail("action", action).
		WithDetail("path", path)
}

// WithDetail adds a detail to the error
func (e *ProplateError) WithDetail(key string, value interface{}) *ProplateError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *ProplateError) WithDetails(details map[string]interface{}) *ProplateError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var pErr *ProplateError
	if errors.As(err, &pErr) {
		return pErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a ProplateError
func GetErrorCode(err error) ErrorCode {
	var pErr *ProplateError
	if errors.As(err, &pErr) {
		return pErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a ProplateError
func GetErrorDetails(err error) map[string]interface{} {
	var pErr *ProplateError
	if errors.As(err, &pErr) {
		return pErr.Details
	}
	return nil
}

// GetDetail returns a single detail value from the outermost ProplateError in the chain
func GetDetail(err error, key string) (interface{}, bool) {
	details := GetErrorDetails(err)
	if details == nil {
		return nil, false
	}
	v, ok := details[key]
	return v, ok
}

// GetDetailString returns a detail formatted as a string, or "" when absent
func GetDetailString(err error, key string) string {
	v, ok := GetDetail(err, key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

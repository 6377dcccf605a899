package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// Configuration creates an AppError for an invalid static configuration.
// These abort pipeline construction rather than a single item.
func Configuration(message string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message}
}

// Configurationf is Configuration with fmt.Sprintf formatting.
func Configurationf(format string, args ...any) *AppError {
	return Configuration(fmt.Sprintf(format, args...))
}

// MissingConnector creates an AppError for a job whose context lacks a
// required connector. role is "source" or "destination".
func MissingConnector(role, name string) *AppError {
	msg := fmt.Sprintf("%s connector name is required", role)
	if name != "" {
		msg = fmt.Sprintf("%s connector %q is not present in the job context", role, name)
	}
	return &AppError{
		Code: ErrCodeMissingConnector, Message: msg,
		Details: map[string]any{"role": role, "connector": name},
	}
}

// NotRunning creates an AppError for an operation issued in the wrong lifecycle state.
func NotRunning(state string) *AppError {
	return &AppError{
		Code: ErrCodeNotRunning, Message: fmt.Sprintf("pipeline is not running (state: %s)", state),
		Details: map[string]any{"state": state},
	}
}

// Stopped creates an AppError for an operation issued after shutdown.
func Stopped() *AppError {
	return &AppError{Code: ErrCodeStopped, Message: "pipeline has been stopped"}
}

// Canceled wraps a context error.
func Canceled(cause error) *AppError {
	return &AppError{Code: ErrCodeCanceled, Message: "operation canceled", Cause: cause}
}

// ItemFailed creates an AppError for a step that failed while processing an item.
func ItemFailed(stage string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeItemFailed, Message: fmt.Sprintf("item processing failed in stage %s", stage),
		Details: map[string]any{"stage": stage}, Cause: cause,
	}
}

// WriteFailed creates an AppError for a failed destination write.
func WriteFailed(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeWriteFailed, Message: fmt.Sprintf("%s failed", operation),
		Details: map[string]any{"operation": operation}, Cause: cause,
	}
}

// ConnectorFailed creates an AppError for a connector that could not open its stream.
func ConnectorFailed(name string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeConnectorFailed, Message: fmt.Sprintf("connector %s unavailable", name),
		Retryable: true, Details: map[string]any{"connector": name}, Cause: cause,
	}
}

// Timeout creates an AppError for an operation that took too long.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation),
		Retryable: true, Details: map[string]any{"operation": operation},
	}
}

// Internal creates an AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "an unexpected error occurred", Cause: cause}
}

// --- Inspection ---

// AsAppError extracts an *AppError from err's chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConfiguration reports whether err is a build-time configuration error.
func IsConfiguration(err error) bool {
	return IsCode(err, ErrCodeConfiguration) || IsCode(err, ErrCodeMissingConnector)
}

// IsRetryable reports whether err is marked retryable.
func IsRetryable(err error) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Retryable
}

package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Build-time errors (fatal, never retried)
const (
	// ErrCodeConfiguration indicates an invalid pipeline or job configuration.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeMissingConnector indicates a job references a connector that is not in its context.
	ErrCodeMissingConnector ErrorCode = "MISSING_CONNECTOR"
)

// Lifecycle errors
const (
	// ErrCodeNotRunning indicates an operation that requires a started pipeline.
	ErrCodeNotRunning ErrorCode = "NOT_RUNNING"
	// ErrCodeStopped indicates an operation attempted after the pipeline stopped.
	ErrCodeStopped ErrorCode = "STOPPED"
	// ErrCodeCanceled indicates the operation was aborted by context cancellation.
	ErrCodeCanceled ErrorCode = "CANCELED"
)

// Processing errors
const (
	// ErrCodeItemFailed indicates a chain step failed while processing one item.
	ErrCodeItemFailed ErrorCode = "ITEM_FAILED"
	// ErrCodeWriteFailed indicates a destination write failed.
	ErrCodeWriteFailed ErrorCode = "WRITE_FAILED"
)

// Connectivity errors (retryable)
const (
	// ErrCodeConnectorFailed indicates a connector could not open its stream.
	ErrCodeConnectorFailed ErrorCode = "CONNECTOR_FAILED"
	// ErrCodeTimeout indicates the operation timed out.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnectorFailed: true,
	ErrCodeTimeout:         true,
	ErrCodeWriteFailed:     false,
	ErrCodeInternal:        false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

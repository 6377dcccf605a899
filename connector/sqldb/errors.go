package sqldb

import (
	"strings"

	"github.com/kbukum/etlkit/errors"
)

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"broken pipe",
	"i/o timeout",
	"driver: bad connection",
	"database is locked",
	"deadlock",
	"lock timeout",
	"too many connections",
}

// isRetryable reports whether a write error is transient.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, p := range retryablePatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// writeError wraps a failed write, marking transient failures retryable.
func writeError(op string, err error) error {
	if err == nil {
		return nil
	}
	appErr := errors.WriteFailed(op, err)
	appErr.Retryable = isRetryable(err)
	return appErr
}

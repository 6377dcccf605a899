// Package errors provides the unified error type used across etlkit.
// It implements structured errors with machine-readable codes and
// retryable detection, so configuration faults, connector outages and
// per-item processing failures can be told apart with errors.As.
package errors

// Package resilience provides the fault-tolerance primitives used by the
// pipeline and its connectors.
//
//   - Bulkhead: caps how many per-item workers of one stage run at once.
//   - Retry: retries connector opens and destination writes with
//     exponential backoff, only for errors marked retryable.
//
//	bh := resilience.NewBulkhead(resilience.BulkheadConfig{Name: "Load", MaxConcurrent: 8, Block: true})
//	err := bh.Execute(ctx, func() error {
//	    return resilience.RetryFunc(ctx, resilience.WriteRetryConfig(), write)
//	})
package resilience

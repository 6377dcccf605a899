// Package component defines the lifecycle contract for resources an ETL run
// holds open, such as database handles, redis clients and kafka writers.
//
// Connectors implement Component and are registered with a Registry, which
// starts them in registration order, stops them in reverse order and
// aggregates their health for the status server.
//
//   - Component: Start/Stop/Health lifecycle
//   - Describable: one-line summary logged when a run starts
//   - Lazy: opens a resource on first use and reuses it afterwards
package component

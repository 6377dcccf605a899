// Package job defines the capabilities a unit of ETL work can take on
// (Extractor, Transformer, Loader, ErrorHandler), the attributes every job
// carries, and the connector lookup jobs use to open their streams.
//
// A job is bound to one partition of its source. Its methods have the
// pipeline.Step shape, so a chain is built from method values:
//
//	set := job.Set{Extractor: ex, Loader: ld, ErrorHandler: eh}
//	item := pipeline.WorkItem{Chain: set.Chain(), Payload: partition.Range{Offset: 0, Limit: 50}}
//
// Construction validates connector bindings. A job whose context lacks a
// required connector fails with a MISSING_CONNECTOR error before any item
// is processed.
package job

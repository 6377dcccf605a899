// Package pipeline is the concurrent execution engine of an ETL run.
//
// A Pipeline is an ordered list of named, bounded Stages. Batches of
// WorkItems enter the first stage. For every item with a non-empty payload
// a stage runs one goroutine that calls the head of the item's Chain with
// the tail of the chain, the payload and the batch's shared Pool. When all
// goroutines of a batch are done, the pool is forwarded as one batch to the
// next stage.
//
// A full downstream inbox blocks the forwarding stage, so backpressure
// travels upstream one hop at a time. Stop sends a sentinel that visits
// every stage once, in order, and returns after all stage loops exited.
//
// A step that panics does not lose its item: the panic becomes a Failure
// payload routed to the last step of the item's remaining chain, which by
// convention is the error handler.
//
//	p := pipeline.New(pipeline.WithLogger(log), pipeline.WithMaxWorkers(16))
//	p.AddWorker("Extract", 4)
//	p.AddWorker("Load", 4)
//	p.AddWorker("Error", 1)
//	_ = p.Start(ctx)
//	_ = p.Put(ctx, pipeline.Batch{{Chain: chain, Payload: seed}})
//	_ = p.Stop(ctx)
package pipeline

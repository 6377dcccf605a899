package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/observability"
	"github.com/kbukum/etlkit/resilience"
)

// message is what travels through an inbox: a batch or the stop sentinel.
type message struct {
	batch Batch
	stop  bool
}

// Stage is one named, bounded queue with a worker loop.
type Stage struct {
	name       string
	capacity   int
	inbox      chan message
	done       chan struct{}
	downstream *Stage

	log      *logger.Logger
	metrics  *observability.StageMetrics
	bulkhead *resilience.Bulkhead
}

// NewStage creates a stage whose inbox holds up to capacity batches.
func NewStage(name string, capacity int, opts ...Option) (*Stage, error) {
	if name == "" {
		return nil, errors.Configuration("stage name is required")
	}
	if capacity < 1 {
		return nil, errors.Configurationf("stage %s: capacity must be at least 1, got %d", name, capacity)
	}
	o := newOptions(opts)

	s := &Stage{
		name:     name,
		capacity: capacity,
		inbox:    make(chan message, capacity),
		done:     make(chan struct{}),
		log:      o.log.WithStage(name),
		metrics:  o.metrics,
	}
	if o.maxWorkers > 0 {
		s.bulkhead = resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          name,
			MaxConcurrent: o.maxWorkers,
			Block:         true,
		})
	}
	return s, nil
}

// Name returns the stage name.
func (s *Stage) Name() string { return s.name }

// Capacity returns the inbox capacity.
func (s *Stage) Capacity() int { return s.capacity }

// Depth returns the number of queued batches. It is a diagnostic value
// and may be stale by the time it is read.
func (s *Stage) Depth() int { return len(s.inbox) }

// SetDownstream links this stage's output to next. The last call wins.
// It must be called before Run.
func (s *Stage) SetDownstream(next *Stage) {
	s.downstream = next
}

// Put enqueues a batch, blocking while the inbox is full.
func (s *Stage) Put(ctx context.Context, batch Batch) error {
	return s.send(ctx, message{batch: batch})
}

func (s *Stage) send(ctx context.Context, msg message) error {
	select {
	case s.inbox <- msg:
		return nil
	case <-s.done:
		return errors.Stopped().WithDetail("stage", s.name)
	case <-ctx.Done():
		return errors.Canceled(ctx.Err())
	}
}

// Run processes batches until the stop sentinel arrives or ctx ends. The
// sentinel is forwarded downstream before Run returns, so downstream stages
// observe it in order.
func (s *Stage) Run(ctx context.Context) error {
	defer close(s.done)
	s.log.Debug("stage started", logger.Fields("capacity", s.capacity))

	for {
		var msg message
		select {
		case msg = <-s.inbox:
		case <-ctx.Done():
			s.log.Warn("stage canceled", logger.Fields(logger.FieldError, ctx.Err().Error()))
			return errors.Canceled(ctx.Err())
		}

		if msg.stop {
			s.log.Info("stage stopped")
			if s.downstream != nil {
				return s.downstream.send(ctx, msg)
			}
			return nil
		}

		pool := s.process(ctx, msg.batch)
		if s.downstream != nil && pool.Len() > 0 {
			if err := s.downstream.send(ctx, message{batch: pool.Batch()}); err != nil {
				return err
			}
		}
	}
}

// process runs one fan-out round and returns the batch's pool once every
// worker has finished.
func (s *Stage) process(ctx context.Context, batch Batch) *Pool {
	start := time.Now()
	batchID := uuid.NewString()
	ctx, span := observability.StartSpan(ctx, observability.SpanStageBatch, trace.WithAttributes(
		attribute.String(observability.AttrStage, s.name),
		attribute.Int(observability.AttrBatchSize, len(batch)),
	))
	defer span.End()

	pool := NewPool()
	var wg sync.WaitGroup
	var failures failureCount
	spawned := 0

	for _, item := range batch {
		if IsEmpty(item.Payload) {
			continue
		}
		if len(item.Chain) == 0 {
			s.log.Warn("item has no remaining steps, dropped", logger.Fields(logger.FieldBatchID, batchID))
			continue
		}
		spawned++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.invoke(ctx, item, pool); err != nil {
				failures.add()
				s.fail(ctx, item, pool, err)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	s.metrics.RecordBatch(ctx, s.name, spawned, elapsed)
	span.SetAttributes(attribute.Int(observability.AttrFailures, failures.get()))
	s.log.Debug("batch processed", logger.Fields(
		logger.FieldBatchID, batchID,
		logger.FieldItems, spawned,
		logger.FieldPool, pool.Len(),
		logger.FieldDuration, elapsed.Milliseconds(),
	))
	return pool
}

// invoke runs the head of the item's chain, converting a panic into an error.
func (s *Stage) invoke(ctx context.Context, item WorkItem, pool *Pool) error {
	run := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = errors.ItemFailed(s.name, fmt.Errorf("panic: %v", r))
			}
		}()
		step, tail := item.Chain.Head()
		step(ctx, tail, item.Payload, pool)
		return nil
	}

	if s.bulkhead == nil {
		return run()
	}
	if err := s.bulkhead.Execute(ctx, run); err != nil {
		if errors.IsCode(err, errors.ErrCodeItemFailed) {
			return err
		}
		return errors.Canceled(err)
	}
	return nil
}

// fail routes a failed item to the last step of its remaining chain.
// Items with nothing left to run are logged and counted.
func (s *Stage) fail(ctx context.Context, item WorkItem, pool *Pool, err error) {
	reason := "panic"
	if errors.IsCode(err, errors.ErrCodeCanceled) {
		reason = "canceled"
	}
	s.metrics.RecordFailure(ctx, s.name, reason)

	failure := NewFailure("step", nil, item.Payload, err)
	failure.Stage = s.name

	tail := item.Chain[1:]
	if len(tail) == 0 {
		s.log.Error("step failed with no error handler left", logger.Fields(
			logger.FieldError, err.Error(),
			"failure_id", failure.ID,
		))
		return
	}
	s.log.Error("step failed, routed to error handler", logger.Fields(
		logger.FieldError, err.Error(),
		"failure_id", failure.ID,
	))
	pool.Append(RouteToLast(tail), failure)
}

type failureCount struct {
	mu sync.Mutex
	n  int
}

func (c *failureCount) add() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *failureCount) get() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

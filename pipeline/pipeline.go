package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/observability"
)

// State is the lifecycle state of a Pipeline.
type State int

const (
	StateUnstarted State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// StageProgress is a point-in-time view of one stage's queue.
type StageProgress struct {
	Name     string `json:"name"`
	Depth    int    `json:"depth"`
	Capacity int    `json:"capacity"`
}

// Pipeline is an ordered list of stages. Batches enter the first stage and
// each stage forwards its output pool to the next.
type Pipeline struct {
	mu     sync.RWMutex
	state  State
	stages []*Stage
	opts   []Option
	o      options

	group  *errgroup.Group
	cancel context.CancelFunc
	gauge  metric.Registration
}

// New creates an empty pipeline.
func New(opts ...Option) *Pipeline {
	return &Pipeline{
		opts: opts,
		o:    newOptions(opts),
	}
}

// AddWorker appends a stage. Stages can only be added before Start.
func (p *Pipeline) AddWorker(name string, capacity int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUnstarted {
		return errors.Configurationf("cannot add stage %s: pipeline is %s", name, p.state)
	}
	for _, s := range p.stages {
		if s.name == name {
			return errors.Configurationf("duplicate stage name %s", name)
		}
	}
	stage, err := NewStage(name, capacity, p.opts...)
	if err != nil {
		return err
	}
	if n := len(p.stages); n > 0 {
		p.stages[n-1].SetDownstream(stage)
	}
	p.stages = append(p.stages, stage)
	return nil
}

// Start launches one worker loop per stage. The loops run until Stop or
// until ctx is canceled.
func (p *Pipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != StateUnstarted {
		return errors.Configurationf("pipeline already %s", p.state)
	}
	if len(p.stages) == 0 {
		return errors.Configuration("pipeline has no stages")
	}

	runCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(runCtx)
	for _, s := range p.stages {
		group.Go(func() error { return s.Run(groupCtx) })
	}
	p.group = group
	p.cancel = cancel

	if p.o.metrics != nil {
		reg, err := p.o.metrics.ObserveQueueDepth(p.queueDepths)
		if err != nil {
			p.o.log.Warn("queue depth gauge not registered", logger.Fields(logger.FieldError, err.Error()))
		}
		p.gauge = reg
	}

	p.state = StateRunning
	p.o.log.Info("pipeline started", logger.Fields("stages", len(p.stages)))
	return nil
}

// Put enqueues a batch on the first stage, blocking while it is full.
// A nil batch is the stop request and behaves like Stop.
func (p *Pipeline) Put(ctx context.Context, batch Batch) error {
	p.mu.RLock()
	state := p.state
	stages := len(p.stages)
	p.mu.RUnlock()

	if stages == 0 {
		return errors.Configuration("pipeline has no stages")
	}
	if batch == nil {
		return p.Stop(ctx)
	}
	switch state {
	case StateUnstarted:
		return errors.NotRunning(state.String())
	case StateDraining, StateStopped:
		return errors.Stopped()
	}
	return p.stages[0].Put(ctx, batch)
}

// Stop sends the stop sentinel behind every queued batch and waits for all
// stages to drain. Calling Stop on a stopped pipeline is a no-op.
func (p *Pipeline) Stop(ctx context.Context) error {
	p.mu.Lock()
	switch p.state {
	case StateUnstarted:
		p.mu.Unlock()
		return errors.NotRunning(p.state.String())
	case StateDraining, StateStopped:
		p.mu.Unlock()
		return nil
	}
	p.state = StateDraining
	first := p.stages[0]
	p.mu.Unlock()

	p.o.log.Info("pipeline draining")
	sendErr := first.send(ctx, message{stop: true})
	if sendErr != nil {
		p.cancel()
	}
	waitErr := p.group.Wait()

	p.mu.Lock()
	p.state = StateStopped
	if p.gauge != nil {
		if err := p.gauge.Unregister(); err != nil {
			p.o.log.Warn("queue depth gauge not unregistered", logger.Fields(logger.FieldError, err.Error()))
		}
		p.gauge = nil
	}
	p.cancel()
	p.mu.Unlock()

	if sendErr != nil {
		return sendErr
	}
	if waitErr != nil {
		if !errors.IsCode(waitErr, errors.ErrCodeCanceled) {
			waitErr = errors.Canceled(waitErr)
		}
		return waitErr
	}
	p.o.log.Info("pipeline stopped")
	return nil
}

// Wait blocks until every stage loop has returned.
func (p *Pipeline) Wait() error {
	p.mu.RLock()
	group := p.group
	p.mu.RUnlock()
	if group == nil {
		return errors.NotRunning(StateUnstarted.String())
	}
	return group.Wait()
}

// State returns the current lifecycle state.
func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state
}

// Snapshot returns the queue depth of every stage in order.
func (p *Pipeline) Snapshot() []StageProgress {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]StageProgress, len(p.stages))
	for i, s := range p.stages {
		out[i] = StageProgress{Name: s.name, Depth: s.Depth(), Capacity: s.capacity}
	}
	return out
}

// Progress renders Snapshot as "name: depth/capacity" pairs separated by
// spaces.
func (p *Pipeline) Progress() string {
	snap := p.Snapshot()
	parts := make([]string, len(snap))
	for i, s := range snap {
		parts[i] = fmt.Sprintf("%s: %d/%d", s.Name, s.Depth, s.Capacity)
	}
	return strings.Join(parts, " ")
}

func (p *Pipeline) queueDepths() []observability.QueueDepth {
	snap := p.Snapshot()
	out := make([]observability.QueueDepth, len(snap))
	for i, s := range snap {
		out[i] = observability.QueueDepth{Stage: s.Name, Depth: s.Depth, Capacity: s.Capacity}
	}
	return out
}

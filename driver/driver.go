// Package driver runs the jobs of an ETL file. It opens the configured
// connectors, selects jobs, partitions each job source by count and limit,
// builds one role set per partition and feeds the resulting work items
// through a pipeline.
package driver

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/config"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/observability"
	"github.com/kbukum/etlkit/partition"
	"github.com/kbukum/etlkit/pipeline"
)

// Driver owns the connectors of one file and runs its jobs one at a time.
type Driver struct {
	file       *config.File
	registry   *job.Registry
	components *component.Registry
	log        *logger.Logger
	metrics    *observability.StageMetrics
	selection  Selection

	mu         sync.RWMutex
	connectors job.Context
	current    *pipeline.Pipeline
	currentJob string
	done       []JobReport
}

// Option configures a Driver.
type Option func(*Driver)

// WithRegistry replaces the default job registry.
func WithRegistry(r *job.Registry) Option {
	return func(d *Driver) { d.registry = r }
}

// WithLogger sets the driver logger.
func WithLogger(log *logger.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithMetrics records stage metrics for every pipeline.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(d *Driver) { d.metrics = m }
}

// WithSelection restricts which jobs run.
func WithSelection(s Selection) Option {
	return func(d *Driver) { d.selection = s }
}

// New creates a driver for file.
func New(file *config.File, opts ...Option) *Driver {
	d := &Driver{
		file:       file,
		registry:   job.DefaultRegistry(),
		components: component.NewRegistry(),
		log:        logger.GetGlobalLogger().WithComponent("driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Open creates every configured connector and starts those with a
// lifecycle. Connector names are processed in sorted order.
func (d *Driver) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connectors != nil {
		return nil
	}

	conns := make(job.Context, len(d.file.Connectors))
	for _, name := range slices.Sorted(maps.Keys(d.file.Connectors)) {
		if name == ContextJobKey {
			return errors.Configurationf("connector name %q is reserved", name)
		}
		cc := d.file.Connectors[name]
		factory, err := d.registry.Connector(cc.Type)
		if err != nil {
			return errors.Configurationf("connector %s", name).WithCause(err)
		}
		conn, err := factory(ctx, name, job.Params(cc.Params), d.log)
		if err != nil {
			if appErr, ok := errors.AsAppError(err); ok {
				return appErr.WithDetail("connector", name)
			}
			return errors.ConnectorFailed(name, err)
		}
		if c, ok := conn.(component.Component); ok {
			if err := d.components.Register(c); err != nil {
				return errors.Configurationf("connector %s", name).WithCause(err)
			}
		}
		conns[name] = conn
	}

	if err := d.components.StartAll(ctx); err != nil {
		return err
	}
	d.connectors = conns
	return nil
}

// Close stops the started connectors in reverse order.
func (d *Driver) Close(ctx context.Context) error {
	d.mu.Lock()
	d.connectors = nil
	d.mu.Unlock()
	return d.components.StopAll(ctx)
}

// Run opens the connectors, runs every selected job in priority order and
// closes the connectors. It stops at the first failing job.
func (d *Driver) Run(ctx context.Context) (report *Report, err error) {
	start := time.Now()
	report = &Report{Name: d.file.Name}
	defer func() { report.Duration = time.Since(start) }()

	if err := d.Open(ctx); err != nil {
		_ = d.Close(context.WithoutCancel(ctx))
		return report, err
	}
	defer func() {
		if cerr := d.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	jobs := d.selection.Apply(d.file.Jobs)
	d.log.Info("jobs selected", logger.Fields("selected", len(jobs), "configured", len(d.file.Jobs)))

	for i := range jobs {
		jr, err := d.RunJob(ctx, &jobs[i])
		report.Jobs = append(report.Jobs, jr)
		if err != nil {
			return report, err
		}
	}
	return report, nil
}

// RunJob runs one job on the open connectors.
func (d *Driver) RunJob(ctx context.Context, cfg *config.JobConfig) (jr JobReport, err error) {
	start := time.Now()
	jr = JobReport{Name: cfg.Name, Priority: cfg.Priority}
	log := d.log.WithJob(cfg.Name)
	defer func() {
		jr.Duration = time.Since(start)
		if err != nil {
			jr.Err = err.Error()
		}
		d.finish(jr)
	}()

	d.mu.RLock()
	conns := d.connectors
	d.mu.RUnlock()
	if conns == nil {
		return jr, errors.NotRunning("closed")
	}

	b, err := newBuilder(d.registry, cfg)
	if err != nil {
		return jr, err
	}
	attrs := job.Attributes{
		Name: cfg.Name,
		Context: conns.With(ContextJobKey, JobInfo{
			Name: cfg.Name, Priority: cfg.Priority, Tag: cfg.Tag, Limit: cfg.Limit, Threads: cfg.Threads,
		}),
		Params: job.Params(cfg.Params),
		Domain: domain(cfg.Domain),
		Log:    log,
	}

	probe, err := b.extractor(attrs)
	if err != nil {
		return jr, roleError(config.RoleExtract, cfg.Name, err)
	}
	count, err := probe.Count(ctx)
	if err != nil {
		return jr, err
	}
	ranges := partition.Split(count, cfg.Limit)
	jr.Count, jr.Partitions = count, len(ranges)
	log.Info("job partitioned", logger.Fields("records", count, "partitions", len(ranges), logger.FieldLimit, cfg.Limit))
	if len(ranges) == 0 {
		return jr, nil
	}

	batches, err := d.batches(b, attrs, ranges, cfg.Threads)
	if err != nil {
		return jr, err
	}

	p := pipeline.New(
		pipeline.WithLogger(log),
		pipeline.WithMetrics(d.metrics),
		pipeline.WithMaxWorkers(d.file.Pipeline.MaxWorkers),
	)
	for _, s := range d.file.Pipeline.Stages {
		if err := p.AddWorker(s.Name, s.Capacity); err != nil {
			return jr, err
		}
	}
	if err := p.Start(ctx); err != nil {
		return jr, err
	}
	d.track(cfg.Name, p)

	for _, batch := range batches {
		if err := p.Put(ctx, batch); err != nil {
			_ = p.Stop(ctx)
			return jr, err
		}
		jr.Batches++
	}
	return jr, p.Stop(ctx)
}

// batches builds one work item per range, grouped threads at a time.
func (d *Driver) batches(b *builder, attrs job.Attributes, ranges []partition.Range, threads int) ([]pipeline.Batch, error) {
	stages := len(d.file.Pipeline.Stages)
	chunks := partition.Chunk(ranges, threads)
	out := make([]pipeline.Batch, 0, len(chunks))
	for _, chunk := range chunks {
		batch := make(pipeline.Batch, 0, len(chunk))
		for _, r := range chunk {
			set, err := b.set(attrs.Partition(r.Offset, r.Limit))
			if err != nil {
				return nil, err
			}
			chain := set.Chain()
			if len(chain) > stages {
				return nil, errors.Configurationf("job %s: chain of %d links needs %d stages, pipeline has %d",
					attrs.Name, len(chain), len(chain), stages)
			}
			batch = append(batch, pipeline.WorkItem{Chain: chain, Payload: r})
		}
		out = append(out, batch)
	}
	return out, nil
}

func (d *Driver) track(name string, p *pipeline.Pipeline) {
	d.mu.Lock()
	d.current, d.currentJob = p, name
	d.mu.Unlock()
}

func (d *Driver) finish(jr JobReport) {
	d.mu.Lock()
	d.done = append(d.done, jr)
	d.current, d.currentJob = nil, ""
	d.mu.Unlock()
}

// Status is a point-in-time view of the run.
type Status struct {
	Job      string                   `json:"job,omitempty"`
	State    string                   `json:"state"`
	Progress string                   `json:"progress"`
	Stages   []pipeline.StageProgress `json:"stages"`
	Done     []JobReport              `json:"done"`
}

// Status reports the running job and its stage queues.
func (d *Driver) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()
	st := Status{
		State:  "idle",
		Stages: []pipeline.StageProgress{},
		Done:   append([]JobReport{}, d.done...),
	}
	if d.current != nil {
		st.Job = d.currentJob
		st.State = d.current.State().String()
		st.Progress = d.current.Progress()
		st.Stages = d.current.Snapshot()
	}
	return st
}

// Health reports the health of every started connector.
func (d *Driver) Health(ctx context.Context) []component.Health {
	return d.components.HealthAll(ctx)
}

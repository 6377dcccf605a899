package pipeline

import (
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/observability"
)

// Option configures a Pipeline or a Stage.
type Option func(*options)

type options struct {
	log        *logger.Logger
	metrics    *observability.StageMetrics
	maxWorkers int
}

func newOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.GetGlobalLogger().WithComponent("pipeline")
	}
	return o
}

// WithLogger sets the logger stages report to.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

// WithMetrics records batch counts, durations and queue depth on m.
func WithMetrics(m *observability.StageMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMaxWorkers caps the number of items a stage runs concurrently.
// Zero, the default, runs every item of a batch at once.
func WithMaxWorkers(n int) Option {
	return func(o *options) { o.maxWorkers = n }
}

package csvfile

import (
	"context"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// OpAppend is the failure operation reported by the loader.
const OpAppend = "append"

// Loader appends records to the destination file.
type Loader struct {
	job.LoaderBase
}

// NewLoader creates a csv loader bound to destination.
func NewLoader(attrs job.Attributes, destination string) (job.Loader, error) {
	base, err := job.NewLoaderBase(attrs, destination)
	if err != nil {
		return nil, err
	}
	return &Loader{LoaderBase: base}, nil
}

// Load appends items. A failed append emits one failure carrying the
// whole item.
func (l *Loader) Load(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	records, err := job.Records(items)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpAppend, nil, items, err))
		return
	}
	f, err := job.Stream[*File](ctx, l.Destination)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpAppend, nil, records, err))
		return
	}
	if err := f.Append(records); err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpAppend, []string{f.Path()}, records, errors.WriteFailed(OpAppend, err)))
		return
	}
	l.Logger().Debug("rows appended", logger.Fields(logger.FieldItems, len(records), "path", f.Path()))
}

func (l *Loader) fail(chain pipeline.Chain, pool *pipeline.Pool, failure *pipeline.Failure) {
	log := l.Logger()
	log.Warn("append failed", logger.Fields(logger.FieldOperation, failure.Operation, logger.FieldError, failure.Error))
	if !job.Fail(chain, pool, failure) {
		log.Error("append failure has no error handler", logger.Fields("failure_id", failure.ID))
	}
}

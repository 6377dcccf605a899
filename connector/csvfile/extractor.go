package csvfile

import (
	"context"
	stderrors "errors"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// OpRead is the failure operation reported by the extractor.
const OpRead = "read"

var errWindowFull = stderrors.New("window full")

// Extractor reads one offset/limit window of the rows matching the job
// domain. Offsets count matching rows only, so Count and Extract agree.
type Extractor struct {
	job.ExtractorBase
}

// NewExtractor creates a csv extractor bound to source.
func NewExtractor(attrs job.Attributes, source string) (job.Extractor, error) {
	base, err := job.NewExtractorBase(attrs, source)
	if err != nil {
		return nil, err
	}
	return &Extractor{ExtractorBase: base}, nil
}

// Count returns the number of rows matching the job domain.
func (e *Extractor) Count(ctx context.Context) (int, error) {
	f, err := job.Stream[*File](ctx, e.Source)
	if err != nil {
		return 0, err
	}
	n := 0
	err = f.Scan(ctx, func(r job.Record) error {
		if e.Domain.Match(r) {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, errors.ConnectorFailed(e.Source.Name(), err)
	}
	return n, nil
}

// Extract emits the rows of the partition as one []job.Record item.
func (e *Extractor) Extract(ctx context.Context, chain pipeline.Chain, seed any, pool *pipeline.Pool) {
	records, err := e.read(ctx)
	if err != nil {
		var target []string
		if f, ok := e.file(ctx); ok {
			target = []string{f.Path()}
		}
		failure := pipeline.NewFailure(OpRead, target, seed, err)
		if !job.Fail(chain, pool, failure) {
			e.Logger().Error("extract failed", logger.ErrorFields(OpRead, err))
		}
		return
	}
	if len(records) == 0 {
		return
	}
	e.Logger().Debug("rows extracted", logger.Fields(
		logger.FieldItems, len(records), logger.FieldOffset, e.Offset, logger.FieldLimit, e.Limit,
	))
	pool.Append(chain, records)
}

func (e *Extractor) file(ctx context.Context) (*File, bool) {
	f, err := job.Stream[*File](ctx, e.Source)
	return f, err == nil
}

func (e *Extractor) read(ctx context.Context) ([]job.Record, error) {
	f, err := job.Stream[*File](ctx, e.Source)
	if err != nil {
		return nil, err
	}
	var records []job.Record
	seen := 0
	err = f.Scan(ctx, func(r job.Record) error {
		if !e.Domain.Match(r) {
			return nil
		}
		seen++
		if seen <= e.Offset {
			return nil
		}
		records = append(records, r)
		if e.Limit > 0 && len(records) == e.Limit {
			return errWindowFull
		}
		return nil
	})
	if err != nil && !stderrors.Is(err, errWindowFull) {
		return nil, err
	}
	return records, nil
}

package sqldb

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// ExtractorParams are the role params of the table extractor.
type ExtractorParams struct {
	Table   string   `mapstructure:"table"`
	Columns []string `mapstructure:"columns"`
	// OrderBy keeps partitions stable between Count and Extract.
	OrderBy string `mapstructure:"order_by"`
}

// Extractor reads one offset/limit window of a table.
type Extractor struct {
	job.ExtractorBase
	params ExtractorParams
}

// NewExtractor creates a table extractor bound to source.
func NewExtractor(attrs job.Attributes, source string) (job.Extractor, error) {
	base, err := job.NewExtractorBase(attrs, source)
	if err != nil {
		return nil, err
	}
	params := ExtractorParams{OrderBy: "rowid"}
	if err := attrs.Params.Decode(&params); err != nil {
		return nil, err
	}
	if params.Table == "" {
		return nil, errors.Configuration("sql extractor: table is required")
	}
	return &Extractor{ExtractorBase: base, params: params}, nil
}

// Count returns the number of rows matching the job domain.
func (e *Extractor) Count(ctx context.Context) (int, error) {
	db, err := job.Stream[*gorm.DB](ctx, e.Source)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := scoped(db, e.params.Table, e.Domain).Count(&n).Error; err != nil {
		return 0, errors.ConnectorFailed(e.Source.Name(), err)
	}
	return int(n), nil
}

// Extract emits the rows of the partition as one []job.Record item.
func (e *Extractor) Extract(ctx context.Context, chain pipeline.Chain, seed any, pool *pipeline.Pool) {
	records, err := e.read(ctx)
	if err != nil {
		failure := pipeline.NewFailure("select", []string{e.params.Table}, seed, err)
		if !job.Fail(chain, pool, failure) {
			e.Logger().Error("extract failed", logger.ErrorFields("select", err))
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

func (e *Extractor) read(ctx context.Context) ([]job.Record, error) {
	db, err := job.Stream[*gorm.DB](ctx, e.Source)
	if err != nil {
		return nil, err
	}
	q := scoped(db, e.params.Table, e.Domain)
	if len(e.params.Columns) > 0 {
		q = q.Select(e.params.Columns)
	}
	if e.params.OrderBy != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: e.params.OrderBy}})
	}
	if e.Offset > 0 {
		q = q.Offset(e.Offset)
	}
	if e.Limit > 0 {
		q = q.Limit(e.Limit)
	}

	var rows []map[string]any
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	records := make([]job.Record, len(rows))
	for i, r := range rows {
		records[i] = job.Record(r)
	}
	return records, nil
}

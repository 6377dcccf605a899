package sqldb

import (
	"context"
	"maps"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
	"github.com/kbukum/etlkit/resilience"
)

// Failure operations reported by the loader.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	// OpLookup is the keyed existence check that precedes an upsert.
	OpLookup = "lookup"
)

// LoaderParams are the role params of the table loader.
type LoaderParams struct {
	Table string `mapstructure:"table"`
	// PrimaryKeys switches the loader to keyed upsert.
	PrimaryKeys []string `mapstructure:"primary_keys"`
	BatchSize   int      `mapstructure:"batch_size"`
}

// Loader writes records to a table. Without primary keys it bulk inserts
// the whole item. With primary keys each record updates the matching row
// or is inserted when none matches.
type Loader struct {
	job.LoaderBase
	params LoaderParams
}

// NewLoader creates a table loader bound to destination.
func NewLoader(attrs job.Attributes, destination string) (job.Loader, error) {
	base, err := job.NewLoaderBase(attrs, destination)
	if err != nil {
		return nil, err
	}
	params := LoaderParams{BatchSize: 100}
	if err := attrs.Params.Decode(&params); err != nil {
		return nil, err
	}
	if params.Table == "" {
		return nil, errors.Configuration("sql loader: table is required")
	}
	return &Loader{LoaderBase: base, params: params}, nil
}

// Load writes items and emits one failure item per failed operation.
// Successful writes emit nothing.
func (l *Loader) Load(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	records, err := job.Records(items)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpInsert, []string{l.params.Table}, items, err))
		return
	}
	db, err := job.Stream[*gorm.DB](ctx, l.Destination)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpInsert, []string{l.params.Table}, records, err))
		return
	}

	if len(l.params.PrimaryKeys) == 0 {
		l.insert(ctx, db, chain, records, pool)
		return
	}
	for _, r := range records {
		l.upsert(ctx, db, chain, r, pool)
	}
}

func (l *Loader) insert(ctx context.Context, db *gorm.DB, chain pipeline.Chain, records []job.Record, pool *pipeline.Pool) {
	rows := make([]map[string]any, len(records))
	for i, r := range records {
		rows[i] = maps.Clone(r)
	}
	_, err := resilience.Retry(ctx, resilience.WriteRetryConfig(), func() (struct{}, error) {
		return struct{}{}, writeError(OpInsert, db.Table(l.params.Table).CreateInBatches(rows, l.params.BatchSize).Error)
	})
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpInsert, []string{l.params.Table}, records, err))
		return
	}
	l.Logger().Debug("rows inserted", logger.Fields(logger.FieldItems, len(records), "table", l.params.Table))
}

func (l *Loader) upsert(ctx context.Context, db *gorm.DB, chain pipeline.Chain, r job.Record, pool *pipeline.Pool) {
	where := make([]clause.Expression, 0, len(l.params.PrimaryKeys))
	for _, k := range l.params.PrimaryKeys {
		where = append(where, clause.Eq{Column: clause.Column{Name: k}, Value: r[k]})
	}
	targets := append([]string{l.params.Table}, r.Keys(l.params.PrimaryKeys)...)

	var op string
	_, err := resilience.Retry(ctx, resilience.WriteRetryConfig(), func() (struct{}, error) {
		op = OpLookup
		var n int64
		if err := db.Table(l.params.Table).Where(clause.And(where...)).Count(&n).Error; err != nil {
			return struct{}{}, writeError(op, err)
		}
		if n > 0 {
			op = OpUpdate
			return struct{}{}, writeError(op, db.Table(l.params.Table).Where(clause.And(where...)).Updates(map[string]any(r.Clone())).Error)
		}
		op = OpInsert
		return struct{}{}, writeError(op, db.Table(l.params.Table).Create(map[string]any(r.Clone())).Error)
	})
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(op, targets, r, err))
	}
}

func (l *Loader) fail(chain pipeline.Chain, pool *pipeline.Pool, failure *pipeline.Failure) {
	log := l.Logger()
	log.Warn("write failed", logger.Fields(
		logger.FieldOperation, failure.Operation,
		"targets", failure.Targets,
		logger.FieldError, failure.Error,
	))
	if !job.Fail(chain, pool, failure) {
		log.Error("write failure has no error handler", logger.Fields("failure_id", failure.ID))
	}
}

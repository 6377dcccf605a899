package redisdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// Failure operations reported by the hash loader.
const (
	OpHSet   = "hset"
	OpExpire = "expire"
)

// HashParams are the role params of the hash loader.
type HashParams struct {
	// KeyPrefix is prepended to every key, separated by ":".
	KeyPrefix string `mapstructure:"key_prefix"`
	// KeyFields build the key suffix from record values, joined by ":".
	KeyFields []string `mapstructure:"key_fields"`
	// TTL expires written hashes. Zero keeps them.
	TTL time.Duration `mapstructure:"ttl"`
}

// HashLoader writes each record as a hash. All records of an item go
// through one pipelined round trip. Records whose commands fail are emitted
// as failures, one per record.
type HashLoader struct {
	job.LoaderBase
	params HashParams
}

// NewHashLoader creates a hash loader bound to destination.
func NewHashLoader(attrs job.Attributes, destination string) (job.Loader, error) {
	base, err := job.NewLoaderBase(attrs, destination)
	if err != nil {
		return nil, err
	}
	var params HashParams
	if err := attrs.Params.Decode(&params); err != nil {
		return nil, err
	}
	if len(params.KeyFields) == 0 {
		return nil, errors.Configuration("redis_hash loader: key_fields is required")
	}
	return &HashLoader{LoaderBase: base, params: params}, nil
}

// Key returns the hash key of r.
func (l *HashLoader) Key(r job.Record) string {
	parts := r.Keys(l.params.KeyFields)
	if l.params.KeyPrefix != "" {
		parts = append([]string{l.params.KeyPrefix}, parts...)
	}
	return strings.Join(parts, ":")
}

// Load writes items and emits a failure for every record that failed.
func (l *HashLoader) Load(ctx context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	records, err := job.Records(items)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpHSet, nil, items, err))
		return
	}
	rdb, err := job.Stream[*goredis.Client](ctx, l.Destination)
	if err != nil {
		l.fail(chain, pool, pipeline.NewFailure(OpHSet, nil, records, err))
		return
	}

	keys := make([]string, len(records))
	sets := make([]*goredis.IntCmd, len(records))
	expires := make([]*goredis.BoolCmd, len(records))
	// Per-command errors are checked below; the pipeline error only
	// repeats the first of them.
	_, _ = rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, r := range records {
			keys[i] = l.Key(r)
			sets[i] = p.HSet(ctx, keys[i], fieldValues(r))
			if l.params.TTL > 0 {
				expires[i] = p.Expire(ctx, keys[i], l.params.TTL)
			}
		}
		return nil
	})

	written := 0
	for i, cmd := range sets {
		if err := cmd.Err(); err != nil {
			l.fail(chain, pool, pipeline.NewFailure(OpHSet, []string{keys[i]}, records[i], errors.WriteFailed(OpHSet, err)))
			continue
		}
		if exp := expires[i]; exp != nil && exp.Err() != nil {
			l.fail(chain, pool, pipeline.NewFailure(OpExpire, []string{keys[i]}, records[i], errors.WriteFailed(OpExpire, exp.Err())))
			continue
		}
		written++
	}
	l.Logger().Debug("hashes written", logger.Fields(logger.FieldItems, written))
}

func (l *HashLoader) fail(chain pipeline.Chain, pool *pipeline.Pool, failure *pipeline.Failure) {
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

// fieldValues flattens a record into HSET arguments. Scalars are written
// as text and composite values as JSON.
func fieldValues(r job.Record) []any {
	args := make([]any, 0, len(r)*2)
	for _, k := range r.Columns() {
		args = append(args, k, encode(r[k]))
	}
	return args
}

func encode(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case fmt.Stringer:
		return x.String()
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(x)
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(b)
	}
}

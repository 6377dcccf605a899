package job

import (
	"context"

	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

// TypeMapping is the registered name of the field mapping transformer.
const TypeMapping = "mapping"

func init() {
	defaultRegistry.RegisterTransformer(TypeMapping, NewMapping)
}

// Mapping renames source fields to destination fields. With the "fields"
// param unset, records pass through unchanged. Fields absent from the
// mapping are dropped unless "keep_unmapped" is true.
type Mapping struct {
	TransformerBase
	fields       map[string]string
	keepUnmapped bool
}

// NewMapping creates a mapping transformer from attrs.Params.
func NewMapping(attrs Attributes, source, destination string) (Transformer, error) {
	base, err := NewTransformerBase(attrs, source, destination)
	if err != nil {
		return nil, err
	}
	return &Mapping{
		TransformerBase: base,
		fields:          attrs.Params.StringMap("fields"),
		keepUnmapped:    attrs.Params.Bool("keep_unmapped", false),
	}, nil
}

// Transform maps every record in items and emits them as one item.
func (m *Mapping) Transform(_ context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	records, err := Records(items)
	if err != nil {
		failure := pipeline.NewFailure("transform", []string{m.Destination.Name()}, items, err)
		if !Fail(chain, pool, failure) {
			m.Logger().Error("transform failed", logger.ErrorFields("transform", err))
		}
		return
	}

	out := make([]Record, 0, len(records))
	for _, r := range records {
		out = append(out, m.apply(r))
	}
	pool.Append(chain, out)
}

func (m *Mapping) apply(r Record) Record {
	if len(m.fields) == 0 {
		return r.Clone()
	}
	var out Record
	if m.keepUnmapped {
		out = r.Clone()
		for src := range m.fields {
			delete(out, src)
		}
	} else {
		out = make(Record, len(m.fields))
	}
	for src, dst := range m.fields {
		if v, ok := r[src]; ok {
			out[dst] = v
		}
	}
	return out
}

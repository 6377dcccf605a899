package job

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/pipeline"
)

func TestParams_Accessors(t *testing.T) {
	p := Params{
		"path":    "./in.csv",
		"size":    uint64(50),
		"ratio":   2.9,
		"text":    "12",
		"header":  "true",
		"keys":    []any{"id", 2},
		"single":  "id",
		"fields":  map[string]any{"Name": "name"},
		"nothing": nil,
	}
	assert.Equal(t, "./in.csv", p.String("path", ""))
	assert.Equal(t, "50", p.String("size", ""))
	assert.Equal(t, "x", p.String("nothing", "x"))
	assert.Equal(t, 50, p.Int("size", 0))
	assert.Equal(t, 2, p.Int("ratio", 0))
	assert.Equal(t, 12, p.Int("text", 0))
	assert.Equal(t, 7, p.Int("missing", 7))
	assert.True(t, p.Bool("header", false))
	assert.Equal(t, []string{"id", "2"}, p.Strings("keys"))
	assert.Equal(t, []string{"id"}, p.Strings("single"))
	assert.Nil(t, p.Strings("missing"))
	assert.Equal(t, map[string]string{"Name": "name"}, p.StringMap("fields"))
}

func TestParams_Decode(t *testing.T) {
	var out struct {
		Table   string        `mapstructure:"table"`
		Batch   int           `mapstructure:"batch_size"`
		Keys    []string      `mapstructure:"primary_keys"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	p := Params{"table": "partners", "batch_size": "100", "primary_keys": "id,code", "timeout": "2s"}
	require.NoError(t, p.Decode(&out))
	assert.Equal(t, "partners", out.Table)
	assert.Equal(t, 100, out.Batch)
	assert.Equal(t, []string{"id", "code"}, out.Keys)
	assert.Equal(t, 2*time.Second, out.Timeout)

	var bad struct {
		Batch int `mapstructure:"batch_size"`
	}
	err := Params{"batch_size": "many"}.Decode(&bad)
	assert.True(t, errors.IsConfiguration(err))
}

func TestParams_Merge(t *testing.T) {
	base := Params{"a": 1, "b": 2}
	merged := base.Merge(Params{"b": 3})
	assert.Equal(t, Params{"a": 1, "b": 3}, merged)
	assert.Equal(t, 2, base["b"])
}

func TestMapping_Transform(t *testing.T) {
	attrs := testAttrs()
	attrs.Params = Params{"fields": map[string]any{"Name": "name", "Code": "code"}}
	tr, err := NewMapping(attrs, "src", "dst")
	require.NoError(t, err)

	pool := pipeline.NewPool()
	tr.Transform(context.Background(), nil, []Record{{"Name": "a", "Code": 1, "Extra": true}}, pool)
	require.Equal(t, 1, pool.Len())
	out := pool.Batch()[0].Payload.([]Record)
	assert.Equal(t, []Record{{"name": "a", "code": 1}}, out)

	attrs.Params["keep_unmapped"] = true
	tr, err = NewMapping(attrs, "src", "dst")
	require.NoError(t, err)
	pool = pipeline.NewPool()
	tr.Transform(context.Background(), nil, Record{"Name": "a", "Extra": true}, pool)
	assert.Equal(t, []Record{{"name": "a", "Extra": true}}, pool.Batch()[0].Payload)
}

func TestMapping_BadPayloadRoutedToErrorHandler(t *testing.T) {
	tr, err := NewMapping(testAttrs(), "src", "dst")
	require.NoError(t, err)

	var got any
	handler := func(_ context.Context, _ pipeline.Chain, p any, _ *pipeline.Pool) { got = p }
	pool := pipeline.NewPool()
	tr.Transform(context.Background(), pipeline.Chain{handler}, 42, pool)
	require.Equal(t, 1, pool.Len())
	item := pool.Batch()[0]
	item.Chain[0](context.Background(), nil, item.Payload, nil)
	f, ok := got.(*pipeline.Failure)
	require.True(t, ok)
	assert.Equal(t, "transform", f.Operation)
	assert.Equal(t, []string{"dst"}, f.Targets)
}

package job

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
)

func staticConnector(stream any) Connector {
	return ConnectorFunc(func(context.Context) (any, error) { return stream, nil })
}

func testAttrs() Attributes {
	return Attributes{
		Name: "partners",
		Context: Context{
			"src":  staticConnector([]Record{{"name": "a"}}),
			"dst":  staticConnector("db"),
			"meta": "not a connector",
		},
	}
}

func TestBindings_MissingConnector(t *testing.T) {
	attrs := testAttrs()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"extractor without source", func() error { _, err := NewExtractorBase(attrs, ""); return err }},
		{"extractor unknown source", func() error { _, err := NewExtractorBase(attrs, "nope"); return err }},
		{"extractor non connector", func() error { _, err := NewExtractorBase(attrs, "meta"); return err }},
		{"loader without destination", func() error { _, err := NewLoaderBase(attrs, ""); return err }},
		{"transformer without destination", func() error { _, err := NewTransformerBase(attrs, "src", ""); return err }},
		{"transformer without source", func() error { _, err := NewTransformerBase(attrs, "", "dst"); return err }},
		{"error handler unknown destination", func() error { _, err := NewErrorHandlerBase(attrs, "src", "x"); return err }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.fn()
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
			assert.True(t, errors.IsCode(err, errors.ErrCodeMissingConnector))
		})
	}
}

func TestBindings_Valid(t *testing.T) {
	attrs := testAttrs()

	ex, err := NewExtractorBase(attrs, "src")
	require.NoError(t, err)
	assert.Equal(t, "src", ex.Source.Name())
	assert.Equal(t, "partners", ex.Name)

	tr, err := NewTransformerBase(attrs, "src", "dst")
	require.NoError(t, err)
	assert.Equal(t, "dst", tr.Destination.Name())

	records, err := Stream[[]Record](context.Background(), ex.Source)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	_, err = Stream[int](context.Background(), ex.Source)
	assert.True(t, errors.IsConfiguration(err))
}

func TestBinding_OpenRetriesConnectorFailures(t *testing.T) {
	var calls atomic.Int32
	flaky := ConnectorFunc(func(context.Context) (any, error) {
		if calls.Add(1) < 3 {
			return nil, fmt.Errorf("connection refused")
		}
		return "ok", nil
	})
	src, err := BindSource(Context{"db": flaky}, "db")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	stream, err := src.Open(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", stream)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBinding_OpenDoesNotRetryConfigurationErrors(t *testing.T) {
	var calls atomic.Int32
	bad := ConnectorFunc(func(context.Context) (any, error) {
		calls.Add(1)
		return nil, errors.Configuration("bad dsn")
	})
	dst, err := BindDestination(Context{"db": bad}, "db")
	require.NoError(t, err)

	_, err = dst.Open(context.Background())
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, int32(1), calls.Load())
}

type fakeRoles struct{ calls []string }

func (f *fakeRoles) Extract(_ context.Context, chain pipeline.Chain, seed any, pool *pipeline.Pool) {
	f.calls = append(f.calls, "extract")
	pool.Append(chain, seed)
}
func (f *fakeRoles) Count(context.Context) (int, error) { return 0, nil }
func (f *fakeRoles) Load(_ context.Context, chain pipeline.Chain, items any, pool *pipeline.Pool) {
	f.calls = append(f.calls, "load")
	pool.Append(chain, items)
}
func (f *fakeRoles) HandleError(context.Context, pipeline.Chain, any, *pipeline.Pool) {
	f.calls = append(f.calls, "error")
}

func TestSet_ChainFillsMissingRoles(t *testing.T) {
	roles := &fakeRoles{}
	chain := Set{Extractor: roles, Loader: roles, ErrorHandler: roles}.Chain()
	require.Len(t, chain, 4)

	ctx := context.Background()
	payload := any("seed")
	for len(chain) > 0 {
		pool := pipeline.NewPool()
		step, tail := chain.Head()
		step(ctx, tail, payload, pool)
		if pool.Len() == 0 {
			break
		}
		item := pool.Batch()[0]
		chain, payload = item.Chain, item.Payload
	}
	assert.Equal(t, []string{"extract", "load", "error"}, roles.calls)

	assert.Len(t, Set{Extractor: roles}.Chain(), 3)
}

type splitExtractor struct{}

func (splitExtractor) Count(context.Context) (int, error) { return 1, nil }
func (splitExtractor) Extract(_ context.Context, chain pipeline.Chain, _ any, pool *pipeline.Pool) {
	pool.Append(chain, []Record{{"id": 1}})
	Fail(chain, pool, pipeline.NewFailure("extract", []string{"src"}, nil, assert.AnError))
}

type recordingHandler struct {
	mu       sync.Mutex
	payloads []any
}

func (h *recordingHandler) HandleError(_ context.Context, _ pipeline.Chain, payload any, _ *pipeline.Pool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.payloads = append(h.payloads, payload)
}

func TestSet_ChainWithoutLoaderOnlyRoutesFailures(t *testing.T) {
	handler := &recordingHandler{}
	chain := Set{Extractor: splitExtractor{}, ErrorHandler: handler}.Chain()
	require.Len(t, chain, 4)

	ctx := context.Background()
	p := pipeline.New(pipeline.WithLogger(logger.NewNop()))
	for _, name := range []string{"Extract", "Transform", "Load", "Error"} {
		require.NoError(t, p.AddWorker(name, 1))
	}
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.Put(ctx, pipeline.Batch{{Chain: chain, Payload: "seed"}}))
	require.NoError(t, p.Stop(ctx))

	handler.mu.Lock()
	defer handler.mu.Unlock()
	require.Len(t, handler.payloads, 1)
	failure, ok := handler.payloads[0].(*pipeline.Failure)
	require.True(t, ok, "handler received %T", handler.payloads[0])
	assert.Equal(t, "extract", failure.Operation)
}

func TestFail(t *testing.T) {
	pool := pipeline.NewPool()
	failure := pipeline.NewFailure("insert", []string{"t"}, nil, assert.AnError)
	assert.False(t, Fail(nil, pool, failure))
	assert.Zero(t, pool.Len())

	var handled any
	handler := func(_ context.Context, _ pipeline.Chain, p any, _ *pipeline.Pool) { handled = p }
	assert.True(t, Fail(pipeline.Chain{pipeline.Forward, handler}, pool, failure))
	require.Equal(t, 1, pool.Len())
	item := pool.Batch()[0]
	require.Len(t, item.Chain, 2)
	item.Chain[1](context.Background(), nil, item.Payload, nil)
	assert.Same(t, failure, handled)
}

func TestAttributes(t *testing.T) {
	attrs := testAttrs()
	part := attrs.Partition(50, 25)
	assert.Equal(t, 50, part.Offset)
	assert.Equal(t, 25, part.Limit)
	assert.Zero(t, attrs.Offset)
	assert.NotNil(t, attrs.Logger())

	ctx := attrs.Context.With("job", "partners")
	assert.Equal(t, "partners", ctx["job"])
	_, ok := attrs.Context["job"]
	assert.False(t, ok)
}

func TestRecords(t *testing.T) {
	rs, err := Records(Record{"a": 1})
	require.NoError(t, err)
	assert.Len(t, rs, 1)

	rs, err = Records([]map[string]any{{"a": 1}, {"a": 2}})
	require.NoError(t, err)
	assert.Len(t, rs, 2)

	_, err = Records(42)
	assert.Error(t, err)

	r := Record{"b": 2, "a": 1}
	assert.Equal(t, []string{"a", "b"}, r.Columns())
	assert.Equal(t, []string{"1", "<nil>"}, r.Keys([]string{"a", "z"}))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, err := r.Extractor("csv")
	assert.True(t, errors.IsConfiguration(err))

	r.RegisterConnector("csv", func(context.Context, string, Params, *logger.Logger) (Connector, error) {
		return staticConnector(nil), nil
	})
	f, err := r.Connector("csv")
	require.NoError(t, err)
	assert.NotNil(t, f)
	assert.Equal(t, []string{"csv"}, r.Types())

	tf, err := DefaultRegistry().Transformer(TypeMapping)
	require.NoError(t, err)
	assert.NotNil(t, tf)
}

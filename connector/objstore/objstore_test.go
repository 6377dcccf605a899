package objstore

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/errors"
	"github.com/kbukum/etlkit/job"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/pipeline"
	"github.com/kbukum/etlkit/storage"
	_ "github.com/kbukum/etlkit/storage/local"
)

func newStarted(t *testing.T, dir string) *Connector {
	t.Helper()
	c, err := NewConnectorFactory(context.Background(), "errs", job.Params{"provider": "local", "base_path": dir}, logger.NewNop())
	require.NoError(t, err)
	conn := c.(*Connector)
	require.NoError(t, conn.Start(context.Background()))
	t.Cleanup(func() { _ = conn.Stop(context.Background()) })
	return conn
}

func newHandler(t *testing.T, conn *Connector, params job.Params, log *logger.Logger) *FileErrorHandler {
	t.Helper()
	src := job.ConnectorFunc(func(context.Context) (any, error) { return "src", nil })
	h, err := NewFileErrorHandler(job.Attributes{
		Name:    "partners",
		Context: job.Context{"s_csv": src, "errs": conn},
		Params:  params,
		Offset:  50,
		Limit:   50,
		Log:     log,
	}, "s_csv", "errs")
	require.NoError(t, err)
	fh := h.(*FileErrorHandler)
	fh.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 5, time.UTC) }
	return fh
}

func TestConnector_Lifecycle(t *testing.T) {
	ctx := context.Background()
	c, err := NewConnector("errs", storage.Config{BasePath: t.TempDir()}, logger.NewNop())
	require.NoError(t, err)

	_, err = c.Get(ctx)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConnectorFailed))

	require.NoError(t, c.Start(ctx))
	s, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Implements(t, (*storage.Storage)(nil), s)
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.Equal(t, TypeStorage, c.Describe().Type)
	require.NoError(t, c.Stop(ctx))
}

func TestConnector_InvalidConfig(t *testing.T) {
	_, err := NewConnectorFactory(context.Background(), "errs", job.Params{"provider": "s3"}, logger.NewNop())
	assert.True(t, errors.IsConfiguration(err))

	_, err = NewConnector("errs", storage.Config{Provider: "ftp"}, logger.NewNop())
	assert.True(t, errors.IsConfiguration(err))
}

func TestFileErrorHandler_StoresFailure(t *testing.T) {
	dir := t.TempDir()
	conn := newStarted(t, dir)
	h := newHandler(t, conn, nil, logger.NewNop())

	f := pipeline.NewFailure("insert", []string{"partners"}, []job.Record{{"name": "Acme"}}, assert.AnError)
	f.Stage = "Load"
	h.HandleError(context.Background(), nil, f, pipeline.NewPool())

	key := h.Key(f.ID, h.now())
	assert.Equal(t, "partners/20260301T120000.000000005Z-"+f.ID+".json", key)
	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(key)))
	require.NoError(t, err)

	var doc struct {
		Document
		Failure pipeline.Failure `json:"failure"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "partners", doc.Job)
	assert.Equal(t, "s_csv", doc.Source)
	assert.Equal(t, "errs", doc.Destination)
	assert.Equal(t, 50, doc.Offset)
	assert.Equal(t, f.ID, doc.Failure.ID)
	assert.Equal(t, "Load", doc.Failure.Stage)
	assert.Equal(t, assert.AnError.Error(), doc.Failure.Error)
}

func TestFileErrorHandler_DirAndArbitraryPayload(t *testing.T) {
	ctx := context.Background()
	conn := newStarted(t, t.TempDir())
	h := newHandler(t, conn, job.Params{"dir": "rejects/partners", "indent": true}, logger.NewNop())

	h.HandleError(ctx, nil, map[string]any{"reason": "odd"}, pipeline.NewPool())

	s, err := conn.Get(ctx)
	require.NoError(t, err)
	files, err := s.(storage.Storage).List(ctx, "rejects/partners/")
	require.NoError(t, err)
	require.Len(t, files, 1)

	rc, err := s.(storage.Storage).Download(ctx, files[0].Path)
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Contains(t, string(body), "\n  \"failure\": {\n    \"reason\": \"odd\"")
}

func TestFileErrorHandler_LogsWhenStorageUnavailable(t *testing.T) {
	conn := newStarted(t, t.TempDir())
	var buf bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "etl", &buf)
	h := newHandler(t, conn, nil, log)
	require.NoError(t, conn.Stop(context.Background()))

	f := pipeline.NewFailure("insert", nil, nil, assert.AnError)
	h.HandleError(context.Background(), nil, f, pipeline.NewPool())
	assert.Contains(t, buf.String(), "failure not stored")
	assert.Contains(t, buf.String(), f.ID)
}

func TestFileErrorHandler_Bindings(t *testing.T) {
	conn := newStarted(t, t.TempDir())
	_, err := NewFileErrorHandler(job.Attributes{Context: job.Context{"errs": conn}}, "missing", "errs")
	assert.True(t, errors.IsCode(err, errors.ErrCodeMissingConnector))
}

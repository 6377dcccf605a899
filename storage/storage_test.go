package storage_test

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/etlkit/component"
	"github.com/kbukum/etlkit/logger"
	"github.com/kbukum/etlkit/storage"
	_ "github.com/kbukum/etlkit/storage/local"
)

func TestConfigDefaultsAndValidate(t *testing.T) {
	cfg := storage.Config{}
	cfg.ApplyDefaults()
	assert.Equal(t, storage.ProviderLocal, cfg.Provider)
	assert.Equal(t, storage.DefaultBasePath, cfg.BasePath)
	assert.NoError(t, cfg.Validate())

	s3 := storage.Config{Provider: storage.ProviderS3}
	s3.ApplyDefaults()
	assert.Equal(t, storage.DefaultRegion, s3.Region)
	assert.ErrorContains(t, s3.Validate(), "bucket is required")

	bad := storage.Config{Provider: "ftp"}
	assert.ErrorContains(t, bad.Validate(), "unsupported provider")
}

func TestNewUnregisteredProvider(t *testing.T) {
	_, err := storage.New(context.Background(), storage.Config{Provider: storage.ProviderS3, Bucket: "b"}, logger.NewNop())
	assert.ErrorContains(t, err, "not registered")
}

func TestNewWithPrefix(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := storage.New(ctx, storage.Config{BasePath: dir, Prefix: "run-1"}, logger.NewNop())
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "partners/a.json", bytes.NewReader([]byte(`{}`))))

	ok, err := s.Exists(ctx, "partners/a.json")
	require.NoError(t, err)
	assert.True(t, ok)

	files, err := s.List(ctx, "partners/")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "partners/a.json", files[0].Path)

	rc, err := s.Download(ctx, "partners/a.json")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "{}", string(data))

	raw, err := storage.New(ctx, storage.Config{BasePath: dir}, logger.NewNop())
	require.NoError(t, err)
	ok, _ = raw.Exists(ctx, "run-1/partners/a.json")
	assert.True(t, ok, "prefix becomes a key prefix in the backend")
}

func TestComponentLifecycle(t *testing.T) {
	ctx := context.Background()
	c := storage.NewComponent("errs", storage.Config{BasePath: t.TempDir()}, logger.NewNop())

	assert.Equal(t, "errs", c.Name())
	assert.Nil(t, c.Storage())
	assert.Equal(t, component.StatusUnhealthy, c.Health(ctx).Status)

	require.NoError(t, c.Start(ctx))
	assert.NotNil(t, c.Storage())
	assert.Equal(t, component.StatusHealthy, c.Health(ctx).Status)
	assert.Contains(t, c.Describe().Details, "provider=local")

	require.NoError(t, c.Stop(ctx))
	assert.Nil(t, c.Storage())
}

package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Upload(ctx, "jobs/partners/1.json", strings.NewReader("one")))
	require.NoError(t, s.Upload(ctx, "jobs/partners/2.json", strings.NewReader("two")))
	require.NoError(t, s.Upload(ctx, "jobs/users/1.json", strings.NewReader("three")))

	files, err := s.List(ctx, "jobs/partners/")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "jobs/partners/1.json", files[0].Path)
	assert.Equal(t, int64(3), files[0].Size)

	rc, err := s.Download(ctx, "jobs/users/1.json")
	require.NoError(t, err)
	data, _ := io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "three", string(data))

	require.NoError(t, s.Delete(ctx, "jobs/users/1.json"))
	require.NoError(t, s.Delete(ctx, "jobs/users/1.json"), "deleting a missing file is not an error")
	ok, err := s.Exists(ctx, "jobs/users/1.json")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUploadLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewStorage(dir)
	require.NoError(t, err)
	require.NoError(t, s.Upload(context.Background(), "a.json", strings.NewReader("x")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.json", entries[0].Name())
}

func TestRejectsEscapingPaths(t *testing.T) {
	s, err := NewStorage(filepath.Join(t.TempDir(), "base"))
	require.NoError(t, err)
	err = s.Upload(context.Background(), "../outside.json", strings.NewReader("x"))
	assert.ErrorContains(t, err, "escapes base directory")
}

func TestDownloadMissing(t *testing.T) {
	s, err := NewStorage(t.TempDir())
	require.NoError(t, err)
	_, err = s.Download(context.Background(), "nope.json")
	assert.ErrorContains(t, err, "file not found")
}

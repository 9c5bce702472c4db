package fs_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/howto/pkg/howto/storage/fs"
)

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestNewCreatesBaseDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "blobs")

	_, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestUploadDownload(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	err = backend.Upload(ctx, "howtos/abc/cover.jpg", strings.NewReader("image bytes"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "howtos/abc/cover.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

func TestDownloadMissing(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)

	_, err = backend.Download(context.Background(), "nope")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("data")))
	require.NoError(t, backend.Delete(ctx, "key"))

	_, err = backend.Download(ctx, "key")
	assert.Error(t, err)
}

func TestGetDownloadURL(t *testing.T) {
	ctx := context.Background()

	t.Run("with prefix", func(t *testing.T) {
		backend, err := fs.New(fs.Config{
			BaseDir:   t.TempDir(),
			URLPrefix: "https://cdn.example.com/files",
		})
		require.NoError(t, err)

		u, err := backend.GetDownloadURL(ctx, "howtos/abc/cover.jpg", "my cover.jpg")
		require.NoError(t, err)
		assert.Equal(t, "https://cdn.example.com/files/howtos/abc/cover.jpg?filename=my+cover.jpg", u)
	})

	t.Run("without prefix falls back to file scheme", func(t *testing.T) {
		dir := t.TempDir()
		backend, err := fs.New(fs.Config{BaseDir: dir})
		require.NoError(t, err)

		u, err := backend.GetDownloadURL(ctx, "key", "")
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.Join(dir, "key"), u)
	})
}

func TestGetObjectMeta(t *testing.T) {
	backend, err := fs.New(fs.Config{BaseDir: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("hello world")))

	meta, err := backend.GetObjectMeta(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, int64(11), meta.Size)
	assert.NotEmpty(t, meta.ContentType)

	_, err = backend.GetObjectMeta(ctx, "missing")
	assert.Error(t, err)
}

package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/howto/pkg/howto/storage/memory"
)

func TestUploadDownload(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	err := backend.Upload(ctx, "howtos/abc/cover.jpg", strings.NewReader("image bytes"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "howtos/abc/cover.jpg")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "image bytes", string(data))
}

func TestDownloadMissing(t *testing.T) {
	backend := memory.New()

	_, err := backend.Download(context.Background(), "nope")
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("data")))
	require.NoError(t, backend.Delete(ctx, "key"))

	_, err := backend.Download(ctx, "key")
	assert.Error(t, err)

	assert.Error(t, backend.Delete(ctx, "key"), "deleting a missing object errors")
}

func TestGetDownloadURL(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "howtos/abc/cover.jpg", strings.NewReader("data")))

	u, err := backend.GetDownloadURL(ctx, "howtos/abc/cover.jpg", "cover.jpg")
	require.NoError(t, err)
	assert.Equal(t, "memory://howtos/abc/cover.jpg", u)

	_, err = backend.GetDownloadURL(ctx, "missing", "")
	assert.Error(t, err)
}

func TestGetObjectMeta(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("hello world")))

	meta, err := backend.GetObjectMeta(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, "key", meta.Key)
	assert.Equal(t, int64(11), meta.Size)
	assert.NotEmpty(t, meta.ContentType)
	assert.False(t, meta.UpdatedAt.IsZero())
}

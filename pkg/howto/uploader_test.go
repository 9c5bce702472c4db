package howto_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/makerhub/howto/pkg/howto"
	memorystorage "github.com/makerhub/howto/pkg/howto/storage/memory"
)

func TestUploadOne(t *testing.T) {
	store := memorystorage.New()
	uploader := howto.NewBlobUploader(store)
	ctx := context.Background()
	recordID := uuid.New()

	t.Run("uploads pending ref", func(t *testing.T) {
		ref, err := uploader.UploadOne(ctx, &howto.MediaRef{
			Name:    "cover.jpg",
			Type:    "image/jpeg",
			Content: []byte("jpeg bytes"),
		}, howto.CollectionHowtos, recordID)

		require.NoError(t, err)
		require.NotNil(t, ref)
		assert.True(t, ref.Stored())
		assert.Equal(t, "cover.jpg", ref.Name)
		assert.Equal(t, int64(len("jpeg bytes")), ref.Size)
		assert.NotEmpty(t, ref.FullPath)

		// The bytes are retrievable under the returned key.
		rc, err := store.Download(ctx, ref.FullPath)
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, []byte("jpeg bytes"), data)
	})

	t.Run("stored ref passes through unchanged", func(t *testing.T) {
		stored := &howto.MediaRef{
			Name:        "existing.png",
			DownloadURL: "https://cdn.example.com/existing.png",
		}

		ref, err := uploader.UploadOne(ctx, stored, howto.CollectionHowtos, recordID)
		require.NoError(t, err)
		assert.Same(t, stored, ref)
	})

	t.Run("nil ref stays nil", func(t *testing.T) {
		ref, err := uploader.UploadOne(ctx, nil, howto.CollectionHowtos, recordID)
		require.NoError(t, err)
		assert.Nil(t, ref)
	})

	t.Run("pending ref without bytes fails", func(t *testing.T) {
		_, err := uploader.UploadOne(ctx, &howto.MediaRef{Name: "empty.bin"}, howto.CollectionHowtos, recordID)
		require.Error(t, err)

		var mediaErr *howto.MediaError
		require.ErrorAs(t, err, &mediaErr)
		assert.Equal(t, "upload", mediaErr.Op)
	})
}

func TestUploadBatchPreservesSlots(t *testing.T) {
	store := memorystorage.New()
	uploader := howto.NewBlobUploader(store)
	ctx := context.Background()

	refs := []*howto.MediaRef{
		{Name: "a.png", Content: []byte("a")},
		nil,
		{Name: "b.png", Content: []byte("b")},
	}

	out, err := uploader.UploadBatch(ctx, refs, howto.CollectionHowtos, uuid.New())
	require.NoError(t, err)
	require.Len(t, out, 3)

	assert.True(t, out[0].Stored())
	assert.Nil(t, out[1], "absent slot must stay absent, not shift")
	assert.True(t, out[2].Stored())
	assert.Equal(t, "a.png", out[0].Name)
	assert.Equal(t, "b.png", out[2].Name)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "unnamed", howto.SanitizeFilename(""))
	assert.Equal(t, "my_file.png", howto.SanitizeFilename("my file.png"))
	assert.Equal(t, "a-b_c.txt", howto.SanitizeFilename("a-b/c.txt"))
}

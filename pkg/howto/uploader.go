package howto

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// BlobUploader implements MediaUploader over a BlobStore, keying objects by
// collection and record id.
type BlobUploader struct {
	store BlobStore
	now   func() time.Time
}

// NewBlobUploader creates a MediaUploader backed by the given blob store.
func NewBlobUploader(store BlobStore) *BlobUploader {
	return &BlobUploader{store: store, now: time.Now}
}

var reIllegalFilenameChars = regexp.MustCompile(`[^\w\-.]`)

// SanitizeFilename replaces characters that are unsafe in object keys.
func SanitizeFilename(filename string) string {
	if filename == "" {
		return "unnamed"
	}
	return reIllegalFilenameChars.ReplaceAllString(filename, "_")
}

func objectKey(collection string, recordID uuid.UUID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", collection, recordID, SanitizeFilename(filename))
}

// UploadOne uploads a single pending ref. Stored refs pass through
// unchanged so re-submitting an edit never re-uploads persisted media.
func (u *BlobUploader) UploadOne(ctx context.Context, ref *MediaRef, collection string, recordID uuid.UUID) (*MediaRef, error) {
	if ref == nil {
		return nil, nil
	}
	if ref.Stored() {
		return ref, nil
	}
	if len(ref.Content) == 0 {
		return nil, &MediaError{Name: ref.Name, Op: "upload", Err: fmt.Errorf("no content bytes provided")}
	}

	key := objectKey(collection, recordID, ref.Name)
	if err := u.store.Upload(ctx, key, bytes.NewReader(ref.Content)); err != nil {
		return nil, &MediaError{Name: ref.Name, Op: "upload", Err: err}
	}

	url, err := u.store.GetDownloadURL(ctx, key, ref.Name)
	if err != nil {
		return nil, &MediaError{Name: ref.Name, Op: "get_download_url", Err: err}
	}

	return &MediaRef{
		Name:        ref.Name,
		Type:        ref.Type,
		Size:        int64(len(ref.Content)),
		DownloadURL: url,
		FullPath:    key,
		TimeCreated: u.now().UTC(),
	}, nil
}

// UploadBatch uploads the refs concurrently, preserving positional slots.
// Nil slots stay nil. The first failure is returned after all in-flight
// uploads finish.
func (u *BlobUploader) UploadBatch(ctx context.Context, refs []*MediaRef, collection string, recordID uuid.UUID) ([]*MediaRef, error) {
	out := make([]*MediaRef, len(refs))
	errs := make([]error, len(refs))

	var wg sync.WaitGroup
	for i, ref := range refs {
		if ref == nil {
			continue
		}
		wg.Add(1)
		go func(i int, ref *MediaRef) {
			defer wg.Done()
			out[i], errs[i] = u.UploadOne(ctx, ref, collection, recordID)
		}(i, ref)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

package howto

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// ContentStore is the durable keyed storage this service writes how-to
// records through. Implementations decode persisted bytes at this boundary
// and fail closed: a record that does not decode to a Howto is reported as
// absent, never returned partially populated.
type ContentStore interface {
	// GetHowto returns the record with the given id, or ErrHowtoNotFound.
	GetHowto(ctx context.Context, id uuid.UUID) (*Howto, error)

	// SetHowto writes the full record keyed by its ID, creating or
	// replacing it.
	SetHowto(ctx context.Context, h *Howto) error

	// QueryEqual returns all records whose named field equals value.
	// Supported fields are "slug" and "created_by".
	QueryEqual(ctx context.Context, field, value string) ([]*Howto, error)

	// GetStats returns the nested stats record for a how-to, or
	// ErrStatsNotFound.
	GetStats(ctx context.Context, howtoID uuid.UUID) (*HowtoStats, error)

	// SubscribeStats opens a live stream of the stats sub-record for one
	// how-to. The stream emits on every change until unsubscribed.
	SubscribeStats(ctx context.Context, howtoID uuid.UUID) (StatsSubscription, error)

	// StreamAll opens a live stream of full-collection snapshots. Each
	// emission replaces the previous snapshot wholesale.
	StreamAll(ctx context.Context) (CollectionSubscription, error)
}

// StatsSubscription is one live stats stream. Unsubscribe closes Updates.
type StatsSubscription interface {
	Updates() <-chan *HowtoStats
	Unsubscribe()
}

// CollectionSubscription is one live full-collection stream. Unsubscribe
// closes Snapshots.
type CollectionSubscription interface {
	Snapshots() <-chan []*Howto
	Unsubscribe()
}

// MediaUploader stores pending media files under a collection/record key and
// returns stored refs. An input ref that is already stored must be passed
// through unchanged, never re-uploaded.
type MediaUploader interface {
	// UploadOne uploads a single pending ref, or passes a stored ref
	// through untouched.
	UploadOne(ctx context.Context, ref *MediaRef, collection string, recordID uuid.UUID) (*MediaRef, error)

	// UploadBatch uploads a sequence of refs, preserving positional slots:
	// a nil input slot yields a nil output slot in the same position.
	UploadBatch(ctx context.Context, refs []*MediaRef, collection string, recordID uuid.UUID) ([]*MediaRef, error)
}

// BlobStore defines the interface for media storage backends.
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetDownloadURL returns a URL for downloading content
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetObjectMeta retrieves metadata for an object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)
}

// TagMatcher decides whether an item's tag set matches a viewer-selected tag
// set. The default matcher passes everything when no tags are selected and
// otherwise requires a non-empty intersection.
type TagMatcher interface {
	Matches(itemTags, selectedTags map[string]bool) bool
}

// EventSink receives lifecycle events. Implementations must not block.
type EventSink interface {
	HowtoSubmitted(ctx context.Context, h *Howto) error
	HowtoModerated(ctx context.Context, h *Howto, by *User) error
	ActiveHowtoChanged(ctx context.Context, h *Howto) error
}

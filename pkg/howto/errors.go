package howto

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrHowtoNotFound indicates a how-to was not found
	ErrHowtoNotFound = errors.New("howto not found")

	// ErrStatsNotFound indicates a stats record was not found
	ErrStatsNotFound = errors.New("howto stats not found")

	// ErrPermissionDenied indicates the acting user lacks moderation rights
	ErrPermissionDenied = errors.New("permission denied")

	// ErrStoreBackendNotFound indicates a media blob store was not found
	ErrStoreBackendNotFound = errors.New("storage backend not found")

	// ErrInvalidSubmission indicates a submission failed validation before
	// any upload stage began
	ErrInvalidSubmission = errors.New("invalid howto submission")

	// ErrDuplicateSlug indicates a write would reuse another record's slug
	ErrDuplicateSlug = errors.New("howto slug already in use")
)

// UploadError is the single consolidated error surfaced when a submission
// pipeline stage fails. Milestones reached before the failure stay marked.
type UploadError struct {
	HowtoID uuid.UUID
	Stage   Milestone
	Err     error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("howto upload failed at stage %s for %s: %v", e.Stage, e.HowtoID, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// StoreError represents an error from the content store boundary.
type StoreError struct {
	Collection string
	Key        string
	Op         string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for key %s in collection %s: %v", e.Op, e.Key, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// MediaError represents a media upload failure for one ref.
type MediaError struct {
	Name string
	Op   string
	Err  error
}

func (e *MediaError) Error() string {
	return fmt.Sprintf("media operation %s failed for %q: %v", e.Op, e.Name, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

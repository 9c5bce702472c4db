package howto

import (
	"time"

	"github.com/google/uuid"
)

// SubmitHowtoRequest is the form input for a new submission or an edit of an
// existing record. Zero-value ID means a new record; a non-zero ID reuses it
// (edit path). CreatedBy, Moderation, CreatorCountry and CreatedAt carry the
// existing record's values on edit and are empty on first submission.
type SubmitHowtoRequest struct {
	ID             uuid.UUID
	Title          string
	Description    string
	Slug           string
	CoverImage     *MediaRef
	Steps          []Step
	Files          []*MediaRef
	Tags           map[string]bool
	CreatedBy      string
	CreatedAt      time.Time
	Moderation     ModerationStatus
	CreatorCountry string

	// OnProgress, when set, is invoked with a snapshot after each milestone.
	OnProgress func(UploadProgress)
}

// ListFilter narrows and ranks the visible how-to set.
type ListFilter struct {
	SelectedTags map[string]bool
	SearchQuery  string
}

package howto

import (
	"time"

	"github.com/google/uuid"
)

// ModerationStatus is the domain type for how-to moderation lifecycle states.
type ModerationStatus string

// Moderation status constants (typed).
const (
	ModerationDraft            ModerationStatus = "draft"
	ModerationAwaiting         ModerationStatus = "awaiting-moderation"
	ModerationAccepted         ModerationStatus = "accepted"
	ModerationRejected         ModerationStatus = "rejected"
	ModerationNeedsImprovement ModerationStatus = "needs-improvement"
)

// CollectionHowtos is the store collection that holds how-to records.
const CollectionHowtos = "howtos"

// MediaRef is an opaque handle to a stored (or pending) binary file.
//
// A ref returned by a MediaUploader carries a DownloadURL and is considered
// stored; passing it through an uploader again is a no-op. A pending ref
// carries the raw Content bytes to be uploaded.
type MediaRef struct {
	Name        string    `json:"name"`
	Type        string    `json:"type,omitempty"`
	Size        int64     `json:"size,omitempty"`
	DownloadURL string    `json:"download_url,omitempty"`
	FullPath    string    `json:"full_path,omitempty"`
	TimeCreated time.Time `json:"time_created,omitempty"`

	// Content holds raw bytes for a not-yet-uploaded file. Never persisted.
	Content []byte `json:"-"`
}

// Stored reports whether the ref already points at uploaded media.
func (m *MediaRef) Stored() bool {
	return m != nil && m.DownloadURL != ""
}

// Step is one ordered step of a how-to. Image slots are independently
// nullable so positions stay aligned with the submitting form even when an
// individual upload produced nothing.
type Step struct {
	Title  string      `json:"title"`
	Text   string      `json:"text"`
	Images []*MediaRef `json:"images"`
}

// Howto represents one user-submitted tutorial record.
type Howto struct {
	ID             uuid.UUID        `json:"id"`
	Title          string           `json:"title"`
	Description    string           `json:"description"`
	Slug           string           `json:"slug"`
	CreatedBy      string           `json:"created_by,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	CoverImage     *MediaRef        `json:"cover_image,omitempty"`
	Steps          []Step           `json:"steps"`
	Files          []*MediaRef      `json:"files"`
	Tags           map[string]bool  `json:"tags,omitempty"`
	Moderation     ModerationStatus `json:"moderation,omitempty"`
	CreatorCountry string           `json:"creator_country,omitempty"`
}

// HowtoStats holds aggregate counters for one how-to, stored as a nested
// record at "<id>/stats/all". Read-only here except for the live stream.
type HowtoStats struct {
	HowtoID     uuid.UUID `json:"howto_id"`
	Views       int64     `json:"views"`
	VotedUseful int64     `json:"voted_useful"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Location is an optional structured location on a user profile.
type Location struct {
	Name        string `json:"name,omitempty"`
	CountryCode string `json:"country_code,omitempty"`
}

// User is the acting identity as resolved by the surrounding auth layer.
type User struct {
	UserName string    `json:"user_name"`
	IsAdmin  bool      `json:"is_admin,omitempty"`
	Country  string    `json:"country,omitempty"`
	Location *Location `json:"location,omitempty"`

	// VotedUsefulHowtos maps how-to id -> voted, owned by the user record.
	VotedUsefulHowtos map[uuid.UUID]bool `json:"voted_useful_howtos,omitempty"`
}

// ObjectMeta contains metadata about an object held by a media blob store.
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	ETag        string
	UpdatedAt   time.Time
	Metadata    map[string]string
}

package howto

import (
	"context"
)

// Service is the main interface for how-to submission, moderation,
// filtering, and active-item tracking.
type Service interface {
	// SubmitHowto runs the full upload pipeline for a new submission or an
	// edit and commits the assembled record. The returned progress
	// snapshot reflects the milestones reached, including on failure.
	SubmitHowto(ctx context.Context, req SubmitHowtoRequest) (*Howto, UploadProgress, error)

	// ModerateHowto writes a moderation change. Non-admin viewers get
	// ok=false and nothing is written.
	ModerateHowto(ctx context.Context, h *Howto, viewer *User) (ok bool, err error)

	// NeedsModeration reports whether the item awaits this viewer's
	// moderation action.
	NeedsModeration(h *Howto, viewer *User) bool

	// GetHowtoBySlug looks up a how-to by slug without touching the
	// active item. Returns (nil, nil) when no record matches.
	GetHowtoBySlug(ctx context.Context, slug string) (*Howto, error)

	// SetActiveHowtoBySlug looks up a how-to by slug, makes it the active
	// item, and replaces the live stats subscription. Returns (nil, nil)
	// when no record matches.
	SetActiveHowtoBySlug(ctx context.Context, slug string) (*Howto, error)

	// ActiveHowto returns the current active item, or nil.
	ActiveHowto() *Howto

	// ActiveStats returns the latest stats snapshot for the active item,
	// or nil when none has arrived yet.
	ActiveStats() *HowtoStats

	// ClearActiveHowto clears the active item and its stats subscription.
	ClearActiveHowto()

	// IsActiveHowtoUseful reports whether the viewer has voted the active
	// item useful.
	IsActiveHowtoUseful(viewer *User) bool

	// AllHowtos returns the latest full-collection snapshot, newest first.
	// Callers must not mutate the returned slice's items.
	AllHowtos() []*Howto

	// FilteredHowtos returns the items visible to viewer, narrowed by
	// selected tags and ranked by the optional search query.
	FilteredHowtos(viewer *User, f ListFilter) []*Howto

	// Start attaches the live collection stream. Must be called once
	// before reads; Close detaches everything.
	Start(ctx context.Context) error
	Close() error
}

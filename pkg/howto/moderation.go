package howto

// HasAdminRights reports whether the user may perform moderation writes.
func HasAdminRights(u *User) bool {
	return u != nil && u.IsAdmin
}

// IsVisible reports whether viewer may see the given how-to. An item is
// visible when it is accepted, when the viewer authored it, or when the
// viewer is an admin and the item is neither a draft nor rejected.
func IsVisible(h *Howto, viewer *User) bool {
	if h == nil {
		return false
	}
	if h.Moderation == ModerationAccepted {
		return true
	}
	if viewer != nil && viewer.UserName != "" && h.CreatedBy == viewer.UserName {
		return true
	}
	if HasAdminRights(viewer) && h.Moderation != ModerationDraft && h.Moderation != ModerationRejected {
		return true
	}
	return false
}

// NeedsModeration reports whether the item awaits a moderation action from
// this viewer. Shared rule across moderated content types: only admins
// moderate, and accepted items need nothing further.
func NeedsModeration(h *Howto, viewer *User) bool {
	if h == nil || !HasAdminRights(viewer) {
		return false
	}
	return h.Moderation != ModerationAccepted
}

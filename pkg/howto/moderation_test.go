package howto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/makerhub/howto/pkg/howto"
)

func TestVisibilityMatrix(t *testing.T) {
	author := &howto.User{UserName: "maker"}
	stranger := &howto.User{UserName: "passerby"}
	admin := &howto.User{UserName: "mod", IsAdmin: true}

	tests := []struct {
		name       string
		moderation howto.ModerationStatus
		author     bool
		stranger   bool
		admin      bool
		anonymous  bool
	}{
		{
			name:       "accepted visible to everyone",
			moderation: howto.ModerationAccepted,
			author:     true, stranger: true, admin: true, anonymous: true,
		},
		{
			name:       "draft visible only to author",
			moderation: howto.ModerationDraft,
			author:     true, stranger: false, admin: false, anonymous: false,
		},
		{
			name:       "rejected visible only to author",
			moderation: howto.ModerationRejected,
			author:     true, stranger: false, admin: false, anonymous: false,
		},
		{
			name:       "awaiting visible to author and admins",
			moderation: howto.ModerationAwaiting,
			author:     true, stranger: false, admin: true, anonymous: false,
		},
		{
			name:       "needs-improvement visible to author and admins",
			moderation: howto.ModerationNeedsImprovement,
			author:     true, stranger: false, admin: true, anonymous: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &howto.Howto{CreatedBy: "maker", Moderation: tt.moderation}

			assert.Equal(t, tt.author, howto.IsVisible(h, author), "author")
			assert.Equal(t, tt.stranger, howto.IsVisible(h, stranger), "stranger")
			assert.Equal(t, tt.admin, howto.IsVisible(h, admin), "admin")
			assert.Equal(t, tt.anonymous, howto.IsVisible(h, nil), "anonymous")
		})
	}
}

func TestNeedsModeration(t *testing.T) {
	admin := &howto.User{UserName: "mod", IsAdmin: true}
	user := &howto.User{UserName: "maker"}

	pending := &howto.Howto{CreatedBy: "maker", Moderation: howto.ModerationAwaiting}
	accepted := &howto.Howto{CreatedBy: "maker", Moderation: howto.ModerationAccepted}

	assert.True(t, howto.NeedsModeration(pending, admin))
	assert.False(t, howto.NeedsModeration(accepted, admin))
	assert.False(t, howto.NeedsModeration(pending, user), "non-admins never moderate")
	assert.False(t, howto.NeedsModeration(pending, nil))
}

func TestHasAdminRights(t *testing.T) {
	assert.True(t, howto.HasAdminRights(&howto.User{UserName: "mod", IsAdmin: true}))
	assert.False(t, howto.HasAdminRights(&howto.User{UserName: "maker"}))
	assert.False(t, howto.HasAdminRights(nil))
}

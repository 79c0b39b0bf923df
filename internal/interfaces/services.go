package interfaces

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/models"
)

// IdentityService resolves the current user and admin status for a request.
type IdentityService interface {
	// ResolveCurrentUser returns the provider profile for the session's
	// token, or (nil, false) without any network call when no token is
	// present or the token cannot be used.
	ResolveCurrentUser(ctx context.Context, token *oauth2.Token, onToken TokenUpdater) (*models.DiscordUser, bool)

	// IsAdmin reads the cached admin flag for the user id. An absent
	// record is never implicitly admin. The flag is only recomputed
	// during login.
	IsAdmin(ctx context.Context, userID string) bool

	// CompleteLogin fetches the profile for a freshly exchanged token,
	// recomputes the admin flag from guild role membership, and upserts
	// the local user record.
	CompleteLogin(ctx context.Context, token *oauth2.Token, onToken TokenUpdater) (*models.User, error)
}

package interfaces

import (
	"context"

	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/models"
)

// TokenUpdater is invoked whenever an authorized call transparently
// refreshes the access token, so the caller can persist the new token
// before the request proceeds.
type TokenUpdater func(*oauth2.Token)

// DiscordClient provides access to the Discord OAuth2 and REST APIs.
type DiscordClient interface {
	// NewState returns a fresh random anti-forgery nonce.
	NewState() (string, error)

	// AuthCodeURL builds the provider authorization URL for the given
	// state nonce.
	AuthCodeURL(state string) string

	// ExchangeCode validates the returned state against the expected
	// nonce and exchanges the authorization code for a token pair.
	// A mismatched or empty nonce fails with models.ErrStateMismatch
	// before the token endpoint is contacted.
	ExchangeCode(ctx context.Context, code, state, expectedState string) (*oauth2.Token, error)

	// CurrentUser fetches the profile of the token's owner. An expired
	// access token is refreshed once via the refresh token; the new token
	// is reported through onToken before the retry. Refresh failure
	// surfaces models.ErrAuth.
	CurrentUser(ctx context.Context, token *oauth2.Token, onToken TokenUpdater) (*models.DiscordUser, error)

	// GuildMember fetches a guild membership record using the static bot
	// credential. An unknown member yields an empty record, not an error.
	GuildMember(ctx context.Context, guildID, userID string) (*models.GuildMember, error)
}

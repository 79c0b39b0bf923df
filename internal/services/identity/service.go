// Package identity resolves Discord profiles and admin status for sessions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/models"
)

// Service implements IdentityService
type Service struct {
	storage interfaces.StorageManager
	discord interfaces.DiscordClient
	guildID string
	roleID  string
	logger  *common.Logger
}

// NewService creates a new identity service
func NewService(
	storage interfaces.StorageManager,
	discord interfaces.DiscordClient,
	cfg common.DiscordConfig,
	logger *common.Logger,
) *Service {
	return &Service{
		storage: storage,
		discord: discord,
		guildID: cfg.GuildID,
		roleID:  cfg.AdminRoleID,
		logger:  logger,
	}
}

// ResolveCurrentUser fetches the Discord profile for the session token. A
// missing token resolves to anonymous without touching the network, and an
// unusable token resolves to unauthenticated rather than an error.
func (s *Service) ResolveCurrentUser(ctx context.Context, token *oauth2.Token, onToken interfaces.TokenUpdater) (*models.DiscordUser, bool) {
	if token == nil {
		return nil, false
	}

	profile, err := s.discord.CurrentUser(ctx, token, onToken)
	if err != nil {
		if errors.Is(err, models.ErrAuth) {
			s.logger.Debug().Msg("Session token no longer usable, treating as anonymous")
		} else {
			s.logger.Warn().Err(err).Msg("Failed to resolve current user from Discord")
		}
		return nil, false
	}

	return profile, true
}

// IsAdmin reads the stored admin flag for a user id. Unknown users are never
// admins. The flag is only recomputed during login, so a role change on
// Discord takes effect at the next login.
func (s *Service) IsAdmin(ctx context.Context, userID string) bool {
	if userID == "" {
		return false
	}

	user, err := s.storage.UserStore().GetUser(ctx, userID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Failed to read user record for admin check")
		}
		return false
	}

	return user.Admin
}

// CompleteLogin fetches the profile for a freshly exchanged token, checks
// guild role membership with the bot token, and upserts the local user
// record with the recomputed admin flag.
func (s *Service) CompleteLogin(ctx context.Context, token *oauth2.Token, onToken interfaces.TokenUpdater) (*models.User, error) {
	profile, err := s.discord.CurrentUser(ctx, token, onToken)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile after login: %w", err)
	}

	member, err := s.discord.GuildMember(ctx, s.guildID, profile.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check guild membership: %w", err)
	}
	admin := member.HasRole(s.roleID)

	now := time.Now().UTC()
	user, err := s.storage.UserStore().GetUser(ctx, profile.ID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, fmt.Errorf("failed to read user record: %w", err)
		}
		user = &models.User{ID: profile.ID, CreatedAt: now}
	}

	user.ApplyProfile(profile)
	user.Admin = admin
	user.ModifiedAt = now

	if err := s.storage.UserStore().SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user record: %w", err)
	}

	s.logger.Info().
		Str("user_id", user.ID).
		Str("username", user.Username).
		Bool("admin", admin).
		Msg("Login completed")

	return user, nil
}

var _ interfaces.IdentityService = (*Service)(nil)

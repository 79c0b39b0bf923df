package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/models"
	"github.com/twbot/supportsite/internal/session"
)

// loadSession loads or creates the request's session. On failure it writes
// a 500 and returns nil.
func (s *Server) loadSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, err := s.app.Sessions.Load(w, r)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to load session")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return nil
	}
	return sess
}

// tokenSaver returns a TokenUpdater that persists refreshed tokens into the
// session before the authorized call proceeds.
func (s *Server) tokenSaver(sess *session.Session) interfaces.TokenUpdater {
	return func(token *oauth2.Token) {
		sess.SetToken(token)
		if err := s.app.Sessions.Save(sess); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to persist refreshed token")
		}
	}
}

// safeRedirectPath restricts post-login redirects to local paths.
func safeRedirectPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") {
		return "/"
	}
	return raw
}

// handleOAuthBegin handles GET /oauth: generates a state nonce, stashes it
// in the session, and redirects to the Discord authorization page.
func (s *Server) handleOAuthBegin(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	state, err := s.app.Discord.NewState()
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to generate state nonce")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	sess.SetPendingState(state, safeRedirectPath(r.URL.Query().Get("redirect")))
	if err := s.app.Sessions.Save(sess); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save session")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	http.Redirect(w, r, s.app.Discord.AuthCodeURL(state), http.StatusFound)
}

// handleOAuthCallback handles GET /oauth/authorize: validates the returned
// state, exchanges the code, recomputes the admin flag, and stores the token
// in the session.
func (s *Server) handleOAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		s.logger.Info().Str("error", errParam).Msg("Authorization denied at provider")
		WriteError(w, http.StatusBadRequest, "Authorization failed: "+errParam)
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	expectedState, redirectPath := sess.ConsumePendingState()

	token, err := s.app.Discord.ExchangeCode(r.Context(), r.URL.Query().Get("code"), r.URL.Query().Get("state"), expectedState)
	if err != nil {
		if errors.Is(err, models.ErrStateMismatch) {
			WriteErrorFor(w, err)
			return
		}
		s.logger.Error().Err(err).Msg("Code exchange failed")
		WriteError(w, http.StatusBadGateway, "Login failed")
		return
	}

	sess.SetToken(token)
	if err := s.app.Sessions.Save(sess); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save session")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user, err := s.app.Identity.CompleteLogin(r.Context(), token, s.tokenSaver(sess))
	if err != nil {
		s.logger.Error().Err(err).Msg("Login completion failed")
		sess.ClearToken()
		s.app.Sessions.Save(sess)
		WriteError(w, http.StatusBadGateway, "Login failed")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Bool("admin", user.Admin).Msg("User logged in")
	http.Redirect(w, r, safeRedirectPath(redirectPath), http.StatusFound)
}

// handleOAuthLogout handles GET /oauth/deauthorize: drops the session and
// its token, then redirects home.
func (s *Server) handleOAuthLogout(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	if err := s.app.Sessions.Destroy(w, sess); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to destroy session")
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// redirectToLogin sends the browser into the OAuth flow, recording the
// originally requested path so login returns the user there.
func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/oauth?redirect="+url.QueryEscape(r.URL.Path), http.StatusFound)
}

// handleMe handles GET /me: returns the Discord profile, admin flag, and
// the user's own articles. Anonymous visitors are sent through the login
// flow with the path recorded.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	sess := s.loadSession(w, r)
	if sess == nil {
		return
	}

	profile, ok := s.app.Identity.ResolveCurrentUser(r.Context(), sess.Token(), s.tokenSaver(sess))
	if !ok {
		s.redirectToLogin(w, r)
		return
	}

	articles, err := s.app.Storage.ArticleStore().ListByCreator(r.Context(), profile.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", profile.ID).Msg("Failed to list user articles")
		WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"user":     profile,
		"admin":    s.app.Identity.IsAdmin(r.Context(), profile.ID),
		"articles": articles,
	})
}

// requireAdmin resolves the current user and checks the stored admin flag.
// Writes 401 for anonymous sessions and 403 for non-admins.
func (s *Server) requireAdmin(w http.ResponseWriter, r *http.Request, sess *session.Session) (*models.DiscordUser, bool) {
	profile, ok := s.app.Identity.ResolveCurrentUser(r.Context(), sess.Token(), s.tokenSaver(sess))
	if !ok {
		WriteErrorFor(w, models.ErrAuth)
		return nil, false
	}
	if !s.app.Identity.IsAdmin(r.Context(), profile.ID) {
		WriteErrorFor(w, models.ErrForbidden)
		return nil, false
	}
	return profile, true
}

// Package session holds per-browser session state: the user's OAuth token
// and the pending OAuth state/redirect recorded between login initiation
// and the provider callback.
package session

import (
	"sync"
	"time"

	"golang.org/x/oauth2"
)

// Session is the server-side state for one browser client. It is created on
// first request, mutated on login/refresh, and its token is cleared on
// logout. Expiry of the OAuth token itself is not enforced here; the Discord
// client refreshes on use.
//
// The repository hands the same *Session to every request carrying the
// cookie, so the mutable fields are guarded for concurrent requests from
// one browser. ID, CreatedAt, and ExpiresAt are fixed at creation.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time

	mu              sync.RWMutex
	token           *oauth2.Token
	pendingState    string
	pendingRedirect string
}

// Token returns the stored OAuth token pair, or nil for an anonymous
// session.
func (s *Session) Token() *oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Authenticated reports whether the session carries a token.
func (s *Session) Authenticated() bool {
	return s.Token() != nil
}

// SetToken stores the OAuth token pair.
func (s *Session) SetToken(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

// ClearToken drops the token, returning the session to anonymous.
func (s *Session) ClearToken() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = nil
}

// SetPendingState records the anti-forgery nonce and the post-login
// redirect target for an OAuth flow that is about to leave the site.
func (s *Session) SetPendingState(nonce, redirectPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingState = nonce
	s.pendingRedirect = redirectPath
}

// ConsumePendingState returns and clears the pending nonce and redirect.
// A second consume yields empty values, so a callback can only be matched
// against a state once.
func (s *Session) ConsumePendingState() (nonce, redirectPath string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	nonce, redirectPath = s.pendingState, s.pendingRedirect
	s.pendingState = ""
	s.pendingRedirect = ""
	return nonce, redirectPath
}

package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/models"
)

// fakeProvider stands in for the Discord API: token endpoint, /users/@me,
// and the guild member endpoint.
type fakeProvider struct {
	tokenCalls   int32
	refreshCalls int32

	user        models.DiscordUser
	memberBody  string
	memberCode  int
	validAccess string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		user:        models.DiscordUser{ID: "1001", Username: "akira", Discriminator: "0"},
		memberBody:  `{"roles":[]}`,
		memberCode:  http.StatusOK,
		validAccess: "access-1",
	}
}

func (p *fakeProvider) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.tokenCalls, 1)
		require.NoError(t, r.ParseForm())

		grant := r.FormValue("grant_type")
		access := p.validAccess
		if grant == "refresh_token" {
			atomic.AddInt32(&p.refreshCalls, 1)
			if r.FormValue("refresh_token") != "refresh-1" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			access = "access-2"
			p.validAccess = access
		} else if r.FormValue("code") != "good-code" {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  access,
			"refresh_token": "refresh-1",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})

	mux.HandleFunc("/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+p.validAccess {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(p.user)
	})

	mux.HandleFunc("/guilds/", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bot ") {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(p.memberCode)
		w.Write([]byte(p.memberBody))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testClient(t *testing.T, p *fakeProvider) *Client {
	t.Helper()
	srv := p.server(t)
	cfg := common.DiscordConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "http://localhost/oauth/authorize",
		BotToken:     "bot-token",
		APIBaseURL:   srv.URL,
		RateLimit:    100,
	}
	return NewClient(cfg, WithLogger(common.NewSilentLogger()))
}

func TestAuthCodeURL(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	u := c.AuthCodeURL("nonce-123")
	assert.Contains(t, u, "/oauth2/authorize")
	assert.Contains(t, u, "state=nonce-123")
	assert.Contains(t, u, "client_id=client-id")
	assert.Contains(t, u, "scope=identify")
}

func TestNewStateUnique(t *testing.T) {
	c := testClient(t, newFakeProvider())
	a, err := c.NewState()
	require.NoError(t, err)
	b, err := c.NewState()
	require.NoError(t, err)
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestExchangeCode(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	token, err := c.ExchangeCode(context.Background(), "good-code", "nonce", "nonce")
	require.NoError(t, err)
	assert.Equal(t, "access-1", token.AccessToken)
	assert.Equal(t, "refresh-1", token.RefreshToken)
	assert.True(t, token.Valid())
}

func TestExchangeCodeStateMismatchSkipsTokenEndpoint(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	_, err := c.ExchangeCode(context.Background(), "good-code", "evil", "nonce")
	require.ErrorIs(t, err, models.ErrStateMismatch)

	// Empty expected nonce never matches either.
	_, err = c.ExchangeCode(context.Background(), "good-code", "", "")
	require.ErrorIs(t, err, models.ErrStateMismatch)

	assert.Equal(t, int32(0), atomic.LoadInt32(&p.tokenCalls))
}

func TestExchangeCodeBadCode(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	_, err := c.ExchangeCode(context.Background(), "bad-code", "nonce", "nonce")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&p.tokenCalls))
}

func TestCurrentUser(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	token := &oauth2.Token{AccessToken: "access-1", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
	user, err := c.CurrentUser(context.Background(), token, nil)
	require.NoError(t, err)
	assert.Equal(t, "1001", user.ID)
	assert.Equal(t, "akira", user.Username)
}

func TestCurrentUserRefreshesExpiredTokenAndPersists(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	expired := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Minute),
	}

	var persisted *oauth2.Token
	user, err := c.CurrentUser(context.Background(), expired, func(tok *oauth2.Token) {
		persisted = tok
	})
	require.NoError(t, err)
	assert.Equal(t, "1001", user.ID)

	assert.Equal(t, int32(1), atomic.LoadInt32(&p.refreshCalls))
	require.NotNil(t, persisted, "refreshed token must be handed to the updater")
	assert.Equal(t, "access-2", persisted.AccessToken)
}

func TestCurrentUserRefreshFailureIsAuthError(t *testing.T) {
	p := newFakeProvider()
	c := testClient(t, p)

	expired := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "stale-refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(-time.Minute),
	}

	_, err := c.CurrentUser(context.Background(), expired, nil)
	require.ErrorIs(t, err, models.ErrAuth)
}

func TestCurrentUserNilToken(t *testing.T) {
	c := testClient(t, newFakeProvider())
	_, err := c.CurrentUser(context.Background(), nil, nil)
	require.ErrorIs(t, err, models.ErrAuth)
}

func TestGuildMemberWithRoles(t *testing.T) {
	p := newFakeProvider()
	p.memberBody = `{"nick":"mod","roles":["111","222"]}`
	c := testClient(t, p)

	member, err := c.GuildMember(context.Background(), "guild-1", "1001")
	require.NoError(t, err)
	assert.True(t, member.HasRole("222"))
	assert.False(t, member.HasRole("333"))
}

func TestGuildMemberUnknownMemberIsEmptyRecord(t *testing.T) {
	p := newFakeProvider()
	p.memberCode = http.StatusNotFound
	p.memberBody = `{"message":"Unknown Member","code":10007}`
	c := testClient(t, p)

	member, err := c.GuildMember(context.Background(), "guild-1", "9999")
	require.NoError(t, err)
	assert.Nil(t, member.Roles)
	assert.False(t, member.HasRole("111"))
}

func TestGuildMemberServerErrorSurfaced(t *testing.T) {
	p := newFakeProvider()
	p.memberCode = http.StatusInternalServerError
	p.memberBody = `{"message":"something broke"}`
	c := testClient(t, p)

	_, err := c.GuildMember(context.Background(), "guild-1", "1001")
	require.Error(t, err)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
}

package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/twbot/supportsite/internal/models"
)

func TestOAuthBeginRedirectsToProvider(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/oauth", nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "https://discord.example/oauth2/authorize")
	assert.Contains(t, loc, "state=")
	assert.NotEmpty(t, rec.Result().Cookies(), "begin must establish a session")
}

func TestOAuthCallbackLogsInAndStoresAdminFlag(t *testing.T) {
	env := newTestServer(t)

	cookies := env.login(t,
		&models.DiscordUser{ID: "55", Username: "roleholder"},
		&models.GuildMember{Roles: []string{"other", testRoleID}},
	)

	rec := env.do(t, http.MethodGet, "/me", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User  models.DiscordUser `json:"user"`
		Admin bool               `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "55", resp.User.ID)
	assert.True(t, resp.Admin)
}

func TestOAuthCallbackNonMemberIsNotAdmin(t *testing.T) {
	env := newTestServer(t)

	cookies := env.login(t, &models.DiscordUser{ID: "56", Username: "outsider"}, nil)

	rec := env.do(t, http.MethodGet, "/me", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Admin bool `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Admin)
}

func TestOAuthCallbackStateMismatch(t *testing.T) {
	env := newTestServer(t)

	begin := env.do(t, http.MethodGet, "/oauth", nil, nil)
	require.Equal(t, http.StatusFound, begin.Code)
	cookies := begin.Result().Cookies()

	rec := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state=forged", nil, cookies)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackWithoutPendingState(t *testing.T) {
	env := newTestServer(t)

	// No /oauth step, so the session has no pending nonce.
	rec := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state=state-1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOAuthCallbackStateIsSingleUse(t *testing.T) {
	env := newTestServer(t)

	begin := env.do(t, http.MethodGet, "/oauth", nil, nil)
	cookies := begin.Result().Cookies()
	loc, err := url.Parse(begin.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	first := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state="+state, nil, cookies)
	require.Equal(t, http.StatusFound, first.Code)

	// Replaying the callback fails because the nonce was consumed.
	second := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state="+state, nil, cookies)
	assert.Equal(t, http.StatusBadRequest, second.Code)
}

func TestOAuthCallbackProviderError(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/oauth/authorize?error=access_denied", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_denied")
}

func TestOAuthLogout(t *testing.T) {
	env := newTestServer(t)

	cookies := env.login(t, &models.DiscordUser{ID: "57", Username: "leaver"}, nil)

	rec := env.do(t, http.MethodGet, "/oauth/deauthorize", nil, cookies)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	me := env.do(t, http.MethodGet, "/me", nil, cookies)
	assert.Equal(t, http.StatusFound, me.Code)
}

func TestMeListsOwnArticles(t *testing.T) {
	env := newTestServer(t)
	cookies := env.loginAdmin(t)
	seedArticle(t, env, "mine", "Written here", "General")
	require.NoError(t, env.storage.Articles.InsertArticle(context.Background(), &models.Article{
		ID:        "theirs",
		CreatorID: "other-user",
		CreatedAt: time.Now().UTC(),
		Title:     "Someone else's",
		Category:  "General",
	}))

	rec := env.do(t, http.MethodGet, "/me", nil, cookies)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Articles []models.Article `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "mine", resp.Articles[0].ID)
}

func TestMeAnonymousRedirectsToLogin(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/me", nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/oauth?redirect=%2Fme", rec.Header().Get("Location"))
	assert.Zero(t, env.discord.CurrentUserCalls, "anonymous /me must not call the provider")
}

func TestLoginReturnsToRecordedPath(t *testing.T) {
	env := newTestServer(t)
	env.discord.Profile = &models.DiscordUser{ID: "58", Username: "returning"}

	begin := env.do(t, http.MethodGet, "/oauth?redirect=%2Farticles%2Fnew", nil, nil)
	require.Equal(t, http.StatusFound, begin.Code)
	cookies := begin.Result().Cookies()

	loc, err := url.Parse(begin.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	cb := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state="+url.QueryEscape(state), nil, cookies)
	require.Equal(t, http.StatusFound, cb.Code)
	assert.Equal(t, "/articles/new", cb.Header().Get("Location"))
}

func TestOAuthBeginRedirectParamIsRestricted(t *testing.T) {
	env := newTestServer(t)

	begin := env.do(t, http.MethodGet, "/oauth?redirect=https://evil.example/", nil, nil)
	require.Equal(t, http.StatusFound, begin.Code)
	cookies := begin.Result().Cookies()

	loc, err := url.Parse(begin.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")

	cb := env.do(t, http.MethodGet, "/oauth/authorize?code=good&state="+state, nil, cookies)
	require.Equal(t, http.StatusFound, cb.Code)
	assert.Equal(t, "/", cb.Header().Get("Location"))
}

func TestHealthAndVersion(t *testing.T) {
	env := newTestServer(t)

	rec := env.do(t, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/version", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

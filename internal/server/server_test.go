package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/twbot/supportsite/internal/app"
	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/models"
	"github.com/twbot/supportsite/internal/services/identity"
	"github.com/twbot/supportsite/internal/session"
	testcommon "github.com/twbot/supportsite/test/common"
)

const (
	testGuildID = "294215057129340938"
	testRoleID  = "424762262775922692"
)

type testEnv struct {
	server  *Server
	storage *testcommon.MockStorageManager
	discord *testcommon.MockDiscordClient
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	cfg := common.NewDefaultConfig()
	cfg.Discord.GuildID = testGuildID
	cfg.Discord.AdminRoleID = testRoleID
	cfg.Session.Secret = "test-secret"

	logger := common.NewSilentLogger()
	storage := testcommon.NewMockStorageManager()
	discord := testcommon.NewMockDiscordClient()

	a := &app.App{
		Config:   cfg,
		Logger:   logger,
		Storage:  storage,
		Discord:  discord,
		Identity: identity.NewService(storage, discord, cfg.Discord, logger),
		Sessions: session.NewManager(session.NewInMemoryRepo(), cfg.Session, false),
	}

	return &testEnv{
		server:  NewServer(a),
		storage: storage,
		discord: discord,
	}
}

// do runs a request through the full middleware stack with the given cookies.
func (e *testEnv) do(t *testing.T, method, target string, body *string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(*body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

// login walks the OAuth flow against the mock client and returns the
// session cookies for an authenticated user.
func (e *testEnv) login(t *testing.T, profile *models.DiscordUser, member *models.GuildMember) []*http.Cookie {
	t.Helper()

	e.discord.Profile = profile
	if member != nil {
		e.discord.Members[profile.ID] = member
	}

	begin := e.do(t, http.MethodGet, "/oauth", nil, nil)
	require.Equal(t, http.StatusFound, begin.Code)
	cookies := begin.Result().Cookies()
	require.NotEmpty(t, cookies)

	loc, err := url.Parse(begin.Header().Get("Location"))
	require.NoError(t, err)
	state := loc.Query().Get("state")
	require.NotEmpty(t, state)

	cb := e.do(t, http.MethodGet, "/oauth/authorize?code=good&state="+url.QueryEscape(state), nil, cookies)
	require.Equal(t, http.StatusFound, cb.Code, cb.Body.String())

	return cookies
}

// loginAdmin logs in a user carrying the admin role.
func (e *testEnv) loginAdmin(t *testing.T) []*http.Cookie {
	return e.login(t,
		&models.DiscordUser{ID: "9001", Username: "moderator"},
		&models.GuildMember{Roles: []string{testRoleID}},
	)
}

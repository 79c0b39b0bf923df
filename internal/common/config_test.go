package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "ws://localhost:8000/rpc", cfg.Storage.Address)
	assert.Equal(t, "https://discord.com/api", cfg.Discord.APIBaseURL)
	assert.Equal(t, "support_session", cfg.Session.CookieName)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "support.toml")
	content := `
environment = "production"

[server]
host = "127.0.0.1"
port = 9000

[discord]
client_id = "cid"
client_secret = "csecret"
redirect_uri = "https://support.twitchbot.io/oauth/authorize"
bot_token = "bot-token"
guild_id = "294215057129340938"
admin_role_id = "424762262775922692"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "cid", cfg.Discord.ClientID)
	assert.Equal(t, "294215057129340938", cfg.Discord.GuildID)
	assert.Equal(t, "424762262775922692", cfg.Discord.AdminRoleID)
	// Defaults survive a partial file
	assert.Equal(t, "https://discord.com/api", cfg.Discord.APIBaseURL)
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("SUPPORT_PORT", "8181")
	t.Setenv("SUPPORT_DISCORD_CLIENT_ID", "env-client")
	t.Setenv("SUPPORT_SESSION_SECRET", "env-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8181, cfg.Server.Port)
	assert.Equal(t, "env-client", cfg.Discord.ClientID)
	assert.Equal(t, "env-secret", cfg.Session.Secret)
}

func TestLoadConfigRejectsInsecureRedirectInProduction(t *testing.T) {
	t.Setenv("SUPPORT_ENV", "production")
	t.Setenv("SUPPORT_DISCORD_REDIRECT_URI", "http://support.twitchbot.io/oauth/authorize")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "https")
}

func TestGetTTLFallback(t *testing.T) {
	c := SessionConfig{TTL: "bogus"}
	assert.Equal(t, "24h0m0s", c.GetTTL().String())

	c.TTL = "30m"
	assert.Equal(t, "30m0s", c.GetTTL().String())
}

// Package common provides shared utilities for the support site.
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for the support site.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Discord     DiscordConfig `toml:"discord"`
	Session     SessionConfig `toml:"session"`
	Assets      AssetsConfig  `toml:"assets"`
	Logging     LoggingConfig `toml:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// StorageConfig holds SurrealDB connection configuration.
type StorageConfig struct {
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// DiscordConfig holds the OAuth client credentials, the bot credential used
// for server-to-server role lookups, and the fixed guild/role pair that
// defines admin membership.
type DiscordConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	BotToken     string `toml:"bot_token"`
	GuildID      string `toml:"guild_id"`
	AdminRoleID  string `toml:"admin_role_id"`
	APIBaseURL   string `toml:"api_base_url"`
	RateLimit    int    `toml:"rate_limit"`
	Timeout      string `toml:"timeout"`
}

// GetTimeout parses and returns the HTTP timeout duration.
func (c *DiscordConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// SessionConfig holds browser session configuration.
type SessionConfig struct {
	Secret     string `toml:"secret"`
	CookieName string `toml:"cookie_name"`
	TTL        string `toml:"ttl"`
}

// GetTTL parses and returns the session lifetime.
func (c *SessionConfig) GetTTL() time.Duration {
	d, err := time.ParseDuration(c.TTL)
	if err != nil {
		return 24 * time.Hour
	}
	return d
}

// AssetsConfig holds static asset configuration.
type AssetsConfig struct {
	Path string `toml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// NewDefaultConfig returns a Config with sensible defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: StorageConfig{
			Address:   "ws://localhost:8000/rpc",
			Namespace: "supportsite",
			Database:  "supportsite",
			Username:  "root",
			Password:  "root",
		},
		Discord: DiscordConfig{
			APIBaseURL: "https://discord.com/api",
			RateLimit:  5,
			Timeout:    "30s",
		},
		Session: SessionConfig{
			Secret:     "dev-session-secret-change-in-production",
			CookieName: "support_session",
			TTL:        "24h",
		},
		Assets: AssetsConfig{
			Path: "assets",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides.
// Later files override earlier ones; missing files are skipped.
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := validate(config); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies SUPPORT_* environment variable overrides.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SUPPORT_ENV"); env != "" {
		config.Environment = env
	}
	if host := os.Getenv("SUPPORT_HOST"); host != "" {
		config.Server.Host = host
	}
	if port := os.Getenv("SUPPORT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if level := os.Getenv("SUPPORT_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("SUPPORT_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("SUPPORT_STORAGE_NAMESPACE"); v != "" {
		config.Storage.Namespace = v
	}
	if v := os.Getenv("SUPPORT_STORAGE_DATABASE"); v != "" {
		config.Storage.Database = v
	}
	if v := os.Getenv("SUPPORT_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("SUPPORT_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	if v := os.Getenv("SUPPORT_DISCORD_CLIENT_ID"); v != "" {
		config.Discord.ClientID = v
	}
	if v := os.Getenv("SUPPORT_DISCORD_CLIENT_SECRET"); v != "" {
		config.Discord.ClientSecret = v
	}
	if v := os.Getenv("SUPPORT_DISCORD_REDIRECT_URI"); v != "" {
		config.Discord.RedirectURI = v
	}
	if v := os.Getenv("SUPPORT_DISCORD_BOT_TOKEN"); v != "" {
		config.Discord.BotToken = v
	}
	if v := os.Getenv("SUPPORT_DISCORD_GUILD_ID"); v != "" {
		config.Discord.GuildID = v
	}
	if v := os.Getenv("SUPPORT_DISCORD_ADMIN_ROLE_ID"); v != "" {
		config.Discord.AdminRoleID = v
	}

	if v := os.Getenv("SUPPORT_SESSION_SECRET"); v != "" {
		config.Session.Secret = v
	}
	if v := os.Getenv("SUPPORT_ASSETS_PATH"); v != "" {
		config.Assets.Path = v
	}
}

// validate rejects configurations that would misbehave at runtime rather
// than at startup.
func validate(config *Config) error {
	if config.IsProduction() && strings.HasPrefix(config.Discord.RedirectURI, "http://") {
		return fmt.Errorf("redirect_uri must use https in production: %s", config.Discord.RedirectURI)
	}
	return nil
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

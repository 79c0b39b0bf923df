// Package app wires configuration, storage, clients, and services into a
// single shared core used by cmd/support-server.
package app

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/twbot/supportsite/internal/clients/discord"
	"github.com/twbot/supportsite/internal/common"
	"github.com/twbot/supportsite/internal/interfaces"
	"github.com/twbot/supportsite/internal/services/identity"
	"github.com/twbot/supportsite/internal/session"
	"github.com/twbot/supportsite/internal/storage/surrealdb"
)

// App holds all initialized services and clients.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	Storage     interfaces.StorageManager
	Discord     interfaces.DiscordClient
	Identity    interfaces.IdentityService
	Sessions    *session.Manager
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// NewApp initializes configuration, storage, the Discord client, and the
// identity and session layers. configPath may be empty, in which case the
// default resolution logic is used.
func NewApp(configPath string) (*App, error) {
	// Load version from .version file (fallback if ldflags not set)
	common.LoadVersionFromFile()

	binDir := getBinaryDir()

	// Load configuration - check provided path, SUPPORT_CONFIG, then binary dir, then fallback
	if configPath == "" {
		configPath = os.Getenv("SUPPORT_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(binDir, "support.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/support.toml" // fallback for development
		}
	}

	config, err := common.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLoggerFromConfig(config.Logging)

	storageManager, err := surrealdb.NewManager(logger, config)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	discordClient := discord.NewClient(config.Discord, discord.WithLogger(logger))

	identityService := identity.NewService(storageManager, discordClient, config.Discord, logger)

	sessionManager := session.NewManager(
		session.NewInMemoryRepo(),
		config.Session,
		config.IsProduction(),
	)

	app := &App{
		Config:      config,
		Logger:      logger,
		Storage:     storageManager,
		Discord:     discordClient,
		Identity:    identityService,
		Sessions:    sessionManager,
		StartupTime: time.Now(),
	}

	logger.Info().
		Str("environment", config.Environment).
		Str("guild_id", config.Discord.GuildID).
		Msg("Application initialized")

	return app, nil
}

// Close releases storage connections.
func (a *App) Close() error {
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}
	return nil
}

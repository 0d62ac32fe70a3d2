package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

func defaultSchema() fileSchema {
	return fileSchema{
		ListenAddr:              "127.0.0.1:17577",
		Locales:                 []string{"en", "ru", "de", "fr"},
		League:                  "Standard",
		MaxVisibleNotifications: 5,
		StashGrids: map[string]models.StashGridType{
			"1": models.StashGridNormal,
		},
		IncomingTradeOptions: []models.TradeOption{
			{ButtonLabel: "1m", WhisperMessage: "1 minute please", KickAfterWhisper: false, DismissNotification: false},
			{ButtonLabel: "thx", WhisperMessage: "Thank you, good luck!", KickAfterWhisper: true, DismissNotification: true},
			{ButtonLabel: "sold", WhisperMessage: "Sorry, already sold", KickAfterWhisper: true, DismissNotification: true},
		},
		OutgoingTradeOptions: []models.TradeOption{
			{ButtonLabel: "thx", WhisperMessage: "Thank you!", KickAfterWhisper: true, DismissNotification: true},
		},
	}
}

// DefaultConfig creates a default configuration.
func DefaultConfig(log *logger.Logger) (*Config, error) {
	log.Debug("Creating default configuration")

	logPath, err := getDefaultPoeLogPath(log)
	if err != nil {
		log.Error("Failed to get default POE log path", err)
		return nil, fmt.Errorf("failed to find the PoE log file, please create the config file manually: %w", err)
	}

	file := defaultSchema()
	file.PoeLogPath = logPath

	config := &Config{log: log}
	config.apply(file)

	log.Info("Created default configuration",
		"log_path", logPath,
		"listen_addr", config.listenAddr,
		"locales", config.locales)
	return config, nil
}

// writeDefaultConfig persists a freshly generated default config file.
func writeDefaultConfig(config *Config, path string) error {
	file := fileSchema{
		PoeLogPath:              config.poeLogPath,
		ListenAddr:              config.listenAddr,
		Locales:                 config.locales,
		League:                  config.league,
		NotifyCommand:           config.notifyCommand,
		DatabasePath:            config.databasePath,
		MaxVisibleNotifications: config.maxVisibleNotifications,
		StashGrids:              config.stashGrids,
		StashGridBounds:         config.stashGridBounds,
		IncomingTradeOptions:    config.incomingTradeOptions,
		OutgoingTradeOptions:    config.outgoingTradeOptions,
	}

	data, err := json.MarshalIndent(file, "", "    ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// getDefaultPoeLogPath finds the default Path of Exile log file.
func getDefaultPoeLogPath(log *logger.Logger) (string, error) {
	log.Debug("Looking for default POE log path")

	home, err := os.UserHomeDir()
	if err != nil {
		log.Error("Failed to get home directory", err)
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	// Common POE log paths
	possiblePaths := []string{
		filepath.Join(home, ".local", "share", "Steam", "steamapps", "common", "Path of Exile", "logs", "Client.txt"),
		filepath.Join(home, "Games", "Path of Exile", "logs", "Client.txt"),
		filepath.Join("/mnt", "data", "SteamLibrary", "steamapps", "common", "Path of Exile", "logs", "Client.txt"),
	}

	for _, path := range possiblePaths {
		log.Debug("Checking possible log path", "path", path)
		if _, err := os.Stat(path); err == nil {
			log.Info("Found POE log file", "path", path)
			return path, nil
		}
	}

	log.Error("No valid POE log file found", nil, "checked_paths", possiblePaths)
	return "", fmt.Errorf("no valid Path of Exile log file found in common locations")
}

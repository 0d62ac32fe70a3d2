package config

import (
	"fmt"
	"os"
	"path/filepath"

	"exile-companion/pkg/logger"
)

// FindConfig locates and initializes the configuration: an explicitly
// provided path wins, otherwise the user config directory is used and a
// default file is generated there on first run.
func FindConfig(providedPath string, log *logger.Logger) (*Config, error) {
	log.Info("Looking for configuration", "provided_path", providedPath)

	if providedPath != "" {
		config, err := loadConfigFromPath(providedPath, log)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from provided path: %w", err)
		}
		return config, nil
	}

	homeConfigDir, err := os.UserConfigDir()
	if err != nil {
		log.Error("Failed to get user config directory", err)
		return nil, err
	}

	defaultConfigDir := filepath.Join(homeConfigDir, "exile-companion")
	defaultConfigPath := filepath.Join(defaultConfigDir, "config.json")

	log.Debug("Configuration paths",
		"config_dir", defaultConfigDir,
		"config_path", defaultConfigPath)

	if err := os.MkdirAll(defaultConfigDir, 0755); err != nil {
		log.Error("Failed to create config directory", err, "path", defaultConfigDir)
		return nil, err
	}

	if _, err := os.Stat(defaultConfigPath); os.IsNotExist(err) {
		config, err := DefaultConfig(log)
		if err != nil {
			return nil, err
		}
		if config.databasePath == "" {
			config.databasePath = filepath.Join(defaultConfigDir, "notifications.db")
		}
		if err := writeDefaultConfig(config, defaultConfigPath); err != nil {
			return nil, err
		}
		log.Info("Wrote default configuration", "path", defaultConfigPath)
		return config, nil
	}

	config, err := loadConfigFromPath(defaultConfigPath, log)
	if err != nil {
		return nil, err
	}
	if config.databasePath == "" {
		config.databasePath = filepath.Join(defaultConfigDir, "notifications.db")
	}
	return config, nil
}

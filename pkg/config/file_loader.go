package config

import (
	"encoding/json"
	"os"

	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

// fileSchema is the on-disk JSON shape of the configuration.
type fileSchema struct {
	PoeLogPath              string                          `json:"poe_log_path"`
	ListenAddr              string                          `json:"listen_addr"`
	Locales                 []string                        `json:"locales"`
	League                  string                          `json:"league"`
	NotifyCommand           string                          `json:"notify_command"`
	DatabasePath            string                          `json:"database_path"`
	MaxVisibleNotifications int                             `json:"max_visible_notifications"`
	StashGrids              map[string]models.StashGridType `json:"stash_grids"`
	StashGridBounds         []models.Rectangle              `json:"stash_grid_bounds"`
	IncomingTradeOptions    []models.TradeOption            `json:"incoming_trade_options"`
	OutgoingTradeOptions    []models.TradeOption            `json:"outgoing_trade_options"`
}

// LoadFromFile loads the configuration from a JSON file.
func (c *Config) LoadFromFile(path string, log *logger.Logger) error {
	log.Debug("Loading configuration from file", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		log.Error("Failed to read config file", err, "path", path)
		return err
	}
	log.Debug("Config file read successfully", "size_bytes", len(data))

	var file fileSchema
	if err := json.Unmarshal(data, &file); err != nil {
		log.Error("Failed to parse config JSON", err)
		return err
	}

	c.apply(file)
	return nil
}

// apply copies the parsed schema into the private fields, falling back to
// defaults for fields the file leaves unset.
func (c *Config) apply(file fileSchema) {
	defaults := defaultSchema()

	if file.ListenAddr == "" {
		file.ListenAddr = defaults.ListenAddr
	}
	if len(file.Locales) == 0 {
		file.Locales = defaults.Locales
	}
	if file.League == "" {
		file.League = defaults.League
	}
	if file.MaxVisibleNotifications <= 0 {
		file.MaxVisibleNotifications = defaults.MaxVisibleNotifications
	}
	if file.IncomingTradeOptions == nil {
		file.IncomingTradeOptions = defaults.IncomingTradeOptions
	}
	if file.OutgoingTradeOptions == nil {
		file.OutgoingTradeOptions = defaults.OutgoingTradeOptions
	}

	c.poeLogPath = file.PoeLogPath
	c.listenAddr = file.ListenAddr
	c.locales = file.Locales
	c.league = file.League
	c.notifyCommand = file.NotifyCommand
	c.databasePath = file.DatabasePath
	c.maxVisibleNotifications = file.MaxVisibleNotifications
	c.stashGrids = file.StashGrids
	c.stashGridBounds = file.StashGridBounds
	c.incomingTradeOptions = file.IncomingTradeOptions
	c.outgoingTradeOptions = file.OutgoingTradeOptions
}

// loadConfigFromPath loads the configuration from a file.
func loadConfigFromPath(path string, log *logger.Logger) (*Config, error) {
	config := &Config{log: log}
	if err := config.LoadFromFile(path, log); err != nil {
		return nil, err
	}
	return config, nil
}

package config

import (
	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

// Config holds the application configuration.
type Config struct {
	// Configurable via JSON file (private fields to enforce immutability)
	poeLogPath              string
	listenAddr              string
	locales                 []string
	league                  string
	notifyCommand           string
	databasePath            string
	maxVisibleNotifications int
	stashGrids              map[string]models.StashGridType
	stashGridBounds         []models.Rectangle
	incomingTradeOptions    []models.TradeOption
	outgoingTradeOptions    []models.TradeOption

	log *logger.Logger
}

// GetPoeLogPath returns the PoE Client.txt path.
func (c *Config) GetPoeLogPath() string {
	return c.poeLogPath
}

// GetListenAddr returns the address the companion endpoint listens on.
func (c *Config) GetListenAddr() string {
	return c.listenAddr
}

// GetLocales returns the locale match order for whisper classification.
func (c *Config) GetLocales() []string {
	out := make([]string, len(c.locales))
	copy(out, c.locales)
	return out
}

// GetLeague returns the league notifications are expected to come from.
func (c *Config) GetLeague() string {
	return c.league
}

// GetNotifyCommand returns the custom notification command, if any.
func (c *Config) GetNotifyCommand() string {
	return c.notifyCommand
}

// GetDatabasePath returns the notification history database path.
func (c *Config) GetDatabasePath() string {
	return c.databasePath
}

// GetMaxVisibleNotifications returns how many cards a surface should show.
func (c *Config) GetMaxVisibleNotifications() int {
	return c.maxVisibleNotifications
}

// GetStashGrids returns the configured grid type per stash tab name.
func (c *Config) GetStashGrids() map[string]models.StashGridType {
	out := make(map[string]models.StashGridType, len(c.stashGrids))
	for k, v := range c.stashGrids {
		out[k] = v
	}
	return out
}

// GetStashGridBounds returns the saved screen bounds per grid type.
func (c *Config) GetStashGridBounds() []models.Rectangle {
	out := make([]models.Rectangle, len(c.stashGridBounds))
	copy(out, c.stashGridBounds)
	return out
}

// GetIncomingTradeOptions returns the quick-action buttons for incoming trades.
func (c *Config) GetIncomingTradeOptions() []models.TradeOption {
	out := make([]models.TradeOption, len(c.incomingTradeOptions))
	copy(out, c.incomingTradeOptions)
	return out
}

// GetOutgoingTradeOptions returns the quick-action buttons for outgoing trades.
func (c *Config) GetOutgoingTradeOptions() []models.TradeOption {
	out := make([]models.TradeOption, len(c.outgoingTradeOptions))
	copy(out, c.outgoingTradeOptions)
	return out
}

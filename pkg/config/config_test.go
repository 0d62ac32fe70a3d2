package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithFile(filepath.Join(t.TempDir(), "test.log")))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestConfig_LoadFromFile_reads_all_fields(t *testing.T) {
	content := `{
		"poe_log_path": "/games/poe/logs/Client.txt",
		"listen_addr": "127.0.0.1:9999",
		"locales": ["en", "ru"],
		"league": "Ancestor",
		"notify_command": "notify-send",
		"database_path": "/tmp/companion.db",
		"max_visible_notifications": 3,
		"stash_grids": {"sale": 1},
		"stash_grid_bounds": [{"x": 10, "y": 20, "width": 600, "height": 600}],
		"incoming_trade_options": [
			{"button_label": "wait", "whisper_message": "2 minutes", "kick_after_whisper": false, "dismiss_notification": false}
		]
	}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	log := newTestLogger(t)
	config, err := loadConfigFromPath(path, log)
	require.NoError(t, err)

	assert.Equal(t, "/games/poe/logs/Client.txt", config.GetPoeLogPath())
	assert.Equal(t, "127.0.0.1:9999", config.GetListenAddr())
	assert.Equal(t, []string{"en", "ru"}, config.GetLocales())
	assert.Equal(t, "Ancestor", config.GetLeague())
	assert.Equal(t, "notify-send", config.GetNotifyCommand())
	assert.Equal(t, "/tmp/companion.db", config.GetDatabasePath())
	assert.Equal(t, 3, config.GetMaxVisibleNotifications())
	assert.Equal(t, models.StashGridQuad, config.GetStashGrids()["sale"])

	bounds := config.GetStashGridBounds()
	require.Len(t, bounds, 1)
	assert.Equal(t, models.Rectangle{X: 10, Y: 20, Width: 600, Height: 600}, bounds[0])

	incoming := config.GetIncomingTradeOptions()
	require.Len(t, incoming, 1)
	assert.Equal(t, "wait", incoming[0].ButtonLabel)
	// Unset option lists fall back to the defaults.
	assert.NotEmpty(t, config.GetOutgoingTradeOptions())
}

func TestConfig_LoadFromFile_fills_defaults_for_missing_fields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"poe_log_path": "/x/Client.txt"}`), 0644))

	config, err := loadConfigFromPath(path, newTestLogger(t))
	require.NoError(t, err)

	defaults := defaultSchema()
	assert.Equal(t, defaults.ListenAddr, config.GetListenAddr())
	assert.Equal(t, defaults.Locales, config.GetLocales())
	assert.Equal(t, defaults.League, config.GetLeague())
	assert.Equal(t, defaults.MaxVisibleNotifications, config.GetMaxVisibleNotifications())
	assert.Len(t, config.GetIncomingTradeOptions(), len(defaults.IncomingTradeOptions))
}

func TestConfig_LoadFromFile_rejects_invalid_json(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{not json`), 0644))

	_, err := loadConfigFromPath(path, newTestLogger(t))
	require.Error(t, err)
}

func TestConfig_getters_return_copies(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"locales": ["en"], "stash_grids": {"1": 0}}`), 0644))

	config, err := loadConfigFromPath(path, newTestLogger(t))
	require.NoError(t, err)

	locales := config.GetLocales()
	locales[0] = "mutated"
	assert.Equal(t, []string{"en"}, config.GetLocales())

	grids := config.GetStashGrids()
	grids["1"] = models.StashGridQuad
	assert.Equal(t, models.StashGridNormal, config.GetStashGrids()["1"])
}

package wm

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exile-companion/pkg/logger"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithFile(filepath.Join(t.TempDir(), "test.log")))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func TestNewFocuser_unsupported_session_is_noop(t *testing.T) {
	t.Setenv("XDG_SESSION_TYPE", "tty")
	t.Setenv("HYPRLAND_INSTANCE_SIGNATURE", "")

	f := NewFocuser(newTestLogger(t))
	assert.Nil(t, f.impl)

	// Must not panic or shell out.
	f.Focus()
}

func TestMatchHyprlandClient_matches_by_class(t *testing.T) {
	clients := `[
		{"address": "0x1", "class": "firefox", "title": "Mozilla Firefox"},
		{"address": "0x2", "class": "steam_app_238960", "title": "Path of Exile"},
		{"address": "0x3", "class": "Alacritty", "title": "shell"}
	]`

	address, ok := matchHyprlandClient([]byte(clients), gameClasses, gameTitles)
	require.True(t, ok)
	assert.Equal(t, "0x2", address)
}

func TestMatchHyprlandClient_falls_back_to_title(t *testing.T) {
	clients := `[
		{"address": "0x7", "class": "gamescope", "title": "Path of Exile"}
	]`

	address, ok := matchHyprlandClient([]byte(clients), gameClasses, gameTitles)
	require.True(t, ok)
	assert.Equal(t, "0x7", address)
}

func TestMatchHyprlandClient_no_game_window(t *testing.T) {
	clients := `[{"address": "0x1", "class": "firefox", "title": "browser"}]`

	_, ok := matchHyprlandClient([]byte(clients), gameClasses, gameTitles)
	assert.False(t, ok)

	_, ok = matchHyprlandClient([]byte("not json"), gameClasses, gameTitles)
	assert.False(t, ok)
}

// Package wm raises the game window when a stash grid session starts.
// Focus is best effort: unsupported sessions degrade to a no-op and
// failures are only logged, never fatal.
package wm

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"exile-companion/pkg/logger"
)

// Window identifiers of the Path of Exile client across launchers.
var (
	gameClasses = []string{"steam_app_238960", "steam_app_2694490", "pathofexile"}
	gameTitles  = []string{"Path of Exile"}
)

// Focuser picks a window manager backend once at construction based on the
// session environment.
type Focuser struct {
	log  *logger.Logger
	impl func() error
}

// NewFocuser detects the running session. Wayland is supported through
// Hyprland's hyprctl, X11 through xdotool; anything else disables focusing.
func NewFocuser(log *logger.Logger) *Focuser {
	f := &Focuser{log: log}

	switch os.Getenv("XDG_SESSION_TYPE") {
	case "wayland":
		if os.Getenv("HYPRLAND_INSTANCE_SIGNATURE") != "" {
			if _, err := exec.LookPath("hyprctl"); err == nil {
				log.Debug("Game focus backend selected", "backend", "hyprland")
				f.impl = f.focusHyprland
				return f
			}
		}
	case "x11":
		if _, err := exec.LookPath("xdotool"); err == nil {
			log.Debug("Game focus backend selected", "backend", "x11")
			f.impl = f.focusX11
			return f
		}
	}

	log.Debug("No supported window manager found, game focus disabled")
	return f
}

// Focus raises the game window. Safe to call in any session.
func (f *Focuser) Focus() {
	if f.impl == nil {
		return
	}
	if err := f.impl(); err != nil {
		f.log.Debug("Failed to focus game window", "error", err)
	}
}

func (f *Focuser) focusHyprland() error {
	output, err := exec.Command("hyprctl", "clients", "-j").Output()
	if err != nil {
		return fmt.Errorf("hyprctl clients failed: %w", err)
	}

	address, ok := matchHyprlandClient(output, gameClasses, gameTitles)
	if !ok {
		return fmt.Errorf("no game window among hyprland clients")
	}

	if err := exec.Command("hyprctl", "dispatch", "focuswindow", "address:"+address).Run(); err != nil {
		return fmt.Errorf("hyprctl dispatch failed: %w", err)
	}
	return nil
}

// matchHyprlandClient picks the first client from `hyprctl clients -j`
// output whose class contains a known game class or whose title equals a
// known game title.
func matchHyprlandClient(data []byte, classes, titles []string) (string, bool) {
	var clients []struct {
		Address string `json:"address"`
		Class   string `json:"class"`
		Title   string `json:"title"`
	}
	if err := json.Unmarshal(data, &clients); err != nil {
		return "", false
	}

	for _, client := range clients {
		for _, class := range classes {
			if strings.Contains(strings.ToLower(client.Class), strings.ToLower(class)) {
				return client.Address, true
			}
		}
		for _, title := range titles {
			if strings.EqualFold(client.Title, title) {
				return client.Address, true
			}
		}
	}
	return "", false
}

func (f *Focuser) focusX11() error {
	for _, class := range gameClasses {
		out, err := exec.Command("xdotool", "search", "--class", class).Output()
		if err != nil || len(out) == 0 {
			continue
		}
		windowID := strings.Split(strings.TrimSpace(string(out)), "\n")[0]
		if err := exec.Command("xdotool", "windowactivate", windowID).Run(); err != nil {
			return fmt.Errorf("xdotool windowactivate failed: %w", err)
		}
		return nil
	}
	return fmt.Errorf("no game window found via xdotool")
}

package notify

import (
	"fmt"
	"os/exec"

	"github.com/gen2brain/beeep"
	"golang.org/x/time/rate"

	"exile-companion/pkg/logger"
)

// NotificationType represents the type of notification
type NotificationType int

const (
	Error NotificationType = iota
	Info
)

// NotifyService shows desktop notifications. Repeated whispers can spam the
// log at chat speed, so toasts are rate limited.
type NotifyService struct {
	log           *logger.Logger
	notifyCommand string
	limiter       *rate.Limiter
}

// NewNotifyService creates a new notification service
func NewNotifyService(notifyCommand string, log *logger.Logger) *NotifyService {
	return &NotifyService{
		log:           log,
		notifyCommand: notifyCommand,
		limiter:       rate.NewLimiter(rate.Limit(0.5), 3),
	}
}

// Show displays a notification of the specified type
func (n *NotifyService) Show(message string, nType NotificationType) error {
	if !n.limiter.Allow() {
		n.log.Debug("Notification rate limited", "message", message)
		return nil
	}

	// A configured notification command takes precedence
	if n.notifyCommand != "" {
		if err := n.executeNotifyCommand(message, nType); err == nil {
			return nil
		}
		n.log.Warn("Custom notification command failed", "command", n.notifyCommand)
	}

	if nType == Error {
		return beeep.Alert("Exile Companion", message, "")
	}
	return beeep.Notify("Exile Companion", message, "")
}

func (n *NotifyService) executeNotifyCommand(message string, nType NotificationType) error {
	typeStr := "ERROR"
	if nType == Info {
		typeStr = "INFO"
	}

	// The message is chat text under the counterpart's control; it goes in as
	// an argument, never into the shell string.
	cmd := exec.Command("sh", "-c", fmt.Sprintf(`%s "$0" "$1"`, n.notifyCommand), typeStr, message)
	return cmd.Run()
}

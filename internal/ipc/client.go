package ipc

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"

	"exile-companion/pkg/logger"
)

const maxDialAttempts = 8

// Dial connects a surface to the host endpoint, retrying with backoff while
// the host is still coming up.
func Dial(ctx context.Context, addr string, log *logger.Logger) (Channel, error) {
	url := fmt.Sprintf("ws://%s%s", addr, endpointPath)
	retry := &backoff.Backoff{
		Min:    100 * time.Millisecond,
		Max:    5 * time.Second,
		Jitter: true,
	}

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err == nil {
			log.Debug("Connected to companion endpoint", "url", url)
			return newWSChannel(conn), nil
		}
		if retry.Attempt() >= maxDialAttempts {
			return nil, fmt.Errorf("failed to reach companion endpoint at %s: %w", url, err)
		}

		delay := retry.Duration()
		log.Debug("Companion endpoint not reachable, retrying",
			"url", url,
			"delay", delay,
			"error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}

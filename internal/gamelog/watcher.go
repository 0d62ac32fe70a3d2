// Package gamelog tails the Path of Exile client log and feeds appended
// lines to a handler. Classification of the lines happens elsewhere.
package gamelog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"exile-companion/pkg/logger"
)

// pollInterval is the fallback cadence when fsnotify misses events, which
// happens on some filesystems the game runs on (NTFS under Proton).
const pollInterval = 500 * time.Millisecond

// Watcher tails one log file from its current end.
type Watcher struct {
	path    string
	handler func(string)
	log     *logger.Logger

	stopChan chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher for path. handler is called once per appended
// line, from the watch goroutine.
func NewWatcher(path string, handler func(string), log *logger.Logger) *Watcher {
	log.Debug("Initializing log watcher", "path", path)
	return &Watcher{
		path:     path,
		handler:  handler,
		log:      log,
		stopChan: make(chan struct{}),
	}
}

// Watch blocks reading the file until Stop is called or the file becomes
// unreadable. Lines already present when Watch starts are skipped.
func (w *Watcher) Watch() error {
	w.log.Info("Starting log watch routine", "path", w.path)

	file, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	wakeup, cleanup := w.notifyChannel()
	defer cleanup()

	return w.watchLoop(file, wakeup)
}

// notifyChannel returns a channel that fires when the log's directory sees
// writes. When fsnotify is unavailable the channel is nil and the poll
// ticker alone drives the loop.
func (w *Watcher) notifyChannel() (<-chan fsnotify.Event, func()) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.log.Warn("fsnotify unavailable, falling back to polling", "error", err)
		return nil, func() {}
	}
	if err := fsWatcher.Add(filepath.Dir(w.path)); err != nil {
		w.log.Warn("Failed to watch log directory, falling back to polling",
			"dir", filepath.Dir(w.path),
			"error", err)
		fsWatcher.Close()
		return nil, func() {}
	}
	return fsWatcher.Events, func() { fsWatcher.Close() }
}

func (w *Watcher) watchLoop(file *os.File, wakeup <-chan fsnotify.Event) error {
	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat log file: %w", err)
	}

	// Start at the end: history was handled in a previous run.
	offset := stat.Size()
	lastSize := offset

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return nil
		case <-ticker.C:
		case <-wakeup:
		}

		stat, err := file.Stat()
		if err != nil {
			w.log.Error("Failed to stat log file", err)
			continue
		}
		currentSize := stat.Size()

		if currentSize < lastSize {
			w.log.Info("Log file was truncated, resetting",
				"old_size", lastSize,
				"new_size", currentSize)
			offset = 0
			lastSize = 0
		}
		lastSize = currentSize

		if currentSize <= offset {
			continue
		}

		if _, err := file.Seek(offset, 0); err != nil {
			w.log.Error("Failed to seek log file", err)
			continue
		}

		// The offset only advances over newline-terminated lines: a line the
		// game is still writing stays unread until its newline arrives, and
		// nothing is ever delivered twice.
		reader := bufio.NewReaderSize(file, 64*1024)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				break
			}
			offset += int64(len(line))
			w.handler(strings.TrimRight(line, "\r\n"))
		}
	}
}

// Stop signals the watch routine to return. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("Stopping log watcher")
		close(w.stopChan)
	})
}

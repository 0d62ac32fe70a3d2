package gamelog

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exile-companion/pkg/logger"
)

type lineCollector struct {
	mu    sync.Mutex
	lines []string
}

func (c *lineCollector) handle(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = append(c.lines, line)
}

func (c *lineCollector) snapshot() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *lineCollector) waitFor(t *testing.T, count int) []string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if lines := c.snapshot(); len(lines) >= count {
			return lines
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines, got %v", count, c.snapshot())
	return nil
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(logger.WithFile(filepath.Join(t.TempDir(), "test.log")))
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return log
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	defer f.Close()
	_, err = f.WriteString(line + "\n")
	require.NoError(t, err)
}

func TestWatcher_emits_only_appended_lines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Client.txt")
	require.NoError(t, os.WriteFile(path, []byte("old line\n"), 0644))

	collector := &lineCollector{}
	w := NewWatcher(path, collector.handle, newTestLogger(t))
	t.Cleanup(w.Stop)

	done := make(chan error, 1)
	go func() { done <- w.Watch() }()

	appendLine(t, path, "first")
	appendLine(t, path, "second")

	lines := collector.waitFor(t, 2)
	assert.Equal(t, []string{"first", "second"}, lines)
	assert.NotContains(t, lines, "old line")

	w.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_holds_back_unterminated_lines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Client.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	collector := &lineCollector{}
	w := NewWatcher(path, collector.handle, newTestLogger(t))
	t.Cleanup(w.Stop)

	go w.Watch()

	// Write a line the game has not finished yet.
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	require.NoError(t, err)
	_, err = f.WriteString("half a li")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Give the watcher a few poll cycles; the fragment must not surface.
	time.Sleep(1200 * time.Millisecond)
	assert.Empty(t, collector.snapshot())

	appendLine(t, path, "ne and its end")
	appendLine(t, path, "a whole second line")

	lines := collector.waitFor(t, 2)
	assert.Equal(t, []string{"half a line and its end", "a whole second line"}, lines)
}

func TestWatcher_never_delivers_a_line_twice(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Client.txt")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	collector := &lineCollector{}
	w := NewWatcher(path, collector.handle, newTestLogger(t))
	t.Cleanup(w.Stop)

	go w.Watch()

	const total = 40
	for i := 0; i < total; i++ {
		appendLine(t, path, fmt.Sprintf("line %02d", i))
		if i%7 == 0 {
			time.Sleep(30 * time.Millisecond)
		}
	}

	lines := collector.waitFor(t, total)
	seen := make(map[string]int, total)
	for _, line := range lines {
		seen[line]++
	}
	require.Len(t, lines, total)
	for line, count := range seen {
		assert.Equal(t, 1, count, "line %q delivered %d times", line, count)
	}
}

func TestWatcher_recovers_from_truncation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Client.txt")
	require.NoError(t, os.WriteFile(path, []byte("preexisting content longer than the new file\n"), 0644))

	collector := &lineCollector{}
	w := NewWatcher(path, collector.handle, newTestLogger(t))
	t.Cleanup(w.Stop)

	go w.Watch()

	require.NoError(t, os.WriteFile(path, []byte("after truncation\n"), 0644))

	lines := collector.waitFor(t, 1)
	assert.Contains(t, lines, "after truncation")
}

func TestWatcher_missing_file_errors(t *testing.T) {
	w := NewWatcher(filepath.Join(t.TempDir(), "nope.txt"), func(string) {}, newTestLogger(t))
	require.Error(t, w.Watch())
}

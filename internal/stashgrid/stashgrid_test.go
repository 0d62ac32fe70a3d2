package stashgrid

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exile-companion/internal/ipc"
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

// optionsRecorder captures every emit of the host's options sink.
type optionsRecorder struct {
	mu      sync.Mutex
	history []*models.StashGridOptions
}

func (r *optionsRecorder) sink(options *models.StashGridOptions) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, options)
}

func (r *optionsRecorder) last() *models.StashGridOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.history) == 0 {
		return nil
	}
	return r.history[len(r.history)-1]
}

func (r *optionsRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// wire connects a Host and a Requester over an in-memory pipe and pumps the
// host side's envelopes.
func wire(t *testing.T) (*Host, *Requester, *optionsRecorder) {
	t.Helper()
	log := newTestLogger(t)

	recorder := &optionsRecorder{}
	host := NewHost(recorder.sink, nil, log)

	hostEnd, surfaceEnd := ipc.Pipe()
	t.Cleanup(func() { hostEnd.Close() })

	go func() {
		for {
			select {
			case env := <-hostEnd.Receive():
				if env.Kind == ipc.KindStashGridOptions {
					host.HandleRequest(hostEnd, env)
				}
			case <-hostEnd.Closed():
				return
			}
		}
	}()

	return host, NewRequester(surfaceEnd, log), recorder
}

func editResult(requester *Requester, options models.StashGridOptions) <-chan *models.Rectangle {
	result := make(chan *models.Rectangle, 1)
	go func() {
		bounds, err := requester.EditStashGrid(context.Background(), options)
		if err != nil {
			bounds = nil
		}
		result <- bounds
	}()
	return result
}

func waitActive(t *testing.T, host *Host, want bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if host.Active() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("host never reached active=%v", want)
}

func TestHost_Complete_resolves_edit_request(t *testing.T) {
	host, requester, recorder := wire(t)

	result := editResult(requester, models.StashGridOptions{GridType: models.StashGridQuad})
	waitActive(t, host, true)

	emitted := recorder.last()
	require.NotNil(t, emitted)
	assert.Equal(t, models.StashGridQuad, emitted.GridType)
	assert.True(t, emitted.EditMode)

	want := &models.Rectangle{X: 100, Y: 200, Width: 600, Height: 600}
	host.Complete(want)

	select {
	case bounds := <-result:
		assert.Equal(t, want, bounds)
	case <-time.After(2 * time.Second):
		t.Fatal("edit request never resolved")
	}

	assert.False(t, host.Active())
	assert.Nil(t, recorder.last(), "overlay should be hidden after completion")
}

func TestHost_newer_request_supersedes_older(t *testing.T) {
	host, requester, recorder := wire(t)

	first := editResult(requester, models.StashGridOptions{GridType: models.StashGridNormal})
	waitActive(t, host, true)

	second := editResult(requester, models.StashGridOptions{GridType: models.StashGridQuad})

	// The first requester resolves to null as soon as the second arrives.
	select {
	case bounds := <-first:
		assert.Nil(t, bounds)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded request never resolved")
	}

	want := &models.Rectangle{X: 1, Y: 2, Width: 3, Height: 4}
	host.Complete(want)

	select {
	case bounds := <-second:
		assert.Equal(t, want, bounds)
	case <-time.After(2 * time.Second):
		t.Fatal("winning request never resolved")
	}

	assert.Equal(t, models.StashGridQuad, recorder.history[1].GridType)
}

func TestHost_Complete_while_idle_is_noop(t *testing.T) {
	host, _, recorder := wire(t)

	host.Complete(&models.Rectangle{X: 1, Y: 1, Width: 1, Height: 1})
	host.Complete(nil)

	assert.False(t, host.Active())
	assert.Zero(t, recorder.count(), "idle completion must not touch the overlay")
}

func TestHost_null_options_hide_the_grid(t *testing.T) {
	host, requester, recorder := wire(t)

	pending := editResult(requester, models.StashGridOptions{GridType: models.StashGridNormal})
	waitActive(t, host, true)

	require.NoError(t, requester.HideStashGrid(context.Background()))

	select {
	case bounds := <-pending:
		assert.Nil(t, bounds)
	case <-time.After(2 * time.Second):
		t.Fatal("hidden session never resolved")
	}

	assert.False(t, host.Active())
	assert.Nil(t, recorder.last())
}

func TestRequester_resolves_nil_when_channel_closes(t *testing.T) {
	host, requester, _ := wire(t)

	result := editResult(requester, models.StashGridOptions{GridType: models.StashGridNormal})
	waitActive(t, host, true)

	requester.ch.Close()

	select {
	case bounds := <-result:
		assert.Nil(t, bounds)
	case <-time.After(2 * time.Second):
		t.Fatal("request never resolved after channel close")
	}
}

func TestRequester_ignores_stale_reply(t *testing.T) {
	log := newTestLogger(t)
	hostEnd, surfaceEnd := ipc.Pipe()
	t.Cleanup(func() { hostEnd.Close() })

	requester := NewRequester(surfaceEnd, log)

	// A reply for an id that was never requested is dropped silently.
	env, err := ipc.NewEnvelope(ipc.KindStashGridReply, "no-such-id", &models.Rectangle{X: 9})
	require.NoError(t, err)
	require.NoError(t, hostEnd.Send(env))

	// The channel stays usable afterwards.
	host := NewHost(nil, nil, log)
	go func() {
		for {
			select {
			case env := <-hostEnd.Receive():
				if env.Kind == ipc.KindStashGridOptions {
					host.HandleRequest(hostEnd, env)
				}
			case <-hostEnd.Closed():
				return
			}
		}
	}()

	result := editResult(requester, models.StashGridOptions{})
	waitActive(t, host, true)
	host.Complete(&models.Rectangle{X: 5, Y: 6, Width: 7, Height: 8})

	select {
	case bounds := <-result:
		require.NotNil(t, bounds)
		assert.Equal(t, 5, bounds.X)
	case <-time.After(2 * time.Second):
		t.Fatal("request never resolved")
	}
}

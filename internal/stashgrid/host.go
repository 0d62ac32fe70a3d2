// Package stashgrid coordinates the exclusive stash-grid highlight session
// between the settings surface (requester) and the main overlay surface
// (host). At most one session is active at any instant; a newer request
// abandons the old one.
package stashgrid

import (
	"encoding/json"
	"sync"

	"exile-companion/internal/ipc"
	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

// OptionsSink receives the options the local overlay should render; nil
// hides the grid.
type OptionsSink func(*models.StashGridOptions)

// FocusFunc asks the window layer to bring the game and the overlay window
// back into focus when a session starts.
type FocusFunc func()

type session struct {
	ch ipc.Channel
	id string
}

// Host owns the "what rectangle is currently highlighted" state on the main
// surface. It is the sole mutator of the current session.
type Host struct {
	log       *logger.Logger
	onOptions OptionsSink
	focus     FocusFunc

	mu      sync.Mutex
	current *session
}

// NewHost creates an idle host. onOptions and focus may be nil.
func NewHost(onOptions OptionsSink, focus FocusFunc, log *logger.Logger) *Host {
	return &Host{
		log:       log,
		onOptions: onOptions,
		focus:     focus,
	}
}

// Active reports whether a session is currently open.
func (h *Host) Active() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current != nil
}

// HandleRequest processes one stash-grid-options envelope from a surface.
// A non-nil payload opens a session, abandoning any prior one with a null
// reply (last-request-wins). A null payload hides the grid and is answered
// immediately.
func (h *Host) HandleRequest(ch ipc.Channel, env ipc.Envelope) {
	options, err := decodeOptions(env.Payload)
	if err != nil {
		h.log.Error("Ignoring malformed stash grid request", err, "id", env.ID)
		return
	}

	h.mu.Lock()
	prev := h.current
	if options == nil {
		h.current = nil
	} else {
		h.current = &session{ch: ch, id: env.ID}
	}
	h.mu.Unlock()

	if prev != nil {
		// Abandoned session: the old requester resolves to null.
		h.reply(prev, nil)
	}

	if options == nil {
		h.emit(nil)
		h.reply(&session{ch: ch, id: env.ID}, nil)
		h.log.Debug("Stash grid hidden", "id", env.ID)
		return
	}

	h.emit(options)
	if h.focus != nil {
		h.focus()
	}
	h.log.Debug("Stash grid session started",
		"id", env.ID,
		"grid_type", options.GridType,
		"edit_mode", options.EditMode)
}

// Complete finishes the active session with the final bounds (nil for
// cancel), hides the overlay and returns to idle. Without an active session
// it is a no-op.
func (h *Host) Complete(bounds *models.Rectangle) {
	h.mu.Lock()
	cur := h.current
	h.current = nil
	h.mu.Unlock()

	if cur == nil {
		return
	}

	h.emit(nil)
	h.reply(cur, bounds)
	h.log.Debug("Stash grid session completed", "id", cur.id, "canceled", bounds == nil)
}

func (h *Host) emit(options *models.StashGridOptions) {
	if h.onOptions != nil {
		h.onOptions(options)
	}
}

func (h *Host) reply(s *session, bounds *models.Rectangle) {
	env, err := ipc.NewEnvelope(ipc.KindStashGridReply, s.id, bounds)
	if err != nil {
		h.log.Error("Failed to build stash grid reply", err, "id", s.id)
		return
	}
	if err := s.ch.Send(env); err != nil {
		h.log.Debug("Stash grid reply not delivered", "id", s.id, "error", err)
	}
}

func decodeOptions(raw json.RawMessage) (*models.StashGridOptions, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var options models.StashGridOptions
	if err := json.Unmarshal(raw, &options); err != nil {
		return nil, err
	}
	return &options, nil
}

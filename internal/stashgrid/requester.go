package stashgrid

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"exile-companion/internal/ipc"
	"exile-companion/internal/models"
	"exile-companion/pkg/logger"
)

// Requester is the surface side of a stash-grid session. Each request is
// tagged with a fresh id and resolved by the first of: a matching reply from
// the host, or the channel closing.
type Requester struct {
	ch  ipc.Channel
	log *logger.Logger

	mu      sync.Mutex
	pending map[string]chan *models.Rectangle
}

// NewRequester starts the reply dispatcher on ch.
func NewRequester(ch ipc.Channel, log *logger.Logger) *Requester {
	r := &Requester{
		ch:      ch,
		log:     log,
		pending: make(map[string]chan *models.Rectangle),
	}
	go r.dispatch()
	return r
}

func (r *Requester) dispatch() {
	for {
		select {
		case env := <-r.ch.Receive():
			if env.Kind != ipc.KindStashGridReply {
				continue
			}
			r.deliver(env)
		case <-r.ch.Closed():
			r.failAll()
			return
		}
	}
}

func (r *Requester) deliver(env ipc.Envelope) {
	var bounds *models.Rectangle
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		bounds = &models.Rectangle{}
		if err := json.Unmarshal(env.Payload, bounds); err != nil {
			r.log.Error("Ignoring malformed stash grid reply", err, "id", env.ID)
			bounds = nil
		}
	}

	r.mu.Lock()
	ch, ok := r.pending[env.ID]
	delete(r.pending, env.ID)
	r.mu.Unlock()

	if !ok {
		// Reply for an already-abandoned request.
		r.log.Debug("Dropping stale stash grid reply", "id", env.ID)
		return
	}
	ch <- bounds
}

// failAll resolves every outstanding request to null once the host is gone.
func (r *Requester) failAll() {
	r.mu.Lock()
	pending := r.pending
	r.pending = make(map[string]chan *models.Rectangle)
	r.mu.Unlock()

	for _, ch := range pending {
		ch <- nil
	}
}

// ShowStashGrid highlights a location on the host and waits for the session
// to end. The result bounds are irrelevant outside edit mode.
func (r *Requester) ShowStashGrid(ctx context.Context, options models.StashGridOptions) error {
	options.EditMode = false
	_, err := r.request(ctx, &options)
	return err
}

// EditStashGrid opens the grid in edit mode and returns the bounds the user
// confirmed, or nil when the session was canceled or superseded.
func (r *Requester) EditStashGrid(ctx context.Context, options models.StashGridOptions) (*models.Rectangle, error) {
	options.EditMode = true
	return r.request(ctx, &options)
}

// HideStashGrid asks the host to drop any visible grid. Fire-and-forget; the
// host still acknowledges with a null reply which the dispatcher resolves.
func (r *Requester) HideStashGrid(ctx context.Context) error {
	_, err := r.request(ctx, nil)
	return err
}

func (r *Requester) request(ctx context.Context, options *models.StashGridOptions) (*models.Rectangle, error) {
	id := uuid.NewString()
	env, err := ipc.NewEnvelope(ipc.KindStashGridOptions, id, options)
	if err != nil {
		return nil, err
	}

	result := make(chan *models.Rectangle, 1)
	r.mu.Lock()
	r.pending[id] = result
	r.mu.Unlock()

	if err := r.ch.Send(env); err != nil {
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		return nil, fmt.Errorf("failed to send stash grid request: %w", err)
	}

	select {
	case bounds := <-result:
		return bounds, nil
	case <-ctx.Done():
		r.mu.Lock()
		delete(r.pending, id)
		r.mu.Unlock()
		return nil, ctx.Err()
	}
}

// Package ipc is the message channel between the companion surfaces. The
// host serves a local WebSocket endpoint; settings/overlay surfaces connect
// to it. Both sides exchange JSON envelopes and learn about a torn-down peer
// through the channel's Closed signal.
package ipc

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Message kinds carried in envelopes.
const (
	KindStashGridOptions  = "stash-grid-options"
	KindStashGridReply    = "stash-grid-options-reply"
	KindStashGridState    = "stash-grid-state"
	KindStashGridComplete = "stash-grid-complete"
	KindTradeNotification = "trade-notification"
	KindCompanionConfig   = "companion-config"
	KindDismiss           = "dismiss-notification"
	KindExample           = "trade-notification-example"
)

// Envelope is one framed message. ID pairs a request with its one-shot
// reply; broadcasts leave it empty.
type Envelope struct {
	Kind    string          `json:"kind"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals the payload into an envelope.
func NewEnvelope(kind, id string, payload interface{}) (Envelope, error) {
	env := Envelope{Kind: kind, ID: id}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}
	env.Payload = raw
	return env, nil
}

// Channel is one bidirectional message stream. Consumers must watch Closed
// alongside Receive; Send on a closed channel returns an error.
type Channel interface {
	Send(Envelope) error
	Receive() <-chan Envelope
	Closed() <-chan struct{}
	Close() error
}

// pipeChannel is the in-memory Channel used by tests and same-process
// surfaces. Closing either end tears down both.
type pipeChannel struct {
	peer   *pipeChannel
	recv   chan Envelope
	closed chan struct{}
	once   *sync.Once
}

// Pipe returns two connected in-memory channel ends.
func Pipe() (Channel, Channel) {
	shared := &sync.Once{}
	a := &pipeChannel{recv: make(chan Envelope, 16), closed: make(chan struct{}), once: shared}
	b := &pipeChannel{recv: make(chan Envelope, 16), closed: make(chan struct{}), once: shared}
	a.peer, b.peer = b, a
	return a, b
}

func (p *pipeChannel) Send(env Envelope) error {
	select {
	case <-p.closed:
		return fmt.Errorf("channel closed")
	case p.peer.recv <- env:
		return nil
	}
}

func (p *pipeChannel) Receive() <-chan Envelope {
	return p.recv
}

func (p *pipeChannel) Closed() <-chan struct{} {
	return p.closed
}

func (p *pipeChannel) Close() error {
	p.once.Do(func() {
		close(p.closed)
		close(p.peer.closed)
	})
	return nil
}

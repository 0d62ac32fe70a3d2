package ipc

import (
	"sync"

	"github.com/gorilla/websocket"
)

// wsChannel adapts one WebSocket connection to the Channel interface. A
// single read pump feeds Receive; writes are serialized with a mutex.
type wsChannel struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	recv      chan Envelope
	closed    chan struct{}
	closeOnce sync.Once
}

func newWSChannel(conn *websocket.Conn) *wsChannel {
	ch := &wsChannel{
		conn:   conn,
		recv:   make(chan Envelope, 16),
		closed: make(chan struct{}),
	}
	go ch.readLoop()
	return ch
}

func (c *wsChannel) readLoop() {
	defer c.Close()
	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		select {
		case c.recv <- env:
		case <-c.closed:
			return
		}
	}
}

func (c *wsChannel) Send(env Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

func (c *wsChannel) Receive() <-chan Envelope {
	return c.recv
}

func (c *wsChannel) Closed() <-chan struct{} {
	return c.closed
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.conn.Close()
	})
	return nil
}

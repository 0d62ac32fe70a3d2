package ipc

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"exile-companion/pkg/logger"
)

const endpointPath = "/companion"

// ConnHandler is invoked once per connected surface, on its own goroutine.
type ConnHandler func(Channel)

// Server is the host side of the companion channel: a local WebSocket
// endpoint the settings and overlay surfaces connect to.
type Server struct {
	addr    string
	log     *logger.Logger
	handler ConnHandler

	upgrader   websocket.Upgrader
	httpServer *http.Server

	mu    sync.Mutex
	conns map[*wsChannel]struct{}
}

// NewServer creates a server listening on addr once started.
func NewServer(addr string, handler ConnHandler, log *logger.Logger) *Server {
	return &Server{
		addr:    addr,
		log:     log,
		handler: handler,
		upgrader: websocket.Upgrader{
			// The listener is bound to localhost; browser origins are fine.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[*wsChannel]struct{}),
	}
}

// Start binds the listener and serves in the background.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc(endpointPath, s.handleUpgrade)

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.Error("Companion endpoint stopped", err)
		}
	}()

	s.log.Info("Companion endpoint started", "addr", s.addr)
	return nil
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("Failed to upgrade connection", err, "remote_addr", r.RemoteAddr)
		return
	}

	ch := newWSChannel(conn)
	s.mu.Lock()
	s.conns[ch] = struct{}{}
	s.mu.Unlock()

	s.log.Debug("Surface connected", "remote_addr", r.RemoteAddr)

	go func() {
		defer func() {
			s.mu.Lock()
			delete(s.conns, ch)
			s.mu.Unlock()
			ch.Close()
			s.log.Debug("Surface disconnected", "remote_addr", r.RemoteAddr)
		}()
		s.handler(ch)
	}()
}

// Broadcast sends an envelope to every connected surface.
func (s *Server) Broadcast(env Envelope) {
	s.mu.Lock()
	conns := make([]*wsChannel, 0, len(s.conns))
	for ch := range s.conns {
		conns = append(conns, ch)
	}
	s.mu.Unlock()

	for _, ch := range conns {
		if err := ch.Send(env); err != nil {
			s.log.Debug("Broadcast to surface failed", "kind", env.Kind, "error", err)
		}
	}
}

// Shutdown closes all surface channels and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	conns := make([]*wsChannel, 0, len(s.conns))
	for ch := range s.conns {
		conns = append(conns, ch)
	}
	s.conns = make(map[*wsChannel]struct{})
	s.mu.Unlock()

	for _, ch := range conns {
		ch.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

package server

import (
	"sync"
	"time"

	"github.com/kode4food/twill/internal/config"
	"github.com/kode4food/twill/internal/engine"
	"github.com/kode4food/twill/internal/events"
	"github.com/kode4food/twill/pkg/util"
)

// Server implements the HTTP API for a persistently served flow: the
// management endpoints, the flow's own declared routes, and the
// websocket event stream
type Server struct {
	engine  *engine.Engine
	hub     *events.Hub
	config  *config.Config
	reload  func()
	sockets util.Set[*Client]
	started time.Time
	mu      sync.Mutex
}

// NewServer creates an HTTP API server around a running engine
func NewServer(
	eng *engine.Engine, hub *events.Hub, cfg *config.Config,
) *Server {
	return &Server{
		engine:  eng,
		hub:     hub,
		config:  cfg,
		sockets: util.Set[*Client]{},
		started: time.Now(),
	}
}

// SetReload installs the function the reload endpoint invokes, normally
// the watcher's forced reload
func (s *Server) SetReload(fn func()) {
	s.reload = fn
}

func (s *Server) registerWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Add(c)
}

func (s *Server) unregisterWebSocket(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sockets.Remove(c)
}

// CloseWebSockets closes every active websocket connection
func (s *Server) CloseWebSockets() {
	s.mu.Lock()
	conns := make([]*Client, 0, len(s.sockets))
	for c := range s.sockets {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Package bridge exposes the orchestration engine to editor clients over a
// WebSocket connection. It is a pure relay: edit frames are handed to the
// runner, progress events and the final result stream back, and invalidate
// frames drop cached snapshots. One connection serves one editor client.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/patchpilot/patchpilot/pkg/events"
	"github.com/patchpilot/patchpilot/pkg/orchestration"
	"github.com/patchpilot/patchpilot/pkg/utils"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8097"

const readLimit = 512 * 1024

// Frame types exchanged with editor clients. connected and error frames are
// connection management; edit, invalidate, event, and result frames carry
// the relay payloads.
const (
	FrameEdit       = "edit"
	FrameInvalidate = "invalidate"
	FrameConnected  = "connected"
	FrameEvent      = "event"
	FrameResult     = "result"
	FrameError      = "error"
)

// ClientFrame is one message from an editor client.
type ClientFrame struct {
	Type        string                     `json:"type"`
	Request     *orchestration.EditRequest `json:"request,omitempty"`
	ProjectRoot string                     `json:"projectRoot,omitempty"`
}

// ServerFrame is one message to an editor client.
type ServerFrame struct {
	Type      string                `json:"type"`
	SessionID string                `json:"sessionId,omitempty"`
	Event     *events.Event         `json:"event,omitempty"`
	Result    *orchestration.Result `json:"result,omitempty"`
	Error     string                `json:"error,omitempty"`
}

// Runner runs one edit request to completion. *orchestration.Orchestrator
// satisfies it.
type Runner interface {
	Run(ctx context.Context, req orchestration.EditRequest) orchestration.Result
}

// Server relays edit requests to a runner, one editor client per connection.
// Events published on the shared bus are forwarded to every connected
// client; the run ID on each event lets clients correlate.
type Server struct {
	runner Runner
	cache  *workspace.Cache
	bus    *events.Bus
	logger *utils.Logger

	addr     string
	upgrader websocket.Upgrader
	server   *http.Server
	listener net.Listener
	conns    sync.Map
	mutex    sync.Mutex
	running  bool
	started  time.Time
}

// NewServer wires a bridge server. cache and bus may be nil when snapshot
// invalidation or event relay are not needed; logger may be nil.
func NewServer(addr string, runner Runner, cache *workspace.Cache, bus *events.Bus, logger *utils.Logger) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{
		runner: runner,
		cache:  cache,
		bus:    bus,
		logger: logger,
		addr:   addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
	}
}

// Start binds the listen address and serves until ctx is cancelled or
// Shutdown is called. A bind failure is returned immediately.
func (s *Server) Start(ctx context.Context) error {
	s.mutex.Lock()
	if s.running {
		s.mutex.Unlock()
		return fmt.Errorf("bridge server is already running")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.mutex.Unlock()
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleSocket)
	mux.HandleFunc("/health", s.handleHealth)

	s.listener = listener
	s.server = &http.Server{Handler: mux}
	s.running = true
	s.started = time.Now()
	s.mutex.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logError(fmt.Errorf("bridge server: %w", err))
		}
	}()

	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()

	s.logf("bridge listening on %s", listener.Addr())
	return nil
}

// Shutdown stops the server and drops every client connection.
func (s *Server) Shutdown() error {
	s.mutex.Lock()
	if !s.running {
		s.mutex.Unlock()
		return nil
	}
	s.running = false
	s.mutex.Unlock()

	s.conns.Range(func(key, _ interface{}) bool {
		if conn, ok := key.(*safeConn); ok {
			_ = conn.Close()
		}
		return true
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.running
}

// Addr returns the bound address; it differs from the configured one when
// the configuration asked for port 0.
func (s *Server) Addr() string {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

func (s *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logError(fmt.Errorf("websocket upgrade: %w", err))
		return
	}
	safe := newSafeConn(conn)
	defer safe.Close()

	sessionID := uuid.NewString()
	s.conns.Store(safe, sessionID)
	defer s.conns.Delete(safe)
	s.logf("bridge client connected: %s", sessionID)

	// Subscribe before the hello frame goes out, so a client that waits
	// for it never misses run events.
	var eventCh <-chan events.Event
	if s.bus != nil {
		eventCh = s.bus.Subscribe(sessionID)
		defer s.bus.Unsubscribe(sessionID)
	}
	_ = safe.WriteJSON(ServerFrame{Type: FrameConnected, SessionID: sessionID})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		conn.SetReadLimit(readLimit)
		for {
			var frame ClientFrame
			if err := conn.ReadJSON(&frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logError(fmt.Errorf("bridge client %s: %w", sessionID, err))
				}
				return
			}
			s.handleFrame(ctx, safe, frame)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case event := <-eventCh:
			if err := safe.WriteJSON(ServerFrame{Type: FrameEvent, Event: &event}); err != nil {
				return
			}
		}
	}
}

// handleFrame dispatches one client frame. Edit runs detach onto their own
// goroutine so events keep flowing while the runner works.
func (s *Server) handleFrame(ctx context.Context, conn *safeConn, frame ClientFrame) {
	switch frame.Type {
	case FrameEdit:
		if frame.Request == nil {
			_ = conn.WriteJSON(ServerFrame{Type: FrameError, Error: "edit frame is missing its request"})
			return
		}
		req := *frame.Request
		go func() {
			result := s.runner.Run(ctx, req)
			if err := conn.WriteJSON(ServerFrame{Type: FrameResult, Result: &result}); err != nil {
				s.logError(fmt.Errorf("bridge result write: %w", err))
			}
		}()
	case FrameInvalidate:
		if s.cache == nil {
			return
		}
		if frame.ProjectRoot == "" {
			s.cache.InvalidateAll()
		} else {
			s.cache.Invalidate(frame.ProjectRoot)
		}
	default:
		_ = conn.WriteJSON(ServerFrame{Type: FrameError, Error: fmt.Sprintf("unknown frame type %q", frame.Type)})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.started).String(),
	})
}

func (s *Server) logf(format string, v ...interface{}) {
	if s.logger != nil {
		s.logger.Logf(format, v...)
	}
}

func (s *Server) logError(err error) {
	if s.logger != nil {
		s.logger.LogError(err)
	}
}

// safeConn serializes writes from the event relay and run goroutines; reads
// stay on the handler's read goroutine.
type safeConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	closed  bool
}

func newSafeConn(conn *websocket.Conn) *safeConn {
	return &safeConn{conn: conn}
}

func (c *safeConn) WriteJSON(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	return c.conn.WriteJSON(v)
}

func (c *safeConn) Close() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.conn.Close()
}

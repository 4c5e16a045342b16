package bridge

import (
	"context"
	"net"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patchpilot/patchpilot/pkg/events"
	"github.com/patchpilot/patchpilot/pkg/orchestration"
	"github.com/patchpilot/patchpilot/pkg/workspace"
)

type stubRunner struct {
	mu     sync.Mutex
	calls  []orchestration.EditRequest
	result orchestration.Result
}

func (s *stubRunner) Run(_ context.Context, req orchestration.EditRequest) orchestration.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, req)
	return s.result
}

func startServer(t *testing.T, runner Runner, cache *workspace.Cache, bus *events.Bus) *Server {
	t.Helper()
	srv := NewServer("127.0.0.1:0", runner, cache, bus, nil)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, srv.Start(ctx))
	t.Cleanup(func() { _ = srv.Shutdown() })
	return srv
}

// dial connects and consumes the hello frame, so callers start from a
// subscribed connection.
func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hello := readFrame(t, conn)
	require.Equal(t, FrameConnected, hello.Type)
	require.NotEmpty(t, hello.SessionID)
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) ServerFrame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var frame ServerFrame
	require.NoError(t, conn.ReadJSON(&frame))
	return frame
}

func TestEditFrameReturnsResult(t *testing.T) {
	runner := &stubRunner{result: orchestration.Result{
		RunID:     "run-1",
		Succeeded: true,
		FinalCode: "const ok = true;",
	}}
	srv := startServer(t, runner, nil, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientFrame{
		Type: FrameEdit,
		Request: &orchestration.EditRequest{
			InstructionText:    "fix typo",
			SelectedCode:       "const ok = tru;",
			DocumentIdentifier: "a.js",
		},
	}))

	frame := readFrame(t, conn)
	require.Equal(t, FrameResult, frame.Type)
	require.NotNil(t, frame.Result)
	assert.Equal(t, "run-1", frame.Result.RunID)
	assert.True(t, frame.Result.Succeeded)
	assert.Equal(t, "const ok = true;", frame.Result.FinalCode)

	runner.mu.Lock()
	defer runner.mu.Unlock()
	require.Len(t, runner.calls, 1)
	assert.Equal(t, "fix typo", runner.calls[0].InstructionText)
}

func TestEventsAreRelayed(t *testing.T) {
	bus := events.NewBus()
	srv := startServer(t, &stubRunner{}, nil, bus)
	conn := dial(t, srv)

	bus.Publish(events.EventTypeStateChanged, events.StateChangedEvent("run-9", "validating", 0))

	frame := readFrame(t, conn)
	require.Equal(t, FrameEvent, frame.Type)
	require.NotNil(t, frame.Event)
	assert.Equal(t, events.EventTypeStateChanged, frame.Event.Type)
}

func TestInvalidateFrameDropsSnapshot(t *testing.T) {
	cache := workspace.NewCache(workspace.DefaultTTL)
	root := t.TempDir()
	cache.Get(root)
	require.Len(t, cache.Roots(), 1)

	srv := startServer(t, &stubRunner{}, cache, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameInvalidate, ProjectRoot: root}))

	assert.Eventually(t, func() bool {
		return len(cache.Roots()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestInvalidateFrameWithoutRootDropsEverything(t *testing.T) {
	cache := workspace.NewCache(workspace.DefaultTTL)
	cache.Get(t.TempDir())
	cache.Get(t.TempDir())
	require.Len(t, cache.Roots(), 2)

	srv := startServer(t, &stubRunner{}, cache, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameInvalidate}))

	assert.Eventually(t, func() bool {
		return len(cache.Roots()) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEditFrameWithoutRequestReturnsError(t *testing.T) {
	srv := startServer(t, &stubRunner{}, nil, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: FrameEdit}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "missing its request")
}

func TestUnknownFrameTypeReturnsError(t *testing.T) {
	srv := startServer(t, &stubRunner{}, nil, nil)
	conn := dial(t, srv)

	require.NoError(t, conn.WriteJSON(ClientFrame{Type: "bogus"}))

	frame := readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
	assert.Contains(t, frame.Error, "bogus")
}

func TestHealthEndpoint(t *testing.T) {
	srv := startServer(t, &stubRunner{}, nil, nil)

	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStartFailsWhenAddressInUse(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer listener.Close()

	srv := NewServer(listener.Addr().String(), &stubRunner{}, nil, nil, nil)

	err = srv.Start(context.Background())
	require.Error(t, err)
	assert.False(t, srv.IsRunning())
}

func TestShutdownStopsServer(t *testing.T) {
	srv := startServer(t, &stubRunner{}, nil, nil)
	require.True(t, srv.IsRunning())

	require.NoError(t, srv.Shutdown())

	assert.False(t, srv.IsRunning())
}

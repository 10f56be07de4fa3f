package server

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/locsync/pkg/protocol"
)

const testTimeout = 2 * time.Second

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, cfg *ServerConfig) (*Server, *httptest.Server) {
	t.Helper()
	if cfg == nil {
		cfg = &ServerConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = quietLogger()
	}
	srv := New(cfg)
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()
		if err := srv.Sessions().Shutdown(ctx); err != nil {
			t.Errorf("Shutdown() error = %v", err)
		}
		ts.Close()
	})
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + WebSocketPath
}

// dial connects and completes the handshake with the given hello.
func dial(t *testing.T, ts *httptest.Server, hello *protocol.ClientHello) (*websocket.Conn, *protocol.ServerHello) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts), nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	frame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeClientHello(hello))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write hello: %v", err)
	}

	reply := readFrame(t, conn)
	if reply.Type != protocol.FrameHandshake {
		t.Fatalf("reply frame type = %v, want Handshake", reply.Type)
	}
	sh, err := protocol.DecodeServerHello(reply.Payload)
	if err != nil {
		t.Fatalf("DecodeServerHello() error = %v", err)
	}
	return conn, sh
}

func hello(href string, idle bool) *protocol.ClientHello {
	return &protocol.ClientHello{
		Version: protocol.CurrentVersion,
		Href:    href,
		Idle:    idle,
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) *protocol.Frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(testTimeout))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	return frame
}

func readCommands(t *testing.T, conn *websocket.Conn) (*protocol.CommandsFrame, protocol.FrameFlags) {
	t.Helper()
	frame := readFrame(t, conn)
	if frame.Type != protocol.FrameCommands {
		t.Fatalf("frame type = %v, want Commands", frame.Type)
	}
	cf, err := protocol.DecodeCommands(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeCommands() error = %v", err)
	}
	return cf, frame.Flags
}

func sendEvent(t *testing.T, conn *websocket.Conn, ev *protocol.Event) {
	t.Helper()
	frame := protocol.NewFrame(protocol.FrameEvent, protocol.EncodeEvent(ev))
	if err := conn.WriteMessage(websocket.BinaryMessage, frame.Encode()); err != nil {
		t.Fatalf("write event: %v", err)
	}
}

// waitSession waits until the handshake has registered the session.
func waitSession(t *testing.T, srv *Server, id string) *Session {
	t.Helper()
	var sess *Session
	waitFor(t, "session "+id+" registered", func() bool {
		sess = srv.Sessions().Get(id)
		return sess != nil
	})
	return sess
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(testTimeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func commandStrings(cmds []protocol.Command) string {
	parts := make([]string, len(cmds))
	for i, c := range cmds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " ")
}

// fakeHooks counts SessionHooks calls.
type fakeHooks struct {
	mu       sync.Mutex
	opened   []string
	closed   []string
	protoErr []string
}

func (h *fakeHooks) SessionOpened(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opened = append(h.opened, id)
}

func (h *fakeHooks) SessionClosed(id string, _ time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = append(h.closed, id)
}

func (h *fakeHooks) ProtocolError(_ string, kind string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.protoErr = append(h.protoErr, kind)
}

func (h *fakeHooks) counts() (opened, closed, protoErr int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.opened), len(h.closed), len(h.protoErr)
}

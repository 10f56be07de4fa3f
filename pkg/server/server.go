package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/locsync/pkg/journal"
	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/protocol"
)

// Paths served by the server.
const (
	WebSocketPath = "/_locsync/ws"
	ClientPath    = "/_locsync/client.js"
	SessionsPath  = "/_locsync/sessions"
	StatsPath     = "/_locsync/stats"
	HealthPath    = "/healthz"
)

// Server accepts location sync sessions over WebSocket and exposes them
// over a small HTTP API.
type Server struct {
	config   *ServerConfig
	sessions *SessionManager
	upgrader websocket.Upgrader
	logger   *slog.Logger

	routerOnce sync.Once
	router     http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a Server. A nil config uses DefaultServerConfig.
func New(config *ServerConfig) *Server {
	config = config.withDefaults()
	logger := config.Logger.With("component", "server")

	return &Server{
		config:   config,
		sessions: NewSessionManager(config.MaxSessions, config.Logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		logger: logger,
	}
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the effective configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}

// Router returns the HTTP handler for all server routes.
func (s *Server) Router() http.Handler {
	s.routerOnce.Do(func() {
		r := chi.NewRouter()
		r.Use(chimw.RequestID)
		r.Use(chimw.Recoverer)

		r.Get(HealthPath, s.handleHealth)
		r.Get(WebSocketPath, s.HandleWebSocket)
		r.Get(ClientPath, s.serveClient)
		r.Head(ClientPath, s.serveClient)
		r.Get(StatsPath, s.handleStats)

		r.Route(SessionsPath, func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Get("/{id}", s.handleGetSession)
			r.Delete("/{id}", s.handleCloseSession)
			r.Patch("/{id}/location", s.handleUpdateLocation)
			r.Get("/{id}/journal", s.handleGetJournal)
		})

		if s.config.MetricsHandler != nil {
			r.Handle(s.config.MetricsPath, s.config.MetricsHandler)
		}
		if s.config.Handler != nil {
			r.Handle("/*", s.config.Handler)
		}
		s.router = r
	})
	return s.router
}

// HandleWebSocket upgrades the request and runs the handshake. On success
// the session loops are started and the handler returns.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("upgrade failed", "error", err)
		return
	}

	sess, err := s.handshake(r.Context(), conn)
	if err != nil {
		s.logger.Warn("handshake failed", "error", err, "remote_addr", r.RemoteAddr)
		conn.Close()
		return
	}

	s.sessions.Register(sess)
	for _, h := range s.config.Hooks {
		h.SessionOpened(sess.ID)
	}
	sess.Start()
	if s.config.OnSession != nil {
		s.config.OnSession(sess)
	}
}

func (s *Server) handshake(ctx context.Context, conn *websocket.Conn) (*Session, error) {
	cfg := s.config.Session
	conn.SetReadLimit(cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(cfg.HandshakeTimeout))

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	frame, err := protocol.DecodeFrame(msg)
	if err != nil || frame.Type != protocol.FrameHandshake {
		s.handshakeProtocolError()
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		return nil, fmt.Errorf("%w: expected handshake frame", ErrInvalidHandshake)
	}

	hello, err := protocol.DecodeClientHello(frame.Payload)
	if err != nil {
		s.handshakeProtocolError()
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		return nil, &ProtocolError{Kind: "handshake", Err: err}
	}

	if !hello.Version.Compatible() {
		s.sendHandshakeError(conn, protocol.HandshakeVersionMismatch)
		return nil, fmt.Errorf("%w: client version %s, server %s",
			ErrInvalidHandshake, hello.Version, protocol.CurrentVersion)
	}

	loc, err := location.ParseURL(hello.Href)
	if err != nil {
		s.handshakeProtocolError()
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		return nil, fmt.Errorf("%w: %v", ErrInvalidHandshake, err)
	}

	id, reused, err := s.sessions.Reserve(hello.SessionID)
	if err != nil {
		s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
		return nil, err
	}

	var seed []journal.Entry
	if reused && s.config.Journal != nil {
		seed, err = s.config.Journal.Load(ctx, id)
		if err != nil && !errors.Is(err, journal.ErrNotFound) {
			s.logger.Warn("journal load failed", "session_id", id, "error", err)
		}
	}

	sess := newSession(conn, sessionParams{
		id:         id,
		location:   loc,
		idle:       hello.Idle,
		mode:       s.config.HistoryMode,
		observers:  s.config.Observers,
		hooks:      s.config.Hooks,
		store:      s.config.Journal,
		seed:       seed,
		journalMax: s.config.JournalMaxEntries,
		onClose: func(sess *Session) {
			s.sessions.Remove(sess.ID)
		},
	}, cfg, s.config.Logger)

	reply := &protocol.ServerHello{
		Status:     protocol.HandshakeOK,
		SessionID:  id,
		ServerTime: uint64(time.Now().UnixMilli()),
	}
	if err := sess.writeFrame(protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(reply))); err != nil {
		s.sessions.Release(id)
		sess.hooks, sess.store, sess.onClose = nil, nil, nil
		sess.Close()
		return nil, err
	}

	conn.SetReadDeadline(time.Time{})
	sess.logger.Info("handshake complete",
		"href", loc.Href,
		"idle", hello.Idle,
		"resumed", reused)
	return sess, nil
}

func (s *Server) handshakeProtocolError() {
	for _, h := range s.config.Hooks {
		h.ProtocolError("", "handshake")
	}
}

func (s *Server) sendHandshakeError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	sh := &protocol.ServerHello{
		Status:     status,
		ServerTime: uint64(time.Now().UnixMilli()),
	}
	frame := protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(sh))

	conn.SetWriteDeadline(time.Now().Add(s.config.Session.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, frame.Encode())
	conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, status.String()),
		time.Now().Add(time.Second),
	)
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully within ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.config.Address,
		Handler: s.Router(),
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", s.config.Address)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown closes all sessions, then stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down", "active_sessions", s.sessions.Count())

	err := s.sessions.Shutdown(ctx)

	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer != nil {
		if herr := httpServer.Shutdown(ctx); herr != nil && err == nil {
			err = herr
		}
	}
	return err
}

package server

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/locsync/pkg/journal"
	"github.com/vango-dev/locsync/pkg/location"
)

// SessionConfig holds per-session limits and timeouts.
type SessionConfig struct {
	// ReadTimeout is the maximum time to wait for a client message,
	// pongs included. Default: 60s.
	ReadTimeout time.Duration

	// WriteTimeout is the deadline for each write. Default: 10s.
	WriteTimeout time.Duration

	// HandshakeTimeout bounds the wait for the ClientHello. Default: 5s.
	HandshakeTimeout time.Duration

	// HeartbeatInterval is the ping interval. Default: 30s.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the read limit for one WebSocket message. Default: 64KB.
	MaxMessageSize int64

	// MaxEventQueue is the capacity of the event and dispatch queues.
	// Default: 256.
	MaxEventQueue int
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HandshakeTimeout:  5 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		MaxEventQueue:     256,
	}
}

// Clone returns a copy of the SessionConfig.
func (c *SessionConfig) Clone() *SessionConfig {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

func (c *SessionConfig) withDefaults() *SessionConfig {
	d := DefaultSessionConfig()
	if c == nil {
		return d
	}
	out := c.Clone()
	if out.ReadTimeout <= 0 {
		out.ReadTimeout = d.ReadTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.MaxMessageSize <= 0 {
		out.MaxMessageSize = d.MaxMessageSize
	}
	if out.MaxEventQueue <= 0 {
		out.MaxEventQueue = d.MaxEventQueue
	}
	return out
}

// SessionHooks receives session lifecycle notifications.
// *middleware.Metrics implements it.
type SessionHooks interface {
	SessionOpened(sessionID string)
	SessionClosed(sessionID string, lifetime time.Duration)
	ProtocolError(sessionID, kind string)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Address is the listen address. Default: ":8080".
	Address string

	// ReadBufferSize and WriteBufferSize size the WebSocket buffers.
	// Default: 4096 each.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin validates the Origin header of WebSocket upgrades.
	// Default: same origin, or one of AllowedOrigins.
	CheckOrigin func(r *http.Request) bool

	// AllowedOrigins lists extra origins accepted by the default CheckOrigin,
	// e.g. "https://app.example.com".
	AllowedOrigins []string

	// ShutdownTimeout bounds graceful shutdown. Default: 30s.
	ShutdownTimeout time.Duration

	// Session holds per-session settings.
	Session *SessionConfig

	// MaxSessions caps concurrent sessions. Zero means unlimited.
	MaxSessions int

	// HistoryMode selects push or replace for soft updates.
	HistoryMode location.HistoryMode

	// Logger is the base logger. Default: slog.Default().
	Logger *slog.Logger

	// Observers build a per-session location observer, for example
	// (*middleware.Metrics).Observer or (*middleware.Tracing).Observer.
	Observers []func(sessionID string) location.Observer

	// Hooks receive session lifecycle notifications.
	Hooks []SessionHooks

	// Journal stores each session's navigation journal when the session
	// closes. Nil disables journaling.
	Journal journal.Store

	// JournalMaxEntries bounds each journal. Default: journal.DefaultMaxEntries.
	JournalMaxEntries int

	// MetricsHandler, if set, is mounted at MetricsPath.
	MetricsHandler http.Handler

	// MetricsPath defaults to "/metrics".
	MetricsPath string

	// Handler serves every path the server does not claim, typically the
	// application pages that load the client script.
	Handler http.Handler

	// OnSession is called once per session after the handshake, on the
	// handler goroutine, once the session loops are running. It may call
	// Session.Update.
	OnSession func(*Session)
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:         ":8080",
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		ShutdownTimeout: 30 * time.Second,
		Session:         DefaultSessionConfig(),
		HistoryMode:     location.ModePush,
		MetricsPath:     "/metrics",
	}
}

func (c *ServerConfig) withDefaults() *ServerConfig {
	d := DefaultServerConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	if out.MetricsPath == "" {
		out.MetricsPath = d.MetricsPath
	}
	if out.Logger == nil {
		out.Logger = slog.Default()
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = OriginCheck(out.AllowedOrigins)
	}
	out.Session = c.Session.withDefaults()
	return &out
}

// SameOriginCheck accepts requests whose Origin host equals the request Host.
// Requests without an Origin header are accepted.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if r.Host == "" {
		return false
	}
	return originURL.Host == r.Host
}

// OriginCheck returns a check that accepts same-origin requests and the
// given origins. Origins compare case-insensitively, without a trailing slash.
func OriginCheck(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[normalizeOrigin(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		_, ok := set[normalizeOrigin(r.Header.Get("Origin"))]
		return ok
	}
}

func normalizeOrigin(o string) string {
	return strings.ToLower(strings.TrimSuffix(o, "/"))
}

package server

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/locsync/pkg/journal"
	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/protocol"
)

// journalSaveTimeout bounds the journal write when a session closes.
const journalSaveTimeout = 5 * time.Second

// Session is one connected browser tab.
type Session struct {
	ID        string
	CreatedAt time.Time

	conn   *websocket.Conn
	mu     sync.Mutex // serializes writes to conn
	closed atomic.Bool

	sendSeq    atomic.Uint64
	recvSeq    atomic.Uint64
	lastActive atomic.Int64

	events     chan *protocol.Event
	dispatchCh chan func()
	done       chan struct{}

	state    *location.State
	locSync  *location.Sync
	browser  *RemoteBrowser
	doc      *remoteDocument
	recorder *journal.Recorder

	store   journal.Store
	hooks   []SessionHooks
	onClose func(*Session)

	started    atomic.Bool
	finishOnce sync.Once
	finishedCh chan struct{}

	config *SessionConfig
	logger *slog.Logger
}

// sessionParams carries what the server knows about a new session.
type sessionParams struct {
	id         string
	location   location.URL
	idle       bool
	mode       location.HistoryMode
	observers  []func(sessionID string) location.Observer
	hooks      []SessionHooks
	store      journal.Store
	seed       []journal.Entry
	journalMax int
	onClose    func(*Session)
}

func newSession(conn *websocket.Conn, p sessionParams, config *SessionConfig, logger *slog.Logger) *Session {
	config = config.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	logger = logger.With("session_id", p.id)
	s := &Session{
		ID:         p.id,
		CreatedAt:  time.Now(),
		conn:       conn,
		events:     make(chan *protocol.Event, config.MaxEventQueue),
		dispatchCh: make(chan func(), config.MaxEventQueue),
		done:       make(chan struct{}),
		finishedCh: make(chan struct{}),
		state:      location.NewState(),
		browser:    NewRemoteBrowser(p.location, logger),
		doc:        newRemoteDocument(p.idle),
		store:      p.store,
		hooks:      p.hooks,
		onClose:    p.onClose,
		config:     config,
		logger:     logger,
	}
	s.lastActive.Store(s.CreatedAt.UnixNano())

	opts := []location.Option{
		location.WithLogger(s.logger),
		location.WithHistoryMode(p.mode),
	}
	for _, build := range p.observers {
		if build == nil {
			continue
		}
		opts = append(opts, location.WithObserver(build(p.id)))
	}
	if p.store != nil {
		s.recorder = journal.NewRecorder(p.journalMax, p.seed)
		opts = append(opts, location.WithObserver(s.recorder))
	}

	s.locSync = location.New(s.state, s.browser, s.doc, opts...)
	return s
}

// State returns the session's location model. Getters are safe from any
// goroutine; change it through Update or Dispatch.
func (s *Session) State() *location.State {
	return s.state
}

// Browser returns the session's remote browser.
func (s *Session) Browser() *RemoteBrowser {
	return s.browser
}

// Snapshot returns the current model values.
func (s *Session) Snapshot() location.URL {
	return s.state.Snapshot()
}

// Idle reports whether the client has reported its document idle.
func (s *Session) Idle() bool {
	return s.doc.IsIdle()
}

// LastActive returns the time of the last message from the client.
func (s *Session) LastActive() time.Time {
	return time.Unix(0, s.lastActive.Load())
}

// Journal returns the recorded navigations, or nil when journaling is off.
func (s *Session) Journal() []journal.Entry {
	if s.recorder == nil {
		return nil
	}
	return s.recorder.Entries()
}

// Dispatch queues fn to run on the event loop against the session's state.
// Commands produced by fn are sent once it returns.
func (s *Session) Dispatch(fn func(*location.State)) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.dispatchCh <- func() { fn(s.state) }:
		return nil
	case <-s.done:
		return ErrSessionClosed
	default:
		return ErrEventQueueFull
	}
}

// Update runs fn on the event loop and waits for it to finish.
func (s *Session) Update(ctx context.Context, fn func(*location.State)) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn(s.state)
	}

	select {
	case s.dispatchCh <- task:
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// QueueEvent queues a client event for the event loop.
func (s *Session) QueueEvent(ev *protocol.Event) error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	select {
	case s.events <- ev:
		return nil
	default:
		return ErrEventQueueFull
	}
}

// Start starts the session loops. Call it once, after the handshake.
func (s *Session) Start() {
	s.started.Store(true)
	go s.ReadLoop()
	go s.WriteLoop()
	go s.EventLoop()
}

// Close closes the session. It is safe to call more than once and from
// any goroutine.
func (s *Session) Close() {
	if s.closed.Swap(true) {
		return
	}
	close(s.done)

	if s.conn != nil {
		s.mu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
		s.mu.Unlock()
	}

	// Without an event loop nobody else will finish the session.
	if !s.started.Load() {
		s.finish()
	}
}

// finish releases the sync and saves the journal. It runs on the event loop
// once it exits, or from Close when the loops never started.
func (s *Session) finish() {
	s.finishOnce.Do(func() {
		s.locSync.Close()

		if s.recorder != nil && s.store != nil {
			ctx, cancel := context.WithTimeout(context.Background(), journalSaveTimeout)
			err := s.store.Save(ctx, s.ID, s.recorder.Entries())
			cancel()
			if err != nil {
				s.logger.Error("journal save failed", "error", err)
			}
		}

		lifetime := time.Since(s.CreatedAt)
		for _, h := range s.hooks {
			h.SessionClosed(s.ID, lifetime)
		}
		if s.onClose != nil {
			s.onClose(s)
		}

		s.logger.Info("session closed",
			"lifetime", lifetime,
			"commands_sent", s.sendSeq.Load(),
			"events_received", s.recvSeq.Load())
		close(s.finishedCh)
	})
}

// finished is closed once the session has released its resources and saved
// its journal.
func (s *Session) finished() <-chan struct{} {
	return s.finishedCh
}

// IsClosed returns whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// Done returns a channel that's closed when the session is closing.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) runDispatch(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("dispatch panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}

func (s *Session) protocolError(kind string, err error) {
	s.logger.Warn("protocol error", "kind", kind, "error", err)
	for _, h := range s.hooks {
		h.ProtocolError(s.ID, kind)
	}
}

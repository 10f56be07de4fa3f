package server

import (
	"log/slog"
	"sync"

	"github.com/vango-dev/locsync/pkg/location"
	"github.com/vango-dev/locsync/pkg/protocol"
)

// RemoteBrowser implements location.Browser for a browser on the other end
// of a session. It keeps the last known location and queues navigation
// commands until the session flushes them to the client.
//
// PushState and ReplaceState resolve their argument against the cached
// location the way history.pushState does, so Location is current as soon
// as they return. SetHref leaves the cache alone; the page navigates away
// and a new session reports the new location.
type RemoteBrowser struct {
	mu        sync.Mutex
	loc       location.URL
	queue     []protocol.Command
	listeners map[int]func(string)
	nextID    int
	logger    *slog.Logger
}

// NewRemoteBrowser creates a RemoteBrowser at the given location. A nil
// logger means slog.Default().
func NewRemoteBrowser(loc location.URL, logger *slog.Logger) *RemoteBrowser {
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteBrowser{
		loc:       loc,
		listeners: make(map[int]func(string)),
		logger:    logger,
	}
}

// Location implements location.Browser.
func (b *RemoteBrowser) Location() location.URL {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loc
}

// PushState implements location.Browser.
func (b *RemoteBrowser) PushState(url string) {
	b.navigate(protocol.CmdPushState, url)
}

// ReplaceState implements location.Browser.
func (b *RemoteBrowser) ReplaceState(url string) {
	b.navigate(protocol.CmdReplaceState, url)
}

func (b *RemoteBrowser) navigate(op protocol.CommandOp, url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next, err := b.loc.Resolve(url)
	if err != nil {
		// The command still goes out; the client reports where it lands.
		b.logger.Warn("cannot resolve navigation", "op", op, "url", url, "error", err)
	} else {
		b.loc = next
	}
	b.queue = append(b.queue, protocol.Command{Op: op, Arg: url})
}

// SetHref implements location.Browser.
func (b *RemoteBrowser) SetHref(url string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, protocol.Command{Op: protocol.CmdSetHref, Arg: url})
}

// SetHash implements location.Browser. Setting the hash the browser already
// shows sends nothing, as assigning an equal location.hash does nothing.
func (b *RemoteBrowser) SetHash(hash string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	next := b.loc.WithHash(hash)
	if next.Hash == b.loc.Hash {
		return
	}
	b.loc = next
	b.queue = append(b.queue, protocol.Command{Op: protocol.CmdSetHash, Arg: next.Hash})
}

// Reload implements location.Browser.
func (b *RemoteBrowser) Reload() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = append(b.queue, protocol.Command{Op: protocol.CmdReload})
}

// OnHashChange implements location.Browser.
func (b *RemoteBrowser) OnHashChange(fn func(hash string)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.listeners, id)
	}
}

// HandleHashChange records a hashchange reported by the client and runs
// the registered listeners with the new hash.
func (b *RemoteBrowser) HandleHashChange(hash string) {
	b.mu.Lock()
	b.loc = b.loc.WithHash(hash)
	current := b.loc.Hash
	fns := make([]func(string), 0, len(b.listeners))
	for id := 1; id <= b.nextID; id++ {
		if fn, ok := b.listeners[id]; ok {
			fns = append(fns, fn)
		}
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(current)
	}
}

// Drain returns and clears the queued commands.
func (b *RemoteBrowser) Drain() []protocol.Command {
	b.mu.Lock()
	defer b.mu.Unlock()
	cmds := b.queue
	b.queue = nil
	return cmds
}

// Pending returns the number of queued commands.
func (b *RemoteBrowser) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queue)
}

// remoteDocument implements location.Document from the idle flag of the
// client handshake and the client's idle event.
type remoteDocument struct {
	mu        sync.Mutex
	idle      bool
	callbacks []func()
}

func newRemoteDocument(idle bool) *remoteDocument {
	return &remoteDocument{idle: idle}
}

func (d *remoteDocument) IsIdle() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idle
}

// OnIdle registers a one-shot callback.
func (d *remoteDocument) OnIdle(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.callbacks = append(d.callbacks, fn)
}

// markIdle flips the document to idle and runs the callbacks once.
// Later calls do nothing.
func (d *remoteDocument) markIdle() bool {
	d.mu.Lock()
	if d.idle {
		d.mu.Unlock()
		return false
	}
	d.idle = true
	fns := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return true
}

package location

import (
	"log/slog"
	"time"
)

// Option configures a [Sync].
type Option func(*options)

type options struct {
	logger    *slog.Logger
	observers Observers
	mode      HistoryMode
	now       func() time.Time
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver adds an observer. May be given more than once.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// WithHistoryMode sets how soft updates touch history. Default: ModePush.
func WithHistoryMode(mode HistoryMode) Option {
	return func(o *options) {
		o.mode = mode
	}
}

// WithClock overrides the clock used to measure the idle wait.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Sync binds a [State] to a [Browser] and a host [Document].
type Sync struct {
	state   *State
	browser Browser
	doc     Document

	logger    *slog.Logger
	observers Observers
	mode      HistoryMode
	now       func() time.Time

	gate idleGate

	unwatch    func()
	removeHash func()
	ready      chan struct{}
	closed     bool
}

// New reads the browser location into state, starts reflecting browser hash
// changes, and begins propagating state changes to the browser. The returned
// Sync is ready; [Sync.Ready] is already closed.
func New(state *State, browser Browser, doc Document, opts ...Option) *Sync {
	o := options{
		logger: slog.Default(),
		mode:   ModePush,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Sync{
		state:     state,
		browser:   browser,
		doc:       doc,
		logger:    o.logger.With("component", "location"),
		observers: o.observers,
		mode:      o.mode,
		now:       o.now,
		ready:     make(chan struct{}),
	}

	loc := browser.Location()
	state.SetPathname(loc.Pathname)
	state.SetSearch(loc.Search)
	state.SetHash(loc.Hash)
	state.commitOrigin(loc)

	s.removeHash = browser.OnHashChange(func(hash string) {
		if s.closed {
			return
		}
		s.state.SetHash(hash)
	})
	s.unwatch = state.Watch(s.update)

	close(s.ready)
	s.logger.Debug("location sync ready", "href", loc.Href)
	return s
}

// Ready returns a channel closed once initialization has finished.
func (s *Sync) Ready() <-chan struct{} {
	return s.ready
}

// State returns the synchronized model.
func (s *Sync) State() *State {
	return s.state
}

// Close stops reflecting browser hash changes and stops propagating state
// changes. A soft update still pending on the idle gate is dropped.
func (s *Sync) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.removeHash()
	s.unwatch()
	s.gate.pending = nil
}

func (s *Sync) update(f Field) {
	if s.closed {
		return
	}
	switch f {
	case FieldPathname, FieldSearch, FieldHash, FieldReload:
	default:
		return
	}

	url := s.state.Path()
	reload := s.state.Reload()

	switch {
	case f == FieldReload && reload:
		s.browser.ReplaceState(url)
		s.refresh()
		s.observe(Navigation{Kind: NavReload, Field: f, URL: url})
		s.browser.Reload()

	case !reload && f == FieldHash:
		hash := s.state.Hash()
		s.browser.SetHash(hash)
		s.refresh()
		s.observe(Navigation{Kind: NavHash, Field: f, URL: hash})
		if p := s.gate.pending; p != nil {
			// The held URL must not roll the hash back when idle fires.
			s.gate.hold(url, p.field)
		}

	case !reload:
		s.setURLGated(f, url)

	default:
		s.browser.SetHref(url)
		s.observe(Navigation{Kind: NavHref, Field: f, URL: url})
	}
}

func (s *Sync) setURLGated(f Field, url string) {
	s.ensureIdleGate()
	if s.gate.state == gateReady {
		s.softPush(f, url, false)
		return
	}
	s.gate.hold(url, f)
	s.observe(Navigation{Kind: NavDeferred, Field: f, URL: url})
}

// ensureIdleGate subscribes to the document idle signal on first use.
func (s *Sync) ensureIdleGate() {
	if s.gate.state != gateUnsubscribed {
		return
	}
	if s.doc.IsIdle() {
		s.gate.state = gateReady
		s.observers.ObserveGateOpened(0)
		return
	}
	s.gate.state = gateWaiting
	s.gate.since = s.now()
	s.doc.OnIdle(s.onIdle)
}

func (s *Sync) onIdle() {
	if s.gate.state != gateWaiting {
		return
	}
	waited := s.now().Sub(s.gate.since)
	p := s.gate.open()
	s.observers.ObserveGateOpened(waited)
	s.logger.Debug("idle gate open", "waited", waited, "pending", p != nil)
	if p == nil || s.closed {
		return
	}
	s.softPush(p.field, p.url, true)
}

func (s *Sync) softPush(f Field, url string, flushed bool) {
	kind := NavPush
	if s.mode == ModeReplace {
		kind = NavReplace
		s.browser.ReplaceState(url)
	} else {
		s.browser.PushState(url)
	}
	s.refresh()
	s.observe(Navigation{Kind: kind, Field: f, URL: url, Flushed: flushed})
}

// refresh copies the browser-owned fields back into the state.
func (s *Sync) refresh() {
	s.state.commitOrigin(s.browser.Location())
}

func (s *Sync) observe(n Navigation) {
	s.logger.Debug("navigation",
		"kind", n.Kind,
		"field", n.Field,
		"url", n.URL,
		"flushed", n.Flushed)
	s.observers.ObserveNavigation(n)
}

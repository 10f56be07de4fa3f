package location

import "sync"

// State is the synchronized location model.
//
// Pathname, search, hash and reload are written by the application. Href,
// hostname, protocol and port mirror the browser and are only written by the
// [Sync] bound to the state; there are no exported setters for them.
//
// Setters notify watchers synchronously, in registration order, and only when
// the value actually changes. Getters are safe for concurrent use.
type State struct {
	mu     sync.RWMutex
	url    URL
	reload bool

	watchMu  sync.Mutex
	watchers []watcher
	nextID   uint64
}

type watcher struct {
	id uint64
	fn func(Field)
}

// NewState creates an empty State.
func NewState() *State {
	return &State{}
}

// Href returns the full browser URL as last committed by the Sync.
func (s *State) Href() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Href
}

// Hostname returns the browser hostname.
func (s *State) Hostname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Hostname
}

// Protocol returns the browser protocol, including the trailing colon.
func (s *State) Protocol() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Protocol
}

// Port returns the browser port, empty for the scheme default.
func (s *State) Port() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Port
}

// Pathname returns the path component.
func (s *State) Pathname() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Pathname
}

// Search returns the query component including the leading "?".
func (s *State) Search() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Search
}

// Hash returns the fragment component including the leading "#".
func (s *State) Hash() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Hash
}

// Reload reports whether writes to the path components trigger full page
// navigations instead of soft updates.
func (s *State) Reload() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reload
}

// Path returns the composed pathname + search + hash.
func (s *State) Path() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url.Path()
}

// Snapshot returns a copy of all URL components.
func (s *State) Snapshot() URL {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.url
}

// SetPathname sets the path component.
func (s *State) SetPathname(v string) {
	s.setString(FieldPathname, v)
}

// SetSearch sets the query component.
func (s *State) SetSearch(v string) {
	s.setString(FieldSearch, v)
}

// SetHash sets the fragment component.
func (s *State) SetHash(v string) {
	s.setString(FieldHash, v)
}

// SetReload sets the reload flag. Turning it on makes the bound Sync reload
// the page at the current composed URL.
func (s *State) SetReload(v bool) {
	s.mu.Lock()
	changed := s.reload != v
	s.reload = v
	s.mu.Unlock()
	if changed {
		s.notify(FieldReload)
	}
}

// RequestReload sets reload to true and notifies watchers even if it was
// already true, re-triggering a full page reload.
func (s *State) RequestReload() {
	s.mu.Lock()
	s.reload = true
	s.mu.Unlock()
	s.notify(FieldReload)
}

// Watch registers fn to be called after each field change. The returned
// function removes the registration.
func (s *State) Watch(fn func(Field)) func() {
	s.watchMu.Lock()
	s.nextID++
	id := s.nextID
	s.watchers = append(s.watchers, watcher{id: id, fn: fn})
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		for i, w := range s.watchers {
			if w.id == id {
				s.watchers = append(s.watchers[:i:i], s.watchers[i+1:]...)
				return
			}
		}
	}
}

func (s *State) setString(f Field, v string) {
	s.mu.Lock()
	ptr := s.fieldPtr(f)
	changed := *ptr != v
	*ptr = v
	s.mu.Unlock()
	if changed {
		s.notify(f)
	}
}

// commitOrigin copies the browser-owned fields from u.
func (s *State) commitOrigin(u URL) {
	for _, f := range [...]Field{FieldHref, FieldHostname, FieldProtocol, FieldPort} {
		s.setString(f, u.field(f))
	}
}

func (s *State) fieldPtr(f Field) *string {
	switch f {
	case FieldHref:
		return &s.url.Href
	case FieldHostname:
		return &s.url.Hostname
	case FieldProtocol:
		return &s.url.Protocol
	case FieldPort:
		return &s.url.Port
	case FieldPathname:
		return &s.url.Pathname
	case FieldSearch:
		return &s.url.Search
	case FieldHash:
		return &s.url.Hash
	}
	panic("location: field " + f.String() + " is not a string field")
}

func (u URL) field(f Field) string {
	switch f {
	case FieldHref:
		return u.Href
	case FieldHostname:
		return u.Hostname
	case FieldProtocol:
		return u.Protocol
	case FieldPort:
		return u.Port
	case FieldPathname:
		return u.Pathname
	case FieldSearch:
		return u.Search
	case FieldHash:
		return u.Hash
	}
	return ""
}

func (s *State) notify(f Field) {
	s.watchMu.Lock()
	watchers := make([]watcher, len(s.watchers))
	copy(watchers, s.watchers)
	s.watchMu.Unlock()

	for _, w := range watchers {
		w.fn(f)
	}
}

package journal

import (
	"sync"
	"time"

	"github.com/vango-dev/locsync/pkg/location"
)

// Entry kinds beyond location.NavigationKind names.
const (
	KindIdle = "idle" // idle gate opened
)

// Entry is one recorded browser side effect.
type Entry struct {
	At      time.Time     `json:"at"`
	Kind    string        `json:"kind"`
	Field   string        `json:"field,omitempty"`
	URL     string        `json:"url,omitempty"`
	Flushed bool          `json:"flushed,omitempty"`
	Waited  time.Duration `json:"waited,omitempty"`
}

// DefaultMaxEntries bounds a Recorder created with max <= 0.
const DefaultMaxEntries = 256

// Recorder keeps the latest entries for one session. It is safe for
// concurrent use: the session event loop writes while HTTP handlers read.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
	max     int
	now     func() time.Time
}

// NewRecorder creates a recorder holding at most max entries, seeded with
// entries from a previous connection (oldest are dropped if over max).
func NewRecorder(max int, seed []Entry) *Recorder {
	if max <= 0 {
		max = DefaultMaxEntries
	}
	r := &Recorder{max: max, now: time.Now}
	for _, e := range seed {
		r.append(e)
	}
	return r
}

// ObserveNavigation implements location.Observer.
func (r *Recorder) ObserveNavigation(n location.Navigation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(Entry{
		At:      r.now(),
		Kind:    n.Kind.String(),
		Field:   n.Field.String(),
		URL:     n.URL,
		Flushed: n.Flushed,
	})
}

// ObserveGateOpened implements location.Observer.
func (r *Recorder) ObserveGateOpened(waited time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.append(Entry{At: r.now(), Kind: KindIdle, Waited: waited})
}

// append requires r.mu held (or no concurrent access yet).
func (r *Recorder) append(e Entry) {
	if len(r.entries) == r.max {
		copy(r.entries, r.entries[1:])
		r.entries = r.entries[:len(r.entries)-1]
	}
	r.entries = append(r.entries, e)
}

// Entries returns a copy of the recorded entries, oldest first.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Len returns the number of recorded entries.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

package loctest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/locsync/pkg/location"
)

// Op names a Browser method.
type Op string

const (
	OpPushState    Op = "pushState"
	OpReplaceState Op = "replaceState"
	OpSetHref      Op = "setHref"
	OpSetHash      Op = "setHash"
	OpReload       Op = "reload"
)

// Call is one recorded Browser call.
type Call struct {
	Op  Op
	Arg string
}

func (c Call) String() string {
	if c.Arg == "" {
		return string(c.Op) + "()"
	}
	return fmt.Sprintf("%s(%q)", c.Op, c.Arg)
}

// Browser is a fake location.Browser.
type Browser struct {
	loc       location.URL
	calls     []Call
	listeners map[int]func(string)
	nextID    int
}

// NewBrowser creates a fake browser at the given absolute URL.
// It panics if raw does not parse.
func NewBrowser(raw string) *Browser {
	loc, err := location.ParseURL(raw)
	if err != nil {
		panic(err)
	}
	return &Browser{
		loc:       loc,
		listeners: make(map[int]func(string)),
	}
}

// Location implements location.Browser.
func (b *Browser) Location() location.URL {
	return b.loc
}

// PushState implements location.Browser.
func (b *Browser) PushState(url string) {
	b.calls = append(b.calls, Call{Op: OpPushState, Arg: url})
	b.resolve(url)
}

// ReplaceState implements location.Browser.
func (b *Browser) ReplaceState(url string) {
	b.calls = append(b.calls, Call{Op: OpReplaceState, Arg: url})
	b.resolve(url)
}

// SetHref implements location.Browser. The fake commits the navigation at
// once, like a page that reloaded instantly.
func (b *Browser) SetHref(url string) {
	b.calls = append(b.calls, Call{Op: OpSetHref, Arg: url})
	b.resolve(url)
}

// SetHash implements location.Browser. Like a real browser it does not
// report its own hash write back as a hashchange to the caller.
func (b *Browser) SetHash(hash string) {
	b.calls = append(b.calls, Call{Op: OpSetHash, Arg: hash})
	b.loc = b.loc.WithHash(hash)
}

// Reload implements location.Browser.
func (b *Browser) Reload() {
	b.calls = append(b.calls, Call{Op: OpReload})
}

// OnHashChange implements location.Browser.
func (b *Browser) OnHashChange(fn func(hash string)) func() {
	b.nextID++
	id := b.nextID
	b.listeners[id] = fn
	return func() {
		delete(b.listeners, id)
	}
}

// NavigateHash simulates the user following an in-page anchor: the hash
// changes and hashchange listeners run.
func (b *Browser) NavigateHash(hash string) {
	b.loc = b.loc.WithHash(hash)
	for _, fn := range b.listeners {
		fn(b.loc.Hash)
	}
}

// Listeners returns the number of registered hashchange listeners.
func (b *Browser) Listeners() int {
	return len(b.listeners)
}

// Calls returns the recorded calls.
func (b *Browser) Calls() []Call {
	return append([]Call(nil), b.calls...)
}

// Reset clears the recorded calls.
func (b *Browser) Reset() {
	b.calls = nil
}

func (b *Browser) resolve(url string) {
	next, err := b.loc.Resolve(url)
	if err != nil {
		panic(err)
	}
	b.loc = next
}

// Document is a fake location.Document.
type Document struct {
	idle          bool
	callbacks     []func()
	subscriptions int
}

// NewDocument creates a fake document, idle or not.
func NewDocument(idle bool) *Document {
	return &Document{idle: idle}
}

// IsIdle implements location.Document.
func (d *Document) IsIdle() bool {
	return d.idle
}

// OnIdle implements location.Document.
func (d *Document) OnIdle(fn func()) {
	d.subscriptions++
	d.callbacks = append(d.callbacks, fn)
}

// FireIdle marks the document idle and runs the registered callbacks once.
func (d *Document) FireIdle() {
	d.idle = true
	callbacks := d.callbacks
	d.callbacks = nil
	for _, fn := range callbacks {
		fn()
	}
}

// Subscriptions returns how many times OnIdle was called.
func (d *Document) Subscriptions() int {
	return d.subscriptions
}

// Recorder is a location.Observer that records what it observes.
type Recorder struct {
	Navigations []location.Navigation
	GateOpens   []time.Duration
}

// ObserveNavigation implements location.Observer.
func (r *Recorder) ObserveNavigation(n location.Navigation) {
	r.Navigations = append(r.Navigations, n)
}

// ObserveGateOpened implements location.Observer.
func (r *Recorder) ObserveGateOpened(waited time.Duration) {
	r.GateOpens = append(r.GateOpens, waited)
}

// Kinds returns the kinds of the recorded navigations in order.
func (r *Recorder) Kinds() []location.NavigationKind {
	kinds := make([]location.NavigationKind, len(r.Navigations))
	for i, n := range r.Navigations {
		kinds[i] = n.Kind
	}
	return kinds
}

// ExpectCalls asserts that the browser recorded exactly want, in order.
func ExpectCalls(t testing.TB, b *Browser, want ...Call) {
	t.Helper()
	got := b.Calls()
	if len(got) != len(want) {
		t.Fatalf("browser calls = %s, want %s", formatCalls(got), formatCalls(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("browser calls = %s, want %s", formatCalls(got), formatCalls(want))
		}
	}
}

// ExpectNoCalls asserts that the browser recorded nothing.
func ExpectNoCalls(t testing.TB, b *Browser) {
	t.Helper()
	if got := b.Calls(); len(got) != 0 {
		t.Fatalf("browser calls = %s, want none", formatCalls(got))
	}
}

func formatCalls(calls []Call) string {
	parts := make([]string, len(calls))
	for i, c := range calls {
		parts[i] = c.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

package location

import "time"

// Browser is the navigation provider a [Sync] drives. Implementations wrap a
// real browser (see server.RemoteBrowser) or a fake (see loctest.Browser).
//
// Location must reflect PushState, ReplaceState and SetHash synchronously,
// as window.location does.
type Browser interface {
	// Location returns the current browser location.
	Location() URL

	// PushState adds a session history entry for url without reloading.
	PushState(url string)

	// ReplaceState rewrites the current history entry to url without reloading.
	ReplaceState(url string)

	// SetHref navigates the page to url.
	SetHref(url string)

	// SetHash sets location.hash.
	SetHash(hash string)

	// Reload reloads the page.
	Reload()

	// OnHashChange registers fn for hashchange events the browser raises on
	// its own. The returned function unregisters it.
	OnHashChange(fn func(hash string)) (remove func())
}

// Document is the host document's idle signal.
type Document interface {
	// IsIdle reports whether the document has finished its initial layout.
	IsIdle() bool

	// OnIdle registers a one-shot callback run when the document becomes idle.
	OnIdle(fn func())
}

// NavigationKind classifies a browser side effect issued by a [Sync].
type NavigationKind uint8

const (
	NavPush     NavigationKind = iota + 1 // soft update, new history entry
	NavReplace                            // soft update, current entry rewritten
	NavHash                               // location.hash set directly
	NavHref                               // full navigation via location.href
	NavReload                             // replace + full reload
	NavDeferred                           // soft update held until idle
)

// String returns the kind name used in logs and metric labels.
func (k NavigationKind) String() string {
	switch k {
	case NavPush:
		return "push"
	case NavReplace:
		return "replace"
	case NavHash:
		return "hash"
	case NavHref:
		return "href"
	case NavReload:
		return "reload"
	case NavDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Navigation describes one browser side effect.
type Navigation struct {
	Kind  NavigationKind
	Field Field  // field change that caused it
	URL   string // composed URL, or the hash for NavHash

	// Flushed is set when a pending soft update is applied on idle.
	Flushed bool
}

// Observer watches what a [Sync] does to the browser. Calls happen on the
// goroutine driving the Sync.
type Observer interface {
	ObserveNavigation(n Navigation)
	ObserveGateOpened(waited time.Duration)
}

// Observers fans out to several observers in order.
type Observers []Observer

// ObserveNavigation implements Observer.
func (o Observers) ObserveNavigation(n Navigation) {
	for _, obs := range o {
		obs.ObserveNavigation(n)
	}
}

// ObserveGateOpened implements Observer.
func (o Observers) ObserveGateOpened(waited time.Duration) {
	for _, obs := range o {
		obs.ObserveGateOpened(waited)
	}
}

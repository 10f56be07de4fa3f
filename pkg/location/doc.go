// Package location keeps a server-side model of the browser URL in sync with
// the browser's own location.
//
// The model is a [State]: read-only mirrors of the browser origin (href,
// hostname, protocol, port), the writable path components (pathname, search,
// hash) and a reload flag. A [Sync] binds a State to a [Browser] and a
// [Document]:
//
//   - On creation it reads the browser location into the State and starts
//     reflecting hash changes the browser makes on its own.
//   - When the application writes pathname, search, hash or reload, the Sync
//     pushes the composed URL (pathname + search + hash) back to the browser.
//
// # Update Rules
//
// Every field change is handled on its own, in delivery order:
//
//   - reload turned on (or re-asserted with [State.RequestReload]): the URL
//     replaces the current history entry and the page reloads.
//   - reload off, hash changed: the browser hash is set directly.
//   - reload off, anything else: soft update through the idle gate.
//   - reload on, pathname/search/hash changed: full navigation to the URL.
//
// # Idle Gate
//
// The first soft update subscribes to the document's idle signal. Until the
// document reports idle, soft updates are held in a single pending slot where
// the last write wins. When idle fires the pending URL is applied once. If the
// document is already idle at subscription time soft updates apply at once.
//
// # Threading
//
// A Sync is not safe for concurrent use. Drive it, and all writes to its
// State, from one goroutine such as a session event loop. State getters and
// [State.Snapshot] may be called from any goroutine.
//
// # Usage
//
//	state := location.NewState()
//	sync := location.New(state, browser, doc,
//	    location.WithLogger(logger),
//	    location.WithHistoryMode(location.ModeReplace),
//	)
//	defer sync.Close()
//
//	state.SetPathname("/reports")
//	state.SetSearch("?year=2024")
package location

// Package server runs location sync sessions for browsers connected over a
// WebSocket.
//
// Each connection gets a [Session] holding a [location.State] bound by a
// [location.Sync] to a [RemoteBrowser]. The browser side is the thin client
// served at /_locsync/client.js: it reports the page location in its
// handshake, forwards hashchange and idle events, and applies the navigation
// commands the session sends back.
//
// # Session Loops
//
// A session runs three goroutines:
//   - ReadLoop: decodes frames from the client and queues events
//   - EventLoop: applies events and model updates, then flushes commands
//   - WriteLoop: sends heartbeat pings
//
// The event loop is the only goroutine that touches the Sync, so model
// updates from application code go through [Session.Update] or
// [Session.Dispatch].
//
// # Example Usage
//
//	srv := server.New(&server.ServerConfig{
//	    Address: ":8080",
//	    OnSession: func(s *server.Session) {
//	        s.Dispatch(func(st *location.State) {
//	            st.SetPathname("/welcome")
//	        })
//	    },
//	})
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
package server

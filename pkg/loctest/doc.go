// Package loctest provides in-memory fakes for testing code built on the
// location package.
//
// Browser records every call a location.Sync makes and behaves like
// window.location for reads. Document is a host document whose idle signal
// the test fires by hand. Recorder is a location.Observer that keeps what it
// sees.
//
// Example:
//
//	browser := loctest.NewBrowser("https://example.com/start")
//	doc := loctest.NewDocument(false)
//	state := location.NewState()
//	sync := location.New(state, browser, doc)
//	defer sync.Close()
//
//	state.SetPathname("/next")
//	doc.FireIdle()
//	loctest.ExpectCalls(t, browser, loctest.Call{Op: loctest.OpPushState, Arg: "/next"})
package loctest

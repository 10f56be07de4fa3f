package location

import "time"

// gateState is the idle gate's lifecycle. The gate only moves forward.
type gateState uint8

const (
	gateUnsubscribed gateState = iota // no soft update seen yet
	gateWaiting                       // subscribed, document not idle
	gateReady                         // soft updates apply immediately
)

func (g gateState) String() string {
	switch g {
	case gateUnsubscribed:
		return "unsubscribed"
	case gateWaiting:
		return "waiting"
	case gateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// pendingNavigation is the single soft update held while the gate waits.
type pendingNavigation struct {
	url   string
	field Field
}

// idleGate holds the gate state and, only while waiting, the pending slot.
type idleGate struct {
	state   gateState
	pending *pendingNavigation
	since   time.Time
}

// hold stores a soft update, overwriting any earlier one.
func (g *idleGate) hold(url string, f Field) {
	g.pending = &pendingNavigation{url: url, field: f}
}

// open marks the gate ready and hands back the pending update, if any.
func (g *idleGate) open() *pendingNavigation {
	p := g.pending
	g.pending = nil
	g.state = gateReady
	return p
}

// Package refresh formalizes the latest-call-wins discipline for callers
// that issue overlapping fetches: each logical fetch takes a generation
// ticket, and a response is applied only if no newer fetch has since been
// issued. Stale responses are silently dropped, never cancelled, since
// in-flight storage writes must run to completion.
package refresh

import "sync"

// Gate issues monotonically increasing generations and admits only the
// newest one. The zero value is ready to use.
type Gate struct {
	mu      sync.Mutex
	issued  uint64
	applied uint64
}

// Begin starts a new logical fetch and returns its generation ticket.
func (g *Gate) Begin() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.issued++
	return g.issued
}

// Accept reports whether the response for ticket should be applied. It
// returns true only when ticket is still the newest issued generation;
// anything older is stale and must be discarded by the caller.
func (g *Gate) Accept(ticket uint64) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if ticket != g.issued || ticket <= g.applied {
		return false
	}
	g.applied = ticket
	return true
}

package view

import "sync"

// Guard hands out request tickets and remembers which one is current.
// A response whose ticket is no longer current belongs to a superseded
// query and must be dropped.
type Guard struct {
	mu  sync.Mutex
	gen uint64
	key string
}

// Ticket identifies one request issued through a Guard.
type Ticket struct {
	Key string
	gen uint64
}

// Begin starts a request for key and supersedes every earlier ticket.
func (g *Guard) Begin(key string) Ticket {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.key = key
	return Ticket{Key: key, gen: g.gen}
}

// Current reports whether t is the latest ticket issued.
func (g *Guard) Current(t Ticket) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return t.gen == g.gen && t.Key == g.key
}

// Invalidate supersedes every outstanding ticket without starting a new
// request.
func (g *Guard) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.gen++
	g.key = ""
}

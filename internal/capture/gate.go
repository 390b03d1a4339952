package capture

import "sync"

// Gate enforces single ownership of the camera stream. Acquiring while
// another mode owns it first runs that owner's release hook, so starting
// monitoring while manual camera mode is live (or the reverse) cleanly
// evicts the previous owner.
type Gate struct {
	mu      sync.Mutex
	owner   string
	release func()
}

// Acquire takes ownership for the named mode. The release hook runs when a
// different owner later evicts this one. Re-acquiring by the current owner
// just replaces the hook.
func (g *Gate) Acquire(owner string, release func()) {
	g.mu.Lock()
	prevOwner, prevRelease := g.owner, g.release
	g.owner = owner
	g.release = release
	g.mu.Unlock()

	if prevRelease != nil && prevOwner != owner {
		prevRelease()
	}
}

// Release gives up ownership if the named mode still holds it. Releasing
// when not the owner is a no-op, so eviction and self-stop never race into a
// double release.
func (g *Gate) Release(owner string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.owner == owner {
		g.owner = ""
		g.release = nil
	}
}

// Owner names the current holder, or "" when the stream is free.
func (g *Gate) Owner() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.owner
}

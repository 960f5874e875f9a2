package engine

import (
	"sync"

	"github.com/roach88/assetsync/internal/asset"
)

// InflightGuard tracks the entities whose upsert is currently on the call
// stack.
//
// On-demand synchronisation recurses: a page pulls in its schema, a
// structured block pulls in the page it references, that page may pull in
// the block again. Before each upsert, Enter checks whether the same ref
// is already being synchronised further up the stack. A second entry is a
// cycle; the caller treats the edge as unresolved instead of recursing.
//
// CRITICAL DISTINCTION from the done set:
//   - Done set: "Has this ref finished in this run?" (reuse the result)
//   - Inflight: "Is this ref being synchronised right now?" (cycle)
type InflightGuard struct {
	mu     sync.Mutex
	active map[asset.Ref]struct{}
}

// NewInflightGuard creates an empty guard.
func NewInflightGuard() *InflightGuard {
	return &InflightGuard{active: make(map[asset.Ref]struct{})}
}

// Enter marks ref as in flight. It returns false, without marking, when
// ref is already in flight.
func (g *InflightGuard) Enter(ref asset.Ref) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.active[ref]; ok {
		return false
	}
	g.active[ref] = struct{}{}
	return true
}

// Leave clears the mark set by a successful Enter.
func (g *InflightGuard) Leave(ref asset.Ref) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, ref)
}

package testutil

import (
	"fmt"
	"sync/atomic"
)

// SequentialIDs assigns predictable ids: "<prefix>-0001", "<prefix>-0002", ...
//
// Stores opened with a SequentialIDs generator produce byte-identical
// contents for the same sequence of writes, which keeps golden snapshots
// stable.
//
// Thread-safety: SequentialIDs is safe for concurrent use.
type SequentialIDs struct {
	prefix string
	n      atomic.Int64
}

// NewSequentialIDs creates a generator. The first id ends in 0001.
func NewSequentialIDs(prefix string) *SequentialIDs {
	if prefix == "" {
		prefix = "id"
	}
	return &SequentialIDs{prefix: prefix}
}

// NewID implements store.IDGenerator.
func (g *SequentialIDs) NewID() string {
	return fmt.Sprintf("%s-%04d", g.prefix, g.n.Add(1))
}

// Reset restarts the sequence at 0001.
func (g *SequentialIDs) Reset() {
	g.n.Store(0)
}

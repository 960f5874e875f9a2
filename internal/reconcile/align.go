package reconcile

import (
	"errors"
	"fmt"
	"slices"

	"github.com/roach88/assetsync/internal/asset"
)

// ErrNoInstance is returned by AlignArity when a group must grow but has no
// instance to clone.
var ErrNoInstance = errors.New("no instance to clone")

// AlignArity returns a copy of siblings in which the group named identifier
// has exactly n instances.
//
// Missing instances are clones of the last existing instance, inserted
// directly after it. Surplus instances are removed from the end. Applying
// AlignArity to a list that already has n instances returns an equal list.
func AlignArity(siblings []*asset.Node, identifier string, n int) ([]*asset.Node, error) {
	if n < 0 {
		return nil, fmt.Errorf("align %s: negative count %d", identifier, n)
	}
	out := asset.CloneNodes(siblings)

	positions := instancePositions(out, identifier)
	count := len(positions)

	switch {
	case count == n:
		return out, nil
	case count > n:
		drop := positions[n:]
		for i := len(drop) - 1; i >= 0; i-- {
			out = slices.Delete(out, drop[i], drop[i]+1)
		}
		return out, nil
	case count == 0:
		return nil, fmt.Errorf("align %s to %d: %w", identifier, n, ErrNoInstance)
	}

	last := positions[count-1]
	clones := make([]*asset.Node, 0, n-count)
	for range n - count {
		clones = append(clones, out[last].Clone())
	}
	return slices.Insert(out, last+1, clones...), nil
}

func instancePositions(nodes []*asset.Node, identifier string) []int {
	var positions []int
	for i, n := range nodes {
		if n.Identifier == identifier {
			positions = append(positions, i)
		}
	}
	return positions
}

package reconcile

import (
	"github.com/roach88/assetsync/internal/asset"
)

// Phantom is a stored node the schema does not declare.
type Phantom struct {
	// Path is the node position as produced by asset.Payload.Walk.
	Path       string         `json:"path"`
	Identifier string         `json:"identifier"`
	Kind       asset.NodeKind `json:"kind"`
}

func (p Phantom) String() string {
	return "phantom " + string(p.Kind) + " node " + p.Path
}

// Detect lists every node of p whose identifier is not declared at its
// position by s, in pre-order. Children of a phantom are not listed
// separately.
func Detect(p *asset.Payload, s *asset.Schema) []Phantom {
	if p == nil || s == nil {
		return nil
	}
	var phantoms []Phantom
	detectNodes("", p.Nodes, s.Nodes, &phantoms)
	return phantoms
}

func detectNodes(prefix string, nodes []*asset.Node, decls []asset.NodeDecl, out *[]Phantom) {
	seen := make(map[string]int, len(nodes))
	for _, n := range nodes {
		idx := seen[n.Identifier]
		seen[n.Identifier] = idx + 1
		path := asset.NodePath(prefix, n.Identifier, idx)

		decl, ok := asset.Lookup(decls, n.Identifier)
		if !ok {
			*out = append(*out, Phantom{Path: path, Identifier: n.Identifier, Kind: n.Kind})
			continue
		}
		if decl.Kind == asset.NodeGroup && n.Kind == asset.NodeGroup {
			detectNodes(path, n.Children, decl.Children, out)
		}
	}
}

// Strip returns a copy of p without the nodes Detect would report, and the
// phantoms that were removed.
func Strip(p *asset.Payload, s *asset.Schema) (*asset.Payload, []Phantom) {
	if p == nil || s == nil {
		return p.Clone(), nil
	}
	phantoms := Detect(p, s)
	if len(phantoms) == 0 {
		return p.Clone(), nil
	}
	return &asset.Payload{Nodes: stripNodes(p.Nodes, s.Nodes)}, phantoms
}

func stripNodes(nodes []*asset.Node, decls []asset.NodeDecl) []*asset.Node {
	out := make([]*asset.Node, 0, len(nodes))
	for _, n := range nodes {
		decl, ok := asset.Lookup(decls, n.Identifier)
		if !ok {
			continue
		}
		c := n.Clone()
		if decl.Kind == asset.NodeGroup && n.Kind == asset.NodeGroup {
			c.Children = stripNodes(n.Children, decl.Children)
		}
		out = append(out, c)
	}
	return out
}

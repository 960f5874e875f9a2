package reconcile

import (
	"slices"

	"github.com/roach88/assetsync/internal/asset"
)

// Merge returns the payload the target should hold so that it carries the
// values of source, laid out under s.
//
// The target's current tree is the starting point. For every declared
// node, the target's instances are aligned to the source's instance count
// (AlignArity) and the source values are written onto them positionally.
// Nodes the target has no instance of are copied from source. Declared
// nodes absent from source are removed. Undeclared target nodes are left in
// place for Detect to report.
//
// A nil target yields the declared part of source.
func Merge(target, source *asset.Payload, s *asset.Schema) *asset.Payload {
	var tnodes, snodes []*asset.Node
	if target != nil {
		tnodes = target.Nodes
	}
	if source != nil {
		snodes = source.Nodes
	}
	var decls []asset.NodeDecl
	if s != nil {
		decls = s.Nodes
	}
	return &asset.Payload{Nodes: mergeNodes(tnodes, snodes, decls)}
}

func mergeNodes(target, source []*asset.Node, decls []asset.NodeDecl) []*asset.Node {
	out := asset.CloneNodes(target)
	if out == nil {
		out = []*asset.Node{}
	}

	for di, decl := range decls {
		src := asset.Instances(source, decl.Identifier)
		if !decl.Multiple && len(src) > 1 {
			src = src[:1]
		}
		have := len(instancePositions(out, decl.Identifier))

		switch {
		case len(src) == 0:
			out = slices.DeleteFunc(out, func(n *asset.Node) bool { return n.Identifier == decl.Identifier })
			continue
		case have == 0:
			at := insertionPoint(out, decls[:di])
			out = slices.Insert(out, at, asset.CloneNodes(src)...)
			continue
		case have != len(src):
			// have > 0, so AlignArity always has an instance to clone.
			aligned, err := AlignArity(out, decl.Identifier, len(src))
			if err != nil {
				panic(err)
			}
			out = aligned
		}

		for i, pos := range instancePositions(out, decl.Identifier) {
			out[pos] = overlay(out[pos], src[i], decl)
		}
	}
	return out
}

// overlay writes the values of src onto dst, which has the same identifier.
func overlay(dst, src *asset.Node, decl asset.NodeDecl) *asset.Node {
	if dst.Kind != src.Kind {
		return src.Clone()
	}
	switch src.Kind {
	case asset.NodeText:
		dst.Text = src.Text
	case asset.NodeReference:
		dst.Link = nil
		if src.Link != nil {
			l := *src.Link
			dst.Link = &l
		}
	case asset.NodeGroup:
		dst.Children = mergeNodes(dst.Children, src.Children, decl.Children)
	}
	return dst
}

// insertionPoint returns the index just after the last node belonging to
// one of the earlier declarations, so inserted nodes keep schema order.
func insertionPoint(nodes []*asset.Node, earlier []asset.NodeDecl) int {
	at := 0
	for i, n := range nodes {
		if _, ok := asset.Lookup(earlier, n.Identifier); ok {
			at = i + 1
		}
	}
	return at
}

// Conform re-derives source under s: undeclared nodes are dropped, nodes
// whose kind differs from their declaration are dropped, and non-repeatable
// nodes keep their first instance only. Nothing is invented, so a required
// node absent from source stays absent and Check reports it.
func Conform(source *asset.Payload, s *asset.Schema) *asset.Payload {
	if source == nil {
		return nil
	}
	var decls []asset.NodeDecl
	if s != nil {
		decls = s.Nodes
	}
	return &asset.Payload{Nodes: conformNodes(source.Nodes, decls)}
}

func conformNodes(nodes []*asset.Node, decls []asset.NodeDecl) []*asset.Node {
	out := []*asset.Node{}
	for _, decl := range decls {
		kept := 0
		for _, n := range asset.Instances(nodes, decl.Identifier) {
			if n.Kind != decl.Kind {
				continue
			}
			if !decl.Multiple && kept == 1 {
				break
			}
			c := n.Clone()
			if decl.Kind == asset.NodeGroup {
				c.Children = conformNodes(n.Children, decl.Children)
			}
			if decl.Kind == asset.NodeReference && c.Link != nil && decl.LinkType != "" && c.Link.Type != "" && c.Link.Type != decl.LinkType {
				c.Link = nil
			}
			out = append(out, c)
			kept++
		}
	}
	return out
}

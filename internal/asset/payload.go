package asset

import (
	"fmt"
	"strings"
)

// NodeKind distinguishes the node shapes in a structured payload.
type NodeKind string

const (
	NodeGroup     NodeKind = "group"
	NodeText      NodeKind = "text"
	NodeReference NodeKind = "reference"
)

// Node is one element of a structured payload tree.
//
// Identifier is unique among siblings except for instances of a repeatable
// group, which share the identifier of their schema declaration.
type Node struct {
	Kind       NodeKind `json:"kind" yaml:"kind"`
	Identifier string   `json:"identifier" yaml:"identifier"`
	Text       string   `json:"text,omitempty" yaml:"text,omitempty"`
	Link       *Link    `json:"link,omitempty" yaml:"link,omitempty"`
	Children   []*Node  `json:"children,omitempty" yaml:"children,omitempty"`
}

// Payload is the ordered node tree attached to schema-bound entities.
type Payload struct {
	Nodes []*Node `json:"nodes" yaml:"nodes"`
}

// Clone returns a deep copy of n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Kind:       n.Kind,
		Identifier: n.Identifier,
		Text:       n.Text,
	}
	if n.Link != nil {
		l := *n.Link
		c.Link = &l
	}
	c.Children = CloneNodes(n.Children)
	return c
}

// CloneNodes deep-copies a sibling list.
func CloneNodes(nodes []*Node) []*Node {
	if nodes == nil {
		return nil
	}
	out := make([]*Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// Clone returns a deep copy of p. A nil payload clones to nil.
func (p *Payload) Clone() *Payload {
	if p == nil {
		return nil
	}
	return &Payload{Nodes: CloneNodes(p.Nodes)}
}

// Visit is called for every node in pre-order. path is the slash-joined
// position of the node, with instance indexes for repeated identifiers
// (e.g. "sections[1]/heading"). Returning false skips the node's children.
type Visit func(path string, n *Node) bool

// Walk traverses the payload depth-first in pre-order.
func (p *Payload) Walk(fn Visit) {
	if p == nil {
		return
	}
	walkNodes("", p.Nodes, fn)
}

func walkNodes(prefix string, nodes []*Node, fn Visit) {
	seen := make(map[string]int, len(nodes))
	for _, n := range nodes {
		idx := seen[n.Identifier]
		seen[n.Identifier] = idx + 1
		p := NodePath(prefix, n.Identifier, idx)
		if !fn(p, n) {
			continue
		}
		if len(n.Children) > 0 {
			walkNodes(p, n.Children, fn)
		}
	}
}

// NodePath renders the position of the idx-th sibling named identifier
// under prefix. The first instance carries no index.
func NodePath(prefix, identifier string, idx int) string {
	seg := identifier
	if idx > 0 {
		seg = fmt.Sprintf("%s[%d]", identifier, idx)
	}
	if prefix == "" {
		return seg
	}
	return prefix + "/" + seg
}

// References returns every reference node in pre-order.
func (p *Payload) References() []*Node {
	var refs []*Node
	p.Walk(func(_ string, n *Node) bool {
		if n.Kind == NodeReference {
			refs = append(refs, n)
		}
		return true
	})
	return refs
}

// Find returns the node at a path produced by Walk, or nil.
func (p *Payload) Find(nodePath string) *Node {
	var found *Node
	p.Walk(func(path string, n *Node) bool {
		if found != nil {
			return false
		}
		if path == nodePath {
			found = n
			return false
		}
		return strings.HasPrefix(nodePath, path+"/")
	})
	return found
}

// Instances returns the siblings named identifier, in order.
func Instances(nodes []*Node, identifier string) []*Node {
	var out []*Node
	for _, n := range nodes {
		if n.Identifier == identifier {
			out = append(out, n)
		}
	}
	return out
}

// Text builds a text node.
func Text(identifier, text string) *Node {
	return &Node{Kind: NodeText, Identifier: identifier, Text: text}
}

// Group builds a group node.
func Group(identifier string, children ...*Node) *Node {
	return &Node{Kind: NodeGroup, Identifier: identifier, Children: children}
}

// Reference builds a reference node.
func Reference(identifier string, link *Link) *Node {
	return &Node{Kind: NodeReference, Identifier: identifier, Link: link}
}

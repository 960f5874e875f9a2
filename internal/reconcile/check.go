package reconcile

import (
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
)

// DriftError reports a payload that cannot satisfy its schema.
type DriftError struct {
	Path   string
	Reason string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("schema drift at %s: %s", e.Path, e.Reason)
}

// Check verifies that p can be submitted under s. It fails on the first
// required node that is missing entirely, on a declared node whose kind
// differs from its declaration and on repeated instances of a node that is
// not repeatable. Phantoms are not drift; see Detect.
func Check(p *asset.Payload, s *asset.Schema) error {
	if s == nil {
		return nil
	}
	var nodes []*asset.Node
	if p != nil {
		nodes = p.Nodes
	}
	return checkNodes("", nodes, s.Nodes)
}

func checkNodes(prefix string, nodes []*asset.Node, decls []asset.NodeDecl) error {
	for _, decl := range decls {
		instances := asset.Instances(nodes, decl.Identifier)
		path := asset.NodePath(prefix, decl.Identifier, 0)

		if len(instances) == 0 {
			if decl.Required && !decl.Multiple {
				return &DriftError{Path: path, Reason: "required node is missing"}
			}
			continue
		}
		if len(instances) > 1 && !decl.Multiple {
			return &DriftError{Path: path, Reason: fmt.Sprintf("%d instances of a node that does not repeat", len(instances))}
		}

		for i, n := range instances {
			ipath := asset.NodePath(prefix, decl.Identifier, i)
			if n.Kind != decl.Kind {
				return &DriftError{Path: ipath, Reason: fmt.Sprintf("kind %s, schema declares %s", n.Kind, decl.Kind)}
			}
			if n.Kind == asset.NodeReference && n.Link != nil && decl.LinkType != "" && n.Link.Type != "" && n.Link.Type != decl.LinkType {
				return &DriftError{Path: ipath, Reason: fmt.Sprintf("references a %s, schema declares %s", n.Link.Type, decl.LinkType)}
			}
			if n.Kind == asset.NodeGroup {
				if err := checkNodes(ipath, n.Children, decl.Children); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

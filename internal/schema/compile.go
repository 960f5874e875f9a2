// Package schema compiles the declarative definition carried by a schema
// entity into an asset.Schema.
//
// Definitions are CUE. Each top-level field declares one node; fields are
// read in declaration order, which is the order nodes appear in a payload:
//
//	title: {kind: "text", required: true}
//	section: {
//		kind:     "group"
//		multiple: true
//		nodes: {
//			heading: kind: "text"
//			banner: {kind: "reference", type: "block"}
//		}
//	}
package schema

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/assetsync/internal/asset"
)

// Compile parses definition and returns the declared node shape.
// name is used as the file name in error positions.
func Compile(name, definition string) (*asset.Schema, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(definition, cue.Filename(name))
	return CompileValue(v)
}

// CompileValue converts an already-built CUE value.
func CompileValue(v cue.Value) (*asset.Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	nodes, err := parseNodes(v)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, &CompileError{
			Field:   "schema",
			Message: "at least one node is required",
			Pos:     v.Pos(),
		}
	}
	return &asset.Schema{Nodes: nodes}, nil
}

// Entity compiles the definition of a schema entity.
func Entity(e *asset.Entity) (*asset.Schema, error) {
	if e == nil {
		return nil, fmt.Errorf("compile schema: nil entity")
	}
	if e.Type != asset.TypeSchema {
		return nil, fmt.Errorf("compile schema: %s is not a schema", e.Ref())
	}
	s, err := Compile(e.Ref().String(), e.Definition)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", e.Ref(), err)
	}
	return s, nil
}

func parseNodes(v cue.Value) ([]asset.NodeDecl, error) {
	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var decls []asset.NodeDecl
	seen := make(map[string]bool)
	for iter.Next() {
		identifier := iter.Label()
		if seen[identifier] {
			return nil, &CompileError{Field: identifier, Message: "duplicate node", Pos: iter.Value().Pos()}
		}
		seen[identifier] = true

		decl, err := parseNode(identifier, iter.Value())
		if err != nil {
			return nil, err
		}
		decls = append(decls, decl)
	}
	return decls, nil
}

func parseNode(identifier string, v cue.Value) (asset.NodeDecl, error) {
	decl := asset.NodeDecl{Identifier: identifier}

	iter, err := v.Fields()
	if err != nil {
		return decl, &CompileError{Field: identifier, Message: "node declaration must be a struct", Pos: v.Pos()}
	}
	for iter.Next() {
		switch label := iter.Label(); label {
		case "kind", "multiple", "required", "type", "nodes":
		default:
			return decl, &CompileError{Field: identifier + "." + label, Message: "unknown attribute", Pos: iter.Value().Pos()}
		}
	}

	kind, err := v.LookupPath(cue.ParsePath("kind")).String()
	if err != nil {
		return decl, &CompileError{Field: identifier + ".kind", Message: "kind is required", Pos: v.Pos()}
	}
	decl.Kind = asset.NodeKind(kind)

	if decl.Multiple, err = optionalBool(v, "multiple"); err != nil {
		return decl, err
	}
	if decl.Required, err = optionalBool(v, "required"); err != nil {
		return decl, err
	}

	nodesVal := v.LookupPath(cue.ParsePath("nodes"))
	typeVal := v.LookupPath(cue.ParsePath("type"))

	switch decl.Kind {
	case asset.NodeGroup:
		if !nodesVal.Exists() {
			return decl, &CompileError{Field: identifier + ".nodes", Message: "group requires nodes", Pos: v.Pos()}
		}
		children, err := parseNodes(nodesVal)
		if err != nil {
			return decl, err
		}
		decl.Children = children
	case asset.NodeText, asset.NodeReference:
		if nodesVal.Exists() {
			return decl, &CompileError{Field: identifier + ".nodes", Message: fmt.Sprintf("%s node cannot have children", decl.Kind), Pos: nodesVal.Pos()}
		}
		if decl.Multiple {
			return decl, &CompileError{Field: identifier + ".multiple", Message: "only groups can repeat", Pos: v.Pos()}
		}
	default:
		return decl, &CompileError{Field: identifier + ".kind", Message: fmt.Sprintf("unknown kind %q", kind), Pos: v.Pos()}
	}

	if typeVal.Exists() {
		if decl.Kind != asset.NodeReference {
			return decl, &CompileError{Field: identifier + ".type", Message: "type applies to reference nodes only", Pos: typeVal.Pos()}
		}
		s, err := typeVal.String()
		if err != nil {
			return decl, formatCUEError(err)
		}
		t, err := asset.ParseType(s)
		if err != nil {
			return decl, &CompileError{Field: identifier + ".type", Message: err.Error(), Pos: typeVal.Pos()}
		}
		decl.LinkType = t
	}

	return decl, nil
}

func optionalBool(v cue.Value, field string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return false, nil
	}
	b, err := fv.Bool()
	if err != nil {
		return false, formatCUEError(err)
	}
	return b, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

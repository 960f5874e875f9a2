package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
)

const articleDef = `
title: {kind: "text", required: true}
section: {
	kind:     "group"
	multiple: true
	nodes: {
		heading: kind: "text"
		banner: {kind: "reference", type: "block"}
	}
}
`

func TestCompileDeclarationOrder(t *testing.T) {
	s, err := Compile("article.cue", articleDef)
	require.NoError(t, err)

	require.Len(t, s.Nodes, 2)
	assert.Equal(t, asset.NodeDecl{Identifier: "title", Kind: asset.NodeText, Required: true}, s.Nodes[0])

	section := s.Nodes[1]
	assert.Equal(t, "section", section.Identifier)
	assert.Equal(t, asset.NodeGroup, section.Kind)
	assert.True(t, section.Multiple)
	require.Len(t, section.Children, 2)
	assert.Equal(t, "heading", section.Children[0].Identifier)
	assert.Equal(t, asset.NodeReference, section.Children[1].Kind)
	assert.Equal(t, asset.TypeBlock, section.Children[1].LinkType)
}

func TestCompileFormattingDoesNotAffectEquivalence(t *testing.T) {
	a, err := Compile("a.cue", articleDef)
	require.NoError(t, err)
	b, err := Compile("b.cue", `title: kind: "text"
title: required: true
section: {kind: "group", multiple: true, nodes: {heading: {kind: "text"}, banner: {type: "block", kind: "reference"}}}`)
	require.NoError(t, err)

	assert.True(t, a.Equivalent(b))
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		def  string
		msg  string
	}{
		{"empty", ``, "at least one node is required"},
		{"missing kind", `title: {required: true}`, "kind is required"},
		{"unknown kind", `title: kind: "image"`, `unknown kind "image"`},
		{"unknown attribute", `title: {kind: "text", colour: "red"}`, "unknown attribute"},
		{"group without nodes", `s: kind: "group"`, "group requires nodes"},
		{"text with nodes", `s: {kind: "text", nodes: {a: kind: "text"}}`, "cannot have children"},
		{"repeating text", `s: {kind: "text", multiple: true}`, "only groups can repeat"},
		{"type on text", `s: {kind: "text", type: "block"}`, "reference nodes only"},
		{"unknown link type", `s: {kind: "reference", type: "widget"}`, "unknown asset type"},
		{"not a struct", `s: "text"`, "must be a struct"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("bad.cue", tt.def)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCompileSyntaxErrorHasPosition(t *testing.T) {
	_, err := Compile("broken.cue", "title: {kind: \n")
	require.Error(t, err)

	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "cue", ce.Field)
	assert.Contains(t, err.Error(), "broken.cue")
}

func TestEntity(t *testing.T) {
	e := &asset.Entity{Type: asset.TypeSchema, Path: "/article", Site: "www", Definition: articleDef}
	s, err := Entity(e)
	require.NoError(t, err)
	assert.Len(t, s.Nodes, 2)

	_, err = Entity(&asset.Entity{Type: asset.TypePage, Path: "/p"})
	assert.Error(t, err)
}

package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXMLEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", `<a x="1"/>`, `<a x="1"/>`, true},
		{"attribute order", `<a x="1" y="2"/>`, `<a y="2" x="1"/>`, true},
		{"whitespace", "<a>\n  <b>t</b>\n</a>", "<a><b>t</b></a>", true},
		{"comment ignored", `<a><!-- note --><b/></a>`, `<a><b/></a>`, true},
		{"different text", `<a>one</a>`, `<a>two</a>`, false},
		{"different attr value", `<a x="1"/>`, `<a x="2"/>`, false},
		{"child order matters", `<a><b/><c/></a>`, `<a><c/><b/></a>`, false},
		{"mixed content position", `<p>Hello <b>World</b>!</p>`, `<p>Hello! <b>World</b></p>`, false},
		{"mixed content same", `<p>Hello <b>World</b>!</p>`, `<p>Hello <b>World</b>!</p>`, true},
		{"text split by comment", `<a>one<!-- c -->two</a>`, `<a>onetwo</a>`, true},
		{"text moved into child", `<a>x<b/></a>`, `<a><b>x</b></a>`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := XMLEqual(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestXMLEqualMalformed(t *testing.T) {
	_, err := XMLEqual(`<a>`, `<a/>`)
	assert.Error(t, err)
}

func TestSchemaEquivalent(t *testing.T) {
	a := &Schema{Nodes: []NodeDecl{{Identifier: "title", Kind: NodeText, Required: true}}}
	b := &Schema{Nodes: []NodeDecl{{Identifier: "title", Kind: NodeText, Required: true}}}
	c := &Schema{Nodes: []NodeDecl{{Identifier: "title", Kind: NodeText}}}

	assert.True(t, a.Equivalent(b))
	assert.False(t, a.Equivalent(c))
}

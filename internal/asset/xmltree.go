package asset

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// xmlNode is a parsed element with order-insensitive attributes, or a
// character data run when text is set. Text runs stay in document order
// among the element children.
type xmlNode struct {
	name     xml.Name
	attrs    []xml.Attr
	text     *string
	children []*xmlNode
}

// XMLEqual reports whether two XML documents have the same parsed tree.
// Attribute order, insignificant whitespace, comments and processing
// instructions do not count as differences.
func XMLEqual(a, b string) (bool, error) {
	ta, err := parseXMLTree(a)
	if err != nil {
		return false, fmt.Errorf("parse left document: %w", err)
	}
	tb, err := parseXMLTree(b)
	if err != nil {
		return false, fmt.Errorf("parse right document: %w", err)
	}
	return ta.equal(tb), nil
}

func parseXMLTree(doc string) (*xmlNode, error) {
	root := &xmlNode{}
	stack := []*xmlNode{root}
	dec := xml.NewDecoder(strings.NewReader(doc))
	dec.Strict = true

	// Character data is buffered until the next element boundary so a
	// comment inside a run does not split it. Whitespace-only runs are
	// dropped.
	var pending strings.Builder
	flush := func(n *xmlNode) {
		s := pending.String()
		pending.Reset()
		if strings.TrimSpace(s) == "" {
			return
		}
		n.children = append(n.children, &xmlNode{text: &s})
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]
		switch t := tok.(type) {
		case xml.StartElement:
			flush(top)
			attrs := slices.Clone(t.Attr)
			slices.SortFunc(attrs, func(x, y xml.Attr) int {
				if c := strings.Compare(x.Name.Space+":"+x.Name.Local, y.Name.Space+":"+y.Name.Local); c != 0 {
					return c
				}
				return strings.Compare(x.Value, y.Value)
			})
			n := &xmlNode{name: t.Name, attrs: attrs}
			top.children = append(top.children, n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 {
				return nil, fmt.Errorf("unbalanced end element %s", t.Name.Local)
			}
			flush(top)
			stack = stack[:len(stack)-1]
		case xml.CharData:
			pending.Write(t)
		}
	}
	flush(root)
	if len(stack) != 1 {
		return nil, fmt.Errorf("unclosed element %s", stack[len(stack)-1].name.Local)
	}
	return root, nil
}

func (n *xmlNode) equal(o *xmlNode) bool {
	if (n.text == nil) != (o.text == nil) {
		return false
	}
	if n.text != nil {
		return *n.text == *o.text
	}
	if n.name != o.name {
		return false
	}
	if !slices.Equal(n.attrs, o.attrs) {
		return false
	}
	if len(n.children) != len(o.children) {
		return false
	}
	for i := range n.children {
		if !n.children[i].equal(o.children[i]) {
			return false
		}
	}
	return true
}

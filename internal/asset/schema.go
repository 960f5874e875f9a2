package asset

// NodeDecl declares one node of a structured payload.
type NodeDecl struct {
	Identifier string     `json:"identifier"`
	Kind       NodeKind   `json:"kind"`
	Multiple   bool       `json:"multiple,omitempty"`
	Required   bool       `json:"required,omitempty"`
	LinkType   Type       `json:"link_type,omitempty"`
	Children   []NodeDecl `json:"children,omitempty"`
}

// Schema declares the expected shape of a structured payload.
type Schema struct {
	Nodes []NodeDecl `json:"nodes"`
}

// Lookup returns the declaration named identifier among decls.
func Lookup(decls []NodeDecl, identifier string) (NodeDecl, bool) {
	for _, d := range decls {
		if d.Identifier == identifier {
			return d, true
		}
	}
	return NodeDecl{}, false
}

// Fingerprint returns the content fingerprint of the declarations.
func (s *Schema) Fingerprint() (string, error) {
	if s == nil {
		return Fingerprint(DomainSchema, Schema{})
	}
	return Fingerprint(DomainSchema, s)
}

// Equivalent reports whether s and other declare the same shape. Instance
// ids and definition formatting play no part.
func (s *Schema) Equivalent(other *Schema) bool {
	a, err := s.Fingerprint()
	if err != nil {
		return false
	}
	b, err := other.Fingerprint()
	if err != nil {
		return false
	}
	return a == b
}

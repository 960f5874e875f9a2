package asset

import "fmt"

// Type enumerates the content kinds a store instance holds.
type Type string

const (
	TypeContainer        Type = "container"
	TypePage             Type = "page"
	TypeBlock            Type = "block"
	TypeFormat           Type = "format"
	TypeTemplate         Type = "template"
	TypeSchema           Type = "schema"
	TypeConfigurationSet Type = "configuration-set"
	TypeMetadataSet      Type = "metadata-set"
	TypeFile             Type = "file"
	TypeLink             Type = "link"
)

// Types lists every known type in a stable order.
var Types = []Type{
	TypeContainer,
	TypePage,
	TypeBlock,
	TypeFormat,
	TypeTemplate,
	TypeSchema,
	TypeConfigurationSet,
	TypeMetadataSet,
	TypeFile,
	TypeLink,
}

// Block variants.
const (
	BlockText       = "text"
	BlockXML        = "xml"
	BlockStructured = "structured"
	BlockFeed       = "feed"
)

// Format variants.
const (
	FormatScript = "script"
	FormatXSLT   = "xslt"
)

// Valid reports whether t is a known type.
func (t Type) Valid() bool {
	for _, known := range Types {
		if t == known {
			return true
		}
	}
	return false
}

// ParseType converts s to a Type, rejecting unknown names.
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown asset type %q", s)
	}
	return t, nil
}

func (t Type) String() string { return string(t) }

package engine

import (
	"bytes"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/schema"
)

// Equality decides whether the desired target content equals the target's
// current content. Ids never take part.
type Equality func(desired, current *asset.Entity) bool

// Fingerprint compares the canonical fingerprints of both entities.
func Fingerprint(desired, current *asset.Entity) bool {
	a, err := asset.ContentFingerprint(desired)
	if err != nil {
		return false
	}
	b, err := asset.ContentFingerprint(current)
	if err != nil {
		return false
	}
	return a == b
}

// withBody compares the body field with body and everything else by
// fingerprint.
func withBody(body func(a, b *asset.Entity) bool) Equality {
	return func(desired, current *asset.Entity) bool {
		if !body(desired, current) {
			return false
		}
		a, b := *desired, *current
		a.Text, b.Text = "", ""
		a.Content, b.Content = nil, nil
		a.Definition, b.Definition = "", ""
		return Fingerprint(&a, &b)
	}
}

// ExactText compares Text byte for byte. Used for plain text and scripts,
// where normalisation would hide a real change.
var ExactText = withBody(func(a, b *asset.Entity) bool {
	return a.Text == b.Text
})

// XMLText compares Text as parsed XML trees, so attribute order and
// insignificant whitespace are not changes. Unparseable documents fall
// back to exact comparison.
var XMLText = withBody(func(a, b *asset.Entity) bool {
	eq, err := asset.XMLEqual(a.Text, b.Text)
	if err != nil {
		return a.Text == b.Text
	}
	return eq
})

// FileContent compares file bytes.
var FileContent = withBody(func(a, b *asset.Entity) bool {
	return bytes.Equal(a.Content, b.Content)
})

// SchemaDefinition compares the compiled declarations, so formatting of
// the definition is not a change. Definitions that do not compile fall
// back to exact comparison.
var SchemaDefinition = withBody(func(a, b *asset.Entity) bool {
	sa, errA := schema.Entity(a)
	sb, errB := schema.Entity(b)
	if errA != nil || errB != nil {
		return a.Definition == b.Definition
	}
	return sa.Equivalent(sb)
})

// BlockContent picks the comparison for the block variant.
func BlockContent(desired, current *asset.Entity) bool {
	if desired.Variant != current.Variant {
		return false
	}
	switch desired.Variant {
	case asset.BlockText:
		return ExactText(desired, current)
	case asset.BlockXML:
		return XMLText(desired, current)
	default:
		return Fingerprint(desired, current)
	}
}

// FormatContent picks the comparison for the format variant.
func FormatContent(desired, current *asset.Entity) bool {
	if desired.Variant != current.Variant {
		return false
	}
	if desired.Variant == asset.FormatXSLT {
		return XMLText(desired, current)
	}
	return ExactText(desired, current)
}

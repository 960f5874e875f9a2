package asset

import (
	"fmt"
	"path"
	"strings"
)

// Ref is the portable identity of an entity: (Type, Path, Site).
//
// Ref is comparable and is used directly as a map key. Construct it with
// NewRef or ParseRef so Path is always in cleaned, leading-slash form.
// An empty Site denotes the global (site-less) area.
type Ref struct {
	Type Type   `json:"type" yaml:"type"`
	Path string `json:"path" yaml:"path"`
	Site string `json:"site,omitempty" yaml:"site,omitempty"`
}

// NewRef builds a Ref with a cleaned path.
func NewRef(t Type, p, site string) Ref {
	return Ref{Type: t, Path: CleanPath(p), Site: site}
}

// CleanPath normalises p to the canonical "/a/b" form. The empty path is
// the site root "/".
func CleanPath(p string) string {
	if p == "" {
		return "/"
	}
	return path.Clean("/" + strings.TrimSpace(p))
}

// IsRoot reports whether p names the implicit root container of a site.
func IsRoot(p string) bool {
	return CleanPath(p) == "/"
}

// ParseRef parses the string form produced by Ref.String:
//
//	page://www/docs/intro      type page, site "www", path /docs/intro
//	schema:///shared/article   type schema, global area, path /shared/article
func ParseRef(s string) (Ref, error) {
	typ, rest, ok := strings.Cut(strings.TrimSpace(s), "://")
	if !ok {
		return Ref{}, fmt.Errorf("parse ref %q: missing \"://\"", s)
	}
	t, err := ParseType(typ)
	if err != nil {
		return Ref{}, fmt.Errorf("parse ref %q: %w", s, err)
	}

	site, p := "", rest
	if !strings.HasPrefix(rest, "/") {
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			site, p = rest[:i], rest[i:]
		} else {
			site, p = rest, "/"
		}
	}
	if strings.Contains(site, ":") {
		return Ref{}, fmt.Errorf("parse ref %q: invalid site %q", s, site)
	}
	return NewRef(t, p, site), nil
}

// MustParseRef is like ParseRef but panics on error.
// Use only in tests or for literals known to be valid.
func MustParseRef(s string) Ref {
	r, err := ParseRef(s)
	if err != nil {
		panic(err)
	}
	return r
}

// String renders the ref as type://site/path.
func (r Ref) String() string {
	return fmt.Sprintf("%s://%s%s", r.Type, r.Site, CleanPath(r.Path))
}

// IsZero reports whether r is the zero Ref.
func (r Ref) IsZero() bool {
	return r == Ref{}
}

// Name returns the last path element.
func (r Ref) Name() string {
	return path.Base(CleanPath(r.Path))
}

// ParentPath returns the path of the containing container, or "" for the
// site root.
func (r Ref) ParentPath() string {
	p := CleanPath(r.Path)
	if p == "/" {
		return ""
	}
	return path.Dir(p)
}

// Parent returns the ref of the containing container. The parent of the
// site root is the zero Ref.
func (r Ref) Parent() Ref {
	pp := r.ParentPath()
	if pp == "" {
		return Ref{}
	}
	return Ref{Type: TypeContainer, Path: pp, Site: r.Site}
}

// Validate checks that r names a known type and a path.
func (r Ref) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid ref %s: unknown type %q", r, r.Type)
	}
	if r.Path == "" {
		return fmt.Errorf("invalid ref %s: empty path", r)
	}
	return nil
}

// Link points at another entity. Ref is the portable part; ID is the
// instance-local id and is only meaningful inside the store it came from.
type Link struct {
	Ref `yaml:",inline"`
	ID  string `json:"id,omitempty" yaml:"id,omitempty"`
}

// IsZero reports whether l points nowhere.
func (l *Link) IsZero() bool {
	return l == nil || (l.ID == "" && l.Ref.Path == "")
}

// LinkTo builds a Link from an entity snapshot.
func LinkTo(e *Entity) *Link {
	return &Link{Ref: e.Ref(), ID: e.ID}
}

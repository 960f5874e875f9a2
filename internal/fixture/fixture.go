// Package fixture seeds a store from a YAML description of its entities.
//
// Fixtures name every entity and every link by ref string, never by id, so
// one file can be seeded into any store:
//
//	site: www
//	entities:
//	  - ref: container:///docs
//	  - ref: page:///docs/intro
//	    schema: schema:///schemas/article
//	    payload:
//	      - {id: title, text: Introduction}
//	      - id: section
//	        nodes:
//	          - {id: banner, ref: block:///blocks/banner}
//
// A ref without a site takes the file's default site. Entities are created
// in file order, so containers must come before their children.
package fixture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
)

// File is a parsed fixture.
type File struct {
	// Site is the default site for refs that do not name one.
	Site string `yaml:"site,omitempty"`

	Entities []Entry `yaml:"entities"`
}

// Entry describes one entity.
type Entry struct {
	Ref        string `yaml:"ref"`
	Variant    string `yaml:"variant,omitempty"`
	Text       string `yaml:"text,omitempty"`
	Content    string `yaml:"content,omitempty"`
	URL        string `yaml:"url,omitempty"`
	Definition string `yaml:"definition,omitempty"`

	Schema           string `yaml:"schema,omitempty"`
	ConfigurationSet string `yaml:"configuration_set,omitempty"`
	MetadataSet      string `yaml:"metadata_set,omitempty"`
	Format           string `yaml:"format,omitempty"`

	Payload        []Node          `yaml:"payload,omitempty"`
	Configurations []Configuration `yaml:"configurations,omitempty"`
	PageRegions    []PageRegions   `yaml:"page_regions,omitempty"`
	RegionNames    []string        `yaml:"region_names,omitempty"`
	Fields         []asset.FieldDef `yaml:"fields,omitempty"`

	Metadata *asset.Metadata   `yaml:"metadata,omitempty"`
	Settings map[string]string `yaml:"settings,omitempty"`
}

// Node is a payload node. The kind follows from the fields set: nodes (or
// group: true for an empty group) makes a group, ref a reference (an empty
// ref is an unbound reference), anything else a text node.
type Node struct {
	ID    string  `yaml:"id"`
	Text  string  `yaml:"text,omitempty"`
	Ref   *string `yaml:"ref,omitempty"`
	Nodes []Node  `yaml:"nodes,omitempty"`
	Group bool    `yaml:"group,omitempty"`
}

// Region places a block and format by ref.
type Region struct {
	Name   string `yaml:"name"`
	Block  string `yaml:"block,omitempty"`
	Format string `yaml:"format,omitempty"`
}

// Configuration is one output of a configuration set.
type Configuration struct {
	Name            string   `yaml:"name"`
	Default         bool     `yaml:"default,omitempty"`
	Template        string   `yaml:"template,omitempty"`
	Format          string   `yaml:"format,omitempty"`
	OutputExtension string   `yaml:"output_extension,omitempty"`
	Regions         []Region `yaml:"regions,omitempty"`
}

// PageRegions holds region overrides of a page for one configuration.
type PageRegions struct {
	Configuration string   `yaml:"configuration"`
	Regions       []Region `yaml:"regions"`
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("fixture %s: %w", path, err)
	}
	return f, nil
}

// Parse parses fixture YAML. Unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	for i, e := range f.Entities {
		if _, err := f.ref(e.Ref); err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
	}
	return &f, nil
}

// ref parses s, filling in the default site.
func (f *File) ref(s string) (asset.Ref, error) {
	r, err := asset.ParseRef(s)
	if err != nil {
		return asset.Ref{}, err
	}
	if r.Site == "" {
		r.Site = f.Site
	}
	return r, nil
}

// Seed creates every entity of f in s, in file order, and returns the
// created entities.
//
// Links are resolved against s when the linked entity already exists, so
// they carry the id s assigned. Links to entities created later in the
// file (or never) carry only the ref.
func Seed(ctx context.Context, s store.AssetStore, f *File) ([]*asset.Entity, error) {
	out := make([]*asset.Entity, 0, len(f.Entities))
	for _, entry := range f.Entities {
		e, err := f.build(ctx, s, entry)
		if err != nil {
			return out, fmt.Errorf("seed %s: %w", entry.Ref, err)
		}
		created, err := s.Create(ctx, e)
		if err != nil {
			return out, fmt.Errorf("seed %s: %w", entry.Ref, err)
		}
		out = append(out, created)
	}
	return out, nil
}

// Apply writes every entity of f to s, in file order, updating entities
// that already exist at the same ref and creating the rest. It returns the
// written entities.
func Apply(ctx context.Context, s store.AssetStore, f *File) ([]*asset.Entity, error) {
	out := make([]*asset.Entity, 0, len(f.Entities))
	for _, entry := range f.Entities {
		e, err := f.build(ctx, s, entry)
		if err != nil {
			return out, fmt.Errorf("apply %s: %w", entry.Ref, err)
		}

		existing, err := s.Find(ctx, e.Ref())
		var written *asset.Entity
		switch {
		case errors.Is(err, store.ErrNotFound):
			written, err = s.Create(ctx, e)
		case err == nil:
			e.ID = existing.ID
			written, err = s.Update(ctx, e)
		}
		if err != nil {
			return out, fmt.Errorf("apply %s: %w", entry.Ref, err)
		}
		out = append(out, written)
	}
	return out, nil
}

func (f *File) build(ctx context.Context, s store.AssetStore, entry Entry) (*asset.Entity, error) {
	r, err := f.ref(entry.Ref)
	if err != nil {
		return nil, err
	}
	e := &asset.Entity{
		Type:        r.Type,
		Path:        r.Path,
		Site:        r.Site,
		Variant:     entry.Variant,
		Text:        entry.Text,
		URL:         entry.URL,
		Definition:  entry.Definition,
		RegionNames: entry.RegionNames,
		Fields:      entry.Fields,
		Metadata:    entry.Metadata,
		Settings:    entry.Settings,
	}
	if entry.Content != "" {
		e.Content = []byte(entry.Content)
	}

	l := linker{ctx: ctx, store: s, file: f}
	e.Schema = l.link(entry.Schema)
	e.ConfigurationSet = l.link(entry.ConfigurationSet)
	e.MetadataSet = l.link(entry.MetadataSet)
	e.Format = l.link(entry.Format)

	for _, c := range entry.Configurations {
		e.Configurations = append(e.Configurations, asset.Configuration{
			Name:            c.Name,
			Default:         c.Default,
			Template:        l.link(c.Template),
			Format:          l.link(c.Format),
			OutputExtension: c.OutputExtension,
			Regions:         l.regions(c.Regions),
		})
	}
	for _, pr := range entry.PageRegions {
		e.PageRegions = append(e.PageRegions, asset.PageRegions{
			Configuration: pr.Configuration,
			Regions:       l.regions(pr.Regions),
		})
	}
	if entry.Payload != nil {
		e.Payload = &asset.Payload{Nodes: l.nodes(entry.Payload)}
	}
	if l.err != nil {
		return nil, l.err
	}
	return e, nil
}

// linker resolves fixture refs to links. The first error sticks.
type linker struct {
	ctx   context.Context
	store store.AssetStore
	file  *File
	err   error
}

func (l *linker) link(s string) *asset.Link {
	if s == "" || l.err != nil {
		return nil
	}
	r, err := l.file.ref(s)
	if err != nil {
		l.err = err
		return nil
	}
	e, err := l.store.Find(l.ctx, r)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &asset.Link{Ref: r}
	case err != nil:
		l.err = err
		return nil
	}
	return asset.LinkTo(e)
}

func (l *linker) regions(in []Region) []asset.Region {
	out := make([]asset.Region, 0, len(in))
	for _, r := range in {
		out = append(out, asset.Region{Name: r.Name, Block: l.link(r.Block), Format: l.link(r.Format)})
	}
	return out
}

func (l *linker) nodes(in []Node) []*asset.Node {
	out := make([]*asset.Node, 0, len(in))
	for _, n := range in {
		switch {
		case n.Group || len(n.Nodes) > 0:
			out = append(out, asset.Group(n.ID, l.nodes(n.Nodes)...))
		case n.Ref != nil:
			out = append(out, asset.Reference(n.ID, l.link(*n.Ref)))
		default:
			out = append(out, asset.Text(n.ID, n.Text))
		}
	}
	return out
}

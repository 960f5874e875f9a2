package asset

import (
	"encoding/json"
	"fmt"
	"time"
)

// Metadata holds the descriptive attributes shared by many entity types.
type Metadata struct {
	DisplayName string              `json:"display_name,omitempty" yaml:"display_name,omitempty"`
	Title       string              `json:"title,omitempty" yaml:"title,omitempty"`
	Summary     string              `json:"summary,omitempty" yaml:"summary,omitempty"`
	Author      string              `json:"author,omitempty" yaml:"author,omitempty"`
	Keywords    string              `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	Description string              `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate   *time.Time          `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	ReviewDate  *time.Time          `json:"review_date,omitempty" yaml:"review_date,omitempty"`
	Dynamic     map[string][]string `json:"dynamic,omitempty" yaml:"dynamic,omitempty"`
}

// Region places a block and/or format into a named template region.
type Region struct {
	Name   string `json:"name" yaml:"name"`
	Block  *Link  `json:"block,omitempty" yaml:"block,omitempty"`
	Format *Link  `json:"format,omitempty" yaml:"format,omitempty"`
}

// Configuration is one output of a configuration set.
type Configuration struct {
	Name            string   `json:"name" yaml:"name"`
	Default         bool     `json:"default,omitempty" yaml:"default,omitempty"`
	Template        *Link    `json:"template,omitempty" yaml:"template,omitempty"`
	Format          *Link    `json:"format,omitempty" yaml:"format,omitempty"`
	OutputExtension string   `json:"output_extension,omitempty" yaml:"output_extension,omitempty"`
	Regions         []Region `json:"regions,omitempty" yaml:"regions,omitempty"`
}

// PageRegions holds a page's region overrides for one configuration.
type PageRegions struct {
	Configuration string   `json:"configuration" yaml:"configuration"`
	Regions       []Region `json:"regions" yaml:"regions"`
}

// FieldDef declares a metadata field of a metadata set.
type FieldDef struct {
	Name     string   `json:"name" yaml:"name"`
	Label    string   `json:"label,omitempty" yaml:"label,omitempty"`
	Kind     string   `json:"kind,omitempty" yaml:"kind,omitempty"`
	Required bool     `json:"required,omitempty" yaml:"required,omitempty"`
	Values   []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// Entity is a snapshot of one typed content object.
//
// The common identity fields are always set. The remaining fields are
// per-type sections; a type only populates the sections it uses:
//
//	container          Metadata, MetadataSet
//	page               Payload, Schema, ConfigurationSet, MetadataSet, PageRegions, Metadata
//	block              Variant, Text (text, xml), Payload + Schema (structured), URL (feed), Metadata
//	format             Variant, Text
//	template           Text, Format, RegionNames
//	schema             Definition
//	configuration-set  Configurations
//	metadata-set       Fields
//	file               Content, Metadata
//	link               URL, Metadata
//
// Settings carries scalar configuration fields for every type.
type Entity struct {
	Type    Type   `json:"type"`
	ID      string `json:"id,omitempty"`
	Path    string `json:"path"`
	Site    string `json:"site,omitempty"`
	Variant string `json:"variant,omitempty"`

	Text       string `json:"text,omitempty"`
	Content    []byte `json:"content,omitempty"`
	URL        string `json:"url,omitempty"`
	Definition string `json:"definition,omitempty"`

	Payload          *Payload `json:"payload,omitempty"`
	Schema           *Link    `json:"schema,omitempty"`
	ConfigurationSet *Link    `json:"configuration_set,omitempty"`
	MetadataSet      *Link    `json:"metadata_set,omitempty"`
	Format           *Link    `json:"format,omitempty"`

	Configurations []Configuration `json:"configurations,omitempty"`
	PageRegions    []PageRegions   `json:"page_regions,omitempty"`
	RegionNames    []string        `json:"region_names,omitempty"`
	Fields         []FieldDef      `json:"fields,omitempty"`

	Metadata *Metadata        `json:"metadata,omitempty"`
	Settings map[string]string `json:"settings,omitempty"`
}

// Ref returns the portable identity of e.
func (e *Entity) Ref() Ref {
	return NewRef(e.Type, e.Path, e.Site)
}

// ParentPath returns the path of the container holding e.
func (e *Entity) ParentPath() string {
	return e.Ref().ParentPath()
}

// Name returns the last element of e's path.
func (e *Entity) Name() string {
	return e.Ref().Name()
}

// Clone returns a deep copy of e.
//
// The copy goes through JSON so every per-type section is covered without
// a hand-maintained field list.
func (e *Entity) Clone() *Entity {
	if e == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		panic(fmt.Sprintf("asset: clone %s: %v", e.Ref(), err))
	}
	var c Entity
	if err := json.Unmarshal(data, &c); err != nil {
		panic(fmt.Sprintf("asset: clone %s: %v", e.Ref(), err))
	}
	return &c
}

// Validate checks the identity fields.
func (e *Entity) Validate() error {
	if e == nil {
		return fmt.Errorf("nil entity")
	}
	if err := e.Ref().Validate(); err != nil {
		return err
	}
	if IsRoot(e.Path) {
		return fmt.Errorf("invalid entity %s: the site root is implicit", e.Ref())
	}
	return nil
}

// Links returns every declared link of e keyed by a dependency name, in a
// stable order. Payload references are not included.
func (e *Entity) Links() []NamedLink {
	var out []NamedLink
	add := func(name string, l *Link) {
		if !l.IsZero() {
			out = append(out, NamedLink{Name: name, Link: l})
		}
	}
	add("schema", e.Schema)
	add("configuration-set", e.ConfigurationSet)
	add("metadata-set", e.MetadataSet)
	add("format", e.Format)
	for _, c := range e.Configurations {
		add("configuration/"+c.Name+"/template", c.Template)
		add("configuration/"+c.Name+"/format", c.Format)
		for _, r := range c.Regions {
			add("configuration/"+c.Name+"/region/"+r.Name+"/block", r.Block)
			add("configuration/"+c.Name+"/region/"+r.Name+"/format", r.Format)
		}
	}
	for _, pr := range e.PageRegions {
		for _, r := range pr.Regions {
			add("page-region/"+pr.Configuration+"/"+r.Name+"/block", r.Block)
			add("page-region/"+pr.Configuration+"/"+r.Name+"/format", r.Format)
		}
	}
	return out
}

// NamedLink pairs a link with the dependency name it fills.
type NamedLink struct {
	Name string
	Link *Link
}

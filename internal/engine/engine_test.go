package engine

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
	"github.com/roach88/assetsync/internal/testutil"
)

const site = "www"

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

// openStore opens a sqlite store in a temp dir with ids "<prefix>-0001"...
func openStore(t *testing.T, prefix string) *store.SQLite {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), prefix+".db"),
		store.WithIDGenerator(testutil.NewSequentialIDs(prefix)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestSyncer(source, target store.AssetStore, opts ...Option) *Syncer {
	base := []Option{
		WithRunIDs(testutil.NewFixedRunID("test-run")),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(source, target, append(base, opts...)...)
}

func lenient() WalkOptions {
	opts := DefaultWalkOptions()
	opts.Policy = Lenient
	return opts
}

func create(t *testing.T, s store.AssetStore, e *asset.Entity) *asset.Entity {
	t.Helper()
	created, err := s.Create(context.Background(), e)
	require.NoError(t, err)
	return created
}

func find(t *testing.T, s store.AssetStore, ref asset.Ref) *asset.Entity {
	t.Helper()
	e, err := s.Find(context.Background(), ref)
	require.NoError(t, err)
	return e
}

func containerAt(p string) *asset.Entity {
	return &asset.Entity{Type: asset.TypeContainer, Path: p, Site: site}
}

func ref(t asset.Type, p string) asset.Ref {
	return asset.NewRef(t, p, site)
}

// sourceFixture holds the entities of the standard source instance:
//
//	/schemas/article   schema
//	/blocks/banner     text block
//	/docs/intro        page bound to article, one section referencing banner
type sourceFixture struct {
	store  *store.SQLite
	schema *asset.Entity
	banner *asset.Entity
	intro  *asset.Entity
}

func seedSource(t *testing.T) *sourceFixture {
	t.Helper()
	s := openStore(t, "src")
	create(t, s, containerAt("/schemas"))
	create(t, s, containerAt("/blocks"))
	create(t, s, containerAt("/docs"))

	f := &sourceFixture{store: s}
	f.schema = create(t, s, &asset.Entity{Type: asset.TypeSchema, Path: "/schemas/article", Site: site, Definition: articleDef})
	f.banner = create(t, s, &asset.Entity{Type: asset.TypeBlock, Path: "/blocks/banner", Site: site, Variant: asset.BlockText, Text: "Welcome"})
	f.intro = create(t, s, &asset.Entity{
		Type:   asset.TypePage,
		Path:   "/docs/intro",
		Site:   site,
		Schema: asset.LinkTo(f.schema),
		Payload: &asset.Payload{Nodes: []*asset.Node{
			asset.Text("title", "Introduction"),
			asset.Group("section",
				asset.Text("heading", "One"),
				asset.Reference("banner", asset.LinkTo(f.banner)),
			),
		}},
		Metadata: &asset.Metadata{Title: "Intro"},
	})
	return f
}

func TestWalkLenientClearsUnresolvedReference(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := openStore(t, "tgt")

	report, err := newTestSyncer(src.store, target).Walk(ctx, ref(asset.TypeContainer, "/docs"), lenient())
	require.NoError(t, err)

	docs, ok := report.Last(ref(asset.TypeContainer, "/docs"))
	require.True(t, ok)
	assert.Equal(t, Created, docs.Outcome)

	intro, ok := report.Last(ref(asset.TypePage, "/docs/intro"))
	require.True(t, ok)
	assert.Equal(t, Created, intro.Outcome)

	banner, ok := report.Last(ref(asset.TypeBlock, "/blocks/banner"))
	require.True(t, ok)
	assert.Equal(t, Skipped, banner.Outcome)
	assert.Contains(t, banner.Detail, "page://www/docs/intro")
	assert.Less(t, banner.Seq, intro.Seq)

	stored := find(t, target, ref(asset.TypePage, "/docs/intro"))
	node := stored.Payload.Find("section/banner")
	require.NotNil(t, node)
	assert.Nil(t, node.Link)
	assert.Equal(t, "One", stored.Payload.Find("section/heading").Text)
	assert.Equal(t, "Intro", stored.Metadata.Title)

	_, err = target.Find(ctx, ref(asset.TypeBlock, "/blocks/banner"))
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestResyncBindsReferenceOnceTargetHasIt(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := openStore(t, "tgt")
	s := newTestSyncer(src.store, target)

	_, err := s.Walk(ctx, ref(asset.TypeContainer, "/docs"), lenient())
	require.NoError(t, err)

	report, err := s.Sync(ctx, ref(asset.TypeBlock, "/blocks/banner"), lenient())
	require.NoError(t, err)
	entry, _ := report.Last(ref(asset.TypeBlock, "/blocks/banner"))
	assert.Equal(t, Created, entry.Outcome)

	report, err = s.Sync(ctx, ref(asset.TypePage, "/docs/intro"), lenient())
	require.NoError(t, err)
	entry, _ = report.Last(ref(asset.TypePage, "/docs/intro"))
	assert.Equal(t, Updated, entry.Outcome)

	banner := find(t, target, ref(asset.TypeBlock, "/blocks/banner"))
	stored := find(t, target, ref(asset.TypePage, "/docs/intro"))
	link := stored.Payload.Find("section/banner").Link
	require.NotNil(t, link)
	assert.Equal(t, banner.ID, link.ID)
	assert.Equal(t, banner.Ref(), link.Ref)
	assert.NotEqual(t, src.banner.ID, link.ID)
}

func TestRepeatableGroupGrowsFromTargetShape(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := openStore(t, "tgt")
	s := newTestSyncer(src.store, target)

	opts := lenient()
	_, err := s.Walk(ctx, asset.NewRef(asset.TypeContainer, "/", site), opts)
	require.NoError(t, err)

	// Give the single target instance a node the schema does not declare.
	current := find(t, target, ref(asset.TypePage, "/docs/intro"))
	section := current.Payload.Find("section")
	section.Children = append(section.Children, asset.Text("legacy", "kept"))
	_, err = target.Update(ctx, current)
	require.NoError(t, err)

	grown := src.intro.Clone()
	grown.Payload = &asset.Payload{Nodes: []*asset.Node{
		asset.Text("title", "Introduction"),
		asset.Group("section", asset.Text("heading", "One")),
		asset.Group("section", asset.Text("heading", "Two")),
		asset.Group("section", asset.Text("heading", "Three")),
	}}
	_, err = src.store.Update(ctx, grown)
	require.NoError(t, err)

	report, err := s.Sync(ctx, ref(asset.TypePage, "/docs/intro"), opts)
	require.NoError(t, err)
	entry, _ := report.Last(ref(asset.TypePage, "/docs/intro"))
	assert.Equal(t, Updated, entry.Outcome)
	assert.Contains(t, entry.Notes, "phantom text node section[2]/legacy")

	stored := find(t, target, ref(asset.TypePage, "/docs/intro"))
	sections := asset.Instances(stored.Payload.Nodes, "section")
	require.Len(t, sections, 3)
	for i, want := range []string{"One", "Two", "Three"} {
		var heading, legacy *asset.Node
		for _, c := range sections[i].Children {
			switch c.Identifier {
			case "heading":
				heading = c
			case "legacy":
				legacy = c
			}
		}
		require.NotNil(t, heading)
		assert.Equal(t, want, heading.Text)
		require.NotNil(t, legacy, "instance %d keeps the target shape", i)
		assert.Equal(t, "kept", legacy.Text)
	}
}

func TestResyncOfIdenticalContentWritesNothing(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := store.NewCounting(openStore(t, "tgt"))
	root := asset.NewRef(asset.TypeContainer, "/", site)

	first, err := newTestSyncer(src.store, target).Walk(ctx, root, DefaultWalkOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, first.Counts()[Created])
	assert.Equal(t, int64(6), target.Writes())

	target.Reset()
	second, err := newTestSyncer(src.store, target).Walk(ctx, root, DefaultWalkOptions())
	require.NoError(t, err)

	assert.Equal(t, int64(0), target.Writes())
	assert.Equal(t, 6, second.Counts()[Unchanged])
	assert.Len(t, second.Entries, 6)
	entry, _ := second.Last(ref(asset.TypePage, "/docs/intro"))
	assert.Equal(t, Unchanged, entry.Outcome)
}

func TestWalkBindsReferenceAndRewritesIDs(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := openStore(t, "tgt")

	_, err := newTestSyncer(src.store, target).Walk(ctx, asset.NewRef(asset.TypeContainer, "/", site), DefaultWalkOptions())
	require.NoError(t, err)

	schema := find(t, target, ref(asset.TypeSchema, "/schemas/article"))
	banner := find(t, target, ref(asset.TypeBlock, "/blocks/banner"))
	intro := find(t, target, ref(asset.TypePage, "/docs/intro"))

	assert.Equal(t, schema.ID, intro.Schema.ID)
	assert.Equal(t, banner.ID, intro.Payload.Find("section/banner").Link.ID)
	for _, n := range intro.Payload.References() {
		require.NotNil(t, n.Link)
		got, err := target.Get(ctx, n.Link.Type, n.Link.ID)
		require.NoError(t, err, "reference %s must resolve in target", n.Identifier)
		assert.Equal(t, n.Link.Ref, got.Ref())
	}
}

func TestDependenciesAreSyncedFirst(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	target := openStore(t, "tgt")

	opts := DefaultWalkOptions()
	opts.FollowReferences = true
	report, err := newTestSyncer(src.store, target).Sync(ctx, ref(asset.TypePage, "/docs/intro"), opts)
	require.NoError(t, err)

	var order []asset.Ref
	for _, e := range report.Entries {
		assert.Equal(t, Created, e.Outcome, e.Ref.String())
		order = append(order, e.Ref)
	}
	assert.Equal(t, []asset.Ref{
		ref(asset.TypeContainer, "/docs"),
		ref(asset.TypeContainer, "/schemas"),
		ref(asset.TypeSchema, "/schemas/article"),
		ref(asset.TypeContainer, "/blocks"),
		ref(asset.TypeBlock, "/blocks/banner"),
		ref(asset.TypePage, "/docs/intro"),
	}, order)
}

func TestLenientUnknownReferenceIDIsReportedOnOwner(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	create(t, src.store, &asset.Entity{
		Type:   asset.TypePage,
		Path:   "/docs/ghost",
		Site:   site,
		Schema: asset.LinkTo(src.schema),
		Payload: &asset.Payload{Nodes: []*asset.Node{
			asset.Text("title", "Ghost"),
			asset.Group("section",
				asset.Reference("banner", &asset.Link{Ref: asset.Ref{Type: asset.TypeBlock}, ID: "gone"}),
			),
		}},
	})
	target := openStore(t, "tgt")
	create(t, target, containerAt("/docs"))
	create(t, target, containerAt("/schemas"))
	create(t, target, &asset.Entity{Type: asset.TypeSchema, Path: "/schemas/article", Site: site, Definition: articleDef})
	ghost := ref(asset.TypePage, "/docs/ghost")

	report, err := newTestSyncer(src.store, target).Sync(ctx, ghost, lenient())
	require.NoError(t, err)

	for _, e := range report.Entries {
		assert.NotEmpty(t, e.Ref.Path, "entry %d has no ref", e.Seq)
	}
	require.GreaterOrEqual(t, len(report.Entries), 2)
	skipped := report.Entries[len(report.Entries)-2]
	assert.Equal(t, ghost, skipped.Ref)
	assert.Equal(t, Skipped, skipped.Outcome)
	assert.Contains(t, skipped.Detail, `source has no block "gone"`)

	entry, _ := report.Last(ghost)
	assert.Equal(t, Created, entry.Outcome)
	assert.Nil(t, find(t, target, ghost).Payload.Find("section/banner").Link)

	_, err = newTestSyncer(src.store, openStore(t, "strict")).Sync(ctx, ghost, DefaultWalkOptions())
	require.Error(t, err)
	assert.True(t, IsMissingDependency(err))
	assert.NotContains(t, err.Error(), "block://")
}

func TestWalkRecordsMetrics(t *testing.T) {
	ctx := context.Background()
	src := seedSource(t)
	m := telemetry.NewMetrics()

	_, err := newTestSyncer(src.store, openStore(t, "tgt"), WithMetrics(m)).Walk(ctx, ref(asset.TypeContainer, "/blocks"), DefaultWalkOptions())
	require.NoError(t, err)

	series, err := promtest.GatherAndCount(m.Registry(), "assetsync_entities_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series, "container and block, both Created")

	series, err = promtest.GatherAndCount(m.Registry(), "assetsync_upsert_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

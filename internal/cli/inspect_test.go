package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/fixture"
	"github.com/roach88/assetsync/internal/store"
)

type inspectResponse struct {
	Status string         `json:"status"`
	Data   *InspectResult `json:"data"`
	Error  *struct {
		Code    string         `json:"code"`
		Details *InspectResult `json:"details"`
	} `json:"error"`
}

func TestInspectReportsPhantoms(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t, "testdata/site.yaml")

	out, err := execute(t, "--config", w.config, "inspect", "container://www/", "--store", "source")
	require.NoError(t, err, out)
	assert.Contains(t, out, "page://www/docs/intro")
	assert.Contains(t, out, "phantom text node legacy")
	assert.Contains(t, out, "inspected 1 entities under container://www/ in source: 1 with findings, 0 drifted")
}

func TestInspectJSON(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t, "testdata/site.yaml")

	out, err := execute(t, "--config", w.config, "--format", "json",
		"inspect", "container://www/docs", "--store", "source", "--concurrency", "2")
	require.NoError(t, err, out)

	var resp inspectResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "source", resp.Data.Store)
	assert.Equal(t, 1, resp.Data.Inspected)
	require.Len(t, resp.Data.Findings, 1)
	f := resp.Data.Findings[0]
	assert.Equal(t, "page://www/docs/intro", f.Ref)
	assert.Equal(t, "schema://www/schemas/article", f.Schema)
	require.Len(t, f.Phantoms, 1)
	assert.Equal(t, "legacy", f.Phantoms[0].Path)
	assert.Equal(t, asset.NodeText, f.Phantoms[0].Kind)
	assert.Empty(t, f.Drift)
}

const driftFixture = `
site: www
entities:
  - ref: page:///docs/broken
    schema: schema:///schemas/article
    payload:
      - id: section
        nodes:
          - {id: heading, text: No title}
  - ref: page:///docs/orphan
    schema: schema:///schemas/retired
`

func TestInspectReportsDrift(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t, "testdata/site.yaml")
	driftPath := filepath.Join(w.dir, "drift.yaml")
	require.NoError(t, os.WriteFile(driftPath, []byte(driftFixture), 0644))
	w.seed(t, driftPath)

	out, err := execute(t, "--config", w.config, "--format", "json", "inspect", "container://www/docs", "--store", "source")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "2 entities drifted")

	var resp inspectResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeDrift, resp.Error.Code)
	require.NotNil(t, resp.Error.Details)

	drift := map[string]string{}
	for _, f := range resp.Error.Details.Findings {
		drift[f.Ref] = f.Drift
	}
	assert.Contains(t, drift["page://www/docs/broken"], "title")
	assert.Equal(t, "schema not found", drift["page://www/docs/orphan"])
	assert.Empty(t, drift["page://www/docs/intro"])
}

func TestInspectCommandErrors(t *testing.T) {
	w := newWorkspace(t)
	w.seed(t, "testdata/site.yaml")

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"bad store", []string{"inspect", "container://www/docs", "--store", "backup"}, "must be source or target"},
		{"bad concurrency", []string{"inspect", "container://www/docs", "--store", "source", "--concurrency", "0"}, "at least 1"},
		{"bad ref", []string{"inspect", "www/docs"}, "invalid root ref"},
		{"missing root", []string{"inspect", "container://www/nowhere", "--store", "source"}, "entity not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, append([]string{"--config", w.config}, tt.args...)...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestInspectorCompilesEachSchemaOnce(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer st.Close()

	f, err := fixture.Load("testdata/site.yaml")
	require.NoError(t, err)
	_, err = fixture.Seed(ctx, st, f)
	require.NoError(t, err)
	for _, name := range []string{"a", "b", "c"} {
		_, err := st.Create(ctx, &asset.Entity{
			Type: asset.TypePage, Path: "/docs/" + name, Site: "www",
			Schema:  &asset.Link{Ref: asset.MustParseRef("schema://www/schemas/article")},
			Payload: &asset.Payload{Nodes: []*asset.Node{asset.Text("title", name)}},
		})
		require.NoError(t, err)
	}

	in := &inspector{store: st, logger: discard, schemas: make(map[asset.Link]*schemaResult)}
	result, err := in.run(ctx, asset.MustParseRef("container://www/docs"), 4)
	require.NoError(t, err)

	assert.Equal(t, 4, result.Inspected)
	require.Len(t, result.Findings, 1)
	assert.Equal(t, "page://www/docs/intro", result.Findings[0].Ref)
	assert.Len(t, in.schemas, 1)
}

func TestInspectorKeysSchemasByID(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(filepath.Join(t.TempDir(), "s.db"))
	require.NoError(t, err)
	defer st.Close()

	_, err = st.Create(ctx, &asset.Entity{Type: asset.TypeContainer, Path: "/schemas", Site: "www"})
	require.NoError(t, err)
	article, err := st.Create(ctx, &asset.Entity{Type: asset.TypeSchema, Path: "/schemas/article", Site: "www",
		Definition: `title: {kind: "text", required: true}`})
	require.NoError(t, err)
	note, err := st.Create(ctx, &asset.Entity{Type: asset.TypeSchema, Path: "/schemas/note", Site: "www",
		Definition: `body: {kind: "text", required: true}`})
	require.NoError(t, err)

	in := &inspector{store: st, logger: discard, schemas: make(map[asset.Link]*schemaResult)}
	byID := func(id string) *asset.Link {
		return &asset.Link{Ref: asset.Ref{Type: asset.TypeSchema}, ID: id}
	}

	a, drift, err := in.schema(ctx, byID(article.ID))
	require.NoError(t, err)
	require.Empty(t, drift)
	b, drift, err := in.schema(ctx, byID(note.ID))
	require.NoError(t, err)
	require.Empty(t, drift)

	require.Len(t, a.Nodes, 1)
	require.Len(t, b.Nodes, 1)
	assert.Equal(t, "title", a.Nodes[0].Identifier)
	assert.Equal(t, "body", b.Nodes[0].Identifier)
	assert.Len(t, in.schemas, 2)
}

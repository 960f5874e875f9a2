package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
	"github.com/roach88/assetsync/internal/testutil"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *store.SQLite) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"),
		store.WithIDGenerator(testutil.NewSequentialIDs("s")))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	ts := httptest.NewServer(New(st, opts...))
	t.Cleanup(ts.Close)
	return ts, st
}

func do(t *testing.T, method, u string, body any, header http.Header) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, u, r)
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestCreateGetAndFind(t *testing.T) {
	ts, _ := newTestServer(t)

	resp := do(t, http.MethodPost, ts.URL+"/api/v1/entities",
		&asset.Entity{Type: asset.TypeContainer, Path: "/docs", Site: "www"}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[asset.Entity](t, resp)
	assert.Equal(t, "s-0001", created.ID)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/entities/container/s-0001", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/docs", decode[asset.Entity](t, resp).Path)

	q := url.Values{"ref": {"container://www/docs"}}
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/find?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s-0001", decode[asset.Entity](t, resp).ID)
}

func TestStoreErrorsMapToStatus(t *testing.T) {
	ts, st := newTestServer(t)
	_, err := st.Create(context.Background(), &asset.Entity{Type: asset.TypeContainer, Path: "/docs", Site: "www"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"get missing", http.MethodGet, "/api/v1/entities/page/nope", nil, http.StatusNotFound, CodeNotFound},
		{"find missing", http.MethodGet, "/api/v1/find?ref=page://www/docs/intro", nil, http.StatusNotFound, CodeNotFound},
		{"find bad ref", http.MethodGet, "/api/v1/find?ref=docs", nil, http.StatusBadRequest, CodeInvalid},
		{"unknown type", http.MethodGet, "/api/v1/entities/widget/s-0001", nil, http.StatusBadRequest, CodeInvalid},
		{
			"create conflict", http.MethodPost, "/api/v1/entities",
			&asset.Entity{Type: asset.TypeContainer, Path: "/docs", Site: "www"},
			http.StatusConflict, CodeConflict,
		},
		{
			"create without parent", http.MethodPost, "/api/v1/entities",
			&asset.Entity{Type: asset.TypePage, Path: "/missing/intro", Site: "www"},
			http.StatusUnprocessableEntity, CodeParentNotFound,
		},
		{
			"create root", http.MethodPost, "/api/v1/entities",
			&asset.Entity{Type: asset.TypeContainer, Path: "/", Site: "www"},
			http.StatusBadRequest, CodeInvalid,
		},
		{
			"update id mismatch", http.MethodPut, "/api/v1/entities/container/s-0001",
			&asset.Entity{Type: asset.TypeContainer, ID: "s-0002", Path: "/docs", Site: "www"},
			http.StatusBadRequest, CodeInvalid,
		},
		{
			"update missing", http.MethodPut, "/api/v1/entities/page/s-0009",
			&asset.Entity{Type: asset.TypePage, ID: "s-0009", Path: "/docs/intro", Site: "www"},
			http.StatusNotFound, CodeNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, tt.method, ts.URL+tt.path, tt.body, nil)
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, resp).Code)
		})
	}
}

func TestMalformedBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/entities", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, CodeInvalid, decode[ErrorResponse](t, resp).Code)
}

func TestUpdateAndChildren(t *testing.T) {
	ctx := context.Background()
	ts, st := newTestServer(t)
	docs, err := st.Create(ctx, &asset.Entity{Type: asset.TypeContainer, Path: "/docs", Site: "www"})
	require.NoError(t, err)
	block, err := st.Create(ctx, &asset.Entity{
		Type: asset.TypeBlock, Path: "/docs/banner", Site: "www", Variant: asset.BlockText, Text: "Hello",
	})
	require.NoError(t, err)

	block.Text = "Welcome"
	resp := do(t, http.MethodPut, ts.URL+"/api/v1/entities/block/"+block.ID, block, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Welcome", decode[asset.Entity](t, resp).Text)

	q := url.Values{"site": {"www"}, "path": {docs.Path}}
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/children?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	children := decode[ChildrenResponse](t, resp).Entities
	require.Len(t, children, 1)
	assert.Equal(t, "Welcome", children[0].Text)

	q = url.Values{"site": {"www"}, "path": {"/empty"}}
	resp = do(t, http.MethodGet, ts.URL+"/api/v1/children?"+q.Encode(), nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[ChildrenResponse](t, resp).Entities)
}

func TestBearerAuth(t *testing.T) {
	ts, _ := newTestServer(t, WithToken("secret"))

	resp := do(t, http.MethodGet, ts.URL+"/api/v1/entities/page/x", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("WWW-Authenticate"), "Bearer")
	assert.Equal(t, CodeUnauthorized, decode[ErrorResponse](t, resp).Code)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/entities/page/x", nil,
		http.Header{"Authorization": {"Bearer wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/api/v1/entities/page/x", nil,
		http.Header{"Authorization": {"Bearer secret"}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = do(t, http.MethodGet, ts.URL+"/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsCountRequests(t *testing.T) {
	m := telemetry.NewMetrics()
	ts, _ := newTestServer(t, WithMetrics(m))

	do(t, http.MethodGet, ts.URL+"/api/v1/entities/page/x", nil, nil)
	do(t, http.MethodGet, ts.URL+"/api/v1/find?ref=page://www/a", nil, nil)

	n, err := promtest.GatherAndCount(m.Registry(), "assetsync_store_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	resp := do(t, http.MethodGet, ts.URL+"/metrics", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `assetsync_store_requests_total{code="Not Found",operation="get"} 1`)
}

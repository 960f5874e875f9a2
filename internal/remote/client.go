// Package remote implements store.AssetStore against the HTTP API served by
// internal/server, so either side of a sync can be a running instance.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/server"
	"github.com/roach88/assetsync/internal/store"
)

const defaultTimeout = 30 * time.Second

// Client talks to one store API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	cache      *entityCache
	logger     *slog.Logger
}

var _ store.AssetStore = (*Client)(nil)

// Option configures a Client.
type Option func(*Client) error

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) error {
		c.token = token
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		c.httpClient = hc
		return nil
	}
}

// WithTimeout bounds each request. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d > 0 {
			c.httpClient.Timeout = d
		}
		return nil
	}
}

// WithCache keeps up to maxBytes of entity bodies for Get. Zero disables
// the cache.
func WithCache(maxBytes int64) Option {
	return func(c *Client) error {
		if maxBytes <= 0 {
			return nil
		}
		cache, err := newEntityCache(maxBytes)
		if err != nil {
			return fmt.Errorf("create cache: %w", err)
		}
		c.cache = cache
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// New creates a client for the API at baseURL (scheme and host, with an
// optional path prefix before /api/v1).
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("parse base url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/") + "/api/v1",
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Close releases the cache.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.close()
	}
}

// Get returns the entity with the given type and id, from the cache when
// present.
func (c *Client) Get(ctx context.Context, t asset.Type, id string) (*asset.Entity, error) {
	key := cacheKey(t, id)
	if e, ok := c.cache.get(key); ok {
		return e, nil
	}
	data, err := c.doRequest(ctx, http.MethodGet, "/entities/"+url.PathEscape(string(t))+"/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	e, err := decodeEntity(data)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", t, id, err)
	}
	c.cache.set(key, data)
	return e, nil
}

// Find returns the entity at ref.
func (c *Client) Find(ctx context.Context, ref asset.Ref) (*asset.Entity, error) {
	q := url.Values{"ref": {ref.String()}}
	data, err := c.doRequest(ctx, http.MethodGet, "/find?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", ref, err)
	}
	e, err := decodeEntity(data)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", ref, err)
	}
	return e, nil
}

// Create posts a new entity.
func (c *Client) Create(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}
	data, err := c.doRequest(ctx, http.MethodPost, "/entities", body)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Ref(), err)
	}
	created, err := decodeEntity(data)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", e.Ref(), err)
	}
	c.cache.set(cacheKey(created.Type, created.ID), data)
	return created, nil
}

// Update replaces an existing entity.
func (c *Client) Update(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	if e.ID == "" {
		return nil, fmt.Errorf("update %s: missing id: %w", e.Ref(), store.ErrInvalid)
	}
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal entity: %w", err)
	}

	key := cacheKey(e.Type, e.ID)
	c.cache.del(key)

	data, err := c.doRequest(ctx, http.MethodPut, "/entities/"+url.PathEscape(string(e.Type))+"/"+url.PathEscape(e.ID), body)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Ref(), err)
	}
	updated, err := decodeEntity(data)
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", e.Ref(), err)
	}
	c.cache.set(key, data)
	return updated, nil
}

// Children lists the entities directly inside containerPath.
func (c *Client) Children(ctx context.Context, containerPath, site string) ([]*asset.Entity, error) {
	q := url.Values{"path": {containerPath}, "site": {site}}
	data, err := c.doRequest(ctx, http.MethodGet, "/children?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("children of %s: %w", containerPath, err)
	}
	var resp server.ChildrenResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("children of %s: decode: %w", containerPath, err)
	}
	if resp.Entities == nil {
		resp.Entities = []*asset.Entity{}
	}
	return resp.Entities, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	c.logger.Debug("store api call",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode >= 400 {
		return nil, statusError(resp.StatusCode, data)
	}
	return data, nil
}

// statusError maps an error response back to the store sentinel errors.
func statusError(status int, body []byte) error {
	var er server.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(body))
	}

	var sentinel error
	switch er.Code {
	case server.CodeNotFound:
		sentinel = store.ErrNotFound
	case server.CodeConflict:
		sentinel = store.ErrConflict
	case server.CodeParentNotFound:
		sentinel = store.ErrParentNotFound
	case server.CodeInvalid:
		sentinel = store.ErrInvalid
	}
	if sentinel == nil {
		return &APIError{Status: status, Message: er.Error}
	}
	return fmt.Errorf("%w (%d: %s)", sentinel, status, er.Error)
}

// APIError is a failed request that maps to no store error, such as an
// authentication failure or a server fault.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("store api error %d: %s", e.Status, e.Message)
}

// IsAPIError reports whether err carries an APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

func decodeEntity(data []byte) (*asset.Entity, error) {
	var e asset.Entity
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("decode entity: %w", err)
	}
	return &e, nil
}

package store

import (
	"context"
	"sync/atomic"

	"github.com/roach88/assetsync/internal/asset"
)

// Counting wraps an AssetStore and counts calls per operation. The engine
// tests use it to prove that unchanged entities cause no writes.
type Counting struct {
	AssetStore

	gets, finds, creates, updates, children atomic.Int64
}

// NewCounting wraps inner.
func NewCounting(inner AssetStore) *Counting {
	return &Counting{AssetStore: inner}
}

func (c *Counting) Get(ctx context.Context, t asset.Type, id string) (*asset.Entity, error) {
	c.gets.Add(1)
	return c.AssetStore.Get(ctx, t, id)
}

func (c *Counting) Find(ctx context.Context, ref asset.Ref) (*asset.Entity, error) {
	c.finds.Add(1)
	return c.AssetStore.Find(ctx, ref)
}

func (c *Counting) Create(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	c.creates.Add(1)
	return c.AssetStore.Create(ctx, e)
}

func (c *Counting) Update(ctx context.Context, e *asset.Entity) (*asset.Entity, error) {
	c.updates.Add(1)
	return c.AssetStore.Update(ctx, e)
}

func (c *Counting) Children(ctx context.Context, containerPath, site string) ([]*asset.Entity, error) {
	c.children.Add(1)
	return c.AssetStore.Children(ctx, containerPath, site)
}

// Writes returns the number of Create and Update calls.
func (c *Counting) Writes() int64 {
	return c.creates.Load() + c.updates.Load()
}

// Reads returns the number of Get, Find and Children calls.
func (c *Counting) Reads() int64 {
	return c.gets.Load() + c.finds.Load() + c.children.Load()
}

// Reset zeroes all counters.
func (c *Counting) Reset() {
	c.gets.Store(0)
	c.finds.Store(0)
	c.creates.Store(0)
	c.updates.Store(0)
	c.children.Store(0)
}

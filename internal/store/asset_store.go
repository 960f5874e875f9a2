package store

import (
	"context"
	"errors"

	"github.com/roach88/assetsync/internal/asset"
)

var (
	// ErrNotFound is returned when no entity matches an id or ref.
	ErrNotFound = errors.New("entity not found")

	// ErrConflict is returned by Create when the (type, path, site) triple
	// is already taken, and by Update when the id and triple disagree.
	ErrConflict = errors.New("entity conflict")

	// ErrParentNotFound is returned by Create when the containing
	// container does not exist.
	ErrParentNotFound = errors.New("parent container not found")

	// ErrInvalid is returned by Create and Update for an entity with a
	// malformed identity or a missing id.
	ErrInvalid = errors.New("invalid entity")
)

// AssetStore is the minimal contract the sync engine needs from one
// content instance.
//
// Create and Update return the canonical post-write representation; the
// caller's entity is never modified. Create ignores any id on its input
// and assigns one.
type AssetStore interface {
	Get(ctx context.Context, t asset.Type, id string) (*asset.Entity, error)
	Find(ctx context.Context, ref asset.Ref) (*asset.Entity, error)
	Create(ctx context.Context, e *asset.Entity) (*asset.Entity, error)
	Update(ctx context.Context, e *asset.Entity) (*asset.Entity, error)
	Children(ctx context.Context, containerPath, site string) ([]*asset.Entity, error)
}

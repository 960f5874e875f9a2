package engine

import (
	"context"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
)

// walk traverses the source hierarchy under root pre-order, depth-first.
//
// A container is upserted before its children are listed. Entities that
// are not containers are upserted on their own. Under strict policy the
// first error ends the walk; under lenient policy failures are recorded
// and the walk moves on, without descending into a failed container.
func (sc *SyncContext) walk(ctx context.Context, root asset.Ref) error {
	if asset.IsRoot(root.Path) {
		if root.Type != asset.TypeContainer {
			return NewIdentityError(root, "only a container can sit at the site root", nil)
		}
		return sc.walkChildren(ctx, root)
	}

	src, err := sc.sourceFind(ctx, root)
	if err != nil {
		return err
	}
	if src == nil {
		err := NewIdentityError(root, "walk root not found in source", nil)
		sc.record(root, Failed, err.Error())
		return err
	}

	if !sc.Options.SkipRoot {
		if _, err := sc.upsert(ctx, src); err != nil {
			return sc.handle(err)
		}
	}
	if src.Type != asset.TypeContainer {
		return nil
	}
	return sc.walkChildren(ctx, root)
}

func (sc *SyncContext) walkChildren(ctx context.Context, container asset.Ref) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	children, err := sc.Source.Children(ctx, container.Path, container.Site)
	if err != nil {
		return transportError(container, "list children in source", err)
	}

	for _, child := range children {
		if _, err := sc.upsert(ctx, child); err != nil {
			if err := sc.handle(err); err != nil {
				return err
			}
			if child.Type == asset.TypeContainer {
				sc.record(child.Ref(), Skipped, fmt.Sprintf("subtree of failed container %s not walked", child.Path))
			}
			continue
		}
		if child.Type == asset.TypeContainer {
			if err := sc.walkChildren(ctx, child.Ref()); err != nil {
				return err
			}
		}
	}
	return nil
}

// handle applies the failure policy to an upsert error. It returns nil when
// the walk may continue.
func (sc *SyncContext) handle(err error) error {
	if sc.Policy().Absorbs(err) {
		sc.logger.Debug("failure absorbed", "error", err)
		return nil
	}
	return err
}

package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
)

// Translate rewrites every reference node of p from source ids to target
// ids and returns the rewritten copy. p is not modified.
//
// References are visited in pre-order. A reference whose target entity
// cannot be found fails the owner under strict policy. Under lenient
// policy the node is left unbound and a Skipped entry naming the missing
// entity is recorded. With FollowReferences the missing entity is
// synchronised first.
func (sc *SyncContext) Translate(ctx context.Context, owner asset.Ref, p *asset.Payload) (*asset.Payload, error) {
	out := p.Clone()
	if out == nil {
		return nil, nil
	}

	type pending struct {
		path string
		node *asset.Node
	}
	var refs []pending
	out.Walk(func(path string, n *asset.Node) bool {
		if n.Kind == asset.NodeReference && !n.Link.IsZero() {
			refs = append(refs, pending{path: path, node: n})
		}
		return true
	})

	for _, r := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		target, srcRef, err := sc.translateLink(ctx, r.node.Link)
		if err != nil {
			return nil, err
		}
		if target != nil {
			r.node.Link = &asset.Link{Ref: target.Ref(), ID: target.ID}
			continue
		}

		dep := "reference " + r.path
		missing := srcRef
		if missing.Path == "" {
			missing = r.node.Link.Ref
		}
		detail := fmt.Sprintf("%s of %s left unbound: not in target", dep, owner)
		if missing.Path == "" {
			// Neither store can name the entity; the entry goes to the owner.
			missing = asset.Ref{}
			detail = fmt.Sprintf("%s of %s left unbound: source has no %s %q", dep, owner, r.node.Link.Type, r.node.Link.ID)
		}
		if sc.Policy() != Lenient {
			return nil, NewMissingDependencyError(owner, dep, missing, nil)
		}
		r.node.Link = nil
		if missing.IsZero() {
			missing = owner
		}
		sc.record(missing, Skipped, detail)
	}
	return out, nil
}

// translateLink finds the target entity for a source-side link. It returns
// the source ref it resolved, and a nil entity when the target has none.
func (sc *SyncContext) translateLink(ctx context.Context, l *asset.Link) (*asset.Entity, asset.Ref, error) {
	ref, err := sc.sourceLinkRef(ctx, l)
	if err != nil {
		return nil, asset.Ref{}, err
	}
	if ref.IsZero() {
		return nil, ref, nil
	}

	t, err := sc.Resolve(ctx, ref)
	if err != nil || t != nil {
		return t, ref, err
	}
	if !sc.Options.FollowReferences {
		return nil, ref, nil
	}

	src, err := sc.sourceFind(ctx, ref)
	if err != nil || src == nil {
		return nil, ref, err
	}
	t, err = sc.upsert(ctx, src)
	switch {
	case isFatal(err):
		return nil, ref, err
	case errors.Is(err, errInFlight), sc.Policy().Absorbs(err):
		return nil, ref, nil
	case err != nil:
		return nil, ref, err
	}
	return t, ref, nil
}

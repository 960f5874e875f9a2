package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
)

// errInFlight is returned by upsert when the ref is already being
// synchronised further up the call stack. It is never recorded.
var errInFlight = errors.New("already in flight")

// Result is what a Reconciler reports for one entity.
type Result struct {
	// Entity is the target-side entity after the upsert. Nil when the
	// entity was skipped.
	Entity  *asset.Entity
	Outcome Outcome
	Detail  string
	Notes   []string
}

// upsert synchronises one source entity and records its outcome.
//
// An entity finished earlier in the run is not synchronised or recorded
// again; its earlier result (or error) is returned.
func (sc *SyncContext) upsert(ctx context.Context, src *asset.Entity) (*asset.Entity, error) {
	ref := src.Ref()
	if e, ok := sc.done[ref]; ok {
		return e, nil
	}
	if err, ok := sc.failed[ref]; ok {
		return nil, err
	}
	if !sc.inflight.Enter(ref) {
		return nil, errInFlight
	}
	defer sc.inflight.Leave(ref)

	ctx, span := telemetry.StartUpsertSpan(ctx, string(ref.Type), ref.Path, ref.Site)
	start := time.Now()

	res, err := sc.reconcile(ctx, src)

	sc.metrics.ObserveUpsert(string(ref.Type), time.Since(start))
	telemetry.EndSpan(span, string(res.Outcome), err)

	if err != nil {
		sc.failed[ref] = err
		sc.record(ref, Failed, err.Error())
		return nil, err
	}
	sc.done[ref] = res.Entity
	sc.record(ref, res.Outcome, res.Detail, res.Notes...)
	return res.Entity, nil
}

func (sc *SyncContext) reconcile(ctx context.Context, src *asset.Entity) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	r, ok := sc.registry[src.Type]
	if !ok {
		return Result{Outcome: Skipped, Detail: fmt.Sprintf("no reconciler for type %s", src.Type)}, nil
	}
	if err := sc.ensureParent(ctx, src.Ref()); err != nil {
		return Result{}, err
	}
	return r.Upsert(ctx, sc, src)
}

// ensureParent makes sure the container holding ref exists in the target,
// synchronising it from the source first if needed.
func (sc *SyncContext) ensureParent(ctx context.Context, ref asset.Ref) error {
	parent := ref.Parent()
	if parent.IsZero() || asset.IsRoot(parent.Path) {
		return nil
	}

	t, err := sc.Resolve(ctx, parent)
	if err != nil {
		return err
	}
	if t != nil {
		return nil
	}

	src, err := sc.sourceFind(ctx, parent)
	if err != nil {
		return err
	}
	if src == nil {
		return NewIdentityError(ref, fmt.Sprintf("parent %s is in neither source nor target", parent), nil)
	}

	sc.logger.Debug("syncing parent on demand", "path", ref.Path, "parent", parent.Path)
	t, err = sc.upsert(ctx, src)
	switch {
	case isFatal(err):
		return err
	case errors.Is(err, errInFlight):
		return NewIdentityError(ref, fmt.Sprintf("parent %s is itself in flight", parent), nil)
	case err != nil:
		return NewIdentityError(ref, fmt.Sprintf("parent %s could not be synchronised", parent), err)
	case t == nil:
		return NewIdentityError(ref, fmt.Sprintf("parent %s was skipped", parent), nil)
	}
	return nil
}

// bindLinks rewrites every declared link of e, in place, to point at the
// corresponding target entity. Dependencies missing from the target are
// synchronised first when SyncDependencies is set.
func (sc *SyncContext) bindLinks(ctx context.Context, owner asset.Ref, e *asset.Entity) error {
	for _, nl := range e.Links() {
		t, err := sc.dependency(ctx, owner, nl)
		if err != nil {
			return err
		}
		nl.Link.Ref = t.Ref()
		nl.Link.ID = t.ID
	}
	return nil
}

// dependency resolves one declared link to its target entity.
func (sc *SyncContext) dependency(ctx context.Context, owner asset.Ref, nl asset.NamedLink) (*asset.Entity, error) {
	ref, err := sc.sourceLinkRef(ctx, nl.Link)
	if err != nil {
		return nil, err
	}
	if ref.IsZero() {
		return nil, NewMissingDependencyError(owner, nl.Name, asset.Ref{}, errors.New("link points at an unknown source entity"))
	}

	t, err := sc.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if t != nil {
		return t, nil
	}
	if !sc.Options.SyncDependencies {
		return nil, NewMissingDependencyError(owner, nl.Name, ref, nil)
	}

	src, err := sc.sourceFind(ctx, ref)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, NewMissingDependencyError(owner, nl.Name, ref, errors.New("absent in source too"))
	}

	sc.logger.Debug("syncing dependency on demand", "path", owner.Path, "dependency", nl.Name, "ref", ref.String())
	t, err = sc.upsert(ctx, src)
	switch {
	case isFatal(err):
		return nil, err
	case errors.Is(err, errInFlight):
		return nil, NewMissingDependencyError(owner, nl.Name, ref, errors.New("dependency cycle"))
	case err != nil:
		return nil, NewMissingDependencyError(owner, nl.Name, ref, err)
	case t == nil:
		return nil, NewMissingDependencyError(owner, nl.Name, ref, errors.New("dependency was skipped"))
	}
	return t, nil
}

// write submits desired as a create (current == nil) or update.
func (sc *SyncContext) write(ctx context.Context, desired, current *asset.Entity) (*asset.Entity, Outcome, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	ref := desired.Ref()

	if current == nil {
		desired.ID = ""
		created, err := sc.Target.Create(ctx, desired)
		if errors.Is(err, store.ErrParentNotFound) {
			return nil, "", NewIdentityError(ref, "target rejected create", err)
		}
		if err != nil {
			return nil, "", transportError(ref, "create in target", err)
		}
		sc.remember(created)
		return created, Created, nil
	}

	desired.ID = current.ID
	updated, err := sc.Target.Update(ctx, desired)
	if err != nil {
		return nil, "", transportError(ref, "update in target", err)
	}
	sc.remember(updated)
	return updated, Updated, nil
}

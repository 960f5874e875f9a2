package engine

import (
	"context"

	"github.com/roach88/assetsync/internal/asset"
)

// Reconciler synchronises one source entity of a given type into the
// target of sc.
//
// Upsert is called after the entity's parent is known to exist in the
// target. It must bind declared dependencies, decide between create,
// update and no write, and report which one happened. It must not record
// report entries for the entity itself; the caller does that.
type Reconciler interface {
	Upsert(ctx context.Context, sc *SyncContext, src *asset.Entity) (Result, error)
}

// Registry maps an entity type to its Reconciler.
type Registry map[asset.Type]Reconciler

// DefaultRegistry returns the reconcilers for every known type.
func DefaultRegistry() Registry {
	return Registry{
		asset.TypeContainer:        &EntityReconciler{Equal: Fingerprint},
		asset.TypePage:             &EntityReconciler{Payload: true, Regions: true, Equal: Fingerprint},
		asset.TypeBlock:            &EntityReconciler{Payload: true, Equal: BlockContent},
		asset.TypeFormat:           &EntityReconciler{Equal: FormatContent},
		asset.TypeTemplate:         &EntityReconciler{Equal: XMLText},
		asset.TypeSchema:           &EntityReconciler{Equal: SchemaDefinition},
		asset.TypeConfigurationSet: &EntityReconciler{Equal: Fingerprint},
		asset.TypeMetadataSet:      &EntityReconciler{Equal: Fingerprint},
		asset.TypeFile:             &EntityReconciler{Equal: FileContent},
		asset.TypeLink:             &EntityReconciler{Equal: Fingerprint},
	}
}

// EntityReconciler is the upsert routine shared by all types. The flags
// switch on the type-specific steps.
type EntityReconciler struct {
	// Payload reconciles a structured payload against the target schema.
	Payload bool

	// Regions drops page region overrides the configuration set already
	// provides.
	Regions bool

	// Equal decides Unchanged.
	Equal Equality
}

// Upsert implements Reconciler.
//
// Metadata and settings travel with the entity and are written in the
// same create or update as the main content.
func (r *EntityReconciler) Upsert(ctx context.Context, sc *SyncContext, src *asset.Entity) (Result, error) {
	ref := src.Ref()

	desired := src.Clone()
	desired.Path = ref.Path
	desired.ID = ""
	if err := sc.bindLinks(ctx, ref, desired); err != nil {
		return Result{}, err
	}

	current, err := sc.Resolve(ctx, ref)
	if err != nil {
		return Result{}, err
	}

	var notes []string
	if r.Payload && src.Payload != nil {
		n, err := sc.reconcilePayload(ctx, src, desired, current)
		if err != nil {
			return Result{}, err
		}
		notes = append(notes, n...)
	}
	if r.Regions {
		n, err := sc.pruneRegionOverrides(ctx, desired)
		if err != nil {
			return Result{}, err
		}
		notes = append(notes, n...)
	}

	if current != nil {
		desired.ID = current.ID
		equal := r.Equal
		if equal == nil {
			equal = Fingerprint
		}
		if equal(desired, current) {
			return Result{Entity: current, Outcome: Unchanged, Notes: notes}, nil
		}
	}

	written, outcome, err := sc.write(ctx, desired, current)
	if err != nil {
		return Result{}, err
	}
	return Result{Entity: written, Outcome: outcome, Notes: notes}, nil
}

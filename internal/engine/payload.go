package engine

import (
	"context"
	"fmt"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/reconcile"
)

// reconcilePayload computes desired.Payload from src.Payload.
//
// When the source and target schemas are equivalent the declared part of
// the source payload is transplanted; otherwise it is re-derived under the
// target schema. References are translated, the result is merged onto the
// target's current tree, phantoms are noted (or stripped) and the outcome
// is checked against the target schema.
func (sc *SyncContext) reconcilePayload(ctx context.Context, src, desired, current *asset.Entity) ([]string, error) {
	owner := src.Ref()

	if desired.Schema.IsZero() {
		translated, err := sc.Translate(ctx, owner, src.Payload)
		if err != nil {
			return nil, err
		}
		desired.Payload = translated
		return nil, nil
	}

	target, err := sc.Resolve(ctx, desired.Schema.Ref)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, NewMissingDependencyError(owner, "schema", desired.Schema.Ref, nil)
	}
	targetSchema, err := sc.compile(target)
	if err != nil {
		return nil, NewSchemaDriftError(owner, err)
	}
	sourceSchema, err := sc.sourceSchema(ctx, src.Schema)
	if err != nil {
		return nil, err
	}

	var notes []string
	var carried *asset.Payload
	if sourceSchema != nil && sourceSchema.Equivalent(targetSchema) {
		var dropped []reconcile.Phantom
		carried, dropped = reconcile.Strip(src.Payload, targetSchema)
		for _, ph := range dropped {
			notes = append(notes, fmt.Sprintf("source %s not carried", ph))
		}
	} else {
		carried = reconcile.Conform(src.Payload, targetSchema)
		notes = append(notes, "payload re-derived under target schema")
	}

	translated, err := sc.Translate(ctx, owner, carried)
	if err != nil {
		return nil, err
	}

	var base *asset.Payload
	if current != nil {
		base = current.Payload
	}
	merged := reconcile.Merge(base, translated, targetSchema)

	if sc.Options.StripPhantoms {
		var removed []reconcile.Phantom
		merged, removed = reconcile.Strip(merged, targetSchema)
		for _, ph := range removed {
			notes = append(notes, fmt.Sprintf("stripped %s", ph))
		}
	} else {
		for _, ph := range reconcile.Detect(merged, targetSchema) {
			notes = append(notes, ph.String())
		}
	}

	if err := reconcile.Check(merged, targetSchema); err != nil {
		return nil, NewSchemaDriftError(owner, err)
	}
	desired.Payload = merged
	return notes, nil
}

// sourceSchema compiles the schema a source entity links to. Returns nil
// when the source schema cannot be found or compiled; the payload is then
// re-derived rather than transplanted.
func (sc *SyncContext) sourceSchema(ctx context.Context, l *asset.Link) (*asset.Schema, error) {
	var e *asset.Entity
	var err error
	if l.ID != "" {
		e, err = sc.sourceGet(ctx, asset.TypeSchema, l.ID)
	}
	if err != nil {
		return nil, err
	}
	if e == nil && l.Ref.Path != "" {
		e, err = sc.sourceFind(ctx, asset.NewRef(asset.TypeSchema, l.Path, l.Site))
		if err != nil {
			return nil, err
		}
	}
	if e == nil {
		return nil, nil
	}
	s, err := sc.compile(e)
	if err != nil {
		sc.logger.Warn("source schema does not compile", "path", e.Path, "site", e.Site, "error", err)
		return nil, nil
	}
	return s, nil
}

// pruneRegionOverrides drops the page region overrides that place exactly
// what the page's configuration set already places in that region.
func (sc *SyncContext) pruneRegionOverrides(ctx context.Context, desired *asset.Entity) ([]string, error) {
	if len(desired.PageRegions) == 0 || desired.ConfigurationSet.IsZero() {
		return nil, nil
	}
	cs, err := sc.Resolve(ctx, desired.ConfigurationSet.Ref)
	if err != nil || cs == nil {
		return nil, err
	}

	var notes []string
	var kept []asset.PageRegions
	for _, pr := range desired.PageRegions {
		cfg := findConfiguration(cs.Configurations, pr.Configuration)
		var regions []asset.Region
		for _, r := range pr.Regions {
			if cfg != nil {
				if base := findRegion(cfg.Regions, r.Name); base != nil &&
					sameTarget(r.Block, base.Block) && sameTarget(r.Format, base.Format) {
					notes = append(notes, fmt.Sprintf("region %s/%s matches configuration set, override not persisted", pr.Configuration, r.Name))
					continue
				}
			}
			regions = append(regions, r)
		}
		if len(regions) > 0 {
			kept = append(kept, asset.PageRegions{Configuration: pr.Configuration, Regions: regions})
		}
	}
	desired.PageRegions = kept
	return notes, nil
}

func findConfiguration(cfgs []asset.Configuration, name string) *asset.Configuration {
	for i := range cfgs {
		if cfgs[i].Name == name {
			return &cfgs[i]
		}
	}
	return nil
}

func findRegion(regions []asset.Region, name string) *asset.Region {
	for i := range regions {
		if regions[i].Name == name {
			return &regions[i]
		}
	}
	return nil
}

// sameTarget compares two target-side links by id.
func sameTarget(a, b *asset.Link) bool {
	if a.IsZero() || b.IsZero() {
		return a.IsZero() && b.IsZero()
	}
	return a.ID == b.ID
}

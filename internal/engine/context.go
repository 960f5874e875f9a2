package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/schema"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
)

// SyncContext carries everything one Walk or Sync call needs. It is built
// at the start of the call and discarded at the end; nothing in it is
// shared between calls.
//
// A SyncContext is driven by one goroutine.
type SyncContext struct {
	Source  store.AssetStore
	Target  store.AssetStore
	Options WalkOptions
	Report  *Report

	registry Registry
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	// targets memoizes target lookups by ref. A nil value records a
	// confirmed miss.
	targets map[asset.Ref]*asset.Entity

	// sources memoizes source Get calls by type and id.
	sources map[sourceKey]*asset.Entity

	// schemas memoizes compiled schema definitions.
	schemas map[string]*asset.Schema

	// done holds the target entity of every ref finished in this run;
	// failed holds the error of every ref that failed.
	done   map[asset.Ref]*asset.Entity
	failed map[asset.Ref]error

	inflight *InflightGuard
}

type sourceKey struct {
	t  asset.Type
	id string
}

func newSyncContext(s *Syncer, opts WalkOptions, report *Report) *SyncContext {
	return &SyncContext{
		Source:   s.source,
		Target:   s.target,
		Options:  opts,
		Report:   report,
		registry: s.registry,
		logger:   s.logger.With("run_id", report.RunID),
		metrics:  s.metrics,
		targets:  make(map[asset.Ref]*asset.Entity),
		sources:  make(map[sourceKey]*asset.Entity),
		schemas:  make(map[string]*asset.Schema),
		done:     make(map[asset.Ref]*asset.Entity),
		failed:   make(map[asset.Ref]error),
		inflight: NewInflightGuard(),
	}
}

// Policy returns the active failure policy.
func (sc *SyncContext) Policy() Policy {
	return sc.Options.Policy
}

// Logger returns the run-scoped logger.
func (sc *SyncContext) Logger() *slog.Logger {
	return sc.logger
}

// record appends a report entry and counts it.
func (sc *SyncContext) record(ref asset.Ref, outcome Outcome, detail string, notes ...string) {
	sc.Report.Add(ref, outcome, detail, notes...)
	sc.metrics.Outcome(string(ref.Type), string(outcome))

	level := slog.LevelInfo
	if outcome == Failed {
		level = slog.LevelWarn
	}
	sc.logger.Log(context.Background(), level, "entity synced",
		"type", ref.Type,
		"path", ref.Path,
		"site", ref.Site,
		"outcome", outcome,
		"detail", detail,
	)
}

// Resolve looks ref up in the target store.
//
// Returns (nil, nil) when the target has no such entity. Lookups are
// memoized for the rest of the call, including misses; writes made by the
// engine update the memo.
func (sc *SyncContext) Resolve(ctx context.Context, ref asset.Ref) (*asset.Entity, error) {
	if e, ok := sc.targets[ref]; ok {
		return e, nil
	}
	if asset.IsRoot(ref.Path) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := sc.Target.Find(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		sc.targets[ref] = nil
		return nil, nil
	}
	if err != nil {
		return nil, transportError(ref, "find in target", err)
	}
	sc.targets[ref] = e
	return e, nil
}

// remember stores the post-write representation in the lookup memo.
func (sc *SyncContext) remember(e *asset.Entity) {
	sc.targets[e.Ref()] = e
}

// sourceGet fetches a source entity by id. Returns (nil, nil) when the id
// is unknown to the source.
func (sc *SyncContext) sourceGet(ctx context.Context, t asset.Type, id string) (*asset.Entity, error) {
	key := sourceKey{t: t, id: id}
	if e, ok := sc.sources[key]; ok {
		return e, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e, err := sc.Source.Get(ctx, t, id)
	if errors.Is(err, store.ErrNotFound) {
		sc.sources[key] = nil
		return nil, nil
	}
	if err != nil {
		return nil, transportError(asset.Ref{Type: t}, "get "+id+" from source", err)
	}
	sc.sources[key] = e
	return e, nil
}

// sourceFind looks ref up in the source store. Returns (nil, nil) when the
// source has no such entity.
func (sc *SyncContext) sourceFind(ctx context.Context, ref asset.Ref) (*asset.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, err := sc.Source.Find(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, transportError(ref, "find in source", err)
	}
	if e.ID != "" {
		sc.sources[sourceKey{t: e.Type, id: e.ID}] = e
	}
	return e, nil
}

// sourceLinkRef returns the portable ref a source-side link points at,
// asking the source store when the link carries only an id. Returns the
// zero Ref when the source does not know the id.
func (sc *SyncContext) sourceLinkRef(ctx context.Context, l *asset.Link) (asset.Ref, error) {
	if l.ID != "" && l.Type != "" {
		e, err := sc.sourceGet(ctx, l.Type, l.ID)
		if err != nil {
			return asset.Ref{}, err
		}
		if e != nil {
			return e.Ref(), nil
		}
	}
	if l.Ref.Path != "" {
		return asset.NewRef(l.Type, l.Path, l.Site), nil
	}
	return asset.Ref{}, nil
}

// compile returns the compiled form of a schema entity.
func (sc *SyncContext) compile(e *asset.Entity) (*asset.Schema, error) {
	if s, ok := sc.schemas[e.Definition]; ok {
		return s, nil
	}
	s, err := schema.Entity(e)
	if err != nil {
		return nil, err
	}
	sc.schemas[e.Definition] = s
	return s, nil
}

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
)

// RunIDGenerator generates run ids for reports and log correlation.
// Implemented by UUIDv7Generator (production) and testutil.FixedRunID
// (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run ids.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Syncer replicates entities from a source store into a target store.
//
// A Syncer holds no per-run state and may serve several calls one after
// the other. Concurrent calls must use different target stores or
// tolerate interleaved writes.
type Syncer struct {
	source   store.AssetStore
	target   store.AssetStore
	registry Registry
	runIDs   RunIDGenerator
	logger   *slog.Logger
	metrics  *telemetry.Metrics
}

// Option allows configuration of the syncer.
type Option func(*Syncer)

// WithRegistry replaces the per-type reconcilers.
func WithRegistry(r Registry) Option {
	return func(s *Syncer) {
		s.registry = r
	}
}

// WithRunIDs replaces the UUIDv7 run id source.
func WithRunIDs(g RunIDGenerator) Option {
	return func(s *Syncer) {
		s.runIDs = g
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Syncer) {
		s.logger = l
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Syncer) {
		s.metrics = m
	}
}

// New creates a Syncer copying from source into target.
func New(source, target store.AssetStore, opts ...Option) *Syncer {
	s := &Syncer{
		source:   source,
		target:   target,
		registry: DefaultRegistry(),
		runIDs:   UUIDv7Generator{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Walk synchronises the source hierarchy rooted at root into the target.
//
// The report is returned even when the walk aborts; the error is the one
// that ended it.
func (s *Syncer) Walk(ctx context.Context, root asset.Ref, opts WalkOptions) (*Report, error) {
	return s.run(ctx, root, opts, func(ctx context.Context, sc *SyncContext) error {
		return sc.walk(ctx, root)
	})
}

// Sync synchronises the single entity at ref, together with whatever
// parents and dependencies it needs.
func (s *Syncer) Sync(ctx context.Context, ref asset.Ref, opts WalkOptions) (*Report, error) {
	return s.run(ctx, ref, opts, func(ctx context.Context, sc *SyncContext) error {
		src, err := sc.sourceFind(ctx, ref)
		if err != nil {
			return err
		}
		if src == nil {
			err := NewIdentityError(ref, "not found in source", nil)
			sc.record(ref, Failed, err.Error())
			return err
		}
		_, err = sc.upsert(ctx, src)
		return sc.handle(err)
	})
}

func (s *Syncer) run(ctx context.Context, root asset.Ref, opts WalkOptions, fn func(context.Context, *SyncContext) error) (*Report, error) {
	if err := root.Validate(); err != nil {
		return nil, fmt.Errorf("sync %s: %w", root, err)
	}
	if opts.Policy == "" {
		opts.Policy = Strict
	}

	report := NewReport(s.runIDs.Generate(), root, opts.Policy)
	sc := newSyncContext(s, opts, report)

	ctx, span := telemetry.StartWalkSpan(ctx, report.RunID, root.String(), string(opts.Policy))
	sc.logger.Info("sync started",
		"root", root.String(),
		"policy", opts.Policy,
		"skip_root", opts.SkipRoot,
	)

	err := fn(ctx, sc)

	telemetry.EndSpan(span, "", err)
	if err != nil {
		sc.logger.Error("sync aborted", "root", root.String(), "error", err)
		return report, err
	}
	sc.logger.Info("sync finished", "root", root.String(), "summary", report.Summary())
	return report, nil
}

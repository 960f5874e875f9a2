package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/reconcile"
	"github.com/roach88/assetsync/internal/schema"
	"github.com/roach88/assetsync/internal/store"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Store       string
	Concurrency int
}

// Finding is the inspection result for one entity with a schema.
type Finding struct {
	Ref      string              `json:"ref"`
	Schema   string              `json:"schema"`
	Phantoms []reconcile.Phantom `json:"phantoms,omitempty"`
	Drift    string              `json:"drift,omitempty"`
}

// InspectResult is the output of the inspect command.
type InspectResult struct {
	Root      string    `json:"root"`
	Store     string    `json:"store"`
	Inspected int       `json:"inspected"`
	Findings  []Finding `json:"findings"`
}

// Drifted counts findings with drift.
func (r *InspectResult) Drifted() int {
	n := 0
	for _, f := range r.Findings {
		if f.Drift != "" {
			n++
		}
	}
	return n
}

func (r *InspectResult) String() string {
	var b strings.Builder
	if len(r.Findings) > 0 {
		tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "REF\tSCHEMA\tFINDING\n")
		for _, f := range r.Findings {
			if f.Drift != "" {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Ref, f.Schema, f.Drift)
			}
			for _, p := range f.Phantoms {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", f.Ref, f.Schema, p)
			}
		}
		_ = tw.Flush()
	}
	fmt.Fprintf(&b, "inspected %d entities under %s in %s: %d with findings, %d drifted",
		r.Inspected, r.Root, r.Store, len(r.Findings), r.Drifted())
	return b.String()
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <root-ref>",
		Short: "Report phantom nodes and schema drift",
		Long: `Scan the hierarchy under root-ref in one store, read-only, and report
every payload node its schema does not declare (phantoms) and every payload
that no longer satisfies its schema (drift).

Exit codes:
  0 - No drift (phantoms alone do not fail)
  1 - At least one payload drifted from its schema
  2 - Command error

Examples:
  assetsync inspect container://www/docs --store target
  assetsync inspect container://www/ --store source --concurrency 8 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "target", "store to inspect (source|target)")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", 0, "entities checked in parallel (default from config)")

	return cmd
}

func runInspect(opts *InspectOptions, rootArg string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ep, err := endpointFor(cfg, opts.Store)
	if err != nil {
		return err
	}
	root, err := asset.ParseRef(rootArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid root ref", err)
	}
	limit := cfg.Inspect.Concurrency
	if cmd.Flags().Changed("concurrency") {
		if opts.Concurrency < 1 {
			return NewExitError(ExitCommandError, "--concurrency must be at least 1")
		}
		limit = opts.Concurrency
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Logging)
	st, closeStore, err := openEndpoint(opts.Store, ep, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signalContext(cmd)
	defer stop()

	in := &inspector{store: st, logger: logger, schemas: make(map[asset.Link]*schemaResult)}
	result, err := in.run(ctx, root, limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "inspect failed", err)
	}
	result.Store = opts.Store

	f := opts.formatter(cmd)
	n := result.Drifted()
	msg := fmt.Sprintf("%d entities drifted from their schema", n)
	if n > 0 && f.Format == "json" {
		if err := f.Error(CodeDrift, msg, result); err != nil {
			return err
		}
	} else if err := f.Success(result); err != nil {
		return err
	}
	if n > 0 {
		return NewExitError(ExitFailure, msg)
	}
	return nil
}

// inspector checks the payloads of one subtree against their schemas.
type inspector struct {
	store  store.AssetStore
	logger *slog.Logger

	mu      sync.Mutex
	schemas map[asset.Link]*schemaResult
}

type schemaResult struct {
	once   sync.Once
	schema *asset.Schema
	drift  string
	err    error
}

// run collects the subtree sequentially, then checks every entity that
// carries a schema with at most limit checks in flight.
func (in *inspector) run(ctx context.Context, root asset.Ref, limit int) (*InspectResult, error) {
	entities, err := in.collect(ctx, root)
	if err != nil {
		return nil, err
	}

	var candidates []*asset.Entity
	for _, e := range entities {
		if !e.Schema.IsZero() {
			candidates = append(candidates, e)
		}
	}

	findings := make([]*Finding, len(candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, e := range candidates {
		g.Go(func() error {
			f, err := in.check(gctx, e)
			if err != nil {
				return err
			}
			findings[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &InspectResult{Root: root.String(), Inspected: len(candidates), Findings: []Finding{}}
	for _, f := range findings {
		if f != nil {
			result.Findings = append(result.Findings, *f)
		}
	}
	in.logger.Info("inspect finished",
		"root", root.String(),
		"inspected", result.Inspected,
		"findings", len(result.Findings),
	)
	return result, nil
}

// collect lists root and everything below it in pre-order.
func (in *inspector) collect(ctx context.Context, root asset.Ref) ([]*asset.Entity, error) {
	if asset.IsRoot(root.Path) {
		return in.descend(ctx, root, nil)
	}
	e, err := in.store.Find(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", root, err)
	}
	out := []*asset.Entity{e}
	if e.Type != asset.TypeContainer {
		return out, nil
	}
	return in.descend(ctx, root, out)
}

func (in *inspector) descend(ctx context.Context, container asset.Ref, out []*asset.Entity) ([]*asset.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	children, err := in.store.Children(ctx, container.Path, container.Site)
	if err != nil {
		return nil, fmt.Errorf("list children of %s: %w", container, err)
	}
	for _, child := range children {
		out = append(out, child)
		if child.Type == asset.TypeContainer {
			if out, err = in.descend(ctx, child.Ref(), out); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// check returns the finding for e, or nil when e is clean. A schema that
// cannot be found or compiled is reported as drift; any other store error
// ends the scan.
func (in *inspector) check(ctx context.Context, e *asset.Entity) (*Finding, error) {
	f := &Finding{Ref: e.Ref().String(), Schema: e.Schema.Ref.String()}
	s, drift, err := in.schema(ctx, e.Schema)
	if err != nil {
		return nil, err
	}
	if drift != "" {
		f.Drift = drift
		return f, nil
	}

	f.Phantoms = reconcile.Detect(e.Payload, s)
	if err := reconcile.Check(e.Payload, s); err != nil {
		f.Drift = err.Error()
	}
	in.logger.Debug("entity inspected",
		"type", e.Type,
		"path", e.Path,
		"site", e.Site,
		"phantoms", len(f.Phantoms),
	)
	if len(f.Phantoms) == 0 && f.Drift == "" {
		return nil, nil
	}
	return f, nil
}

// schema resolves and compiles the schema behind l once per run. Links
// are keyed by ref and id, since an id-only link has a bare ref.
func (in *inspector) schema(ctx context.Context, l *asset.Link) (*asset.Schema, string, error) {
	in.mu.Lock()
	sr, ok := in.schemas[*l]
	if !ok {
		sr = &schemaResult{}
		in.schemas[*l] = sr
	}
	in.mu.Unlock()

	sr.once.Do(func() {
		e, err := resolveLink(ctx, in.store, l)
		switch {
		case errors.Is(err, store.ErrNotFound):
			sr.drift = "schema not found"
			return
		case err != nil:
			sr.err = err
			return
		}
		if sr.schema, err = schema.Entity(e); err != nil {
			sr.drift = err.Error()
		}
	})
	return sr.schema, sr.drift, sr.err
}

// resolveLink loads the entity a link points at, by id when the link has
// one and by ref otherwise.
func resolveLink(ctx context.Context, st store.AssetStore, l *asset.Link) (*asset.Entity, error) {
	if l.ID != "" {
		e, err := st.Get(ctx, l.Ref.Type, l.ID)
		if err == nil || !errors.Is(err, store.ErrNotFound) {
			return e, err
		}
	}
	return st.Find(ctx, l.Ref)
}

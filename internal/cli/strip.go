package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/reconcile"
	"github.com/roach88/assetsync/internal/schema"
	"github.com/roach88/assetsync/internal/store"
)

// StripOptions holds flags for the strip command.
type StripOptions struct {
	*RootOptions
	Store  string
	DryRun bool
}

// StripResult is the output of the strip command.
type StripResult struct {
	Ref     string              `json:"ref"`
	Store   string              `json:"store"`
	Removed []reconcile.Phantom `json:"removed"`
	Written bool                `json:"written"`
}

func (r *StripResult) String() string {
	var b strings.Builder
	for _, p := range r.Removed {
		fmt.Fprintf(&b, "  %s\n", p)
	}
	switch {
	case len(r.Removed) == 0:
		fmt.Fprintf(&b, "%s: no phantom nodes", r.Ref)
	case r.Written:
		fmt.Fprintf(&b, "%s: removed %d phantom nodes", r.Ref, len(r.Removed))
	default:
		fmt.Fprintf(&b, "%s: would remove %d phantom nodes", r.Ref, len(r.Removed))
	}
	return b.String()
}

// NewStripCommand creates the strip command.
func NewStripCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StripOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "strip <ref>",
		Short: "Remove phantom nodes from one entity",
		Long: `Remove every payload node the entity's schema does not declare and write
the entity back. Nothing is written when the payload has no phantoms.

Examples:
  assetsync strip page://www/docs/intro --store target
  assetsync strip page://www/docs/intro --store target --dry-run`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStrip(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Store, "store", "target", "store holding the entity (source|target)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list phantoms without writing")

	return cmd
}

func runStrip(opts *StripOptions, refArg string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	ep, err := endpointFor(cfg, opts.Store)
	if err != nil {
		return err
	}
	ref, err := asset.ParseRef(refArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid ref", err)
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Logging)
	st, closeStore, err := openEndpoint(opts.Store, ep, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	ctx, stop := signalContext(cmd)
	defer stop()

	e, err := st.Find(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s not found in %s", ref, opts.Store))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read entity", err)
	}
	if e.Schema.IsZero() {
		return NewExitError(ExitCommandError, fmt.Sprintf("%s has no schema", ref))
	}

	schemaEntity, err := resolveLink(ctx, st, e.Schema)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read schema %s", e.Schema.Ref), err)
	}
	s, err := schema.Entity(schemaEntity)
	if err != nil {
		return WrapExitError(ExitFailure, "schema does not compile", err)
	}

	stripped, removed := reconcile.Strip(e.Payload, s)
	result := &StripResult{
		Ref:     ref.String(),
		Store:   opts.Store,
		Removed: removed,
	}
	if result.Removed == nil {
		result.Removed = []reconcile.Phantom{}
	}

	if len(removed) > 0 && !opts.DryRun {
		e.Payload = stripped
		if _, err := st.Update(ctx, e); err != nil {
			return WrapExitError(ExitCommandError, "failed to write entity", err)
		}
		result.Written = true
		logger.Info("phantoms stripped",
			"type", e.Type,
			"path", e.Path,
			"site", e.Site,
			"removed", len(removed),
		)
	}

	return opts.formatter(cmd).Success(result)
}

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/assetsync/internal/asset"
	"github.com/roach88/assetsync/internal/engine"
	"github.com/roach88/assetsync/internal/telemetry"
)

// SyncOptions holds flags for the sync command.
type SyncOptions struct {
	*RootOptions
	Policy           string
	SkipRoot         bool
	FollowReferences bool
	StripPhantoms    bool
	Out              string
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync <root-ref>",
		Short: "Replicate a hierarchy from source to target",
		Long: `Replicate the entity at root-ref, and everything below it when it is a
container, from the source instance into the target instance.

Endpoints and defaults come from the config file; flags override them.

Exit codes:
  0 - Every entity was created, updated, unchanged or skipped
  1 - The sync aborted or finished with failed entities
  2 - Command error (bad ref, config, unreachable store, etc.)

Examples:
  assetsync sync container://www/docs
  assetsync sync container://www/ --skip-root --policy lenient
  assetsync sync page://www/docs/intro --format json --out report.json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Policy, "policy", "", "failure policy (strict|lenient)")
	cmd.Flags().BoolVar(&opts.SkipRoot, "skip-root", false, "walk the children of the root only")
	cmd.Flags().BoolVar(&opts.FollowReferences, "follow-references", false, "sync missing reference targets first")
	cmd.Flags().BoolVar(&opts.StripPhantoms, "strip-phantoms", false, "remove undeclared payload nodes")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "", "also write the JSON report to this file")

	return cmd
}

func runSync(opts *SyncOptions, rootArg string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("policy") {
		cfg.Sync.Policy = opts.Policy
	}
	if flags.Changed("skip-root") {
		cfg.Sync.SkipRoot = opts.SkipRoot
	}
	if flags.Changed("follow-references") {
		cfg.Sync.FollowReferences = opts.FollowReferences
	}
	if flags.Changed("strip-phantoms") {
		cfg.Sync.StripPhantoms = opts.StripPhantoms
	}
	walkOpts, err := cfg.Sync.WalkOptions()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid sync options", err)
	}

	root, err := asset.ParseRef(rootArg)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid root ref", err)
	}
	if err := root.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid root ref", err)
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Logging)

	source, closeSource, err := openEndpoint("source", cfg.Source, logger)
	if err != nil {
		return err
	}
	defer closeSource()
	target, closeTarget, err := openEndpoint("target", cfg.Target, logger)
	if err != nil {
		return err
	}
	defer closeTarget()

	syncer := engine.New(source, target,
		engine.WithLogger(logger),
		engine.WithMetrics(telemetry.NewMetrics()),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	report, runErr := syncer.Walk(ctx, root, walkOpts)
	if report == nil {
		return WrapExitError(ExitCommandError, "sync failed", runErr)
	}

	if err := opts.formatter(cmd).Report(report, runErr); err != nil {
		return err
	}
	if opts.Out != "" {
		if err := writeReportFile(opts.Out, report); err != nil {
			return WrapExitError(ExitCommandError, "failed to write report", err)
		}
		logger.Info("report written", "path", opts.Out)
	}

	if runErr != nil {
		return WrapExitError(ExitFailure, "sync aborted", runErr)
	}
	if report.HasFailures() {
		return NewExitError(ExitFailure, fmt.Sprintf("sync finished with %d failed entities", report.Counts()[engine.Failed]))
	}
	return nil
}

func writeReportFile(path string, report *engine.Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return report.WriteJSON(f)
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	// Use command's context if available (for testing), otherwise create one
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/assetsync/internal/fixture"
	"github.com/roach88/assetsync/internal/store"
)

// SeedOptions holds flags for the seed command.
type SeedOptions struct {
	*RootOptions
	Database string
}

// SeedResult is the output of the seed command.
type SeedResult struct {
	Database string `json:"database"`
	Entities int    `json:"entities"`
}

func (r SeedResult) String() string {
	return fmt.Sprintf("seeded %d entities into %s", r.Entities, r.Database)
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SeedOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a fixture file into a database",
		Long: `Write every entity of a fixture file into a SQLite database, creating the
database if it doesn't exist. Entities already present at the same ref are
updated, so seeding twice is harmless.

Example:
  assetsync seed ./testdata/site.yaml --db source.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSeed(opts *SeedOptions, path string, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Logging)

	f, err := fixture.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load fixture", err)
	}

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ctx, stop := signalContext(cmd)
	defer stop()

	written, err := fixture.Apply(ctx, st, f)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to seed database", err)
	}
	logger.Info("fixture seeded", "path", path, "db", opts.Database, "entities", len(written))

	return opts.formatter(cmd).Success(SeedResult{Database: opts.Database, Entities: len(written)})
}

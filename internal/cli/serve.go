package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/assetsync/internal/server"
	"github.com/roach88/assetsync/internal/store"
	"github.com/roach88/assetsync/internal/telemetry"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Database string
	Addr     string
	Token    string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a database over the store API",
		Long: `Expose a SQLite database through the HTTP store API so another
assetsync process can use it as a rest source or target.

The API lives under /api/v1; /healthz and /metrics are served without
authentication.

Example:
  assetsync serve --db target.db --addr :8080 --token secret`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.Token, "token", "", "bearer token required by the API (default from config)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	addr := cfg.Server.Addr
	if opts.Addr != "" {
		addr = opts.Addr
	}
	token := cfg.Server.Token
	if opts.Token != "" {
		token = opts.Token
	}

	logger := opts.newLogger(cmd.ErrOrStderr(), cfg.Logging)

	st, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	srv := server.New(st,
		server.WithToken(token),
		server.WithLogger(logger),
		server.WithMetrics(telemetry.NewMetrics()),
	)

	ctx, stop := signalContext(cmd)
	defer stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Serving %s on %s. Press Ctrl-C to stop.\n", opts.Database, addr)
	if token == "" {
		logger.Warn("store api running without authentication")
	}
	if err := srv.ListenAndServe(ctx, addr); err != nil {
		return WrapExitError(ExitCommandError, "server error", err)
	}

	logger.Info("store api stopped gracefully")
	return nil
}

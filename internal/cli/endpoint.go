package cli

import (
	"fmt"
	"log/slog"

	"github.com/roach88/assetsync/internal/config"
	"github.com/roach88/assetsync/internal/remote"
	"github.com/roach88/assetsync/internal/store"
)

// openEndpoint connects to the store an endpoint describes. The returned
// close function releases it.
func openEndpoint(name string, ep config.Endpoint, logger *slog.Logger) (store.AssetStore, func(), error) {
	logger = logger.With("endpoint", name, "kind", ep.Kind)

	switch ep.Kind {
	case config.KindSQLite:
		logger.Debug("opening database", "path", ep.DSN)
		st, err := store.Open(ep.DSN, store.WithLogger(logger))
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to open %s database", name), err)
		}
		return st, func() {
			if err := st.Close(); err != nil {
				logger.Error("error closing database", "error", err)
			}
		}, nil

	case config.KindREST:
		logger.Debug("connecting to store api", "url", ep.URL)
		c, err := remote.New(ep.URL,
			remote.WithToken(ep.Token),
			remote.WithTimeout(ep.Timeout),
			remote.WithCache(ep.CacheBytes),
			remote.WithLogger(logger),
		)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to connect to %s", name), err)
		}
		return c, c.Close, nil

	default:
		return nil, nil, NewExitError(ExitCommandError, fmt.Sprintf("unknown %s endpoint kind %q", name, ep.Kind))
	}
}

// endpointFor selects the source or target endpoint by name.
func endpointFor(cfg config.Config, name string) (config.Endpoint, error) {
	switch name {
	case "source":
		return cfg.Source, nil
	case "target":
		return cfg.Target, nil
	default:
		return config.Endpoint{}, NewExitError(ExitCommandError, fmt.Sprintf("invalid --store %q: must be source or target", name))
	}
}

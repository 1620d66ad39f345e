package cli

import (
	"log/slog"
	"os"

	"github.com/roach88/askflow/internal/engine"
	"github.com/roach88/askflow/internal/store"
)

// configureLogging sets the default slog logger from the verbose flag.
func configureLogging(opts *RootOptions) {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}

// openEngine opens the database and builds an engine on it. The caller
// owns closing the returned store.
func openEngine(dbPath string) (*engine.Engine, *store.Store, error) {
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return engine.New(st, nil, nil, nil), st, nil
}

// closeStore closes the store, logging rather than failing the command
// on error.
func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

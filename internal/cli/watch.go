package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/file2sql/internal/config"
	"github.com/hupe1980/file2sql/internal/dispatch"
	"github.com/hupe1980/file2sql/internal/logging"
	"github.com/hupe1980/file2sql/internal/reconcile"
	"github.com/hupe1980/file2sql/internal/store"
	"github.com/hupe1980/file2sql/internal/tabular"
	"github.com/hupe1980/file2sql/internal/watch"
)

// registerWatchFlags adds the flags of a watch run. They are bound into the
// config by key, so the values are read back through config.FromContext.
func registerWatchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringP("directory", "d", "", "directory to watch recursively (required)")
	f.StringP("connstring", "c", config.DefaultConnString, "store location: file path, file: URI or :memory:")
	f.StringP("output-format", "f", config.OutputFormatSQLite, "store driver (sqlite)")
	f.Int("queue-size", config.DefaultQueueSize, "capacity of the pending event queue")
	f.Bool("initial-scan", false, "sync CSV files already present at startup")
	f.Duration("move-window", config.DefaultMoveWindow, "how long a rename waits for its matching create")
}

func runWatch(ctx context.Context, cmd *cobra.Command) error {
	cfg := config.FromContext(ctx)
	logger := logging.FromContext(ctx)

	if err := cfg.ValidateRun(); err != nil {
		return &ExitError{Code: 2, Err: err}
	}

	// Fail before the store creates a database file for a run that cannot start.
	info, err := os.Stat(cfg.Directory)
	if err != nil {
		return fmt.Errorf("watching directory: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("watching directory: %s is not a directory", cfg.Directory)
	}

	st, err := store.Open(ctx, store.ComposeURL(cfg.OutputFormat, cfg.ConnString))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	syncer := reconcile.New(tabular.NewCSVLoader(), st, logger)

	defer func() {
		if cerr := syncer.Close(); cerr != nil {
			logger.Warn("closing store", slog.Any("error", cerr))
		}
	}()

	logger.Info("store opened",
		slog.String("driver", st.URL().Driver),
		slog.Bool("inMemory", st.URL().InMemory()),
	)

	var out io.Writer = cmd.ErrOrStderr()
	if cfg.Quiet {
		out = io.Discard
	}

	session := watch.NewSession(watch.Options{
		Root:        cfg.Directory,
		QueueSize:   cfg.QueueSize,
		MoveWindow:  cfg.MoveWindow,
		InitialScan: cfg.InitialScan,
		Logger:      logger,
		Out:         out,
	}, dispatch.New(syncer, logger))

	return session.Run(ctx)
}

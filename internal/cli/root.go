// Package cli implements the cobra command tree for file2sql.
package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hupe1980/file2sql/internal/config"
	"github.com/hupe1980/file2sql/internal/logging"
)

// ExitError wraps an error with a specific process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}

	return fmt.Sprintf("exit code %d", e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// setupLogging is replaced in tests to observe the log closer.
var setupLogging = logging.Setup

// Execute builds the command tree, runs it, and returns the exit code.
func Execute() int {
	cmd := NewRootCommand()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr.Code
		}

		return 1
	}

	return 0
}

// NewRootCommand constructs the top-level cobra.Command with all
// subcommands attached. The root command itself runs the watcher.
func NewRootCommand() *cobra.Command {
	var (
		cfgFile  string
		logClose io.Closer
	)

	// closeLog releases the log file once, whichever hook gets there first.
	closeLog := func() error {
		if logClose == nil {
			return nil
		}

		c := logClose
		logClose = nil

		return c.Close()
	}

	cmd := &cobra.Command{
		Use:   "file2sql",
		Short: "Mirror a directory of CSV files into SQL tables",
		Long: `file2sql watches a directory tree and keeps a relational database in
step with the CSV files inside it.

Every *.csv file becomes one table named after the file (up to the first
dot). Creating or modifying a file replaces its table, deleting a file
drops it, and moving a file re-syncs it under the new name.

The watcher runs until interrupted with Ctrl-C or SIGTERM.`,
		Example: `  file2sql -d ./incoming
  file2sql -d ./incoming -c ./mirror.db --initial-scan
  FILE2SQL_DIRECTORY=./incoming file2sql --log-level debug`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cmd, cfgFile)
			if err != nil {
				return &ExitError{Code: 2, Err: err}
			}

			var logger *slog.Logger
			logger, logClose = setupLogging(cfg)

			ctx := cmd.Context()
			ctx = config.NewContext(ctx, cfg)
			ctx = logging.NewContext(ctx, logger)
			cmd.SetContext(ctx)

			logger.Debug("configuration loaded",
				slog.String("configFile", cfg.ConfigFile),
				slog.String("logLevel", cfg.EffectiveLogLevel()),
				slog.String("logFormat", cfg.LogFormat),
			)

			return nil
		},
		// Post-run hooks are skipped when RunE fails, so the watch run also
		// closes the log itself.
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return closeLog()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer func() { _ = closeLog() }()

			return runWatch(cmd.Context(), cmd)
		},
	}

	// Global persistent flags.
	pf := cmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default: .file2sql.yaml)")
	pf.String("log-level", config.LogLevelInfo, "log level: trace, debug, info, warn, error")
	pf.String("log-format", config.LogFormatText, "log format: text, json")
	pf.String("log-file", "", "write logs to a rotated file instead of stderr")
	pf.BoolP("quiet", "q", false, "suppress non-essential output")

	registerWatchFlags(cmd)

	// Flag parsing errors return exit code 2.
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &ExitError{Code: 2, Err: err}
	})

	cmd.AddCommand(
		newVersionCommand(),
		newConfigCommand(),
		newCompletionCommand(),
	)

	return cmd
}

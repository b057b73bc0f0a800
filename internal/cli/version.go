package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/file2sql/internal/version"
)

// versionFormats renders build info for the --output values of "version".
var versionFormats = map[string]func(version.Info) (string, error){
	"text":  func(i version.Info) (string, error) { return i.String(), nil },
	"json":  version.Info.JSON,
	"short": func(i version.Info) (string, error) { return i.Version, nil },
}

func newVersionCommand() *cobra.Command {
	var (
		format     string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Long: `Print the file2sql release, the commit it was built from, the Go
toolchain and platform, and the bundled SQLite driver version.`,
		Args: cobra.NoArgs,
		// Build info needs neither config nor logging.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			if jsonOutput {
				format = "json"
			}

			render, ok := versionFormats[format]
			if !ok {
				return &ExitError{Code: 2, Err: fmt.Errorf("invalid version format %q: must be one of text, json, short", format)}
			}

			s, err := render(version.GetInfo())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), s)

			return err
		},
	}

	f := cmd.Flags()
	f.StringVarP(&format, "output", "o", "text", "output format: text, json, short")
	f.BoolVar(&jsonOutput, "json", false, "shorthand for --output json")

	return cmd
}

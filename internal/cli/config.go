package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/file2sql/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Print the configuration a watch run would use, after merging defaults,
the config file, FILE2SQL_* environment variables and global flags.

The output is valid YAML and can be saved as .file2sql.yaml.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			b, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}

			w := cmd.OutOrStdout()

			if cfg.ConfigFile != "" {
				if _, err := fmt.Fprintf(w, "# loaded from %s\n", cfg.ConfigFile); err != nil {
					return err
				}
			}

			_, err = w.Write(b)

			return err
		},
	}

	return cmd
}

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig is the optional .fermata.yaml in the working directory. The
// CLI only needs to know where the embedding application keeps its data
// directory; flags override the file.
type fileConfig struct {
	DataDir string `yaml:"data_dir"`
}

const configFile = ".fermata.yaml"

var dataDir string

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fermata",
		Short: "Approve or reject suspended fermata executions",
		Long: "fermata is the approver-side companion to an application embedding the\n" +
			"fermata engine. It lists executions suspended for confirmation and records\n" +
			"decisions in the shared approvals directory; the application picks them up\n" +
			"with ProcessDecisions.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("data-dir") {
				return nil
			}
			data, err := os.ReadFile(configFile)
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return fmt.Errorf("read %s: %w", configFile, err)
			}
			var cfg fileConfig
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return fmt.Errorf("parse %s: %w", configFile, err)
			}
			if cfg.DataDir != "" {
				dataDir = cfg.DataDir
			}
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "./data", "data directory shared with the embedding application")

	cmd.AddCommand(newPendingCmd())
	cmd.AddCommand(newApproveCmd())
	cmd.AddCommand(newRejectCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func Execute() {
	if err := NewRoot().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

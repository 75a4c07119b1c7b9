package cli

import (
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fermata-io/fermata/internal/adapters/gateway"
)

func newPendingCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "pending",
		Short: "List executions waiting for a decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
			gw, err := gateway.NewFileGateway(afero.NewOsFs(), dataDir, quiet)
			if err != nil {
				return err
			}

			approvals, err := gw.Pending(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(approvals, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			if len(approvals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No pending approvals.")
				return nil
			}
			for _, a := range approvals {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t(requested %s)\n",
					a.ExecutionID,
					a.Request.Hint,
					a.Request.RequestedAt.Format("2006-01-02 15:04:05"),
				)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON")
	return cmd
}

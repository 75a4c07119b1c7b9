package cli

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fermata-io/fermata/internal/adapters/gateway"
)

func newApproveCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "approve <execution-id>",
		Short: "Record a confirming decision for a suspended execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDecision(cmd, args[0], true, note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "free-form note attached to the decision")
	return cmd
}

func newRejectCmd() *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   "reject <execution-id>",
		Short: "Record a rejecting decision for a suspended execution",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeDecision(cmd, args[0], false, note)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "free-form note attached to the decision")
	return cmd
}

func writeDecision(cmd *cobra.Command, executionID string, confirmed bool, note string) error {
	var metadata map[string]interface{}
	if note != "" {
		metadata = map[string]interface{}{"note": note}
	}

	if err := gateway.WriteDecision(afero.NewOsFs(), dataDir, executionID, confirmed, metadata); err != nil {
		return err
	}

	verdict := "approved"
	if !confirmed {
		verdict = "rejected"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Execution %s %s. The application will pick the decision up on its next poll.\n", executionID, verdict)
	return nil
}

package cli

import (
	"fmt"
	"io"
	"log/slog"

	json "github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fermata-io/fermata/internal/adapters/gateway"
	"github.com/fermata-io/fermata/internal/adapters/storage"
	"github.com/fermata-io/fermata/internal/domain"
)

func newStatusCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status <execution-id>",
		Short: "Show the last persisted state of an execution",
		Long: "status reads the execution record from the data directory. Reading the\n" +
			"store needs exclusive access; while the embedding application is running,\n" +
			"only the pending approval (if any) is shown.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			executionID := args[0]
			quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

			store, err := storage.NewBadgerStore(dataDir, 0, quiet)
			if err != nil {
				return statusFromPending(cmd, executionID, quiet)
			}
			defer store.Close()

			exec, err := store.LoadExecution(cmd.Context(), executionID)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(exec, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal json: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Execution : %s\n", exec.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "Graph     : %s\n", exec.GraphName)
			fmt.Fprintf(cmd.OutOrStdout(), "Status    : %s\n", exec.Status)
			if exec.SuspendedStep != "" && exec.Suspension != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Suspended : %s (%s)\n", exec.SuspendedStep, exec.Suspension.Hint)
			}
			if exec.LastError != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Error     : %s\n", exec.LastError)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Steps run : %d\n", len(exec.Log))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON")
	return cmd
}

// statusFromPending reports what the approvals directory alone knows,
// for when the store is locked by the running application.
func statusFromPending(cmd *cobra.Command, executionID string, logger *slog.Logger) error {
	gw, err := gateway.NewFileGateway(afero.NewOsFs(), dataDir, logger)
	if err != nil {
		return err
	}

	approvals, err := gw.Pending(cmd.Context())
	if err != nil {
		return err
	}
	for _, a := range approvals {
		if a.ExecutionID == executionID {
			fmt.Fprintf(cmd.OutOrStdout(), "Execution : %s\n", a.ExecutionID)
			fmt.Fprintf(cmd.OutOrStdout(), "Status    : %s\n", domain.ExecutionStatusSuspended)
			fmt.Fprintf(cmd.OutOrStdout(), "Hint      : %s\n", a.Request.Hint)
			fmt.Fprintln(cmd.OutOrStdout(), "(store is in use; showing the pending approval only)")
			return nil
		}
	}
	return domain.NewNotFoundError("execution", executionID)
}

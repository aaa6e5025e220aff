package commands

import (
	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/ui"
)

func newUndoCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "undo <batch-id>",
		Short: "Undo an import batch",
		Long: `Undo archives every transaction the batch imported and marks the batch
undone, atomically. A batch containing reconciled transactions cannot be
undone; undoing an already-undone batch is a no-op.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			undone, err := ledger.UndoBatch(cmd.Context(), args[0], dateLock(cmd), actorFlag(cmd))
			if err != nil {
				return err
			}
			if !undone {
				ui.Warning("batch %s was already undone", args[0])
				return nil
			}
			ui.Success("undid batch %s", args[0])
			return nil
		},
	}
	return cmd
}

func newBatchesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List import batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			batches, err := ledger.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			for _, b := range batches {
				status := ""
				if b.IsUndone {
					status = "  (undone)"
				}
				ui.Info("%s  %s  %d row(s)  %s%s",
					b.ID, b.ImportedAt.Format("2006-01-02 15:04"), b.ImportedCount, b.FileName, status)
			}
			return nil
		},
	}
}

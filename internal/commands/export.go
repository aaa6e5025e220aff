package commands

import (
	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/export"
	"github.com/clearbooks/clearbooks/internal/ui"
)

func newExportCommand() *cobra.Command {
	var (
		accountID       string
		outFile         string
		includeArchived bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export an account's transactions as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			txns, err := ledger.ListTransactions(cmd.Context(), accountID, includeArchived)
			if err != nil {
				return err
			}

			if outFile == "" {
				return export.WriteTransactions(cmd.OutOrStdout(), txns)
			}
			if err := export.WriteFile(outFile, txns); err != nil {
				return err
			}
			ui.Success("exported %d transaction(s) to %s", len(txns), outFile)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&outFile, "out", "", "output file (default: stdout)")
	cmd.Flags().BoolVar(&includeArchived, "include-archived", false, "include archived transactions")

	return cmd
}

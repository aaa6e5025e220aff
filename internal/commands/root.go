// Package commands wires the clearbooks CLI: statement import, batch
// undo, reconciliation, export, and rule management over one SQLite
// ledger file.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/store"
	"github.com/clearbooks/clearbooks/internal/taxlock"
)

// NewRootCommand creates the root CLI command with all subcommands
// registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clearbooks",
		Short: "Bank statement import and reconciliation for a personal ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("db", "clearbooks.db", "ledger database file")
	rootCmd.PersistentFlags().String("actor", "cli", "acting user id for audit fields")
	rootCmd.PersistentFlags().Int("lock-year", 0, "lock all tax years at or below this year")

	rootCmd.AddCommand(
		newAccountCommand(),
		newImportCommand(),
		newUndoCommand(),
		newBatchesCommand(),
		newReconcileCommand(),
		newExportCommand(),
		newRulesCommand(),
	)

	return rootCmd
}

// openStore opens the ledger named by the root --db flag.
func openStore(cmd *cobra.Command) (*store.Store, error) {
	path, err := cmd.Flags().GetString("db")
	if err != nil {
		return nil, err
	}
	return store.Open(path)
}

func actorFlag(cmd *cobra.Command) string {
	actor, _ := cmd.Flags().GetString("actor")
	return actor
}

// dateLock builds the tax-year lock from the root --lock-year flag.
func dateLock(cmd *cobra.Command) domain.DateLock {
	year, _ := cmd.Flags().GetInt("lock-year")
	if year <= 0 {
		return taxlock.Open
	}
	return taxlock.New(year)
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
	"github.com/clearbooks/clearbooks/internal/ui"
)

func newAccountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage ledger accounts",
	}
	cmd.AddCommand(newAccountCreateCommand())
	return cmd
}

func newAccountCreateCommand() *cobra.Command {
	var name string
	var opening string

	cmd := &cobra.Command{
		Use:   "create <account-id>",
		Short: "Create a ledger account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			balance, err := money.Parse(opening)
			if err != nil {
				return fmt.Errorf("invalid opening balance: %w", err)
			}

			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			acct := &domain.Account{
				ID:             args[0],
				Name:           name,
				OpeningBalance: balance,
			}
			if err := ledger.CreateAccount(cmd.Context(), acct); err != nil {
				return err
			}

			ui.Success("created account %s with opening balance %s", acct.ID, balance)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "account display name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opening, "opening", "0.00", "opening balance")

	return cmd
}

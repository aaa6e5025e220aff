package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
	"github.com/clearbooks/clearbooks/internal/reconcile"
	"github.com/clearbooks/clearbooks/internal/ui"
)

func newReconcileCommand() *cobra.Command {
	var (
		accountID string
		dateStr   string
		balance   string
		selectIDs []string
		selectAll bool
		check     bool
	)

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconcile an account against a bank statement",
		Long: `Reconcile selects cleared transactions and compares the resulting balance
with the statement's ending balance. Finalizing requires an exact match;
a nonzero difference reports what remains unexplained instead of writing
anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			stmtDate, err := time.Parse(domain.DateFormat, dateStr)
			if err != nil {
				return fmt.Errorf("invalid statement date %q, want YYYY-MM-DD: %w", dateStr, err)
			}
			ending, err := money.Parse(balance)
			if err != nil {
				return fmt.Errorf("invalid ending balance: %w", err)
			}

			ledger, err := openStore(cmd)
			if err != nil {
				return err
			}
			defer ledger.Close()

			acct, err := ledger.GetAccount(ctx, accountID)
			if err != nil {
				return err
			}
			candidates, err := ledger.ListUnreconciled(ctx, accountID, stmtDate)
			if err != nil {
				return err
			}

			session := reconcile.NewSession(acct)
			ui.Info("opening balance: %s", session.OpeningBalance())
			if err := session.Begin(stmtDate, ending, candidates); err != nil {
				return err
			}

			if selectAll {
				if err := session.SelectAll(); err != nil {
					return err
				}
			}
			for _, id := range selectIDs {
				if err := session.Toggle(id); err != nil {
					return err
				}
			}

			ui.Info("cleared balance: %s", session.ClearedBalance())
			ui.Info("difference:      %s", session.Difference())

			if check {
				if session.Balanced() {
					ui.Success("selection balances; rerun without --check to finalize")
				} else {
					ui.Warning("selection does not balance")
				}
				return nil
			}

			if err := session.Finalize(ctx, ledger, dateLock(cmd), actorFlag(cmd)); err != nil {
				return err
			}
			ui.Success("reconciled %d transaction(s) through %s at %s",
				len(session.SelectedIDs()), stmtDate.Format(domain.DateFormat), ending)
			return nil
		},
	}

	cmd.Flags().StringVar(&accountID, "account", "", "account id (required)")
	_ = cmd.MarkFlagRequired("account")
	cmd.Flags().StringVar(&dateStr, "statement-date", "", "statement date, YYYY-MM-DD (required)")
	_ = cmd.MarkFlagRequired("statement-date")
	cmd.Flags().StringVar(&balance, "ending-balance", "", "statement ending balance (required)")
	_ = cmd.MarkFlagRequired("ending-balance")
	cmd.Flags().StringSliceVar(&selectIDs, "select", nil, "transaction ids to mark cleared")
	cmd.Flags().BoolVar(&selectAll, "all", false, "mark every candidate cleared")
	cmd.Flags().BoolVar(&check, "check", false, "compute the difference without finalizing")

	return cmd
}

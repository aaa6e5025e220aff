package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
)

// FinalizeReconciliation flips the selected transactions to reconciled
// and writes the account checkpoint, all in one SQL transaction. Every
// selected row's flags and the tax-year lock are re-checked inside the
// transaction so a concurrent edit between the user's review and this
// call is caught, not overwritten.
func (s *Store) FinalizeReconciliation(ctx context.Context, accountID string, selectedIDs []string, endingBalance money.Money, statementDate time.Time, lock domain.DateLock, actor string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, id := range selectedIDs {
			var (
				acct       string
				dateStr    string
				reconciled bool
				archived   bool
			)
			err := tx.QueryRow(`
				SELECT account_id, date, reconciled, is_archived FROM transactions WHERE id = ?
			`, id).Scan(&acct, &dateStr, &reconciled, &archived)
			if err == sql.ErrNoRows {
				return fmt.Errorf("transaction %s: %w", id, domain.ErrNotFound)
			}
			if err != nil {
				return fmt.Errorf("failed to re-check transaction %s: %w", id, err)
			}

			if acct != accountID {
				return fmt.Errorf("transaction %s belongs to account %s, not %s", id, acct, accountID)
			}
			if reconciled {
				return fmt.Errorf("transaction %s is already reconciled", id)
			}
			if archived {
				return fmt.Errorf("transaction %s was archived during the session", id)
			}

			if lock != nil {
				date, err := time.Parse(domain.DateFormat, dateStr)
				if err != nil {
					return fmt.Errorf("corrupt transaction date %q: %w", dateStr, err)
				}
				if lock.IsDateLocked(date) {
					return &domain.LockViolationError{Date: date}
				}
			}
		}

		for _, id := range selectedIDs {
			if _, err := tx.Exec(`
				UPDATE transactions SET reconciled = 1, last_modified_by = ? WHERE id = ?
			`, actor, id); err != nil {
				return fmt.Errorf("failed to reconcile transaction %s: %w", id, err)
			}
		}

		res, err := tx.Exec(`
			UPDATE accounts SET last_reconciled_balance = ?, last_reconciled_date = ?
			WHERE id = ?
		`, endingBalance.Cents(), statementDate.Format(domain.DateFormat), accountID)
		if err != nil {
			return fmt.Errorf("failed to write reconciliation checkpoint: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("account %s: %w", accountID, domain.ErrNotFound)
		}

		return nil
	})
}

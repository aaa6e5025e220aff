package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
	"github.com/clearbooks/clearbooks/internal/split"
)

const transactionColumns = `id, account_id, date, amount, payee, description,
	is_split, is_reviewed, reconciled, source_batch_id, is_archived, last_modified_by`

// GetTransaction loads one transaction with its split lines, or
// domain.ErrNotFound.
func (s *Store) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)

	txn, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadLines(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// ListTransactions returns an account's transactions ordered by date then
// id. Archived rows are excluded unless includeArchived is set.
func (s *Store) ListTransactions(ctx context.Context, accountID string, includeArchived bool) ([]domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE account_id = ?`
	if !includeArchived {
		query += ` AND is_archived = 0`
	}
	query += ` ORDER BY date, id`

	return s.queryTransactions(ctx, query, accountID)
}

// ListUnreconciled returns the reconciliation candidate set: unreconciled,
// non-archived transactions dated on or before the statement date.
func (s *Store) ListUnreconciled(ctx context.Context, accountID string, onOrBefore time.Time) ([]domain.Transaction, error) {
	return s.queryTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = ? AND reconciled = 0 AND is_archived = 0 AND date <= ?
		ORDER BY date, id
	`, accountID, onOrBefore.Format(domain.DateFormat))
}

func (s *Store) queryTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	for i := range txns {
		if txns[i].IsSplit {
			if err := s.loadLines(ctx, &txns[i]); err != nil {
				return nil, err
			}
		}
	}

	return txns, nil
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		txn     domain.Transaction
		date    string
		amount  int64
		batchID sql.NullString
	)
	err := row.Scan(&txn.ID, &txn.AccountID, &date, &amount, &txn.Payee, &txn.Description,
		&txn.IsSplit, &txn.IsReviewed, &txn.Reconciled, &batchID, &txn.IsArchived, &txn.LastModifiedBy)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("transaction: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	txn.Amount = money.FromCents(amount)
	txn.SourceBatchID = batchID.String

	parsed, err := time.Parse(domain.DateFormat, date)
	if err != nil {
		return nil, fmt.Errorf("corrupt transaction date %q: %w", date, err)
	}
	txn.Date = parsed

	return &txn, nil
}

func (s *Store) loadLines(ctx context.Context, txn *domain.Transaction) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, amount, memo FROM split_lines
		WHERE transaction_id = ? ORDER BY line_index
	`, txn.ID)
	if err != nil {
		return fmt.Errorf("failed to load split lines for %s: %w", txn.ID, err)
	}
	defer rows.Close()

	var lines []domain.SplitLine
	for rows.Next() {
		var (
			l      domain.SplitLine
			amount int64
		)
		if err := rows.Scan(&l.CategoryID, &amount, &l.Memo); err != nil {
			return fmt.Errorf("failed to scan split line: %w", err)
		}
		l.Amount = money.FromCents(amount)
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating split lines: %w", err)
	}

	txn.Lines = lines
	return nil
}

// insertTransaction writes one row plus its split lines inside tx.
func insertTransaction(tx *sql.Tx, txn *domain.Transaction) error {
	var batchID any
	if txn.SourceBatchID != "" {
		batchID = txn.SourceBatchID
	}

	_, err := tx.Exec(`
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, txn.ID, txn.AccountID, txn.Date.Format(domain.DateFormat), txn.Amount.Cents(),
		txn.Payee, txn.Description, boolInt(txn.IsSplit), boolInt(txn.IsReviewed),
		boolInt(txn.Reconciled), batchID, boolInt(txn.IsArchived), txn.LastModifiedBy)
	if err != nil {
		return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
	}

	return insertLines(tx, txn.ID, txn.Lines)
}

func insertLines(tx *sql.Tx, txnID string, lines []domain.SplitLine) error {
	for i, l := range lines {
		_, err := tx.Exec(`
			INSERT INTO split_lines (transaction_id, line_index, category_id, amount, memo)
			VALUES (?, ?, ?, ?, ?)
		`, txnID, i, l.CategoryID, l.Amount.Cents(), l.Memo)
		if err != nil {
			return fmt.Errorf("failed to insert split line %d for %s: %w", i, txnID, err)
		}
	}
	return nil
}

// SaveSplit replaces a transaction's split lines after validating the
// balance invariant. The transaction's reconciled/archived flags and the
// tax-year lock are re-checked inside the write transaction, not trusted
// from whatever the caller read earlier.
func (s *Store) SaveSplit(ctx context.Context, txnID string, lines []domain.SplitLine, lock domain.DateLock, actor string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		txn, err := lockCheckTransaction(tx, txnID, lock)
		if err != nil {
			return err
		}

		if err := split.Apply(txn, lines); err != nil {
			return err
		}

		if _, err := tx.Exec(`DELETE FROM split_lines WHERE transaction_id = ?`, txnID); err != nil {
			return fmt.Errorf("failed to clear split lines: %w", err)
		}
		if err := insertLines(tx, txnID, txn.Lines); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE transactions SET is_split = 1, last_modified_by = ? WHERE id = ?`, actor, txnID)
		if err != nil {
			return fmt.Errorf("failed to mark transaction split: %w", err)
		}
		return nil
	})
}

// FlattenSplit converts a split transaction back to a simple one with a
// single full-amount line. Explicit and lossy, per the save rules.
func (s *Store) FlattenSplit(ctx context.Context, txnID, categoryID string, lock domain.DateLock, actor string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		txn, err := lockCheckTransaction(tx, txnID, lock)
		if err != nil {
			return err
		}

		split.Flatten(txn, categoryID)

		if _, err := tx.Exec(`DELETE FROM split_lines WHERE transaction_id = ?`, txnID); err != nil {
			return fmt.Errorf("failed to clear split lines: %w", err)
		}
		if err := insertLines(tx, txnID, txn.Lines); err != nil {
			return err
		}

		_, err = tx.Exec(`UPDATE transactions SET is_split = 0, last_modified_by = ? WHERE id = ?`, actor, txnID)
		if err != nil {
			return fmt.Errorf("failed to flatten transaction: %w", err)
		}
		return nil
	})
}

// lockCheckTransaction re-reads a transaction inside tx and rejects
// mutation of reconciled, archived, or tax-year-locked rows.
func lockCheckTransaction(tx *sql.Tx, txnID string, lock domain.DateLock) (*domain.Transaction, error) {
	row := tx.QueryRow(`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, txnID)
	txn, err := scanTransaction(row)
	if err != nil {
		return nil, err
	}

	if txn.Reconciled {
		return nil, fmt.Errorf("transaction %s is reconciled and locked from edits", txnID)
	}
	if txn.IsArchived {
		return nil, fmt.Errorf("transaction %s is archived", txnID)
	}
	if lock != nil && lock.IsDateLocked(txn.Date) {
		return nil, &domain.LockViolationError{Date: txn.Date}
	}

	return txn, nil
}

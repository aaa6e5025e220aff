package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
)

// CommitBatch persists an import batch and its transactions as one SQL
// transaction: either every row lands tagged with the batch id, or none
// do. The tax-year lock is re-checked per row inside the transaction.
func (s *Store) CommitBatch(ctx context.Context, batch *domain.ImportBatch, txns []domain.Transaction, lock domain.DateLock) error {
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO import_batches (id, file_name, imported_at, imported_count, is_undone)
			VALUES (?, ?, ?, ?, 0)
		`, batch.ID, batch.FileName, batch.ImportedAt.UTC().Format(time.RFC3339), len(txns))
		if err != nil {
			return fmt.Errorf("failed to insert batch: %w", err)
		}

		for i := range txns {
			txn := &txns[i]
			if lock != nil && lock.IsDateLocked(txn.Date) {
				return &domain.LockViolationError{Date: txn.Date}
			}
			if err := insertTransaction(tx, txn); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Lock violations are policy rejections, not store failures.
		if _, ok := err.(*domain.LockViolationError); ok {
			return err
		}
		return &domain.CommitError{FileName: batch.FileName, Err: err}
	}

	batch.ImportedCount = len(txns)
	return nil
}

// UndoBatch archives every transaction in a batch and marks the batch
// undone, atomically. Undoing an already-undone batch reports
// (false, nil): a no-op, not an error. A batch containing reconciled
// transactions is refused with UndoConflictError and left unchanged.
func (s *Store) UndoBatch(ctx context.Context, batchID string, lock domain.DateLock, actor string) (bool, error) {
	undone := false
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var isUndone bool
		err := tx.QueryRow(`SELECT is_undone FROM import_batches WHERE id = ?`, batchID).Scan(&isUndone)
		if err == sql.ErrNoRows {
			return fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		if isUndone {
			return nil // second undo is a no-op
		}

		// Re-check flags against current state, not what the caller saw.
		var reconciled int
		err = tx.QueryRow(`
			SELECT COUNT(*) FROM transactions WHERE source_batch_id = ? AND reconciled = 1
		`, batchID).Scan(&reconciled)
		if err != nil {
			return fmt.Errorf("failed to count reconciled rows: %w", err)
		}
		if reconciled > 0 {
			return &domain.UndoConflictError{BatchID: batchID, ReconciledCount: reconciled}
		}

		if lock != nil {
			rows, err := tx.Query(`SELECT date FROM transactions WHERE source_batch_id = ?`, batchID)
			if err != nil {
				return fmt.Errorf("failed to read batch dates: %w", err)
			}
			defer rows.Close()
			for rows.Next() {
				var dateStr string
				if err := rows.Scan(&dateStr); err != nil {
					return fmt.Errorf("failed to scan batch date: %w", err)
				}
				date, err := time.Parse(domain.DateFormat, dateStr)
				if err != nil {
					return fmt.Errorf("corrupt transaction date %q: %w", dateStr, err)
				}
				if lock.IsDateLocked(date) {
					return &domain.LockViolationError{Date: date}
				}
			}
			if err := rows.Err(); err != nil {
				return fmt.Errorf("error iterating batch dates: %w", err)
			}
		}

		if _, err := tx.Exec(`
			UPDATE transactions SET is_archived = 1, last_modified_by = ?
			WHERE source_batch_id = ?
		`, actor, batchID); err != nil {
			return fmt.Errorf("failed to archive batch transactions: %w", err)
		}
		if _, err := tx.Exec(`UPDATE import_batches SET is_undone = 1 WHERE id = ?`, batchID); err != nil {
			return fmt.Errorf("failed to mark batch undone: %w", err)
		}

		undone = true
		return nil
	})
	return undone, err
}

// GetBatch loads one import batch, or domain.ErrNotFound.
func (s *Store) GetBatch(ctx context.Context, id string) (*domain.ImportBatch, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, file_name, imported_at, imported_count, is_undone
		FROM import_batches WHERE id = ?
	`, id)
	return scanBatch(row)
}

// ListBatches returns all import batches, newest first.
func (s *Store) ListBatches(ctx context.Context) ([]domain.ImportBatch, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, file_name, imported_at, imported_count, is_undone
		FROM import_batches ORDER BY imported_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer rows.Close()

	var batches []domain.ImportBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating batches: %w", err)
	}
	return batches, nil
}

func scanBatch(row rowScanner) (*domain.ImportBatch, error) {
	var (
		b        domain.ImportBatch
		imported string
	)
	err := row.Scan(&b.ID, &b.FileName, &imported, &b.ImportedCount, &b.IsUndone)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batch: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan batch: %w", err)
	}

	at, err := time.Parse(time.RFC3339, imported)
	if err != nil {
		return nil, fmt.Errorf("corrupt imported_at %q: %w", imported, err)
	}
	b.ImportedAt = at

	return &b, nil
}

package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/clearbooks/clearbooks/internal/money"
)

// Sentinel errors for errors.Is checks across package boundaries.
var (
	// ErrNotFound indicates a referenced entity does not exist in the store.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates an insert collided with an existing id.
	ErrAlreadyExists = errors.New("already exists")
)

// MappingError reports a column mapping that cannot produce staged rows.
// It is surfaced before staging and blocks duplicate detection.
type MappingError struct {
	Field  string
	Reason string
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("invalid column mapping: %s: %s", e.Field, e.Reason)
}

// CommitError reports a failed batch commit. The store guarantees no rows
// were partially committed; the caller may retry the whole batch.
type CommitError struct {
	FileName string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit of %s failed, no rows written: %v", e.FileName, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UndoConflictError reports an undo refused because the batch contains
// reconciled transactions. The batch is left unchanged.
type UndoConflictError struct {
	BatchID         string
	ReconciledCount int
}

func (e *UndoConflictError) Error() string {
	return fmt.Sprintf("cannot undo batch %s: %d transaction(s) already reconciled", e.BatchID, e.ReconciledCount)
}

// SplitImbalanceError reports split lines that do not sum to the
// transaction amount. Saves are rejected, never silently rounded.
type SplitImbalanceError struct {
	TransactionID string
	Remainder     money.Money
}

func (e *SplitImbalanceError) Error() string {
	return fmt.Sprintf("split lines for transaction %s do not balance: remainder %s", e.TransactionID, e.Remainder)
}

// ImbalanceError reports a reconciliation finalize attempted with a
// non-zero difference. Nothing is mutated.
type ImbalanceError struct {
	AccountID  string
	Difference money.Money
}

func (e *ImbalanceError) Error() string {
	return fmt.Sprintf("reconciliation for account %s does not balance: difference %s", e.AccountID, e.Difference)
}

// LockViolationError reports a mutation touching a date inside a locked
// tax year. Rejected before any write.
type LockViolationError struct {
	Date time.Time
}

func (e *LockViolationError) Error() string {
	return fmt.Sprintf("date %s falls in a locked tax year", e.Date.Format(DateFormat))
}

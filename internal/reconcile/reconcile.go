// Package reconcile matches the ledger against a bank statement. A
// Session walks setup, in-progress, finalized; the running balance and
// difference are pure functions of the current selection, recomputed on
// every toggle rather than adjusted incrementally.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
)

// State is one phase of a reconciliation session.
type State string

const (
	// StateSetup awaits the statement date and ending balance.
	StateSetup State = "setup"
	// StateInProgress means the user is selecting cleared transactions.
	StateInProgress State = "in_progress"
	// StateFinalized is terminal: the checkpoint was written.
	StateFinalized State = "finalized"
)

// FinalizeStore is the slice of the ledger store a finalize writes through.
type FinalizeStore interface {
	FinalizeReconciliation(ctx context.Context, accountID string, selectedIDs []string, endingBalance money.Money, statementDate time.Time, lock domain.DateLock, actor string) error
}

// Session reconciles one account against one statement. The opening
// balance comes from the account's last checkpoint, falling back to the
// opening balance for a first reconciliation, so checkpoints chain.
type Session struct {
	state   State
	account *domain.Account

	statementDate    time.Time
	statementBalance money.Money

	candidates []domain.Transaction
	selected   map[string]bool
}

// NewSession starts a reconciliation for the account, in setup.
func NewSession(account *domain.Account) *Session {
	return &Session{
		state:    StateSetup,
		account:  account,
		selected: make(map[string]bool),
	}
}

// State returns the session's current phase.
func (s *Session) State() State { return s.state }

// OpeningBalance returns the balance this session starts from.
func (s *Session) OpeningBalance() money.Money {
	return s.account.ReconciliationOpeningBalance()
}

// Begin records the statement facts and the candidate set, moving to
// in-progress. Candidates must already be filtered to unreconciled,
// non-archived rows on or before the statement date; rows outside that
// window are rejected here rather than silently ignored.
func (s *Session) Begin(statementDate time.Time, endingBalance money.Money, candidates []domain.Transaction) error {
	if s.state != StateSetup {
		return fmt.Errorf("cannot begin in state %s", s.state)
	}
	if statementDate.IsZero() {
		return fmt.Errorf("statement date is required")
	}
	for i := range candidates {
		txn := &candidates[i]
		if txn.AccountID != s.account.ID {
			return fmt.Errorf("transaction %s belongs to account %s, not %s", txn.ID, txn.AccountID, s.account.ID)
		}
		if txn.Reconciled {
			return fmt.Errorf("transaction %s is already reconciled", txn.ID)
		}
		if txn.IsArchived {
			return fmt.Errorf("transaction %s is archived", txn.ID)
		}
		if txn.Date.After(statementDate) {
			return fmt.Errorf("transaction %s is dated after the statement date", txn.ID)
		}
	}

	s.statementDate = statementDate
	s.statementBalance = endingBalance
	s.candidates = candidates
	s.state = StateInProgress
	return nil
}

// Candidates returns the session's candidate transactions.
func (s *Session) Candidates() []domain.Transaction { return s.candidates }

// Toggle flips whether a candidate is selected as cleared.
func (s *Session) Toggle(txnID string) error {
	if s.state != StateInProgress {
		return fmt.Errorf("cannot toggle in state %s", s.state)
	}
	for i := range s.candidates {
		if s.candidates[i].ID == txnID {
			s.selected[txnID] = !s.selected[txnID]
			return nil
		}
	}
	return fmt.Errorf("transaction %s is not a candidate: %w", txnID, domain.ErrNotFound)
}

// SelectAll marks every candidate cleared.
func (s *Session) SelectAll() error {
	if s.state != StateInProgress {
		return fmt.Errorf("cannot select in state %s", s.state)
	}
	for i := range s.candidates {
		s.selected[s.candidates[i].ID] = true
	}
	return nil
}

// SelectedIDs returns the cleared transaction ids in a stable order.
func (s *Session) SelectedIDs() []string {
	var ids []string
	for id, on := range s.selected {
		if on {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ClearedBalance is the opening balance plus the sum of the selected
// amounts. Recomputed from scratch so toggles can never drift it.
func (s *Session) ClearedBalance() money.Money {
	balance := s.OpeningBalance()
	for i := range s.candidates {
		if s.selected[s.candidates[i].ID] {
			balance = balance.Add(s.candidates[i].Amount)
		}
	}
	return balance
}

// Difference is the statement's ending balance minus the cleared balance.
// Zero means the selection explains the statement exactly.
func (s *Session) Difference() money.Money {
	return s.statementBalance.Sub(s.ClearedBalance())
}

// Balanced reports whether the session can finalize.
func (s *Session) Balanced() bool {
	return s.state == StateInProgress && s.Difference().IsZero()
}

// Finalize writes the reconciliation atomically: the selected rows flip
// to reconciled and the account checkpoint advances in one store call.
// A nonzero difference is refused with ImbalanceError; there is no
// force-balance adjustment. The store re-checks the tax-year lock row
// by row, so a locked-year candidate fails the whole finalize.
func (s *Session) Finalize(ctx context.Context, store FinalizeStore, lock domain.DateLock, actor string) error {
	if s.state != StateInProgress {
		return fmt.Errorf("cannot finalize in state %s", s.state)
	}
	if diff := s.Difference(); !diff.IsZero() {
		return &domain.ImbalanceError{AccountID: s.account.ID, Difference: diff}
	}

	err := store.FinalizeReconciliation(ctx, s.account.ID, s.SelectedIDs(), s.statementBalance, s.statementDate, lock, actor)
	if err != nil {
		return err
	}

	// Mirror the checkpoint locally so a caller holding the account sees
	// the same opening balance the next session will load.
	balance := s.statementBalance
	date := s.statementDate
	s.account.LastReconciledBalance = &balance
	s.account.LastReconciledDate = &date

	s.state = StateFinalized
	return nil
}

// Package domain holds the ledger's core types: transactions with split
// lines, import batches, categorization rules, accounts with reconciliation
// checkpoints, and the staged rows produced by statement parsing.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/clearbooks/clearbooks/internal/money"
)

// DateFormat is the canonical wire format for dates (ISO, day precision).
const DateFormat = "2006-01-02"

// MatchType defines how a rule keyword is matched against a description.
type MatchType string

const (
	// MatchContains requires the keyword to be a substring of the description.
	MatchContains MatchType = "contains"
	// MatchExact requires the keyword to equal the whole trimmed description.
	MatchExact MatchType = "exact"
	// MatchStartsWith requires the description to begin with the keyword.
	MatchStartsWith MatchType = "starts_with"
)

// ValidateMatchType checks if a match type is one of the supported kinds.
func ValidateMatchType(m MatchType) bool {
	switch m {
	case MatchContains, MatchExact, MatchStartsWith:
		return true
	}
	return false
}

// SplitLine is one categorized piece of a transaction's amount.
type SplitLine struct {
	CategoryID string // empty = uncategorized, invalid for a saved split
	Amount     money.Money
	Memo       string
}

// Transaction is a committed ledger row. Rows are never hard-deleted;
// archival sets IsArchived instead so batch undo stays reversible.
//
// Invariant: when IsSplit is false the transaction behaves as one implicit
// line equal to Amount; when true, the sum of Lines amounts equals Amount
// exactly, in integer cents.
type Transaction struct {
	ID             string
	AccountID      string
	Date           time.Time
	Amount         money.Money
	Payee          string
	Description    string // original statement description, never rewritten
	IsSplit        bool
	Lines          []SplitLine
	IsReviewed     bool
	Reconciled     bool
	SourceBatchID  string // empty for manual entries
	IsArchived     bool
	LastModifiedBy string
}

// EffectiveLines returns the transaction's split lines, or the single
// implicit line for a simple transaction.
func (t *Transaction) EffectiveLines() []SplitLine {
	if !t.IsSplit {
		return []SplitLine{{Amount: t.Amount}}
	}
	return t.Lines
}

// ImportBatch is the atomic unit of one statement import. Undo archives
// every transaction carrying the batch id and marks the batch undone.
type ImportBatch struct {
	ID            string
	FileName      string
	ImportedAt    time.Time
	ImportedCount int
	IsUndone      bool
}

// Rule suggests a category and payee for descriptions matching a keyword.
// Lower priority values are evaluated first; the first match wins.
type Rule struct {
	ID            string
	Priority      int
	Keyword       string
	MatchType     MatchType
	CaseSensitive bool
	CategoryID    string
	Payee         string
	Enabled       bool
	UseCount      int
	LastUsedAt    *time.Time
}

// Validate reports whether the rule can be evaluated at all. An invalid
// rule is skipped during matching, never a reason to abort an import.
func (r *Rule) Validate() error {
	if strings.TrimSpace(r.Keyword) == "" {
		return fmt.Errorf("rule %s: keyword cannot be empty", r.ID)
	}
	if !ValidateMatchType(r.MatchType) {
		return fmt.Errorf("rule %s: invalid match type %q", r.ID, r.MatchType)
	}
	if r.CategoryID == "" {
		return fmt.Errorf("rule %s: target category cannot be empty", r.ID)
	}
	return nil
}

// Account carries only what the import/reconcile core reads and writes:
// the opening balance and the reconciliation checkpoint pair.
type Account struct {
	ID                    string
	Name                  string
	OpeningBalance        money.Money
	LastReconciledBalance *money.Money
	LastReconciledDate    *time.Time
}

// ReconciliationOpeningBalance returns the balance the next reconciliation
// starts from: the last checkpoint when present, else the opening balance.
// The checkpoint history is the source of truth, not the raw row list.
func (a *Account) ReconciliationOpeningBalance() money.Money {
	if a.LastReconciledBalance != nil {
		return *a.LastReconciledBalance
	}
	return a.OpeningBalance
}

// StagedTransaction is an in-memory candidate row produced by statement
// parsing. It is never persisted; commit converts accepted rows into
// Transactions and the staging set is discarded.
type StagedTransaction struct {
	RowIndex    int      // zero-based data row index, stable across review
	Raw         []string // raw parsed fields, kept for the review screen
	Date        time.Time
	Amount      money.Money
	Description string
	Payee       string
	IsValid     bool
	Errors      []string // ordered row-level validation messages
}

// AddError records a row validation failure and marks the row invalid.
func (s *StagedTransaction) AddError(msg string) {
	s.IsValid = false
	s.Errors = append(s.Errors, msg)
}

// DateLock is the tax-year lock collaborator. Locking year Y implies all
// years at or below Y are locked.
type DateLock interface {
	IsDateLocked(date time.Time) bool
}

// NewTransaction creates a validated simple (non-split) transaction.
func NewTransaction(id, accountID string, date time.Time, amount money.Money, payee, description string) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("transaction ID cannot be empty")
	}
	if accountID == "" {
		return nil, fmt.Errorf("account ID cannot be empty")
	}
	if date.IsZero() {
		return nil, fmt.Errorf("transaction date cannot be zero")
	}

	return &Transaction{
		ID:          id,
		AccountID:   accountID,
		Date:        date,
		Amount:      amount,
		Payee:       payee,
		Description: description,
	}, nil
}

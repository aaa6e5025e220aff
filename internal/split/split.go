// Package split validates that a transaction's line items sum exactly to
// its total. All checks are pure integer-cent arithmetic; there is no
// rounding tolerance anywhere.
package split

import (
	"fmt"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
)

// Result reports whether a candidate split is saveable, with
// human-readable reasons when it is not.
type Result struct {
	Valid  bool
	Errors []string
}

// Remainder returns transaction amount minus the sum of line amounts.
// Exposed separately for live feedback while a user edits lines.
func Remainder(txn *domain.Transaction, lines []domain.SplitLine) money.Money {
	var sum money.Money
	for _, l := range lines {
		sum += l.Amount
	}
	return txn.Amount - sum
}

// Validate checks a candidate split against the save rules: remainder
// exactly zero, every line categorized, and at least two lines with
// non-zero amounts.
func Validate(txn *domain.Transaction, lines []domain.SplitLine) Result {
	var errs []string

	if r := Remainder(txn, lines); !r.IsZero() {
		errs = append(errs, fmt.Sprintf("split lines must sum to the transaction amount %s (remainder %s)", txn.Amount, r))
	}

	nonZero := 0
	for i, l := range lines {
		if l.CategoryID == "" {
			errs = append(errs, fmt.Sprintf("line %d has no category", i+1))
		}
		if !l.Amount.IsZero() {
			nonZero++
		}
	}

	if nonZero < 2 {
		errs = append(errs, "a split needs at least 2 lines with non-zero amounts")
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

// Apply validates and attaches the lines to the transaction, setting
// IsSplit. Returns a SplitImbalanceError for a non-zero remainder;
// other violations surface through the Result inside a plain error.
func Apply(txn *domain.Transaction, lines []domain.SplitLine) error {
	if r := Remainder(txn, lines); !r.IsZero() {
		return &domain.SplitImbalanceError{TransactionID: txn.ID, Remainder: r}
	}

	res := Validate(txn, lines)
	if !res.Valid {
		return fmt.Errorf("invalid split for transaction %s: %s", txn.ID, res.Errors[0])
	}

	copied := make([]domain.SplitLine, len(lines))
	copy(copied, lines)
	txn.Lines = copied
	txn.IsSplit = true
	return nil
}

// Flatten converts a split transaction back to simple: a single implicit
// line equal to the full amount. This is lossy and must only happen on an
// explicit user action, never implicitly.
func Flatten(txn *domain.Transaction, categoryID string) {
	txn.IsSplit = false
	txn.Lines = []domain.SplitLine{{CategoryID: categoryID, Amount: txn.Amount}}
}

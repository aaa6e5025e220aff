// Package dedup classifies staged statement rows against the existing
// ledger as new, exact duplicates, or fuzzy duplicates. Classification is
// pure and idempotent: the same staged set against an unchanged ledger
// always yields identical results.
package dedup

import (
	"sort"
	"strings"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
)

// Classification is the duplicate status of one staged row.
type Classification string

const (
	// ClassNew means no existing transaction matches; importable.
	ClassNew Classification = "new"
	// ClassExact means account, date, amount, and description all match an
	// existing transaction. Excluded from commit by default.
	ClassExact Classification = "exact"
	// ClassFuzzy means amount matches and the date is within the tolerance
	// window. Surfaced for review, importable if the user keeps it.
	ClassFuzzy Classification = "fuzzy"
	// ClassError means the row itself failed staging validation and is
	// never classified against the ledger.
	ClassError Classification = "error"
)

// DefaultDateTolerance is the fuzzy-match window in days used by
// DefaultDetector. It is a policy choice, not a structural one, so
// callers can pick their own window via NewDetector.
const DefaultDateTolerance = 3

// Result is the classification of one staged row plus the ids of the
// existing transactions it matched, in deterministic order.
type Result struct {
	RowIndex   int
	Class      Classification
	MatchedIDs []string
}

// Stats summarizes a detection pass. Total always equals
// New + ExactDuplicates + FuzzyDuplicates + Errors.
type Stats struct {
	Total           int
	New             int
	ExactDuplicates int
	FuzzyDuplicates int
	Errors          int
}

// Detector classifies staged rows for one target account.
type Detector struct {
	// toleranceDays is the fuzzy window in days. 0 restricts fuzzy
	// matching to the same day; negative disables it entirely.
	toleranceDays int
}

// NewDetector builds a detector with the given fuzzy window in days.
// 0 matches only same-day rows; a negative window turns fuzzy matching
// off so rows are either exact duplicates or new.
func NewDetector(toleranceDays int) *Detector {
	return &Detector{toleranceDays: toleranceDays}
}

// DefaultDetector builds a detector with the DefaultDateTolerance window.
func DefaultDetector() *Detector {
	return NewDetector(DefaultDateTolerance)
}

// amountIndex buckets existing transactions by amount in cents so
// classification is a hash lookup per row, not a scan of the ledger.
// Archived rows never enter the index.
type amountIndex map[int64][]*domain.Transaction

func buildIndex(existing []domain.Transaction) amountIndex {
	idx := make(amountIndex, len(existing))
	for i := range existing {
		txn := &existing[i]
		if txn.IsArchived {
			continue
		}
		idx[txn.Amount.Cents()] = append(idx[txn.Amount.Cents()], txn)
	}
	return idx
}

// Classify runs duplicate detection for rows staged against one account.
// existing must be that account's transactions; archived rows are ignored.
func (d *Detector) Classify(staged []domain.StagedTransaction, existing []domain.Transaction) ([]Result, Stats) {
	idx := buildIndex(existing)
	tol := d.toleranceDays

	results := make([]Result, 0, len(staged))
	stats := Stats{Total: len(staged)}

	for i := range staged {
		row := &staged[i]

		if !row.IsValid {
			stats.Errors++
			results = append(results, Result{RowIndex: row.RowIndex, Class: ClassError})
			continue
		}

		res := classifyRow(row, idx, tol)
		switch res.Class {
		case ClassExact:
			stats.ExactDuplicates++
		case ClassFuzzy:
			stats.FuzzyDuplicates++
		default:
			stats.New++
		}
		results = append(results, res)
	}

	return results, stats
}

// classifyRow checks one valid row against the amount bucket. An exact
// match wins over any number of fuzzy matches.
func classifyRow(row *domain.StagedTransaction, idx amountIndex, tolerance int) Result {
	res := Result{RowIndex: row.RowIndex, Class: ClassNew}

	candidates := idx[row.Amount.Cents()]
	if len(candidates) == 0 {
		return res
	}

	var exactIDs, fuzzyIDs []string
	for _, txn := range candidates {
		if sameDay(txn.Date, row.Date) && strings.EqualFold(txn.Description, row.Description) {
			exactIDs = append(exactIDs, txn.ID)
			continue
		}
		if tolerance >= 0 && withinDays(txn.Date, row.Date, tolerance) {
			fuzzyIDs = append(fuzzyIDs, txn.ID)
		}
	}

	// Sorted ids keep results order-independent of the ledger slice.
	switch {
	case len(exactIDs) > 0:
		sort.Strings(exactIDs)
		res.Class = ClassExact
		res.MatchedIDs = exactIDs
	case len(fuzzyIDs) > 0:
		sort.Strings(fuzzyIDs)
		res.Class = ClassFuzzy
		res.MatchedIDs = fuzzyIDs
	}

	return res
}

// sameDay compares dates at day precision, ignoring time-of-day and zone
// offsets that differ between parser outputs.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// withinDays reports whether two dates are at most n days apart.
func withinDays(a, b time.Time, n int) bool {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	diff := a.Sub(b)
	if diff < 0 {
		diff = -diff
	}
	return diff <= time.Duration(n)*24*time.Hour
}

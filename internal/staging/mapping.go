// Package staging turns raw statement CSV text plus a user-chosen column
// mapping into staged candidate rows with per-row validation. Parsing is a
// pure transform: errors are collected on the rows, never thrown, so the
// whole file can be previewed even when some rows fail.
package staging

import (
	"github.com/clearbooks/clearbooks/internal/domain"
)

// ColumnMapping describes which source column feeds each field and how to
// interpret dates and signs. Column indexes are zero-based.
type ColumnMapping struct {
	// Delimiter is the field separator, comma when empty.
	Delimiter string `yaml:"delimiter"`
	// HasHeader skips the first row when true.
	HasHeader bool `yaml:"has_header"`

	DateColumn int `yaml:"date_column"`
	// DateFormat is a Go reference-time layout, e.g. "01/02/2006".
	DateFormat        string `yaml:"date_format"`
	DescriptionColumn int    `yaml:"description_column"`
	// PayeeColumn is optional; nil means no payee column.
	PayeeColumn *int `yaml:"payee_column"`

	// Either AmountColumn, or the DebitColumn/CreditColumn pair. Debit
	// values stage as negative amounts, credit values as positive.
	AmountColumn *int `yaml:"amount_column"`
	DebitColumn  *int `yaml:"debit_column"`
	CreditColumn *int `yaml:"credit_column"`

	// NegateAmounts flips the sign convention for banks that export
	// charges as positive numbers in a single amount column.
	NegateAmounts bool `yaml:"negate_amounts"`
}

// Validate checks the mapping is complete and unambiguous. A bad mapping
// blocks staging entirely; it is not a per-row condition.
func (m *ColumnMapping) Validate() error {
	if m.DateColumn < 0 {
		return &domain.MappingError{Field: "date_column", Reason: "required"}
	}
	if m.DateFormat == "" {
		return &domain.MappingError{Field: "date_format", Reason: "required"}
	}
	if m.DescriptionColumn < 0 {
		return &domain.MappingError{Field: "description_column", Reason: "required"}
	}

	hasAmount := m.AmountColumn != nil
	hasSplit := m.DebitColumn != nil || m.CreditColumn != nil

	switch {
	case hasAmount && hasSplit:
		return &domain.MappingError{Field: "amount_column", Reason: "ambiguous: both amount and debit/credit columns mapped"}
	case !hasAmount && !hasSplit:
		return &domain.MappingError{Field: "amount_column", Reason: "required: map an amount column or debit/credit columns"}
	case hasSplit && (m.DebitColumn == nil || m.CreditColumn == nil):
		return &domain.MappingError{Field: "debit_column", Reason: "debit and credit columns must be mapped together"}
	}

	if hasAmount && *m.AmountColumn < 0 {
		return &domain.MappingError{Field: "amount_column", Reason: "must be a column index"}
	}
	if len(m.Delimiter) > 1 {
		return &domain.MappingError{Field: "delimiter", Reason: "must be a single character"}
	}

	return nil
}

// delimiterRune returns the configured delimiter, defaulting to comma.
func (m *ColumnMapping) delimiterRune() rune {
	if m.Delimiter == "" {
		return ','
	}
	return rune(m.Delimiter[0])
}

package staging

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
)

// Dates outside this window are flagged as out of range. Statements with
// centuries-old or far-future dates are always mapping or data mistakes.
var (
	minStagingDate = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	maxStagingDate = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)
)

// ParseStatement reads delimited statement text and stages one candidate
// row per data record. Unparsable rows are retained with IsValid=false so
// row counts stay stable for review. The only hard failures are an invalid
// mapping and an unreadable input stream.
func ParseStatement(r io.Reader, mapping ColumnMapping) ([]domain.StagedTransaction, error) {
	if err := mapping.Validate(); err != nil {
		return nil, err
	}

	reader := csv.NewReader(r)
	reader.Comma = mapping.delimiterRune()
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	var staged []domain.StagedTransaction
	rowIndex := 0
	first := true

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if first && mapping.HasHeader {
			first = false
			if err == nil {
				continue
			}
			// A header row that fails to parse still consumes the
			// header slot; fall through and stage it as an error row.
		}
		first = false

		row := domain.StagedTransaction{
			RowIndex: rowIndex,
			Raw:      record,
			IsValid:  true,
		}
		rowIndex++

		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				row.AddError(fmt.Sprintf("malformed CSV row: %v", parseErr.Err))
				staged = append(staged, row)
				continue
			}
			return staged, fmt.Errorf("failed to read statement: %w", err)
		}

		parseRow(&row, record, mapping)
		staged = append(staged, row)
	}

	return staged, nil
}

// parseRow fills the derived fields of one staged row, collecting errors
// instead of returning them.
func parseRow(row *domain.StagedTransaction, record []string, mapping ColumnMapping) {
	if date, ok := parseDate(row, record, mapping); ok {
		row.Date = date
	}
	if amount, ok := parseAmount(row, record, mapping); ok {
		row.Amount = amount
	}

	if desc, ok := field(record, mapping.DescriptionColumn); !ok {
		row.AddError(fmt.Sprintf("row has no column %d for description", mapping.DescriptionColumn))
	} else {
		row.Description = SanitizeText(desc)
		if row.Description == "" {
			row.AddError("description is empty")
		}
	}

	if mapping.PayeeColumn != nil {
		if payee, ok := field(record, *mapping.PayeeColumn); ok {
			row.Payee = SanitizeText(payee)
		}
	}
}

func parseDate(row *domain.StagedTransaction, record []string, mapping ColumnMapping) (time.Time, bool) {
	raw, ok := field(record, mapping.DateColumn)
	if !ok {
		row.AddError(fmt.Sprintf("row has no column %d for date", mapping.DateColumn))
		return time.Time{}, false
	}

	date, err := time.Parse(mapping.DateFormat, strings.TrimSpace(raw))
	if err != nil {
		row.AddError(fmt.Sprintf("invalid date %q for format %q", raw, mapping.DateFormat))
		return time.Time{}, false
	}

	if date.Before(minStagingDate) || !date.Before(maxStagingDate) {
		row.AddError(fmt.Sprintf("date %s out of range", date.Format(domain.DateFormat)))
		return time.Time{}, false
	}

	return date, true
}

func parseAmount(row *domain.StagedTransaction, record []string, mapping ColumnMapping) (money.Money, bool) {
	var amount money.Money

	if mapping.AmountColumn != nil {
		raw, ok := field(record, *mapping.AmountColumn)
		if !ok {
			row.AddError(fmt.Sprintf("row has no column %d for amount", *mapping.AmountColumn))
			return 0, false
		}
		parsed, err := money.Parse(raw)
		if err != nil {
			row.AddError(fmt.Sprintf("invalid amount %q", raw))
			return 0, false
		}
		amount = parsed
	} else {
		debitRaw, _ := field(record, *mapping.DebitColumn)
		creditRaw, _ := field(record, *mapping.CreditColumn)
		debitRaw = strings.TrimSpace(debitRaw)
		creditRaw = strings.TrimSpace(creditRaw)

		switch {
		case debitRaw == "" && creditRaw == "":
			row.AddError("row has neither a debit nor a credit amount")
			return 0, false
		case debitRaw != "" && creditRaw != "":
			row.AddError("row has both a debit and a credit amount")
			return 0, false
		case debitRaw != "":
			parsed, err := money.Parse(debitRaw)
			if err != nil {
				row.AddError(fmt.Sprintf("invalid debit amount %q", debitRaw))
				return 0, false
			}
			if parsed < 0 {
				parsed = parsed.Neg()
			}
			amount = parsed.Neg() // debit = money out
		default:
			parsed, err := money.Parse(creditRaw)
			if err != nil {
				row.AddError(fmt.Sprintf("invalid credit amount %q", creditRaw))
				return 0, false
			}
			if parsed < 0 {
				parsed = parsed.Neg()
			}
			amount = parsed
		}
	}

	if mapping.NegateAmounts {
		amount = amount.Neg()
	}

	return amount, true
}

// field returns record[i] when the row is wide enough.
func field(record []string, i int) (string, bool) {
	if i < 0 || i >= len(record) {
		return "", false
	}
	return record[i], true
}

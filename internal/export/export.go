// Package export renders ledger transactions as CSV for spreadsheet
// tools. Output is UTF-8 with a leading byte-order mark, and amounts are
// decimal strings rather than integer cents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/clearbooks/clearbooks/internal/domain"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

var header = []string{"Date", "Payee", "Description", "Category", "Memo", "Amount", "Reconciled"}

// WriteTransactions writes the rows as BOM-prefixed CSV. Split
// transactions emit one row per line, each carrying the line amount, so
// the amount column always sums to the ledger total.
func WriteTransactions(w io.Writer, txns []domain.Transaction) error {
	if _, err := w.Write(bom); err != nil {
		return fmt.Errorf("failed to write byte-order mark: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i := range txns {
		txn := &txns[i]
		for _, line := range txn.EffectiveLines() {
			record := []string{
				txn.Date.Format(domain.DateFormat),
				txn.Payee,
				txn.Description,
				line.CategoryID,
				line.Memo,
				line.Amount.String(),
				reconciledMark(txn.Reconciled),
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("failed to write transaction %s: %w", txn.ID, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush csv output: %w", err)
	}
	return nil
}

// WriteFile exports the rows to a file at path.
func WriteFile(path string, txns []domain.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}

	if err := WriteTransactions(f, txns); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func reconciledMark(reconciled bool) string {
	if reconciled {
		return "yes"
	}
	return ""
}

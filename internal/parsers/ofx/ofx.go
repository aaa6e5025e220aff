// Package ofx stages OFX/QFX statement downloads. Banks that offer OFX
// give us typed fields instead of a column-mapped CSV, so staging needs
// no mapping: rows come out ready for duplicate detection.
package ofx

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/aclindsa/ofxgo"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
	"github.com/clearbooks/clearbooks/internal/staging"
)

// Stager parses OFX/QFX statements into staged rows. Stateless and safe
// for concurrent use.
type Stager struct{}

var stagerInstance = &Stager{}

// NewStager returns the shared OFX stager instance.
func NewStager() *Stager {
	return stagerInstance
}

// Name returns the stager identifier.
func (s *Stager) Name() string {
	return "ofx"
}

// CanParse reports whether the file looks like an OFX/QFX statement,
// judged by extension and header markers for both the SGML and XML forms.
func (s *Stager) CanParse(path string, header []byte) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".ofx" && ext != ".qfx" {
		return false
	}

	headerUpper := strings.ToUpper(string(header))
	return strings.Contains(headerUpper, "OFXHEADER") ||
		strings.Contains(headerUpper, "<?OFX") ||
		strings.Contains(headerUpper, "<OFX>")
}

// Stage parses the statement into staged rows. A document that cannot be
// parsed at all is an error; individual rows with missing fields are
// retained as invalid rows, matching how CSV staging reports them.
func (s *Stager) Stage(r io.Reader) ([]domain.StagedTransaction, error) {
	response, err := ofxgo.ParseResponse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX statement: %w", err)
	}

	tranList, err := transactionList(response)
	if err != nil {
		return nil, err
	}

	staged := make([]domain.StagedTransaction, 0, len(tranList.Transactions))
	for i, txn := range tranList.Transactions {
		staged = append(staged, stageTransaction(i, txn))
	}
	return staged, nil
}

// transactionList locates the statement's transactions, preferring bank
// statements over credit card ones when a response carries both.
func transactionList(resp *ofxgo.Response) (*ofxgo.TransactionList, error) {
	if len(resp.Bank) > 0 {
		stmt, ok := resp.Bank[0].(*ofxgo.StatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected bank statement type %T", resp.Bank[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("bank statement has no transaction list")
		}
		return stmt.BankTranList, nil
	}

	if len(resp.CreditCard) > 0 {
		stmt, ok := resp.CreditCard[0].(*ofxgo.CCStatementResponse)
		if !ok {
			return nil, fmt.Errorf("unexpected credit card statement type %T", resp.CreditCard[0])
		}
		if stmt.BankTranList == nil {
			return nil, fmt.Errorf("credit card statement has no transaction list")
		}
		return stmt.BankTranList, nil
	}

	return nil, fmt.Errorf("no bank or credit card statement in OFX response")
}

func stageTransaction(index int, txn ofxgo.Transaction) domain.StagedTransaction {
	row := domain.StagedTransaction{
		RowIndex: index,
		Raw:      []string{txn.FiTID.String(), txn.TrnAmt.String(), txn.Name.String(), txn.Memo.String()},
		IsValid:  true,
	}

	date := txn.DtPosted.Time
	if date.IsZero() && txn.DtUser != nil {
		date = txn.DtUser.Time
	}
	if date.IsZero() {
		row.AddError("missing posted date")
	} else {
		// Day precision; OFX timestamps carry bank-local times that must
		// not shift the booking date.
		row.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	}

	amount, err := money.Parse(txn.TrnAmt.String())
	if err != nil {
		row.AddError(fmt.Sprintf("unparseable amount %q", txn.TrnAmt.String()))
	} else {
		row.Amount = amount
	}

	description := staging.SanitizeText(txn.Name.String())
	if description == "" {
		description = staging.SanitizeText(txn.Memo.String())
	}
	if description == "" {
		row.AddError("missing name and memo")
	}
	row.Description = description
	row.Payee = staging.SanitizeText(txn.Name.String())

	return row
}

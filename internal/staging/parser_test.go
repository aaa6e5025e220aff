package staging

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
)

func intp(i int) *int { return &i }

func basicMapping() ColumnMapping {
	return ColumnMapping{
		HasHeader:         true,
		DateColumn:        0,
		DateFormat:        "01/02/2006",
		DescriptionColumn: 1,
		AmountColumn:      intp(2),
	}
}

func TestParseStatement_Basic(t *testing.T) {
	input := "Date,Description,Amount\n" +
		"03/15/2025,WHOLE FOODS MARKET,-52.18\n" +
		"03/16/2025,\"ACME, INC PAYROLL\",\"2,400.00\"\n" +
		"03/17/2025,COFFEE SHOP,($4.75)\n"

	rows, err := ParseStatement(strings.NewReader(input), basicMapping())
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}

	if len(rows) != 3 {
		t.Fatalf("staged %d rows, want 3", len(rows))
	}

	for i, row := range rows {
		if !row.IsValid {
			t.Errorf("row %d invalid: %v", i, row.Errors)
		}
		if row.RowIndex != i {
			t.Errorf("row %d has RowIndex %d", i, row.RowIndex)
		}
	}

	if got := rows[0].Amount.Cents(); got != -5218 {
		t.Errorf("row 0 amount = %d cents, want -5218", got)
	}
	if got := rows[1].Amount.Cents(); got != 240000 {
		t.Errorf("row 1 amount (quoted, thousands separator) = %d cents, want 240000", got)
	}
	if got := rows[2].Amount.Cents(); got != -475 {
		t.Errorf("row 2 amount (parentheses) = %d cents, want -475", got)
	}

	if rows[1].Description != "ACME, INC PAYROLL" {
		t.Errorf("row 1 description = %q, embedded delimiter mishandled", rows[1].Description)
	}

	want := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	if !rows[0].Date.Equal(want) {
		t.Errorf("row 0 date = %s, want %s", rows[0].Date, want)
	}
}

func TestParseStatement_InvalidRowsRetained(t *testing.T) {
	input := "Date,Description,Amount\n" +
		"03/15/2025,GOOD ROW,-10.00\n" +
		"not-a-date,BAD DATE,-10.00\n" +
		"03/17/2025,BAD AMOUNT,abc\n" +
		"03/18/2025,,-5.00\n"

	rows, err := ParseStatement(strings.NewReader(input), basicMapping())
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}

	// Row counts must be stable for review: bad rows stay in the list.
	if len(rows) != 4 {
		t.Fatalf("staged %d rows, want 4", len(rows))
	}

	if !rows[0].IsValid {
		t.Errorf("row 0 should be valid, errors: %v", rows[0].Errors)
	}
	for i, wantErr := range map[int]string{1: "invalid date", 2: "invalid amount", 3: "description is empty"} {
		row := rows[i]
		if row.IsValid {
			t.Errorf("row %d should be invalid", i)
			continue
		}
		if len(row.Errors) == 0 || !strings.Contains(row.Errors[0], wantErr) {
			t.Errorf("row %d errors = %v, want message containing %q", i, row.Errors, wantErr)
		}
	}
}

func TestParseStatement_DebitCreditColumns(t *testing.T) {
	mapping := ColumnMapping{
		HasHeader:         true,
		DateColumn:        0,
		DateFormat:        "2006-01-02",
		DescriptionColumn: 1,
		DebitColumn:       intp(2),
		CreditColumn:      intp(3),
	}

	input := "Date,Description,Debit,Credit\n" +
		"2025-03-01,GROCERIES,45.00,\n" +
		"2025-03-02,PAYCHECK,,1500.00\n" +
		"2025-03-03,NEITHER,,\n" +
		"2025-03-04,BOTH,1.00,2.00\n"

	rows, err := ParseStatement(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("staged %d rows, want 4", len(rows))
	}

	if got := rows[0].Amount.Cents(); got != -4500 {
		t.Errorf("debit row amount = %d, want -4500", got)
	}
	if got := rows[1].Amount.Cents(); got != 150000 {
		t.Errorf("credit row amount = %d, want 150000", got)
	}
	if rows[2].IsValid {
		t.Error("row with neither debit nor credit should be invalid")
	}
	if rows[3].IsValid {
		t.Error("row with both debit and credit should be invalid")
	}
}

func TestParseStatement_NegateAmounts(t *testing.T) {
	mapping := basicMapping()
	mapping.NegateAmounts = true

	input := "Date,Description,Amount\n03/15/2025,CARD CHARGE,52.18\n"
	rows, err := ParseStatement(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if got := rows[0].Amount.Cents(); got != -5218 {
		t.Errorf("negated amount = %d, want -5218", got)
	}
}

func TestParseStatement_SemicolonDelimiterAndPayee(t *testing.T) {
	mapping := ColumnMapping{
		Delimiter:         ";",
		DateColumn:        0,
		DateFormat:        "02.01.2006",
		DescriptionColumn: 1,
		PayeeColumn:       intp(2),
		AmountColumn:      intp(3),
	}

	input := "15.03.2025;REWE SAGT DANKE;REWE;-23.99\n"
	rows, err := ParseStatement(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("staged %d rows, want 1", len(rows))
	}
	if rows[0].Payee != "REWE" {
		t.Errorf("payee = %q, want REWE", rows[0].Payee)
	}
}

func TestParseStatement_OutOfRangeDate(t *testing.T) {
	input := "01/01/1850,ANCIENT,-1.00\n"
	mapping := basicMapping()
	mapping.HasHeader = false

	rows, err := ParseStatement(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if rows[0].IsValid {
		t.Error("row with 1850 date should be flagged out of range")
	}
}

func TestParseStatement_ShortRow(t *testing.T) {
	input := "03/15/2025,ONLY TWO FIELDS\n"
	mapping := basicMapping()
	mapping.HasHeader = false

	rows, err := ParseStatement(strings.NewReader(input), mapping)
	if err != nil {
		t.Fatalf("ParseStatement() error = %v", err)
	}
	if rows[0].IsValid {
		t.Error("short row should be invalid")
	}
	if len(rows[0].Raw) != 2 {
		t.Errorf("raw fields = %d, want 2 (raw row preserved)", len(rows[0].Raw))
	}
}

func TestParseStatement_MappingErrors(t *testing.T) {
	tests := []struct {
		name    string
		mapping ColumnMapping
	}{
		{
			name:    "no amount source",
			mapping: ColumnMapping{DateColumn: 0, DateFormat: "2006-01-02", DescriptionColumn: 1},
		},
		{
			name: "ambiguous amount sources",
			mapping: ColumnMapping{
				DateColumn: 0, DateFormat: "2006-01-02", DescriptionColumn: 1,
				AmountColumn: intp(2), DebitColumn: intp(3), CreditColumn: intp(4),
			},
		},
		{
			name: "debit without credit",
			mapping: ColumnMapping{
				DateColumn: 0, DateFormat: "2006-01-02", DescriptionColumn: 1,
				DebitColumn: intp(2),
			},
		},
		{
			name:    "missing date format",
			mapping: ColumnMapping{DateColumn: 0, DescriptionColumn: 1, AmountColumn: intp(2)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStatement(strings.NewReader("a,b,c\n"), tt.mapping)
			if err == nil {
				t.Fatal("expected mapping error, got nil")
			}
			var mappingErr *domain.MappingError
			if !errors.As(err, &mappingErr) {
				t.Errorf("error %T is not a MappingError", err)
			}
		})
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trim", "  CARD PAYMENT  ", "CARD PAYMENT"},
		{"collapse whitespace", "POS   PURCHASE\t\tSTORE", "POS PURCHASE STORE"},
		{"strip control chars", "ACH\x00 TRANSFER\x07", "ACH TRANSFER"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeText_CapsLength(t *testing.T) {
	long := strings.Repeat("x", 1000)
	if got := SanitizeText(long); len(got) != maxTextLength {
		t.Errorf("len = %d, want %d", len(got), maxTextLength)
	}
}

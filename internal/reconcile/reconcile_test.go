package reconcile

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
	"github.com/clearbooks/clearbooks/internal/store"
	"github.com/clearbooks/clearbooks/internal/taxlock"
)

func testAccount(openingCents int64) *domain.Account {
	return &domain.Account{
		ID:             "acct-1",
		Name:           "Checking",
		OpeningBalance: money.FromCents(openingCents),
	}
}

func candidate(id, dateStr string, cents int64) domain.Transaction {
	date, err := time.Parse(domain.DateFormat, dateStr)
	if err != nil {
		panic(err)
	}
	return domain.Transaction{
		ID:        id,
		AccountID: "acct-1",
		Date:      date,
		Amount:    money.FromCents(cents),
	}
}

func inProgress(t *testing.T, acct *domain.Account, endingCents int64, candidates ...domain.Transaction) *Session {
	t.Helper()
	s := NewSession(acct)
	stmtDate, _ := time.Parse(domain.DateFormat, "2025-03-31")
	if err := s.Begin(stmtDate, money.FromCents(endingCents), candidates); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	return s
}

func TestOpeningBalance(t *testing.T) {
	acct := testAccount(10000)
	s := NewSession(acct)
	if got := s.OpeningBalance().Cents(); got != 10000 {
		t.Errorf("OpeningBalance() = %d, want the account opening balance", got)
	}

	// A prior checkpoint takes over from the opening balance.
	checkpoint := money.FromCents(7500)
	acct.LastReconciledBalance = &checkpoint
	if got := s.OpeningBalance().Cents(); got != 7500 {
		t.Errorf("OpeningBalance() = %d, want the checkpoint", got)
	}
}

func TestBalanceRecompute(t *testing.T) {
	s := inProgress(t, testAccount(10000), 7500,
		candidate("t-1", "2025-03-10", -1500),
		candidate("t-2", "2025-03-15", -1000),
		candidate("t-3", "2025-03-20", -9999),
	)

	if got := s.ClearedBalance().Cents(); got != 10000 {
		t.Fatalf("ClearedBalance() with nothing selected = %d, want opening", got)
	}
	if got := s.Difference().Cents(); got != -2500 {
		t.Fatalf("Difference() = %d, want -2500", got)
	}

	// Select, deselect, reselect: the balance is always recomputed from
	// the selection, never drifted by the toggles themselves.
	for _, id := range []string{"t-1", "t-2", "t-1", "t-1"} {
		if err := s.Toggle(id); err != nil {
			t.Fatalf("Toggle(%s) error = %v", id, err)
		}
	}
	if got := s.ClearedBalance().Cents(); got != 7500 {
		t.Fatalf("ClearedBalance() = %d, want 7500", got)
	}
	if !s.Balanced() {
		t.Fatal("Balanced() = false, want true at zero difference")
	}

	got := s.SelectedIDs()
	if len(got) != 2 || got[0] != "t-1" || got[1] != "t-2" {
		t.Errorf("SelectedIDs() = %v, want [t-1 t-2]", got)
	}
}

func TestBeginRejectsBadCandidates(t *testing.T) {
	stmtDate, _ := time.Parse(domain.DateFormat, "2025-03-31")

	tests := []struct {
		name string
		txn  domain.Transaction
	}{
		{"wrong account", func() domain.Transaction {
			c := candidate("t-1", "2025-03-10", -100)
			c.AccountID = "other"
			return c
		}()},
		{"already reconciled", func() domain.Transaction {
			c := candidate("t-1", "2025-03-10", -100)
			c.Reconciled = true
			return c
		}()},
		{"archived", func() domain.Transaction {
			c := candidate("t-1", "2025-03-10", -100)
			c.IsArchived = true
			return c
		}()},
		{"after statement date", candidate("t-1", "2025-04-01", -100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession(testAccount(0))
			err := s.Begin(stmtDate, money.FromCents(0), []domain.Transaction{tt.txn})
			if err == nil {
				t.Fatal("Begin() should reject the candidate")
			}
			if got := s.State(); got != StateSetup {
				t.Errorf("state = %s, want to remain %s", got, StateSetup)
			}
		})
	}
}

func TestToggleUnknownCandidate(t *testing.T) {
	s := inProgress(t, testAccount(0), 0, candidate("t-1", "2025-03-10", -100))
	if err := s.Toggle("missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Toggle(missing) error = %v, want ErrNotFound", err)
	}
}

func TestFinalizeRefusesImbalance(t *testing.T) {
	s := inProgress(t, testAccount(10000), 7500,
		candidate("t-1", "2025-03-10", -1500),
	)
	if err := s.Toggle("t-1"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	err := s.Finalize(context.Background(), nil, taxlock.Open, "user-1")
	var imbalance *domain.ImbalanceError
	if !errors.As(err, &imbalance) {
		t.Fatalf("Finalize() error = %v, want ImbalanceError", err)
	}
	if got := imbalance.Difference.Cents(); got != -1000 {
		t.Errorf("Difference = %d, want -1000", got)
	}
	if got := s.State(); got != StateInProgress {
		t.Errorf("state = %s, want to remain %s", got, StateInProgress)
	}
}

func TestFinalizeRefusesLockedYear(t *testing.T) {
	ctx := context.Background()
	ledger, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer ledger.Close()

	acct := testAccount(0)
	if err := ledger.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	// Imported before the lock was raised.
	batch := &domain.ImportBatch{ID: "b-1", FileName: "2022.csv", ImportedAt: time.Now()}
	old := candidate("t-1", "2022-06-10", -100)
	old.SourceBatchID = "b-1"
	if err := ledger.CommitBatch(ctx, batch, []domain.Transaction{old}, taxlock.Open); err != nil {
		t.Fatalf("CommitBatch() error = %v", err)
	}

	stmtDate, _ := time.Parse(domain.DateFormat, "2022-12-31")
	s := NewSession(acct)
	if err := s.Begin(stmtDate, money.FromCents(-100), []domain.Transaction{old}); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.Toggle("t-1"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}

	err = s.Finalize(ctx, ledger, taxlock.New(2023), "user-1")
	var locked *domain.LockViolationError
	if !errors.As(err, &locked) {
		t.Fatalf("Finalize() error = %v, want LockViolationError", err)
	}
	if got := s.State(); got != StateInProgress {
		t.Errorf("state = %s, want to remain %s", got, StateInProgress)
	}

	txn, err := ledger.GetTransaction(ctx, "t-1")
	if err != nil {
		t.Fatalf("GetTransaction() error = %v", err)
	}
	if txn.Reconciled {
		t.Error("locked-year transaction must not be marked reconciled")
	}
}

func TestFinalizeChainsCheckpoint(t *testing.T) {
	ctx := context.Background()
	ledger, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	defer ledger.Close()

	acct := testAccount(10000)
	if err := ledger.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount() error = %v", err)
	}

	batch := &domain.ImportBatch{ID: "b-1", FileName: "march.csv", ImportedAt: time.Now()}
	txns := []domain.Transaction{
		candidate("t-1", "2025-03-10", -1500),
		candidate("t-2", "2025-03-15", -1000),
		candidate("t-3", "2025-04-10", -4200),
	}
	for i := range txns {
		txns[i].SourceBatchID = "b-1"
	}
	if err := ledger.CommitBatch(ctx, batch, txns, taxlock.Open); err != nil {
		t.Fatalf("CommitBatch() error = %v", err)
	}

	// March: opening 100.00, two cleared rows, statement 75.00.
	stmtDate, _ := time.Parse(domain.DateFormat, "2025-03-31")
	candidates, err := ledger.ListUnreconciled(ctx, "acct-1", stmtDate)
	if err != nil {
		t.Fatalf("ListUnreconciled() error = %v", err)
	}
	if len(candidates) != 2 {
		t.Fatalf("candidate set has %d rows, want 2", len(candidates))
	}

	s := NewSession(acct)
	if err := s.Begin(stmtDate, money.FromCents(7500), candidates); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := s.SelectAll(); err != nil {
		t.Fatalf("SelectAll() error = %v", err)
	}
	if err := s.Finalize(ctx, ledger, taxlock.Open, "user-1"); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if got := s.State(); got != StateFinalized {
		t.Fatalf("state = %s, want %s", got, StateFinalized)
	}

	// Nothing works on a finalized session.
	if err := s.Toggle("t-1"); err == nil {
		t.Error("Toggle() after finalize should fail")
	}
	if err := s.Finalize(ctx, ledger, taxlock.Open, "user-1"); err == nil {
		t.Error("second Finalize() should fail")
	}

	// April: the next session opens from the March checkpoint, with only
	// the remaining row as a candidate.
	reloaded, err := ledger.GetAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("GetAccount() error = %v", err)
	}
	aprilDate, _ := time.Parse(domain.DateFormat, "2025-04-30")
	candidates, err = ledger.ListUnreconciled(ctx, "acct-1", aprilDate)
	if err != nil {
		t.Fatalf("ListUnreconciled() error = %v", err)
	}
	if len(candidates) != 1 || candidates[0].ID != "t-3" {
		t.Fatalf("April candidates = %v, want only t-3", candidates)
	}

	april := NewSession(reloaded)
	if got := april.OpeningBalance().Cents(); got != 7500 {
		t.Fatalf("April opening = %d, want the March checkpoint 7500", got)
	}
	if err := april.Begin(aprilDate, money.FromCents(3300), candidates); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := april.Toggle("t-3"); err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if !april.Balanced() {
		t.Fatalf("April session should balance: difference = %s", april.Difference())
	}
	if err := april.Finalize(ctx, ledger, taxlock.Open, "user-1"); err != nil {
		t.Fatalf("April Finalize() error = %v", err)
	}
}

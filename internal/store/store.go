// Package store persists the ledger in SQLite. All mutation paths that
// the import and reconciliation flows depend on (batch commit, batch undo,
// reconciliation finalize) are single SQL transactions: no reader ever
// observes a half-committed batch or a half-finalized reconciliation.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/money"
)

// Store wraps the SQLite ledger database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the ledger database at path and
// initializes the schema. Use ":memory:" for an ephemeral store.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger database: %w", err)
	}

	// modernc/sqlite serializes writes per connection; a single connection
	// avoids SQLITE_BUSY between the commit/undo/finalize transactions.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			opening_balance INTEGER NOT NULL DEFAULT 0,
			last_reconciled_balance INTEGER,
			last_reconciled_date TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS import_batches (
			id TEXT PRIMARY KEY,
			file_name TEXT NOT NULL,
			imported_at TEXT NOT NULL,
			imported_count INTEGER NOT NULL,
			is_undone INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			account_id TEXT NOT NULL REFERENCES accounts(id),
			date TEXT NOT NULL,
			amount INTEGER NOT NULL,
			payee TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			is_split INTEGER NOT NULL DEFAULT 0,
			is_reviewed INTEGER NOT NULL DEFAULT 0,
			reconciled INTEGER NOT NULL DEFAULT 0,
			source_batch_id TEXT REFERENCES import_batches(id),
			is_archived INTEGER NOT NULL DEFAULT 0,
			last_modified_by TEXT NOT NULL DEFAULT ''
		)`,
		// Duplicate detection reads by (account, amount); undo reads by batch.
		`CREATE INDEX IF NOT EXISTS idx_transactions_account_amount
			ON transactions(account_id, amount)`,
		`CREATE INDEX IF NOT EXISTS idx_transactions_batch
			ON transactions(source_batch_id)`,
		`CREATE TABLE IF NOT EXISTS split_lines (
			transaction_id TEXT NOT NULL REFERENCES transactions(id),
			line_index INTEGER NOT NULL,
			category_id TEXT NOT NULL DEFAULT '',
			amount INTEGER NOT NULL,
			memo TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (transaction_id, line_index)
		)`,
		`CREATE TABLE IF NOT EXISTS rules (
			id TEXT PRIMARY KEY,
			priority INTEGER NOT NULL,
			keyword TEXT NOT NULL,
			match_type TEXT NOT NULL,
			case_sensitive INTEGER NOT NULL DEFAULT 0,
			category_id TEXT NOT NULL,
			payee TEXT NOT NULL DEFAULT '',
			enabled INTEGER NOT NULL DEFAULT 1,
			use_count INTEGER NOT NULL DEFAULT 0,
			last_used_at TEXT
		)`,
	}

	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CreateAccount inserts a new account. A duplicate id reports
// domain.ErrAlreadyExists.
func (s *Store) CreateAccount(ctx context.Context, acct *domain.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, opening_balance, last_reconciled_balance, last_reconciled_date)
		VALUES (?, ?, ?, ?, ?)
	`, acct.ID, acct.Name, acct.OpeningBalance.Cents(), nullCents(acct.LastReconciledBalance), nullDate(acct.LastReconciledDate))
	if isConstraintError(err) {
		return fmt.Errorf("account %s: %w", acct.ID, domain.ErrAlreadyExists)
	}
	if err != nil {
		return fmt.Errorf("failed to create account %s: %w", acct.ID, err)
	}
	return nil
}

// isConstraintError reports whether err is a SQLite constraint violation,
// matching extended result codes like SQLITE_CONSTRAINT_PRIMARYKEY too.
func isConstraintError(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// GetAccount loads one account, or domain.ErrNotFound.
func (s *Store) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, opening_balance, last_reconciled_balance, last_reconciled_date
		FROM accounts WHERE id = ?
	`, id)
	return scanAccount(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		acct    domain.Account
		opening int64
		balance sql.NullInt64
		date    sql.NullString
	)
	err := row.Scan(&acct.ID, &acct.Name, &opening, &balance, &date)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("account: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	acct.OpeningBalance = money.FromCents(opening)
	if balance.Valid {
		b := money.FromCents(balance.Int64)
		acct.LastReconciledBalance = &b
	}
	if date.Valid {
		d, err := time.Parse(domain.DateFormat, date.String)
		if err != nil {
			return nil, fmt.Errorf("corrupt last_reconciled_date %q: %w", date.String, err)
		}
		acct.LastReconciledDate = &d
	}

	return &acct, nil
}

func nullCents(m *money.Money) any {
	if m == nil {
		return nil
	}
	return m.Cents()
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(domain.DateFormat)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/rules"
)

// BatchStore is the slice of the ledger store the committer writes through.
type BatchStore interface {
	CommitBatch(ctx context.Context, batch *domain.ImportBatch, txns []domain.Transaction, lock domain.DateLock) error
}

// Committer converts a session's accepted rows into one committed
// ImportBatch. Rule matching here is informational: suggestions ride along
// in the result and fill an empty payee, but a rule failure never blocks
// the commit, and usage telemetry is recorded only after the batch lands.
type Committer struct {
	store    BatchStore
	engine   *rules.Engine
	recorder *rules.Recorder
	lock     domain.DateLock
	actor    string

	now   func() time.Time
	newID func() string
}

// NewCommitter wires a committer. engine and recorder may be nil to skip
// rule application; lock may be nil when no tax-year policy applies.
func NewCommitter(store BatchStore, engine *rules.Engine, recorder *rules.Recorder, lock domain.DateLock, actor string) *Committer {
	return &Committer{
		store:    store,
		engine:   engine,
		recorder: recorder,
		lock:     lock,
		actor:    actor,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Result summarizes one committed batch. Suggestions is index-aligned
// with the committed transactions; nil entries mean no rule matched.
type Result struct {
	Batch        *domain.ImportBatch
	Transactions []domain.Transaction
	Suggestions  []*rules.MatchResult
	RuleSummary  rules.Summary
}

// Commit atomically imports the session's accepted rows as one batch.
// The session must be in the importing state; on success it completes,
// on failure it moves to the error state with the cause.
func (c *Committer) Commit(ctx context.Context, session *Session) (*Result, error) {
	accepted := session.Accepted()

	if err := session.BeginImport(); err != nil {
		return nil, err
	}

	res, err := c.commitRows(ctx, session.FileName(), session.AccountID(), accepted)
	if err != nil {
		session.Fail(err)
		return nil, err
	}

	if err := session.Complete(); err != nil {
		return nil, err
	}
	return res, nil
}

// CommitRows imports pre-validated staged rows directly, outside a
// session. Invalid rows are rejected up front: the session review flow
// filters them, direct callers must too.
func (c *Committer) CommitRows(ctx context.Context, fileName, accountID string, rows []domain.StagedTransaction) (*Result, error) {
	for _, row := range rows {
		if !row.IsValid {
			return nil, fmt.Errorf("row %d is invalid and cannot be imported: %v", row.RowIndex, row.Errors)
		}
	}
	return c.commitRows(ctx, fileName, accountID, rows)
}

func (c *Committer) commitRows(ctx context.Context, fileName, accountID string, rows []domain.StagedTransaction) (*Result, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("nothing to import")
	}

	batch := &domain.ImportBatch{
		ID:         c.newID(),
		FileName:   fileName,
		ImportedAt: c.now().UTC(),
	}

	suggestions := make([]*rules.MatchResult, len(rows))
	var summary rules.Summary
	if c.engine != nil {
		descriptions := make([]string, len(rows))
		for i, row := range rows {
			descriptions[i] = row.Description
		}
		suggestions, summary = c.engine.Apply(descriptions)
	}

	txns := make([]domain.Transaction, 0, len(rows))
	for i, row := range rows {
		payee := row.Payee
		if payee == "" && suggestions[i] != nil {
			payee = suggestions[i].Payee
		}

		txn, err := domain.NewTransaction(c.newID(), accountID, row.Date, row.Amount, payee, row.Description)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row.RowIndex, err)
		}
		txn.SourceBatchID = batch.ID
		txn.LastModifiedBy = c.actor
		txns = append(txns, *txn)
	}

	if err := c.store.CommitBatch(ctx, batch, txns, c.lock); err != nil {
		return nil, err
	}

	// Usage telemetry only after the batch is durable; a dropped write is
	// absorbed by the recorder.
	if c.recorder != nil {
		at := c.now().UTC()
		for _, match := range suggestions {
			if match != nil {
				c.recorder.Record(ctx, match.RuleID, at)
			}
		}
	}

	return &Result{
		Batch:        batch,
		Transactions: txns,
		Suggestions:  suggestions,
		RuleSummary:  summary,
	}, nil
}

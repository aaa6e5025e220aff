// Package importer drives a statement import from upload through atomic
// commit. A Session is the explicit state machine behind the flow; the
// Committer turns the session's accepted rows into one ledger batch.
package importer

import (
	"bytes"
	"fmt"

	"github.com/clearbooks/clearbooks/internal/dedup"
	"github.com/clearbooks/clearbooks/internal/domain"
	"github.com/clearbooks/clearbooks/internal/staging"
)

// State is one phase of an import session.
type State string

const (
	// StateUpload awaits the statement file.
	StateUpload State = "upload"
	// StateMapping awaits a column mapping for the uploaded file.
	StateMapping State = "mapping"
	// StateReview holds staged, classified rows awaiting user decisions.
	StateReview State = "review"
	// StateImporting means a commit is in flight.
	StateImporting State = "importing"
	// StateComplete is terminal: the batch committed.
	StateComplete State = "complete"
	// StateError is terminal: the session failed and holds the cause.
	StateError State = "error"
)

// Session is a single import flow. Transitions are strictly ordered;
// calling an operation out of phase is a programming error reported as a
// normal error, never a panic. Staged rows live only in the session and
// are discarded when it ends.
type Session struct {
	state     State
	accountID string
	fileName  string

	staged  []domain.StagedTransaction
	results []dedup.Result
	stats   dedup.Stats

	// keepFuzzy marks fuzzy-duplicate rows the user explicitly chose to
	// import anyway, keyed by staged row index.
	keepFuzzy map[int]bool

	err error
}

// NewSession starts an import for one account, in the upload state.
func NewSession(accountID string) *Session {
	return &Session{
		state:     StateUpload,
		accountID: accountID,
		keepFuzzy: make(map[int]bool),
	}
}

// State returns the session's current phase.
func (s *Session) State() State { return s.state }

// AccountID returns the target account.
func (s *Session) AccountID() string { return s.accountID }

// FileName returns the uploaded statement's name, empty before upload.
func (s *Session) FileName() string { return s.fileName }

// Err returns the failure cause when the session is in the error state.
func (s *Session) Err() error { return s.err }

// AttachFile records the uploaded statement and moves to mapping.
func (s *Session) AttachFile(fileName string) error {
	if s.state != StateUpload {
		return s.transitionError("attach file", StateUpload)
	}
	if fileName == "" {
		return fmt.Errorf("statement file name cannot be empty")
	}
	s.fileName = fileName
	s.state = StateMapping
	return nil
}

// Stage parses and classifies the statement in one step: the mapping
// produces staged rows, the detector classifies them against the existing
// ledger, and the session moves to review. A mapping failure keeps the
// session in mapping so the user can correct the columns and retry.
func (s *Session) Stage(staged []domain.StagedTransaction, detector *dedup.Detector, existing []domain.Transaction) error {
	if s.state != StateMapping {
		return s.transitionError("stage rows", StateMapping)
	}
	if detector == nil {
		detector = dedup.DefaultDetector()
	}

	s.staged = staged
	s.results, s.stats = detector.Classify(staged, existing)
	s.state = StateReview
	return nil
}

// StageFile is Stage for callers holding raw statement bytes: it runs
// the column mapping first and stays in mapping when the mapping is
// invalid.
func (s *Session) StageFile(data []byte, mapping staging.ColumnMapping, detector *dedup.Detector, existing []domain.Transaction) error {
	if s.state != StateMapping {
		return s.transitionError("stage file", StateMapping)
	}

	staged, err := staging.ParseStatement(bytes.NewReader(data), mapping)
	if err != nil {
		return err
	}
	return s.Stage(staged, detector, existing)
}

// Staged returns the session's staged rows for review.
func (s *Session) Staged() []domain.StagedTransaction { return s.staged }

// Results returns the per-row duplicate classifications, index-aligned
// with Staged.
func (s *Session) Results() []dedup.Result { return s.results }

// Stats returns the duplicate detection summary.
func (s *Session) Stats() dedup.Stats { return s.stats }

// KeepFuzzy marks a fuzzy-duplicate row for import anyway. Only fuzzy
// rows can be kept: new rows are already in, exact duplicates and error
// rows are never importable.
func (s *Session) KeepFuzzy(rowIndex int) error {
	if s.state != StateReview {
		return s.transitionError("keep row", StateReview)
	}
	for _, r := range s.results {
		if r.RowIndex != rowIndex {
			continue
		}
		if r.Class != dedup.ClassFuzzy {
			return fmt.Errorf("row %d is %s, only fuzzy duplicates can be kept", rowIndex, r.Class)
		}
		s.keepFuzzy[rowIndex] = true
		return nil
	}
	return fmt.Errorf("no staged row with index %d", rowIndex)
}

// DropFuzzy reverts a KeepFuzzy decision.
func (s *Session) DropFuzzy(rowIndex int) error {
	if s.state != StateReview {
		return s.transitionError("drop row", StateReview)
	}
	delete(s.keepFuzzy, rowIndex)
	return nil
}

// Accepted returns the rows a commit would import: every new row plus the
// fuzzy duplicates the user explicitly kept, in staged order. Exact
// duplicates and invalid rows are never included.
func (s *Session) Accepted() []domain.StagedTransaction {
	var out []domain.StagedTransaction
	for i, r := range s.results {
		switch r.Class {
		case dedup.ClassNew:
			out = append(out, s.staged[i])
		case dedup.ClassFuzzy:
			if s.keepFuzzy[r.RowIndex] {
				out = append(out, s.staged[i])
			}
		}
	}
	return out
}

// BeginImport moves from review to importing. Commit is only reachable
// through here, so detection always runs before any write.
func (s *Session) BeginImport() error {
	if s.state != StateReview {
		return s.transitionError("begin import", StateReview)
	}
	if len(s.Accepted()) == 0 {
		return fmt.Errorf("nothing to import: no new rows and no kept duplicates")
	}
	s.state = StateImporting
	return nil
}

// Complete marks the session finished after a successful commit. The
// staged set is dropped; the committed batch is the durable record.
func (s *Session) Complete() error {
	if s.state != StateImporting {
		return s.transitionError("complete", StateImporting)
	}
	s.staged = nil
	s.results = nil
	s.state = StateComplete
	return nil
}

// Fail moves the session to the terminal error state with the cause.
func (s *Session) Fail(err error) {
	s.err = err
	s.state = StateError
}

func (s *Session) transitionError(op string, want State) error {
	return fmt.Errorf("cannot %s in state %s (requires %s)", op, s.state, want)
}

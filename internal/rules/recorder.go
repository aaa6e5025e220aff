package rules

import (
	"context"
	"time"
)

// UsageStore persists rule usage telemetry.
type UsageStore interface {
	RecordRuleUse(ctx context.Context, ruleID string, at time.Time, actor string) error
}

// Recorder updates use_count and last_used_at after a rule fires. The
// update is best-effort telemetry, not load-bearing: a failed write is
// counted and swallowed so it cannot block or fail an import.
type Recorder struct {
	store UsageStore
	actor string

	failures int
}

// NewRecorder creates a usage recorder attributing updates to actor.
func NewRecorder(store UsageStore, actor string) *Recorder {
	return &Recorder{store: store, actor: actor}
}

// Record notes that a rule fired at the given time. Errors are absorbed.
func (r *Recorder) Record(ctx context.Context, ruleID string, at time.Time) {
	if r.store == nil || ruleID == "" {
		return
	}
	if err := r.store.RecordRuleUse(ctx, ruleID, at, r.actor); err != nil {
		r.failures++
	}
}

// Failures returns how many usage writes were dropped.
func (r *Recorder) Failures() int { return r.failures }

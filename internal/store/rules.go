package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/clearbooks/clearbooks/internal/domain"
)

// SaveRule inserts or replaces a categorization rule.
func (s *Store) SaveRule(ctx context.Context, rule *domain.Rule) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO rules
			(id, priority, keyword, match_type, case_sensitive, category_id, payee, enabled, use_count, last_used_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rule.ID, rule.Priority, rule.Keyword, string(rule.MatchType), boolInt(rule.CaseSensitive),
		rule.CategoryID, rule.Payee, boolInt(rule.Enabled), rule.UseCount, nullTimestamp(rule.LastUsedAt))
	if err != nil {
		return fmt.Errorf("failed to save rule %s: %w", rule.ID, err)
	}
	return nil
}

// ListRules returns all rules ordered by ascending priority.
func (s *Store) ListRules(ctx context.Context) ([]domain.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, priority, keyword, match_type, case_sensitive, category_id, payee, enabled, use_count, last_used_at
		FROM rules ORDER BY priority, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query rules: %w", err)
	}
	defer rows.Close()

	var out []domain.Rule
	for rows.Next() {
		var (
			r        domain.Rule
			mt       string
			lastUsed sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.Priority, &r.Keyword, &mt, &r.CaseSensitive,
			&r.CategoryID, &r.Payee, &r.Enabled, &r.UseCount, &lastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		r.MatchType = domain.MatchType(mt)
		if lastUsed.Valid {
			t, err := time.Parse(time.RFC3339, lastUsed.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt last_used_at %q: %w", lastUsed.String, err)
			}
			r.LastUsedAt = &t
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return out, nil
}

// RecordRuleUse increments a rule's use counter and stamps last_used_at.
// Implements rules.UsageStore; callers treat failures as best-effort.
// The actor is accepted for interface symmetry; attribution is carried on
// transaction rows, not rules.
func (s *Store) RecordRuleUse(ctx context.Context, ruleID string, at time.Time, _ string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rules SET use_count = use_count + 1, last_used_at = ? WHERE id = ?
	`, at.UTC().Format(time.RFC3339), ruleID)
	if err != nil {
		return fmt.Errorf("failed to record use of rule %s: %w", ruleID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("rule %s: %w", ruleID, domain.ErrNotFound)
	}
	return nil
}

func nullTimestamp(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

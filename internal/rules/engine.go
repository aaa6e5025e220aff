// Package rules evaluates ordered keyword rules against transaction
// descriptions to suggest a category and payee. Matching is pure;
// recording rule usage is a separate, best-effort side effect.
package rules

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/clearbooks/clearbooks/internal/domain"
)

//go:embed rules.yaml
var embeddedRules []byte

// MatchResult is the winning rule's suggestion for one description.
type MatchResult struct {
	RuleID     string
	CategoryID string
	Payee      string
}

// Summary counts what happened across one bulk application. RuleErrors
// counts rules that could not be evaluated; it is distinct from
// transaction-level errors and never aborts a batch.
type Summary struct {
	Evaluated  int
	Matched    int
	Unmatched  int
	RuleErrors int
}

// Engine holds enabled rules sorted by ascending priority. Rules that
// fail validation are kept aside and counted, never evaluated.
type Engine struct {
	rules   []domain.Rule
	skipped int
}

// NewEngine builds an engine from a rule set. Disabled rules are dropped;
// malformed rules are skipped and surface in every Summary rather than
// failing construction, so one bad rule cannot block imports.
func NewEngine(ruleSet []domain.Rule) *Engine {
	var usable []domain.Rule
	skipped := 0

	for _, r := range ruleSet {
		if !r.Enabled {
			continue
		}
		if err := r.Validate(); err != nil {
			skipped++
			continue
		}
		usable = append(usable, r)
	}

	// Ascending priority: lower value wins. SliceStable keeps the caller's
	// order for equal priorities so matching stays deterministic.
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Priority < usable[j].Priority
	})

	return &Engine{rules: usable, skipped: skipped}
}

// Len returns the number of evaluable rules.
func (e *Engine) Len() int { return len(e.rules) }

// SkippedRules returns the number of rules excluded as malformed.
func (e *Engine) SkippedRules() int { return e.skipped }

// Match returns the first rule matching the description, by ascending
// priority. Pure: no counters are touched. Returns (nil, false) when no
// rule matches.
func (e *Engine) Match(description string) (*MatchResult, bool) {
	trimmed := strings.TrimSpace(description)

	for i := range e.rules {
		rule := &e.rules[i]
		if matchRule(rule, trimmed) {
			return &MatchResult{
				RuleID:     rule.ID,
				CategoryID: rule.CategoryID,
				Payee:      rule.Payee,
			}, true
		}
	}

	return nil, false
}

// Apply matches every description and aggregates a summary. The per-row
// results slice is index-aligned with descriptions; nil means no match.
func (e *Engine) Apply(descriptions []string) ([]*MatchResult, Summary) {
	results := make([]*MatchResult, len(descriptions))
	summary := Summary{Evaluated: len(descriptions), RuleErrors: e.skipped}

	for i, desc := range descriptions {
		if res, ok := e.Match(desc); ok {
			results[i] = res
			summary.Matched++
		} else {
			summary.Unmatched++
		}
	}

	return results, summary
}

// matchRule applies one rule's match type and case sensitivity.
func matchRule(rule *domain.Rule, description string) bool {
	keyword := strings.TrimSpace(rule.Keyword)
	if !rule.CaseSensitive {
		keyword = strings.ToLower(keyword)
		description = strings.ToLower(description)
	}

	switch rule.MatchType {
	case domain.MatchContains:
		return strings.Contains(description, keyword)
	case domain.MatchExact:
		return description == keyword
	case domain.MatchStartsWith:
		return strings.HasPrefix(description, keyword)
	}
	return false
}

// ruleYAML is the file representation of one rule.
type ruleYAML struct {
	ID            string `yaml:"id"`
	Priority      int    `yaml:"priority"`
	Keyword       string `yaml:"keyword"`
	MatchType     string `yaml:"match_type"`
	CaseSensitive bool   `yaml:"case_sensitive"`
	Category      string `yaml:"category"`
	Payee         string `yaml:"payee"`
	Enabled       *bool  `yaml:"enabled"` // nil = enabled
}

// ruleSetYAML is the top-level YAML structure.
type ruleSetYAML struct {
	Rules []ruleYAML `yaml:"rules"`
}

// ParseRules parses a YAML rule set into domain rules. Structural YAML
// problems fail the parse; per-rule validity is the engine's concern.
func ParseRules(data []byte) ([]domain.Rule, error) {
	var file ruleSetYAML
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse rules YAML (check syntax, indentation, and field names): %w", err)
	}

	out := make([]domain.Rule, 0, len(file.Rules))
	for i, r := range file.Rules {
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("rule-%d", i)
		}
		enabled := r.Enabled == nil || *r.Enabled

		out = append(out, domain.Rule{
			ID:            id,
			Priority:      r.Priority,
			Keyword:       r.Keyword,
			MatchType:     domain.MatchType(r.MatchType),
			CaseSensitive: r.CaseSensitive,
			CategoryID:    r.Category,
			Payee:         r.Payee,
			Enabled:       enabled,
		})
	}

	return out, nil
}

// LoadEmbedded loads the built-in default rule set.
func LoadEmbedded() (*Engine, error) {
	ruleSet, err := ParseRules(embeddedRules)
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules (possible binary corruption): %w", err)
	}
	return NewEngine(ruleSet), nil
}

// LoadFromFile loads a rule set from a filesystem path.
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	ruleSet, err := ParseRules(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return NewEngine(ruleSet), nil
}

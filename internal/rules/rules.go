// Package rules evaluates a configurable, prioritized rule set against
// classified sections, emitting issues alongside the heuristic detectors.
package rules

import (
	"fmt"
	"regexp"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/detect"
)

// Type selects the detection strategy a rule runs. Each type reads its own
// parameter fields; Validate enforces the variant.
type Type string

const (
	// TypeMaxSectionTokens flags any section above MaxTokens.
	TypeMaxSectionTokens Type = "max-section-tokens"
	// TypeStaleSection flags sections whose newest embedded date is older
	// than MaxAgeDays.
	TypeStaleSection Type = "stale-section"
	// TypePatternMatch flags sections whose body matches Pattern.
	TypePatternMatch Type = "pattern-match"
	// TypeCategoryBudget flags the largest section of a category once the
	// category's total tokens exceed BudgetTokens.
	TypeCategoryBudget Type = "category-budget"
)

// Params carries the per-type parameters. Only the fields for the rule's
// Type are consulted.
type Params struct {
	MaxTokens    int     `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	MaxAgeDays   int     `yaml:"max_age_days,omitempty" json:"max_age_days,omitempty"`
	Pattern      string  `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Category     string  `yaml:"category,omitempty" json:"category,omitempty"`
	BudgetTokens int     `yaml:"budget_tokens,omitempty" json:"budget_tokens,omitempty"`
	SavingsRatio float64 `yaml:"savings_ratio,omitempty" json:"savings_ratio,omitempty"`
}

// Rule is one externally configurable detection rule. Disabled rules never
// contribute issues. Higher priority rules are evaluated first, which fixes
// issue precedence during the later merge.
type Rule struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Type     Type   `yaml:"type" json:"type"`
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Priority int    `yaml:"priority" json:"priority"`
	Params   Params `yaml:"params" json:"params"`

	// compiled pattern, populated by Validate for pattern-match rules.
	re *regexp.Regexp
}

// Validate checks the rule's parameters for its type and compiles any
// pattern. Rules are validated at load time, not at evaluation time.
func (r *Rule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule has no id")
	}
	switch r.Type {
	case TypeMaxSectionTokens:
		if r.Params.MaxTokens <= 0 {
			return fmt.Errorf("rule %s: max_tokens must be positive", r.ID)
		}
	case TypeStaleSection:
		if r.Params.MaxAgeDays <= 0 {
			return fmt.Errorf("rule %s: max_age_days must be positive", r.ID)
		}
	case TypePatternMatch:
		if r.Params.Pattern == "" {
			return fmt.Errorf("rule %s: pattern is required", r.ID)
		}
		re, err := regexp.Compile(r.Params.Pattern)
		if err != nil {
			return fmt.Errorf("rule %s: invalid pattern: %w", r.ID, err)
		}
		r.re = re
	case TypeCategoryBudget:
		if r.Params.Category == "" {
			return fmt.Errorf("rule %s: category is required", r.ID)
		}
		switch classify.Category(r.Params.Category) {
		case classify.CategoryActive, classify.CategoryHistorical,
			classify.CategoryReference, classify.CategoryUnknown:
		default:
			return fmt.Errorf("rule %s: unknown category %q", r.ID, r.Params.Category)
		}
		if r.Params.BudgetTokens <= 0 {
			return fmt.Errorf("rule %s: budget_tokens must be positive", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown type %q", r.ID, r.Type)
	}
	if r.Params.SavingsRatio < 0 || r.Params.SavingsRatio > 1 {
		return fmt.Errorf("rule %s: savings_ratio must be in [0,1]", r.ID)
	}
	return nil
}

// issueType maps a rule to the issue type it reports. Stale and oversize
// rules reuse the heuristic types so their issues merge with the detector's;
// the others carry rule-specific type strings.
func (r *Rule) issueType() detect.IssueType {
	switch r.Type {
	case TypeStaleSection:
		return detect.IssueOutdated
	case TypeMaxSectionTokens:
		return detect.IssueBloat
	case TypePatternMatch:
		return detect.IssueType("pattern:" + r.ID)
	default:
		return detect.IssueType("budget:" + r.Params.Category)
	}
}

// DefaultRules returns the built-in rule set. The slice is freshly
// allocated on every call; callers own it and mutations never leak into
// later callers.
func DefaultRules() []Rule {
	return []Rule{
		{
			ID:       "stale-90d",
			Name:     "Sections untouched for a quarter",
			Type:     TypeStaleSection,
			Enabled:  true,
			Priority: 90,
			Params:   Params{MaxAgeDays: 90},
		},
		{
			ID:       "oversize-1500",
			Name:     "Sections above 1500 tokens",
			Type:     TypeMaxSectionTokens,
			Enabled:  true,
			Priority: 80,
			Params:   Params{MaxTokens: 1500},
		},
		{
			ID:       "historical-budget",
			Name:     "Historical content over budget",
			Type:     TypeCategoryBudget,
			Enabled:  true,
			Priority: 70,
			Params:   Params{Category: string(classify.CategoryHistorical), BudgetTokens: 2000},
		},
		{
			ID:       "session-logs",
			Name:     "Leftover session transcripts",
			Type:     TypePatternMatch,
			Enabled:  false,
			Priority: 60,
			Params:   Params{Pattern: `(?im)^(human|assistant|user):`, SavingsRatio: 0.5},
		},
	}
}

// Package plan turns detected issues into an ordered list of edit actions
// under a named aggressiveness strategy.
package plan

import (
	"sort"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/detect"
)

// Strategy is an aggressiveness policy controlling which issues become
// actions.
type Strategy string

const (
	StrategyConservative Strategy = "conservative"
	StrategyModerate     Strategy = "moderate"
	StrategyAggressive   Strategy = "aggressive"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyConservative, StrategyModerate, StrategyAggressive:
		return true
	}
	return false
}

// ActionKind is the concrete edit applied to a section.
type ActionKind string

const (
	ActionArchive ActionKind = "archive"
	ActionTrim    ActionKind = "trim"
	ActionRemove  ActionKind = "remove"
)

// Action is one planned edit. Issues holds every issue that justified it.
type Action struct {
	Section          string         `json:"section"`
	Kind             ActionKind     `json:"kind"`
	Issues           []detect.Issue `json:"issues"`
	EstimatedSavings int            `json:"estimated_savings"`
	TrimRatio        float64        `json:"trim_ratio,omitempty"` // trim actions only
}

// Plan is the ordered action list for one document under one strategy.
type Plan struct {
	Strategy Strategy `json:"strategy"`
	Actions  []Action `json:"actions"`
}

// Config holds planning policy knobs.
type Config struct {
	MinConfidence       float64 // conservative confidence floor
	TrimRatio           float64 // trim ratio for moderate plans
	AggressiveTrimRatio float64 // trim ratio for aggressive plans
}

func DefaultConfig() Config {
	return Config{
		MinConfidence:       0.8,
		TrimRatio:           0.3,
		AggressiveTrimRatio: 0.5,
	}
}

// Generate filters and orders issues into a plan. Issues referencing
// sections absent from the document are dropped, and a section never
// receives two actions: on a conflict the higher-savings action wins.
func Generate(doc *contextdoc.Document, issues []detect.Issue, strategy Strategy, cfg Config) Plan {
	def := DefaultConfig()
	if cfg.MinConfidence <= 0 {
		cfg.MinConfidence = def.MinConfidence
	}
	if cfg.TrimRatio <= 0 || cfg.TrimRatio >= 1 {
		cfg.TrimRatio = def.TrimRatio
	}
	if cfg.AggressiveTrimRatio <= 0 || cfg.AggressiveTrimRatio >= 1 {
		cfg.AggressiveTrimRatio = def.AggressiveTrimRatio
	}
	if !strategy.Valid() {
		strategy = StrategyModerate
	}

	p := Plan{Strategy: strategy}

	// One action per section; conflicts keep the higher savings.
	bySection := make(map[string]*Action)
	var order []string
	for _, issue := range issues {
		if doc.SectionIndex(issue.Section) < 0 {
			continue
		}
		if !includes(strategy, issue, cfg) {
			continue
		}
		kind := actionKind(strategy, issue)
		existing, ok := bySection[issue.Section]
		if !ok {
			a := &Action{
				Section:          issue.Section,
				Kind:             kind,
				Issues:           []detect.Issue{issue},
				EstimatedSavings: issue.EstimatedSavings,
			}
			bySection[issue.Section] = a
			order = append(order, issue.Section)
			continue
		}
		if existing.Kind == kind {
			// Same edit, another justification. Keep the larger estimate.
			existing.Issues = append(existing.Issues, issue)
			if issue.EstimatedSavings > existing.EstimatedSavings {
				existing.EstimatedSavings = issue.EstimatedSavings
			}
			continue
		}
		if issue.EstimatedSavings > existing.EstimatedSavings {
			existing.Kind = kind
			existing.Issues = []detect.Issue{issue}
			existing.EstimatedSavings = issue.EstimatedSavings
		}
	}

	for _, name := range order {
		a := bySection[name]
		if a.Kind == ActionTrim {
			a.TrimRatio = trimRatio(strategy, cfg)
		}
		p.Actions = append(p.Actions, *a)
	}

	// Highest impact first; ties fall back to document order.
	sort.SliceStable(p.Actions, func(i, j int) bool {
		if p.Actions[i].EstimatedSavings != p.Actions[j].EstimatedSavings {
			return p.Actions[i].EstimatedSavings > p.Actions[j].EstimatedSavings
		}
		return doc.SectionIndex(p.Actions[i].Section) < doc.SectionIndex(p.Actions[j].Section)
	})

	return p
}

// includes is the strategy's inclusion filter over issues.
func includes(strategy Strategy, issue detect.Issue, cfg Config) bool {
	switch strategy {
	case StrategyConservative:
		return issue.Severity == detect.SeverityHigh && issue.Confidence >= cfg.MinConfidence
	case StrategyModerate:
		return issue.Severity == detect.SeverityHigh || issue.Severity == detect.SeverityMedium
	default:
		return true
	}
}

// actionKind maps an issue to its edit. Conservative plans only archive.
// Confirmed duplicates are removed outright under an aggressive plan.
func actionKind(strategy Strategy, issue detect.Issue) ActionKind {
	if strategy == StrategyConservative {
		return ActionArchive
	}
	switch issue.Type {
	case detect.IssueOutdated:
		return ActionArchive
	case detect.IssueDuplicate:
		if strategy == StrategyAggressive && issue.Confidence >= 0.9 {
			return ActionRemove
		}
		return ActionArchive
	default:
		// bloat, verbose, and rule-specific issue types all condense in place.
		return ActionTrim
	}
}

func trimRatio(strategy Strategy, cfg Config) float64 {
	if strategy == StrategyAggressive {
		return cfg.AggressiveTrimRatio
	}
	return cfg.TrimRatio
}

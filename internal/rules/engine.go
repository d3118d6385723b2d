package rules

import (
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/detect"
)

// evaluate is a package var so tests can inject a faulting rule body and
// exercise the isolation path.
var evaluate = (*Engine).evalRule

// Engine runs a rule set over classified sections. A failing rule is logged
// and skipped; it never aborts the analysis.
type Engine struct {
	log *slog.Logger
	now func() time.Time
}

// NewEngine builds a rule engine. now anchors stale-section cutoffs and may
// be nil for the wall clock.
func NewEngine(log *slog.Logger, now func() time.Time) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{log: log, now: now}
}

// Apply evaluates every enabled, valid rule in descending priority order and
// returns the issues they raise.
func (e *Engine) Apply(classified []classify.ClassifiedSection, ruleSet []Rule) []detect.Issue {
	ordered := make([]Rule, len(ruleSet))
	copy(ordered, ruleSet)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	var issues []detect.Issue
	for i := range ordered {
		r := &ordered[i]
		if !r.Enabled {
			continue
		}
		if err := r.Validate(); err != nil {
			e.log.Warn("skipping invalid rule", "rule", r.ID, "error", err)
			continue
		}
		out, err := e.evalSafe(r, classified)
		if err != nil {
			e.log.Warn("rule evaluation failed, skipping", "rule", r.ID, "error", err)
			continue
		}
		issues = append(issues, out...)
	}
	return issues
}

// evalSafe fences a single rule evaluation so a panicking rule cannot take
// down the whole analysis.
func (e *Engine) evalSafe(r *Rule, classified []classify.ClassifiedSection) (issues []detect.Issue, err error) {
	defer func() {
		if p := recover(); p != nil {
			issues = nil
			err = fmt.Errorf("rule panicked: %v", p)
		}
	}()
	return evaluate(e, r, classified), nil
}

func (e *Engine) evalRule(r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
	switch r.Type {
	case TypeMaxSectionTokens:
		return e.evalMaxTokens(r, classified)
	case TypeStaleSection:
		return e.evalStale(r, classified)
	case TypePatternMatch:
		return e.evalPattern(r, classified)
	case TypeCategoryBudget:
		return e.evalBudget(r, classified)
	}
	return nil
}

func (e *Engine) evalMaxTokens(r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
	total := totalTokens(classified)
	var out []detect.Issue
	for _, cs := range classified {
		if cs.Tokens <= r.Params.MaxTokens {
			continue
		}
		savings := cs.Tokens - r.Params.MaxTokens
		out = append(out, detect.Issue{
			Type:             r.issueType(),
			Severity:         ruleSeverity(savings, total),
			Section:          cs.Name,
			Description:      fmt.Sprintf("section %q exceeds the %d token limit (%d tokens)", cs.Name, r.Params.MaxTokens, cs.Tokens),
			SuggestedAction:  fmt.Sprintf("trim %q back under %d tokens", cs.Name, r.Params.MaxTokens),
			EstimatedSavings: savings,
			Confidence:       0.8,
		})
	}
	return out
}

func (e *Engine) evalStale(r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
	cutoff := e.now().AddDate(0, 0, -r.Params.MaxAgeDays)
	total := totalTokens(classified)
	var out []detect.Issue
	for _, cs := range classified {
		// An active section can legitimately mention old dates.
		if cs.Category == classify.CategoryActive {
			continue
		}
		newest, ok := newestDate(cs.Section)
		if !ok || !newest.Before(cutoff) {
			continue
		}
		savings := cs.Tokens
		out = append(out, detect.Issue{
			Type:             r.issueType(),
			Severity:         ruleSeverity(savings, total),
			Section:          cs.Name,
			Description:      fmt.Sprintf("newest date in %q is %s, older than %d days", cs.Name, newest.Format("2006-01-02"), r.Params.MaxAgeDays),
			SuggestedAction:  "archive this section",
			EstimatedSavings: savings,
			Confidence:       0.9,
		})
	}
	return out
}

func (e *Engine) evalPattern(r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
	ratio := r.Params.SavingsRatio
	if ratio == 0 {
		ratio = 0.1
	}
	total := totalTokens(classified)
	var out []detect.Issue
	for _, cs := range classified {
		if !r.re.MatchString(cs.Raw) {
			continue
		}
		savings := int(float64(cs.Tokens) * ratio)
		out = append(out, detect.Issue{
			Type:             r.issueType(),
			Severity:         ruleSeverity(savings, total),
			Section:          cs.Name,
			Description:      fmt.Sprintf("section %q matches rule %q", cs.Name, r.Name),
			SuggestedAction:  fmt.Sprintf("clean up content matched by %q", r.Name),
			EstimatedSavings: savings,
			Confidence:       0.7,
		})
	}
	return out
}

// evalBudget reports one issue on the largest section of the category once
// the category total exceeds its budget.
func (e *Engine) evalBudget(r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
	cat := classify.Category(r.Params.Category)
	catTotal := 0
	largest := -1
	for i, cs := range classified {
		if cs.Category != cat {
			continue
		}
		catTotal += cs.Tokens
		if largest < 0 || cs.Tokens > classified[largest].Tokens {
			largest = i
		}
	}
	if largest < 0 || catTotal <= r.Params.BudgetTokens {
		return nil
	}
	over := catTotal - r.Params.BudgetTokens
	target := classified[largest]
	if over > target.Tokens {
		over = target.Tokens
	}
	return []detect.Issue{{
		Type:             r.issueType(),
		Severity:         ruleSeverity(over, totalTokens(classified)),
		Section:          target.Name,
		Description:      fmt.Sprintf("%s sections total %d tokens against a %d budget", cat, catTotal, r.Params.BudgetTokens),
		SuggestedAction:  fmt.Sprintf("reduce %q, the largest %s section", target.Name, cat),
		EstimatedSavings: over,
		Confidence:       0.8,
	}}
}

func newestDate(sec contextdoc.Section) (time.Time, bool) {
	var newest time.Time
	found := false
	for _, s := range contextdoc.ExtractDates(sec.Raw) {
		if t, ok := contextdoc.ParseDate(s); ok && (!found || t.After(newest)) {
			newest = t
			found = true
		}
	}
	return newest, found
}

func totalTokens(classified []classify.ClassifiedSection) int {
	total := 0
	for _, cs := range classified {
		total += cs.Tokens
	}
	return total
}

func ruleSeverity(savings, total int) detect.Severity {
	if total <= 0 {
		return detect.SeverityLow
	}
	share := float64(savings) / float64(total)
	switch {
	case share >= 0.2:
		return detect.SeverityHigh
	case share >= 0.05:
		return detect.SeverityMedium
	default:
		return detect.SeverityLow
	}
}

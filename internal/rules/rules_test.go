package rules

import (
	"strings"
	"testing"
	"time"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/detect"
)

var testNow = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func testEngine() *Engine {
	return NewEngine(nil, func() time.Time { return testNow })
}

func ruleSection(name, body string, tokens int, cat classify.Category) classify.ClassifiedSection {
	return classify.ClassifiedSection{
		Section: contextdoc.Section{
			Name:   name,
			Level:  2,
			Raw:    "## " + name + "\n" + body,
			Tokens: tokens,
		},
		Category: cat,
	}
}

func TestRuleValidate(t *testing.T) {
	cases := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"valid max tokens", Rule{ID: "a", Type: TypeMaxSectionTokens, Params: Params{MaxTokens: 100}}, false},
		{"missing id", Rule{Type: TypeMaxSectionTokens, Params: Params{MaxTokens: 100}}, true},
		{"zero max tokens", Rule{ID: "a", Type: TypeMaxSectionTokens}, true},
		{"valid stale", Rule{ID: "a", Type: TypeStaleSection, Params: Params{MaxAgeDays: 30}}, false},
		{"bad pattern", Rule{ID: "a", Type: TypePatternMatch, Params: Params{Pattern: "("}}, true},
		{"valid pattern", Rule{ID: "a", Type: TypePatternMatch, Params: Params{Pattern: "^log:"}}, false},
		{"unknown category", Rule{ID: "a", Type: TypeCategoryBudget, Params: Params{Category: "bogus", BudgetTokens: 10}}, true},
		{"valid budget", Rule{ID: "a", Type: TypeCategoryBudget, Params: Params{Category: "historical", BudgetTokens: 10}}, false},
		{"unknown type", Rule{ID: "a", Type: "mystery"}, true},
		{"savings ratio out of range", Rule{ID: "a", Type: TypeMaxSectionTokens, Params: Params{MaxTokens: 10, SavingsRatio: 1.5}}, true},
	}
	for _, tc := range cases {
		err := tc.rule.Validate()
		if tc.wantErr && err == nil {
			t.Errorf("%s: expected an error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Errorf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestApply_MaxSectionTokens(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Small", "fine\n", 100, classify.CategoryUnknown),
		ruleSection("Huge", "way too much\n", 2000, classify.CategoryUnknown),
	}
	rule := Rule{ID: "cap", Type: TypeMaxSectionTokens, Enabled: true, Params: Params{MaxTokens: 1500}}

	issues := e.Apply(sections, []Rule{rule})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Section != "Huge" {
		t.Errorf("expected issue on Huge, got %q", issues[0].Section)
	}
	if issues[0].Type != detect.IssueBloat {
		t.Errorf("expected bloat type, got %s", issues[0].Type)
	}
	if issues[0].EstimatedSavings != 500 {
		t.Errorf("expected savings 500, got %d", issues[0].EstimatedSavings)
	}
}

func TestApply_StaleSection(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Old Plans", "written 2023-01-15, revised 2023-03-01\n", 400, classify.CategoryHistorical),
		ruleSection("Fresh", "updated 2024-05-20\n", 400, classify.CategoryActive),
		ruleSection("Undated", "no dates at all\n", 400, classify.CategoryUnknown),
	}
	rule := Rule{ID: "stale", Type: TypeStaleSection, Enabled: true, Params: Params{MaxAgeDays: 90}}

	issues := e.Apply(sections, []Rule{rule})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Section != "Old Plans" {
		t.Errorf("expected Old Plans, got %q", issues[0].Section)
	}
	if issues[0].Type != detect.IssueOutdated {
		t.Errorf("expected outdated type, got %s", issues[0].Type)
	}
	if !strings.Contains(issues[0].Description, "2023-03-01") {
		t.Errorf("expected the newest date in the description, got %q", issues[0].Description)
	}
}

func TestApply_PatternMatch(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Session Log", "Human: hello\nAssistant: hi\n", 600, classify.CategoryUnknown),
		ruleSection("Notes", "ordinary prose\n", 600, classify.CategoryUnknown),
	}
	rule := Rule{
		ID: "session-logs", Name: "session logs", Type: TypePatternMatch, Enabled: true,
		Params: Params{Pattern: `(?im)^(human|assistant|user):`, SavingsRatio: 0.5},
	}

	issues := e.Apply(sections, []Rule{rule})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Section != "Session Log" {
		t.Errorf("expected Session Log, got %q", issues[0].Section)
	}
	if issues[0].EstimatedSavings != 300 {
		t.Errorf("expected savings 300, got %d", issues[0].EstimatedSavings)
	}
	if string(issues[0].Type) != "pattern:session-logs" {
		t.Errorf("expected rule-specific type, got %s", issues[0].Type)
	}
}

func TestApply_CategoryBudget(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("H1", "old\n", 1500, classify.CategoryHistorical),
		ruleSection("H2", "older\n", 900, classify.CategoryHistorical),
		ruleSection("Active", "current\n", 3000, classify.CategoryActive),
	}
	rule := Rule{ID: "hist", Type: TypeCategoryBudget, Enabled: true,
		Params: Params{Category: "historical", BudgetTokens: 2000}}

	issues := e.Apply(sections, []Rule{rule})
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if issues[0].Section != "H1" {
		t.Errorf("expected the largest historical section, got %q", issues[0].Section)
	}
	if issues[0].EstimatedSavings != 400 {
		t.Errorf("expected savings 400, got %d", issues[0].EstimatedSavings)
	}
}

func TestApply_CategoryBudgetUnderBudget(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("H1", "old\n", 500, classify.CategoryHistorical),
	}
	rule := Rule{ID: "hist", Type: TypeCategoryBudget, Enabled: true,
		Params: Params{Category: "historical", BudgetTokens: 2000}}
	if issues := e.Apply(sections, []Rule{rule}); len(issues) != 0 {
		t.Errorf("expected no issues under budget, got %d", len(issues))
	}
}

func TestApply_DisabledRuleChangesOutput(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Huge", "big\n", 2000, classify.CategoryUnknown),
	}
	enabled := Rule{ID: "cap", Type: TypeMaxSectionTokens, Enabled: true, Params: Params{MaxTokens: 1500}}
	disabled := enabled
	disabled.Enabled = false

	if got := e.Apply(sections, []Rule{enabled}); len(got) != 1 {
		t.Fatalf("expected 1 issue with the rule enabled, got %d", len(got))
	}
	if got := e.Apply(sections, []Rule{disabled}); len(got) != 0 {
		t.Errorf("expected 0 issues with the rule disabled, got %d", len(got))
	}
}

func TestApply_InvalidRuleSkipped(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Huge", "big\n", 2000, classify.CategoryUnknown),
	}
	bad := Rule{ID: "bad", Type: TypePatternMatch, Enabled: true} // no pattern
	good := Rule{ID: "cap", Type: TypeMaxSectionTokens, Enabled: true, Params: Params{MaxTokens: 1500}}

	issues := e.Apply(sections, []Rule{bad, good})
	if len(issues) != 1 {
		t.Fatalf("expected the valid rule to still run, got %d issues", len(issues))
	}
	if issues[0].Section != "Huge" {
		t.Errorf("expected issue from the valid rule, got %+v", issues[0])
	}
}

func TestApply_PanickingRuleIsolated(t *testing.T) {
	orig := evaluate
	evaluate = func(e *Engine, r *Rule, classified []classify.ClassifiedSection) []detect.Issue {
		if r.ID == "boom" {
			panic("rule exploded")
		}
		return orig(e, r, classified)
	}
	defer func() { evaluate = orig }()

	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Huge", "big\n", 2000, classify.CategoryUnknown),
	}
	rs := []Rule{
		{ID: "boom", Type: TypeMaxSectionTokens, Enabled: true, Priority: 99, Params: Params{MaxTokens: 1}},
		{ID: "cap", Type: TypeMaxSectionTokens, Enabled: true, Priority: 1, Params: Params{MaxTokens: 1500}},
	}

	issues := e.Apply(sections, rs)
	if len(issues) != 1 {
		t.Fatalf("expected the surviving rule's issue, got %d issues", len(issues))
	}
	if issues[0].EstimatedSavings != 500 {
		t.Errorf("expected the non-panicking rule's issue, got %+v", issues[0])
	}
}

func TestApply_PriorityOrdering(t *testing.T) {
	e := testEngine()
	sections := []classify.ClassifiedSection{
		ruleSection("Huge", "big\n", 2000, classify.CategoryUnknown),
	}
	rs := []Rule{
		{ID: "low", Type: TypeMaxSectionTokens, Enabled: true, Priority: 10, Params: Params{MaxTokens: 1900}},
		{ID: "high", Type: TypeMaxSectionTokens, Enabled: true, Priority: 90, Params: Params{MaxTokens: 1500}},
	}
	issues := e.Apply(sections, rs)
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if issues[0].EstimatedSavings != 500 {
		t.Errorf("expected the high priority rule first, got %+v", issues[0])
	}
}

func TestDefaultRules(t *testing.T) {
	rs := DefaultRules()
	if len(rs) != 4 {
		t.Fatalf("expected 4 built-in rules, got %d", len(rs))
	}
	for i := range rs {
		if err := rs[i].Validate(); err != nil {
			t.Errorf("built-in rule %s does not validate: %v", rs[i].ID, err)
		}
	}

	enabled := 0
	for _, r := range rs {
		if r.Enabled {
			enabled++
		}
	}
	if enabled != 3 {
		t.Errorf("expected 3 enabled built-ins, got %d", enabled)
	}

	// Callers own the returned slice.
	rs[0].Enabled = false
	if !DefaultRules()[0].Enabled {
		t.Error("mutating the returned slice must not affect later calls")
	}
}

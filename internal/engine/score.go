package engine

import (
	"math"
	"sort"

	"github.com/ctxslim/ctxslim/internal/detect"
	"github.com/ctxslim/ctxslim/internal/plan"
)

// mergeIssues combines heuristic and rule issues, deduplicating on
// (section, type). On a collision the larger estimated savings wins;
// heuristic issues come first, so they also win exact ties. The merged list
// is ordered by severity, then savings, for reporting.
func mergeIssues(heuristic, ruleIssues []detect.Issue) []detect.Issue {
	type key struct {
		section string
		typ     detect.IssueType
	}
	seen := make(map[key]int)
	var merged []detect.Issue

	for _, list := range [][]detect.Issue{heuristic, ruleIssues} {
		for _, issue := range list {
			k := key{issue.Section, issue.Type}
			if i, ok := seen[k]; ok {
				if issue.EstimatedSavings > merged[i].EstimatedSavings {
					merged[i] = issue
				}
				continue
			}
			seen[k] = len(merged)
			merged = append(merged, issue)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Severity.Rank() != merged[j].Severity.Rank() {
			return merged[i].Severity.Rank() > merged[j].Severity.Rank()
		}
		return merged[i].EstimatedSavings > merged[j].EstimatedSavings
	})
	return merged
}

func totalSavings(issues []detect.Issue) int {
	total := 0
	for _, issue := range issues {
		total += issue.EstimatedSavings
	}
	return total
}

// scoreFor converts estimated savings into the 0-100 optimization score and
// the rounded savings percentage. A document with nothing to optimize,
// including an empty one, scores 100.
func scoreFor(savings, totalTokens int) (score, savingsPercent int) {
	if totalTokens <= 0 {
		return 100, 0
	}
	pct := int(math.Round(float64(savings) / float64(totalTokens) * 100))
	if pct > 100 {
		pct = 100
	}
	score = 100 - pct
	if score < 0 {
		score = 0
	}
	return score, pct
}

// chooseStrategy picks the recommended strategy from the score band and the
// high-severity mix. The mapping is monotonic: a lower score never yields a
// less aggressive strategy than a higher one.
func chooseStrategy(score int, issues []detect.Issue) plan.Strategy {
	high := 0
	for _, issue := range issues {
		if issue.Severity == detect.SeverityHigh {
			high++
		}
	}
	switch {
	case score < 50 || high >= 3:
		return plan.StrategyAggressive
	case score >= 80 && high == 0:
		return plan.StrategyConservative
	default:
		return plan.StrategyModerate
	}
}

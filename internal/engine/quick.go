package engine

import "fmt"

// QuickStats is the lightweight per-document digest used by dashboards and
// the CLI stats command.
type QuickStats struct {
	Lines    int `json:"lines"`
	Tokens   int `json:"tokens"`
	Sections int `json:"sections"`
	Score    int `json:"score"`
}

// Score runs a full analysis and returns only the optimization score.
func (e *Engine) Score(content string) (int, error) {
	a, err := e.Analyze(content)
	if err != nil {
		return 0, err
	}
	return a.Score, nil
}

// NeedsOptimization reports whether the document scores at or below the
// configured threshold.
func (e *Engine) NeedsOptimization(content string) (bool, error) {
	score, err := e.Score(content)
	if err != nil {
		return false, err
	}
	return score <= e.cfg.ScoreThreshold, nil
}

// Stats returns the quick per-document digest.
func (e *Engine) Stats(content string) (QuickStats, error) {
	a, err := e.Analyze(content)
	if err != nil {
		return QuickStats{}, err
	}
	return QuickStats{
		Lines:    a.Summary.TotalLines,
		Tokens:   a.Summary.TotalTokens,
		Sections: a.Summary.SectionsCount,
		Score:    a.Score,
	}, nil
}

// Recommendations renders the merged issues as human-readable advisory
// strings, highest severity first (Analyze already orders them).
func (e *Engine) Recommendations(content string) ([]string, error) {
	a, err := e.Analyze(content)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(a.Issues))
	for _, issue := range a.Issues {
		out = append(out, fmt.Sprintf("[%s] %s: %s; %s (saves ~%d tokens)",
			issue.Severity, issue.Section, issue.Description, issue.SuggestedAction, issue.EstimatedSavings))
	}
	return out, nil
}

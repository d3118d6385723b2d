// Package detect finds token-waste issues in classified sections.
package detect

import (
	"fmt"

	"github.com/ctxslim/ctxslim/internal/classify"
)

// IssueType names a detection category. The rule engine may emit additional
// rule-specific type strings.
type IssueType string

const (
	IssueOutdated  IssueType = "outdated"
	IssueBloat     IssueType = "bloat"
	IssueDuplicate IssueType = "duplicate"
	IssueVerbose   IssueType = "verbose"
)

// Severity ranks how much an issue matters.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Rank orders severities for sorting, highest first.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 2
	case SeverityMedium:
		return 1
	default:
		return 0
	}
}

// Issue is a detected opportunity to reduce token usage. Issues are value
// objects and are never mutated after creation.
type Issue struct {
	Type             IssueType `json:"type"`
	Severity         Severity  `json:"severity"`
	Section          string    `json:"section"`
	Description      string    `json:"description"`
	SuggestedAction  string    `json:"suggested_action"`
	EstimatedSavings int       `json:"estimated_savings"`
	Confidence       float64   `json:"confidence"`
}

// Config holds the detection thresholds. All of these are policy knobs, not
// contracts; see internal/config for the environment bindings.
type Config struct {
	OutdatedMinTokens   int     // historical sections smaller than this are left alone
	SummaryRetainTokens int     // tokens assumed to survive as an archive stub
	BloatMinTokens      int     // floor below which a section is never bloat
	BloatMultiplier     float64 // bloat when tokens exceed mean section size by this factor
	DuplicateSimilarity float64 // shingle-overlap cutoff for near-duplicates
	DuplicateMinTokens  int     // floor below which duplication is not worth flagging
	VerboseMinTokens    int     // floor below which verbosity is not worth flagging
	VerboseFillerRatio  float64 // filler phrases per sentence that mark a section verbose
	VerboseTrimPercent  float64 // fraction of a verbose section assumed condensable
}

// DefaultConfig returns the shipped thresholds.
func DefaultConfig() Config {
	return Config{
		OutdatedMinTokens:   80,
		SummaryRetainTokens: 20,
		BloatMinTokens:      200,
		BloatMultiplier:     2.0,
		DuplicateSimilarity: 0.8,
		DuplicateMinTokens:  40,
		VerboseMinTokens:    120,
		VerboseFillerRatio:  0.5,
		VerboseTrimPercent:  0.3,
	}
}

// Detector runs the heuristic issue detectors. It is stateless and safe for
// concurrent use.
type Detector struct {
	cfg Config
}

func New(cfg Config) *Detector {
	def := DefaultConfig()
	if cfg.OutdatedMinTokens <= 0 {
		cfg.OutdatedMinTokens = def.OutdatedMinTokens
	}
	if cfg.SummaryRetainTokens <= 0 {
		cfg.SummaryRetainTokens = def.SummaryRetainTokens
	}
	if cfg.BloatMinTokens <= 0 {
		cfg.BloatMinTokens = def.BloatMinTokens
	}
	if cfg.BloatMultiplier <= 0 {
		cfg.BloatMultiplier = def.BloatMultiplier
	}
	if cfg.DuplicateSimilarity <= 0 || cfg.DuplicateSimilarity > 1 {
		cfg.DuplicateSimilarity = def.DuplicateSimilarity
	}
	if cfg.DuplicateMinTokens <= 0 {
		cfg.DuplicateMinTokens = def.DuplicateMinTokens
	}
	if cfg.VerboseMinTokens <= 0 {
		cfg.VerboseMinTokens = def.VerboseMinTokens
	}
	if cfg.VerboseFillerRatio <= 0 {
		cfg.VerboseFillerRatio = def.VerboseFillerRatio
	}
	if cfg.VerboseTrimPercent <= 0 || cfg.VerboseTrimPercent >= 1 {
		cfg.VerboseTrimPercent = def.VerboseTrimPercent
	}
	return &Detector{cfg: cfg}
}

// Detect runs every heuristic over the classified sections. Date
// staleness is already encoded in the classifications, so no raw date
// list is needed here.
func (d *Detector) Detect(classified []classify.ClassifiedSection) []Issue {
	totalTokens := 0
	for _, cs := range classified {
		totalTokens += cs.Tokens
	}

	var issues []Issue
	issues = append(issues, d.detectOutdated(classified, totalTokens)...)
	issues = append(issues, d.detectBloat(classified, totalTokens)...)
	issues = append(issues, d.detectDuplicates(classified, totalTokens)...)
	issues = append(issues, d.detectVerbose(classified, totalTokens)...)
	return issues
}

// detectOutdated flags historical sections big enough that archiving them
// pays for itself.
func (d *Detector) detectOutdated(classified []classify.ClassifiedSection, totalTokens int) []Issue {
	var issues []Issue
	for _, cs := range classified {
		if cs.Category != classify.CategoryHistorical || cs.Tokens < d.cfg.OutdatedMinTokens {
			continue
		}
		savings := clamp(cs.Tokens-d.cfg.SummaryRetainTokens, 0, cs.Tokens)
		confidence := 0.7
		for _, sig := range cs.Signals {
			if sig == "stale-dates" {
				confidence = 0.9
			}
		}
		issues = append(issues, Issue{
			Type:             IssueOutdated,
			Severity:         severityFor(savings, totalTokens, confidence),
			Section:          cs.Name,
			Description:      fmt.Sprintf("section %q is historical (%d tokens)", cs.Name, cs.Tokens),
			SuggestedAction:  "archive this section and keep a one-line pointer",
			EstimatedSavings: savings,
			Confidence:       confidence,
		})
	}
	return issues
}

// detectBloat flags sections far larger than the document's mean section
// size. The excess over the threshold is the estimated saving.
func (d *Detector) detectBloat(classified []classify.ClassifiedSection, totalTokens int) []Issue {
	if len(classified) < 2 {
		return nil
	}
	mean := float64(totalTokens) / float64(len(classified))
	threshold := mean * d.cfg.BloatMultiplier

	var issues []Issue
	for _, cs := range classified {
		if cs.Tokens < d.cfg.BloatMinTokens || float64(cs.Tokens) <= threshold {
			continue
		}
		savings := clamp(cs.Tokens-int(threshold), 0, cs.Tokens)
		confidence := 0.6
		issues = append(issues, Issue{
			Type:             IssueBloat,
			Severity:         severityFor(savings, totalTokens, confidence),
			Section:          cs.Name,
			Description:      fmt.Sprintf("section %q holds %d tokens against a document mean of %d", cs.Name, cs.Tokens, int(mean)),
			SuggestedAction:  "trim this section back toward the document's typical size",
			EstimatedSavings: savings,
			Confidence:       confidence,
		})
	}
	return issues
}

// detectDuplicates flags near-identical section pairs. Only the
// lower-priority copy (smaller, or later on a size tie) is reported, so a
// duplicated pair yields exactly one issue.
func (d *Detector) detectDuplicates(classified []classify.ClassifiedSection, totalTokens int) []Issue {
	var issues []Issue
	flagged := make(map[string]bool)

	for i := 0; i < len(classified); i++ {
		for j := i + 1; j < len(classified); j++ {
			a, b := classified[i], classified[j]
			if a.Tokens < d.cfg.DuplicateMinTokens || b.Tokens < d.cfg.DuplicateMinTokens {
				continue
			}
			sim := Similarity(sectionBody(a.Section), sectionBody(b.Section))
			if sim < d.cfg.DuplicateSimilarity {
				continue
			}
			// Drop the smaller copy; on a tie the later one loses.
			loser, kept := b, a
			if a.Tokens < b.Tokens {
				loser, kept = a, b
			}
			if flagged[loser.Name] {
				continue
			}
			flagged[loser.Name] = true
			issues = append(issues, Issue{
				Type:             IssueDuplicate,
				Severity:         severityFor(loser.Tokens, totalTokens, sim),
				Section:          loser.Name,
				Description:      fmt.Sprintf("section %q duplicates %q (%.0f%% similar)", loser.Name, kept.Name, sim*100),
				SuggestedAction:  fmt.Sprintf("remove this copy and keep %q", kept.Name),
				EstimatedSavings: loser.Tokens,
				Confidence:       sim,
			})
		}
	}
	return issues
}

// detectVerbose flags sections with a high density of filler language.
func (d *Detector) detectVerbose(classified []classify.ClassifiedSection, totalTokens int) []Issue {
	var issues []Issue
	for _, cs := range classified {
		if cs.Tokens < d.cfg.VerboseMinTokens {
			continue
		}
		density := fillerDensity(sectionBody(cs.Section))
		if density < d.cfg.VerboseFillerRatio {
			continue
		}
		savings := clamp(int(float64(cs.Tokens)*d.cfg.VerboseTrimPercent), 0, cs.Tokens)
		confidence := 0.5
		issues = append(issues, Issue{
			Type:             IssueVerbose,
			Severity:         severityFor(savings, totalTokens, confidence),
			Section:          cs.Name,
			Description:      fmt.Sprintf("section %q averages %.1f filler phrases per sentence", cs.Name, density),
			SuggestedAction:  "condense the wording; drop filler phrases",
			EstimatedSavings: savings,
			Confidence:       confidence,
		})
	}
	return issues
}

// severityFor derives severity from how much of the document an issue can
// recover and how confident the detector is. Exact threshold matches are
// high-signal; density heuristics land medium or low.
func severityFor(savings, totalTokens int, confidence float64) Severity {
	if totalTokens <= 0 {
		return SeverityLow
	}
	share := float64(savings) / float64(totalTokens)
	switch {
	case share >= 0.2 && confidence >= 0.75:
		return SeverityHigh
	case share >= 0.05:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

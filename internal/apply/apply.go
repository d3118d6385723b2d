// Package apply executes an optimization plan against the original raw
// content. Application is deterministic: the same document and plan always
// produce byte-identical output, and untouched sections are byte-for-byte
// untouched.
package apply

import (
	"strings"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/plan"
)

// AppliedAction records one executed plan action with its measured effect.
type AppliedAction struct {
	Section      string          `json:"section"`
	Kind         plan.ActionKind `json:"kind"`
	LinesBefore  int             `json:"lines_before"`
	LinesAfter   int             `json:"lines_after"`
	TokensBefore int             `json:"tokens_before"`
	TokensAfter  int             `json:"tokens_after"`
}

// Result is the outcome of applying a plan. LinesRemoved and TokensSaved are
// measured from the actual before/after content, not summed from issue
// estimates; the measured numbers are authoritative.
type Result struct {
	Content      string          `json:"content"`
	Applied      []AppliedAction `json:"applied"`
	LinesRemoved int             `json:"lines_removed"`
	TokensSaved  int             `json:"tokens_saved"`
}

// Applier rewrites documents according to plans.
type Applier struct {
	estimate contextdoc.Estimator
}

func New() *Applier {
	return &Applier{estimate: contextdoc.EstimateTokensV1}
}

// NewWithEstimator uses a caller-supplied token estimator for the measured
// stats. It should match the estimator the document was parsed with.
func NewWithEstimator(est contextdoc.Estimator) *Applier {
	if est == nil {
		est = contextdoc.EstimateTokensV1
	}
	return &Applier{estimate: est}
}

// Apply executes the plan over the parsed document. archiveRefs maps a
// section name to the reference line that replaces it when archived; the
// engine builds these from the archive records so the edit is invertible.
// Actions referencing sections not present in the document are skipped.
func (a *Applier) Apply(doc *contextdoc.Document, p plan.Plan, archiveRefs map[string]string) *Result {
	actions := make(map[string]plan.Action, len(p.Actions))
	for _, act := range p.Actions {
		actions[act.Section] = act
	}

	res := &Result{}
	var out strings.Builder
	out.Grow(len(doc.Raw))

	for _, sec := range doc.Sections {
		act, ok := actions[sec.Name]
		if !ok {
			out.WriteString(sec.Raw)
			continue
		}

		var replacement string
		switch act.Kind {
		case plan.ActionArchive:
			ref, ok := archiveRefs[sec.Name]
			if !ok {
				// No archive record was produced for this action; leave the
				// section alone rather than losing content.
				out.WriteString(sec.Raw)
				continue
			}
			replacement = ref
		case plan.ActionRemove:
			replacement = ""
		case plan.ActionTrim:
			replacement = a.trimSection(sec, act)
		default:
			out.WriteString(sec.Raw)
			continue
		}

		out.WriteString(replacement)
		res.Applied = append(res.Applied, AppliedAction{
			Section:      sec.Name,
			Kind:         act.Kind,
			LinesBefore:  sec.Lines,
			LinesAfter:   countLines(replacement),
			TokensBefore: a.estimate(sec.Raw),
			TokensAfter:  a.estimate(replacement),
		})
	}

	res.Content = out.String()
	for _, ap := range res.Applied {
		res.LinesRemoved += ap.LinesBefore - ap.LinesAfter
		res.TokensSaved += ap.TokensBefore - ap.TokensAfter
	}
	return res
}

// trimSection shortens a section by dropping trailing body lines. The
// heading and the first body line always survive, and the measured saving
// never exceeds the action's estimate.
func (a *Applier) trimSection(sec contextdoc.Section, act plan.Action) string {
	lines := strings.SplitAfter(sec.Raw, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	keepFloor := 1 // heading line
	if sec.Level == 0 {
		keepFloor = 0
	}
	keepFloor++ // plus one body line of residual context
	if keepFloor >= len(lines) {
		return sec.Raw
	}

	ratio := act.TrimRatio
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.3
	}
	before := a.estimate(sec.Raw)
	target := int(float64(before) * ratio)
	if act.EstimatedSavings < target {
		target = act.EstimatedSavings
	}
	if target <= 0 {
		return sec.Raw
	}

	// Drop lines from the end, one at a time, re-measuring after each drop
	// so the saving stays within the estimate.
	keep := len(lines)
	for keep > keepFloor {
		candidate := strings.Join(lines[:keep-1], "")
		saved := before - a.estimate(candidate)
		if saved > act.EstimatedSavings {
			break
		}
		keep--
		if saved >= target {
			break
		}
	}
	return strings.Join(lines[:keep], "")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}

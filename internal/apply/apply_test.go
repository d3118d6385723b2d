package apply

import (
	"strings"
	"testing"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/plan"
)

const applyDoc = `# Keep Me

untouched body line.

# Old Work

stale line one.
stale line two.
stale line three.

# Scratch

temp one.
temp two.
`

func parseDoc(t *testing.T, content string) *contextdoc.Document {
	t.Helper()
	doc, err := contextdoc.Parse(content)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestApply_EmptyPlanIsIdentity(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	res := New().Apply(doc, plan.Plan{Strategy: plan.StrategyModerate}, nil)
	if res.Content != applyDoc {
		t.Errorf("empty plan must reproduce the document exactly")
	}
	if res.LinesRemoved != 0 || res.TokensSaved != 0 {
		t.Errorf("expected zero stats, got lines=%d tokens=%d", res.LinesRemoved, res.TokensSaved)
	}
}

func TestApply_ArchiveReplacesWithRef(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	p := plan.Plan{Actions: []plan.Action{{Section: "Old Work", Kind: plan.ActionArchive}}}
	ref := "<!-- archived:abc \"Old Work\" -> .context-archive/old-work.md -->\n"

	res := New().Apply(doc, p, map[string]string{"Old Work": ref})

	if !strings.Contains(res.Content, ref) {
		t.Error("expected the reference line in the output")
	}
	if strings.Contains(res.Content, "stale line one") {
		t.Error("archived body must be gone")
	}
	// Untouched sections are byte-identical.
	if !strings.HasPrefix(res.Content, "# Keep Me\n\nuntouched body line.\n\n") {
		t.Errorf("untouched prefix changed: %q", res.Content)
	}
	if !strings.HasSuffix(res.Content, "# Scratch\n\ntemp one.\ntemp two.\n") {
		t.Errorf("untouched suffix changed: %q", res.Content)
	}
	if len(res.Applied) != 1 {
		t.Fatalf("expected 1 applied action, got %d", len(res.Applied))
	}
	if res.Applied[0].LinesAfter != 1 {
		t.Errorf("expected the ref to count as 1 line, got %d", res.Applied[0].LinesAfter)
	}
}

func TestApply_ArchiveWithoutRefLeavesSection(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	p := plan.Plan{Actions: []plan.Action{{Section: "Old Work", Kind: plan.ActionArchive}}}

	res := New().Apply(doc, p, nil)
	if res.Content != applyDoc {
		t.Error("an archive action with no record must not drop content")
	}
	if len(res.Applied) != 0 {
		t.Errorf("expected no applied actions, got %d", len(res.Applied))
	}
}

func TestApply_RemoveDeletesSection(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	p := plan.Plan{Actions: []plan.Action{{Section: "Scratch", Kind: plan.ActionRemove}}}

	res := New().Apply(doc, p, nil)
	if strings.Contains(res.Content, "Scratch") {
		t.Error("removed section still present")
	}
	sec, _ := doc.Section("Scratch")
	if res.LinesRemoved != sec.Lines {
		t.Errorf("expected %d lines removed, got %d", sec.Lines, res.LinesRemoved)
	}
	if res.TokensSaved != sec.Tokens {
		t.Errorf("expected %d tokens saved, got %d", sec.Tokens, res.TokensSaved)
	}
}

func TestApply_TrimKeepsHeadingAndStaysUnderEstimate(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	sec, _ := doc.Section("Old Work")
	estimate := sec.Tokens / 2
	p := plan.Plan{Actions: []plan.Action{{
		Section:          "Old Work",
		Kind:             plan.ActionTrim,
		EstimatedSavings: estimate,
		TrimRatio:        0.5,
	}}}

	res := New().Apply(doc, p, nil)
	if !strings.Contains(res.Content, "# Old Work\n") {
		t.Error("trim must keep the heading line")
	}
	if !strings.Contains(res.Content, "stale line one") {
		t.Error("trim must keep at least one body line")
	}
	if res.TokensSaved > estimate {
		t.Errorf("measured saving %d exceeds the estimate %d", res.TokensSaved, estimate)
	}
	if res.TokensSaved <= 0 {
		t.Error("expected the trim to save something")
	}
}

func TestApply_TrimTinySectionIsIdentity(t *testing.T) {
	doc := parseDoc(t, "# Only\nbody\n")
	p := plan.Plan{Actions: []plan.Action{{
		Section: "Only", Kind: plan.ActionTrim, EstimatedSavings: 100, TrimRatio: 0.5,
	}}}
	res := New().Apply(doc, p, nil)
	if res.Content != "# Only\nbody\n" {
		t.Errorf("a heading plus one body line has nothing to trim, got %q", res.Content)
	}
}

func TestApply_Deterministic(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	p := plan.Plan{Actions: []plan.Action{
		{Section: "Old Work", Kind: plan.ActionTrim, EstimatedSavings: 10, TrimRatio: 0.3},
		{Section: "Scratch", Kind: plan.ActionRemove},
	}}
	a := New().Apply(doc, p, nil)
	b := New().Apply(doc, p, nil)
	if a.Content != b.Content {
		t.Error("application must be deterministic")
	}
}

func TestApply_MeasuredStatsMatchContent(t *testing.T) {
	doc := parseDoc(t, applyDoc)
	p := plan.Plan{Actions: []plan.Action{{Section: "Scratch", Kind: plan.ActionRemove}}}
	res := New().Apply(doc, p, nil)

	wantLines := doc.TotalLines - res.LinesRemoved
	gotDoc := parseDoc(t, res.Content)
	if gotDoc.TotalLines != wantLines {
		t.Errorf("expected %d lines after apply, got %d", wantLines, gotDoc.TotalLines)
	}
	if gotDoc.TotalTokens != doc.TotalTokens-res.TokensSaved {
		t.Errorf("token accounting mismatch: %d vs %d", gotDoc.TotalTokens, doc.TotalTokens-res.TokensSaved)
	}
}

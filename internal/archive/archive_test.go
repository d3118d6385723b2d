package archive

import (
	"strings"
	"testing"
	"time"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/contextdoc"
	"github.com/ctxslim/ctxslim/internal/detect"
)

var archivedAt = time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

func sampleSection() classify.ClassifiedSection {
	return classify.ClassifiedSection{
		Section: contextdoc.Section{
			Name:   "Q1 2023 Planning",
			Level:  2,
			Raw:    "## Q1 2023 Planning\n\nold goals.\n",
			Lines:  3,
			Tokens: 8,
		},
		Category: classify.CategoryHistorical,
	}
}

func TestCreate(t *testing.T) {
	c := Create(sampleSection(), "docs/CONTEXT.md", detect.IssueOutdated, archivedAt)

	if c.SourceFile != "docs/CONTEXT.md" {
		t.Errorf("unexpected source file %q", c.SourceFile)
	}
	if c.SectionName != "Q1 2023 Planning" {
		t.Errorf("unexpected section name %q", c.SectionName)
	}
	if c.ArchivedContent != "## Q1 2023 Planning\n\nold goals.\n" {
		t.Errorf("archived content must be the exact raw section")
	}
	if c.OriginalLines != 3 || c.OriginalTokens != 8 {
		t.Errorf("unexpected size metadata: lines=%d tokens=%d", c.OriginalLines, c.OriginalTokens)
	}
	if c.Reason != detect.IssueOutdated {
		t.Errorf("unexpected reason %q", c.Reason)
	}
	if !strings.HasPrefix(c.ArchiveFile, "docs/"+DirName+"/") {
		t.Errorf("archive file must live beside the source, got %q", c.ArchiveFile)
	}
	if !strings.HasSuffix(c.ArchiveFile, "q1-2023-planning.md") {
		t.Errorf("unexpected archive file name %q", c.ArchiveFile)
	}
}

func TestCreate_DefaultProjectPath(t *testing.T) {
	c := Create(sampleSection(), "", detect.IssueOutdated, archivedAt)
	if c.SourceFile != "CONTEXT.md" {
		t.Errorf("expected the default source path, got %q", c.SourceFile)
	}
}

func TestID_DeterministicAndScoped(t *testing.T) {
	a := ID("CONTEXT.md", "Old Work")
	b := ID("CONTEXT.md", "Old Work")
	if a != b {
		t.Error("identity must be deterministic")
	}
	if len(a) != 16 {
		t.Errorf("expected a 16 character id, got %q", a)
	}
	if ID("other.md", "Old Work") == a {
		t.Error("ids must differ across source files")
	}
	if ID("CONTEXT.md", "Other Section") == a {
		t.Error("ids must differ across sections")
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Q1 2023 Planning", "q1-2023-planning"},
		{"API Reference (v2)", "api-reference-v2"},
		{"  spaced  out  ", "spaced-out"},
		{"Ünïcode Näme", "ünïcode-näme"},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestRestore_RoundTrip(t *testing.T) {
	c := Create(sampleSection(), "CONTEXT.md", detect.IssueOutdated, archivedAt)

	before := "# Intro\nhello\n" + c.ArchivedContent + "# After\nbye\n"
	edited := "# Intro\nhello\n" + RefLine(c) + "# After\nbye\n"

	restored, ok := Restore(c, edited)
	if !ok {
		t.Fatal("expected the reference to be found")
	}
	if restored != before {
		t.Errorf("restore did not reproduce the original:\n%q\nvs\n%q", restored, before)
	}
}

func TestRestore_RefAsFinalLineWithoutNewline(t *testing.T) {
	c := Create(sampleSection(), "CONTEXT.md", detect.IssueOutdated, archivedAt)
	edited := "# Intro\nhello\n" + strings.TrimSuffix(RefLine(c), "\n")

	restored, ok := Restore(c, edited)
	if !ok {
		t.Fatal("expected the trailing reference to be found")
	}
	if restored != "# Intro\nhello\n"+c.ArchivedContent {
		t.Errorf("unexpected restore result %q", restored)
	}
}

func TestRestore_MissingRef(t *testing.T) {
	c := Create(sampleSection(), "CONTEXT.md", detect.IssueOutdated, archivedAt)
	content := "# Intro\nno reference here\n"
	restored, ok := Restore(c, content)
	if ok {
		t.Error("expected a miss")
	}
	if restored != content {
		t.Error("a miss must leave the content unchanged")
	}
}

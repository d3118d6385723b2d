package classify

import (
	"testing"
	"time"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
)

// fixedNow keeps freshness checks deterministic.
var fixedNow = time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)

func testClassifier() *Classifier {
	cfg := DefaultConfig()
	cfg.Now = func() time.Time { return fixedNow }
	return New(cfg)
}

func section(name, body string) contextdoc.Section {
	raw := "## " + name + "\n" + body
	return contextdoc.Section{
		Name:   name,
		Level:  2,
		Raw:    raw,
		Lines:  2,
		Tokens: contextdoc.EstimateTokensV1(raw),
	}
}

func classifyOne(t *testing.T, sec contextdoc.Section) ClassifiedSection {
	t.Helper()
	out := testClassifier().Classify([]contextdoc.Section{sec}, contextdoc.ExtractDates(sec.Raw))
	if len(out) != 1 {
		t.Fatalf("expected 1 classified section, got %d", len(out))
	}
	return out[0]
}

func TestClassify_ForwardMarkerIsActive(t *testing.T) {
	got := classifyOne(t, section("Current Sprint", "- [ ] finish importer\n"))
	if got.Category != CategoryActive {
		t.Fatalf("expected active, got %s", got.Category)
	}
	if len(got.Signals) == 0 || got.Signals[0] != "forward-marker" {
		t.Errorf("expected forward-marker signal, got %v", got.Signals)
	}
}

func TestClassify_CompletedHeadingIsHistorical(t *testing.T) {
	got := classifyOne(t, section("Completed Migrations", "moved everything to the new cluster\n"))
	if got.Category != CategoryHistorical {
		t.Fatalf("expected historical, got %s", got.Category)
	}
}

func TestClassify_ForwardMarkerBeatsCompletion(t *testing.T) {
	got := classifyOne(t, section("Done", "- [ ] one last follow-up\n"))
	if got.Category != CategoryActive {
		t.Errorf("expected active for open items under a done heading, got %s", got.Category)
	}
}

func TestClassify_StaleDatesAreHistorical(t *testing.T) {
	got := classifyOne(t, section("Q1 2023 Planning", "goals set in Q1 2023, reviewed 2023-02-01\n"))
	if got.Category != CategoryHistorical {
		t.Fatalf("expected historical, got %s", got.Category)
	}
	if len(got.Signals) == 0 || got.Signals[0] != "stale-dates" {
		t.Errorf("expected stale-dates signal, got %v", got.Signals)
	}
}

func TestClassify_RecentDateIsActive(t *testing.T) {
	got := classifyOne(t, section("Status", "updated 2024-05-20 with the rollout plan\n"))
	if got.Category != CategoryActive {
		t.Fatalf("expected active, got %s", got.Category)
	}
	if len(got.Signals) == 0 || got.Signals[0] != "recent-date" {
		t.Errorf("expected recent-date signal, got %v", got.Signals)
	}
}

func TestClassify_MixedDatesAreNotStale(t *testing.T) {
	got := classifyOne(t, section("Timeline", "started 2023-01-01, last touched 2024-05-25\n"))
	if got.Category == CategoryHistorical {
		t.Errorf("section with a recent date must not be historical, got %s", got.Category)
	}
}

func TestClassify_ReferenceHeading(t *testing.T) {
	got := classifyOne(t, section("API Reference", "GET /things returns the list of things\n"))
	if got.Category != CategoryReference {
		t.Fatalf("expected reference, got %s", got.Category)
	}
}

func TestClassify_UnknownWithoutSignals(t *testing.T) {
	got := classifyOne(t, section("Notes", "some undated prose about the system\n"))
	if got.Category != CategoryUnknown {
		t.Fatalf("expected unknown, got %s", got.Category)
	}
	if got.Signals != nil {
		t.Errorf("expected no signals, got %v", got.Signals)
	}
}

func TestClassify_EmptyDateListSkipsDateCues(t *testing.T) {
	sec := section("Q1 2023 Planning", "goals set in Q1 2023\n")
	out := testClassifier().Classify([]contextdoc.Section{sec}, nil)
	// "planning" is not a completion marker and the date cues are skipped,
	// so this falls through to unknown.
	if out[0].Category != CategoryUnknown {
		t.Errorf("expected unknown with no document dates, got %s", out[0].Category)
	}
}

func TestSignals_TemporalDensityMatchesWholeWords(t *testing.T) {
	known := section("Glossary", "known issues and shared knowledge about the monsoon dataset\n")
	if !lowTemporalDensity(known) {
		t.Error("substrings inside longer words must not count as temporal language")
	}
	if got := classifyOne(t, known); got.Category != CategoryReference {
		t.Errorf("expected reference for static glossary prose, got %s", got.Category)
	}

	busy := section("Deployment Guide", "currently rolling out, the rest lands this week\n")
	if lowTemporalDensity(busy) {
		t.Error("expected temporal words to raise density")
	}
}

func TestSignals_Predicates(t *testing.T) {
	if !hasCompletionMarker(contextdoc.Section{Name: "Shipped Features"}) {
		t.Error("expected completion marker on heading")
	}
	if hasCompletionMarker(section("Plans", "once this is done we celebrate\n")) {
		t.Error("body text must not trigger the completion marker")
	}
	if !isReferenceHeading("Command Reference") {
		t.Error("expected reference heading match")
	}
	if isReferenceHeading("Current Work") {
		t.Error("unexpected reference heading match")
	}
	if !allDatesStale([]time.Time{fixedNow.AddDate(-1, 0, 0)}, fixedNow, 60*24*time.Hour) {
		t.Error("expected year-old date to be stale")
	}
	if allDatesStale(nil, fixedNow, 60*24*time.Hour) {
		t.Error("empty date list must not count as stale")
	}
}

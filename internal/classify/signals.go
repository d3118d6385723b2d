package classify

import (
	"strings"
	"time"
	"unicode"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
)

// Each cue is a named predicate so individual heuristics stay unit-testable
// and classifications can report which signal fired.

var forwardMarkers = []string{
	"todo",
	"in progress",
	"next steps",
	"next step",
	"upcoming",
	"- [ ]",
}

// hasForwardMarker reports whether the section contains forward-looking
// language such as open task items.
func hasForwardMarker(sec contextdoc.Section) bool {
	text := strings.ToLower(sec.Name + "\n" + sec.Raw)
	for _, m := range forwardMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

var completionMarkers = []string{
	"done",
	"completed",
	"archived",
	"resolved",
	"shipped",
	"deprecated",
}

// hasCompletionMarker reports whether the heading declares the section
// finished. Only the heading counts: body text like "once this is done"
// is too weak a signal.
func hasCompletionMarker(sec contextdoc.Section) bool {
	name := strings.ToLower(sec.Name)
	for _, m := range completionMarkers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

var referenceHeadings = []string{
	"api",
	"reference",
	"glossary",
	"appendix",
	"commands",
	"conventions",
	"documentation",
}

// isReferenceHeading reports whether the heading looks like static
// documentation rather than work tracking.
func isReferenceHeading(name string) bool {
	lower := strings.ToLower(name)
	for _, h := range referenceHeadings {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

var temporalWords = map[string]bool{
	"today": true, "yesterday": true, "tomorrow": true,
	"currently": true, "recently": true, "now": true, "soon": true,
}

var temporalPairs = map[string]bool{
	"last week": true, "this week": true, "next week": true,
}

// lowTemporalDensity reports whether the section body has little
// time-anchored language, as expected of static reference material.
// Matching is on whole words, so "now" inside "known" does not count.
func lowTemporalDensity(sec contextdoc.Section) bool {
	if sec.Lines == 0 {
		return true
	}
	words := strings.FieldsFunc(strings.ToLower(sec.Raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	hits := 0
	for i, w := range words {
		switch {
		case temporalWords[w]:
			hits++
		case i+1 < len(words) && temporalPairs[w+" "+words[i+1]]:
			hits++
		}
	}
	// More than one temporal word per ten lines reads as work tracking.
	return float64(hits)/float64(sec.Lines) <= 0.1
}

// hasRecentDate reports whether any date falls within the freshness window.
func hasRecentDate(dates []time.Time, now time.Time, window time.Duration) bool {
	for _, d := range dates {
		if now.Sub(d) <= window {
			return true
		}
	}
	return false
}

// allDatesStale reports whether every date is older than the freshness
// window. False for an empty list.
func allDatesStale(dates []time.Time, now time.Time, window time.Duration) bool {
	if len(dates) == 0 {
		return false
	}
	for _, d := range dates {
		if now.Sub(d) <= window {
			return false
		}
	}
	return true
}

package contextdoc

import (
	"regexp"
	"strings"
	"time"
)

// Date-like substrings the extractor recognizes: ISO dates, written month
// forms ("March 2024", "Jan 3, 2024"), and planning quarters ("Q1 2023").
var (
	isoDateRE = regexp.MustCompile(`\b\d{4}-\d{2}-\d{2}\b`)

	writtenDateRE = regexp.MustCompile(
		`\b(?:Jan(?:uary)?|Feb(?:ruary)?|Mar(?:ch)?|Apr(?:il)?|May|Jun(?:e)?|` +
			`Jul(?:y)?|Aug(?:ust)?|Sep(?:tember)?|Oct(?:ober)?|Nov(?:ember)?|Dec(?:ember)?)` +
			`\.?\s+(?:\d{1,2},?\s+)?\d{4}\b`)

	quarterRE = regexp.MustCompile(`\bQ([1-4])\s+(\d{4})\b`)
)

// ExtractDates returns every date-like substring in content, in document
// order. Duplicates are kept; callers that need a set can build one.
func ExtractDates(content string) []string {
	type match struct {
		start int
		text  string
	}
	var ms []match
	for _, re := range []*regexp.Regexp{isoDateRE, writtenDateRE, quarterRE} {
		for _, loc := range re.FindAllStringIndex(content, -1) {
			ms = append(ms, match{start: loc[0], text: content[loc[0]:loc[1]]})
		}
	}
	if len(ms) == 0 {
		return nil
	}
	// Document order across the three patterns.
	for i := 1; i < len(ms); i++ {
		for j := i; j > 0 && ms[j].start < ms[j-1].start; j-- {
			ms[j], ms[j-1] = ms[j-1], ms[j]
		}
	}
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = m.text
	}
	return out
}

var writtenLayouts = []string{
	"January 2, 2006",
	"January 2 2006",
	"January 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"Jan 2006",
}

// ParseDate converts an extracted date string into a time.Time. Quarters
// resolve to the first day of the quarter.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)

	if isoDateRE.MatchString(s) {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t, true
		}
		return time.Time{}, false
	}

	if m := quarterRE.FindStringSubmatch(s); m != nil {
		q := int(m[1][0] - '0')
		year, err := time.Parse("2006", m[2])
		if err != nil {
			return time.Time{}, false
		}
		return time.Date(year.Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC), true
	}

	cleaned := strings.ReplaceAll(s, ".", "")
	for _, layout := range writtenLayouts {
		if t, err := time.Parse(layout, cleaned); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

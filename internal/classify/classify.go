// Package classify assigns each parsed section a lifecycle category using
// explicit, individually testable content cues.
package classify

import (
	"time"

	"github.com/ctxslim/ctxslim/internal/contextdoc"
)

// Category is the lifecycle bucket a section falls into.
type Category string

const (
	CategoryActive     Category = "active"
	CategoryHistorical Category = "historical"
	CategoryReference  Category = "reference"
	CategoryUnknown    Category = "unknown"
)

// ClassifiedSection wraps a section with its category and the names of the
// cues that triggered the classification.
type ClassifiedSection struct {
	contextdoc.Section
	Category Category `json:"category"`
	Signals  []string `json:"signals,omitempty"`
}

// Config controls classification policy.
type Config struct {
	// FreshnessWindow is how far back a date still counts as recent.
	// Dates older than this are stale.
	FreshnessWindow time.Duration

	// Now is injectable for tests. Defaults to time.Now.
	Now func() time.Time
}

// DefaultConfig uses a 60-day freshness window.
func DefaultConfig() Config {
	return Config{
		FreshnessWindow: 60 * 24 * time.Hour,
		Now:             time.Now,
	}
}

// Classifier categorizes sections. Classification is per-section: no state
// is shared between sections beyond the document-level date list.
type Classifier struct {
	cfg Config
}

func New(cfg Config) *Classifier {
	if cfg.FreshnessWindow <= 0 {
		cfg.FreshnessWindow = DefaultConfig().FreshnessWindow
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Classifier{cfg: cfg}
}

// Classify assigns a category to every section. docDates is the
// document-level date list from parsing; an empty list lets the classifier
// skip per-section date work entirely.
func (c *Classifier) Classify(sections []contextdoc.Section, docDates []string) []ClassifiedSection {
	out := make([]ClassifiedSection, 0, len(sections))
	for _, sec := range sections {
		cat, signals := c.classifyOne(sec, len(docDates) > 0)
		out = append(out, ClassifiedSection{
			Section:  sec,
			Category: cat,
			Signals:  signals,
		})
	}
	return out
}

// classifyOne applies the cues in precedence order. Forward-looking markers
// win over completion markers (a "Done" section with open TODOs is still
// being worked), completion markers win over date recency.
func (c *Classifier) classifyOne(sec contextdoc.Section, docHasDates bool) (Category, []string) {
	if hasForwardMarker(sec) {
		return CategoryActive, []string{"forward-marker"}
	}
	if hasCompletionMarker(sec) {
		return CategoryHistorical, []string{"completion-marker"}
	}

	if docHasDates {
		dates := sectionDates(sec)
		if len(dates) > 0 {
			now := c.cfg.Now()
			if hasRecentDate(dates, now, c.cfg.FreshnessWindow) {
				return CategoryActive, []string{"recent-date"}
			}
			if allDatesStale(dates, now, c.cfg.FreshnessWindow) {
				return CategoryHistorical, []string{"stale-dates"}
			}
		}
	}

	if isReferenceHeading(sec.Name) && lowTemporalDensity(sec) {
		return CategoryReference, []string{"reference-heading"}
	}

	return CategoryUnknown, nil
}

// sectionDates parses every date-like substring embedded in the section.
func sectionDates(sec contextdoc.Section) []time.Time {
	var out []time.Time
	for _, s := range contextdoc.ExtractDates(sec.Raw) {
		if t, ok := contextdoc.ParseDate(s); ok {
			out = append(out, t)
		}
	}
	return out
}

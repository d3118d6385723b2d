// Package contextdoc parses a project context file into an ordered list of
// heading-delimited sections with deterministic token estimates.
package contextdoc

// PreambleSection is the name given to content that appears before the
// first heading.
const PreambleSection = "(preamble)"

// Document is a parsed, immutable view of a context file.
type Document struct {
	Raw         string    `json:"-"`
	TotalLines  int       `json:"total_lines"`
	TotalTokens int       `json:"total_tokens"`
	Sections    []Section `json:"sections"`
	Dates       []string  `json:"dates,omitempty"`
}

// Section is a contiguous span of the document delimited by headings.
// Sections partition the document: concatenating every Raw in order
// reproduces the original content exactly.
type Section struct {
	Name      string `json:"name"`       // heading text, markers stripped; PreambleSection before the first heading
	Level     int    `json:"level"`      // heading level, 0 for the preamble
	StartLine int    `json:"start_line"` // 0-based, inclusive
	EndLine   int    `json:"end_line"`   // 0-based, exclusive
	Raw       string `json:"-"`          // exact slice of the original content, line endings included
	Lines     int    `json:"lines"`
	Tokens    int    `json:"tokens"`
}

// Section returns the first section with the given name.
func (d *Document) Section(name string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// SectionIndex returns the position of the first section with the given
// name, or -1.
func (d *Document) SectionIndex(name string) int {
	for i, s := range d.Sections {
		if s.Name == name {
			return i
		}
	}
	return -1
}

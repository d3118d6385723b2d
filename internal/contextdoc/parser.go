package contextdoc

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ParseError reports input that is not decodable text.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse context: " + e.Reason
}

// Parse splits content into heading-delimited sections using the default
// token estimator. An empty document parses successfully to zero sections.
func Parse(content string) (*Document, error) {
	return ParseWithEstimator(content, EstimateTokensV1)
}

// ParseWithEstimator is Parse with a caller-supplied token estimator.
func ParseWithEstimator(content string, estimate Estimator) (*Document, error) {
	if !utf8.ValidString(content) {
		return nil, &ParseError{Reason: "content is not valid UTF-8"}
	}
	if estimate == nil {
		estimate = EstimateTokensV1
	}

	lines := splitLines(content)
	headings := findHeadings(content)

	doc := &Document{
		Raw:        content,
		TotalLines: len(lines),
		Dates:      ExtractDates(content),
	}

	if len(lines) == 0 {
		return doc, nil
	}

	// Section boundaries are the heading line indices; content before the
	// first heading becomes the implicit preamble section.
	type boundary struct {
		line  int
		level int
		name  string
	}
	var bounds []boundary
	if len(headings) == 0 || headings[0].line > 0 {
		bounds = append(bounds, boundary{line: 0, level: 0, name: PreambleSection})
	}
	for _, h := range headings {
		bounds = append(bounds, boundary{line: h.line, level: h.level, name: h.name})
	}

	for i, b := range bounds {
		end := len(lines)
		if i+1 < len(bounds) {
			end = bounds[i+1].line
		}
		raw := strings.Join(lines[b.line:end], "")
		sec := Section{
			Name:      b.name,
			Level:     b.level,
			StartLine: b.line,
			EndLine:   end,
			Raw:       raw,
			Lines:     end - b.line,
			Tokens:    estimate(raw),
		}
		doc.Sections = append(doc.Sections, sec)
		doc.TotalTokens += sec.Tokens
	}

	return doc, nil
}

// splitLines splits content into lines, each keeping its trailing newline.
// The final line keeps no newline if the content does not end with one.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

type headingLine struct {
	line  int
	level int
	name  string
}

// findHeadings locates heading lines using the goldmark AST rather than a
// naive prefix scan, so a "#" inside a fenced code block never starts a new
// section. Only document-level headings count as section boundaries.
func findHeadings(content string) []headingLine {
	src := []byte(content)
	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	starts := lineStarts(content)

	var out []headingLine
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		if h.Lines().Len() == 0 {
			// Heading with no text (e.g. a bare "##"): not addressable by
			// name, so it stays part of the enclosing section.
			continue
		}
		seg := h.Lines().At(0)
		out = append(out, headingLine{
			line:  lineIndexOf(starts, seg.Start),
			level: h.Level,
			name:  strings.TrimSpace(string(h.Text(src))),
		})
	}
	return out
}

// lineStarts returns the byte offset of the start of each line.
func lineStarts(content string) []int {
	starts := []int{0}
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' && i+1 < len(content) {
			starts = append(starts, i+1)
		}
	}
	return starts
}

// lineIndexOf maps a byte offset to its 0-based line index.
func lineIndexOf(starts []int, offset int) int {
	i := sort.Search(len(starts), func(i int) bool { return starts[i] > offset })
	return i - 1
}

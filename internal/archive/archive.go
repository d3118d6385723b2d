// Package archive builds write-once records of content removed by archive
// actions, with deterministic identities so the content can be restored.
package archive

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/ctxslim/ctxslim/internal/classify"
	"github.com/ctxslim/ctxslim/internal/detect"
)

// DirName is the directory, sibling to the source file, where callers that
// persist archives to disk place them.
const DirName = ".context-archive"

// Content is a durable, restorable copy of an archived section. Records are
// write-once: the engine never edits or deletes them after creation.
type Content struct {
	ID              string           `json:"id"`
	SourceFile      string           `json:"source_file"`
	ArchiveFile     string           `json:"archive_file"`
	SectionName     string           `json:"section_name"`
	OriginalLines   int              `json:"original_lines"`
	OriginalTokens  int              `json:"original_tokens"`
	Reason          detect.IssueType `json:"reason"`
	ArchivedAt      time.Time        `json:"archived_at"`
	ArchivedContent string           `json:"archived_content"`
}

// Create builds the archive record for a section. Identity is derived from
// projectPath and the section name only, so repeated calls for the same
// section yield the same ID and archive file and restoration can find them.
func Create(cs classify.ClassifiedSection, projectPath string, reason detect.IssueType, now time.Time) Content {
	if projectPath == "" {
		projectPath = "CONTEXT.md"
	}
	return Content{
		ID:              ID(projectPath, cs.Name),
		SourceFile:      projectPath,
		ArchiveFile:     File(projectPath, cs.Name),
		SectionName:     cs.Name,
		OriginalLines:   cs.Lines,
		OriginalTokens:  cs.Tokens,
		Reason:          reason,
		ArchivedAt:      now,
		ArchivedContent: cs.Raw,
	}
}

// ID is the stable identity of an archive: a short content hash over the
// source path and section name.
func ID(projectPath, sectionName string) string {
	sum := sha256.Sum256([]byte(projectPath + "\x00" + sectionName))
	return hex.EncodeToString(sum[:])[:16]
}

// File is the deterministic archive file path for a section.
func File(projectPath, sectionName string) string {
	dir := path.Dir(projectPath)
	return path.Join(dir, DirName, Slug(sectionName)+".md")
}

// Slug converts a section name into a filesystem-safe identifier.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// RefLine is the single line left in the document where an archived section
// used to be. It carries the archive ID so Restore can find its spot.
func RefLine(c Content) string {
	return fmt.Sprintf("<!-- archived:%s %q -> %s -->\n", c.ID, c.SectionName, c.ArchiveFile)
}

// Restore replaces the archive's reference line in content with the original
// section text. The second return reports whether the reference was found.
func Restore(c Content, content string) (string, bool) {
	ref := RefLine(c)
	if !strings.Contains(content, ref) {
		// The reference may be the document's final line with no trailing
		// newline left.
		trimmed := strings.TrimSuffix(ref, "\n")
		if strings.HasSuffix(content, trimmed) {
			return strings.TrimSuffix(content, trimmed) + c.ArchivedContent, true
		}
		return content, false
	}
	return strings.Replace(content, ref, c.ArchivedContent, 1), true
}

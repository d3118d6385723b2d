// Package store persists archive records and analysis history in SQLite.
// It sits on the caller side of the engine boundary: the engine itself
// never touches it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ctxslim/ctxslim/internal/archive"
	"github.com/ctxslim/ctxslim/internal/detect"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// AnalysisRecord is one row of analysis history.
type AnalysisRecord struct {
	ID               string    `json:"id"`
	SourceFile       string    `json:"source_file"`
	Score            int       `json:"score"`
	TotalTokens      int       `json:"total_tokens"`
	IssuesCount      int       `json:"issues_count"`
	EstimatedSavings int       `json:"estimated_savings"`
	Strategy         string    `json:"strategy"`
	CreatedAt        time.Time `json:"created_at"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the database at path. ":memory:"
// works for tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db directory: %w", err)
			}
		}
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS archives (
	id               TEXT PRIMARY KEY,
	source_file      TEXT NOT NULL,
	archive_file     TEXT NOT NULL,
	section_name     TEXT NOT NULL,
	original_lines   INTEGER NOT NULL,
	original_tokens  INTEGER NOT NULL,
	reason           TEXT NOT NULL,
	archived_at      TEXT NOT NULL,
	archived_content TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_archives_source ON archives(source_file);

CREATE TABLE IF NOT EXISTS analyses (
	id                TEXT PRIMARY KEY,
	source_file       TEXT NOT NULL,
	score             INTEGER NOT NULL,
	total_tokens      INTEGER NOT NULL,
	issues_count      INTEGER NOT NULL,
	estimated_savings INTEGER NOT NULL,
	strategy          TEXT NOT NULL,
	created_at        TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at);
`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveArchive persists an archive record. Archives are write-once: saving
// an ID that already exists is a no-op, never an update.
func (s *Store) SaveArchive(a archive.Content) error {
	_, err := s.db.Exec(`
INSERT OR IGNORE INTO archives
	(id, source_file, archive_file, section_name, original_lines, original_tokens, reason, archived_at, archived_content)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.SourceFile, a.ArchiveFile, a.SectionName,
		a.OriginalLines, a.OriginalTokens, string(a.Reason),
		a.ArchivedAt.UTC().Format(time.RFC3339), a.ArchivedContent)
	if err != nil {
		return fmt.Errorf("save archive: %w", err)
	}
	return nil
}

// GetArchive loads one archive record by ID.
func (s *Store) GetArchive(id string) (*archive.Content, error) {
	row := s.db.QueryRow(`
SELECT id, source_file, archive_file, section_name, original_lines, original_tokens, reason, archived_at, archived_content
FROM archives WHERE id = ?`, id)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("archive %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}
	return a, nil
}

// ListArchives returns archives, newest first, optionally filtered by
// source file.
func (s *Store) ListArchives(sourceFile string) ([]archive.Content, error) {
	query := `
SELECT id, source_file, archive_file, section_name, original_lines, original_tokens, reason, archived_at, archived_content
FROM archives`
	var args []any
	if sourceFile != "" {
		query += ` WHERE source_file = ?`
		args = append(args, sourceFile)
	}
	query += ` ORDER BY archived_at DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []archive.Content
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// SaveAnalysis appends one analysis history row.
func (s *Store) SaveAnalysis(rec AnalysisRecord) error {
	_, err := s.db.Exec(`
INSERT INTO analyses (id, source_file, score, total_tokens, issues_count, estimated_savings, strategy, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.SourceFile, rec.Score, rec.TotalTokens,
		rec.IssuesCount, rec.EstimatedSavings, rec.Strategy,
		rec.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	return nil
}

// RecentAnalyses returns the newest analysis rows, most recent first.
func (s *Store) RecentAnalyses(limit int) ([]AnalysisRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(`
SELECT id, source_file, score, total_tokens, issues_count, estimated_savings, strategy, created_at
FROM analyses ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent analyses: %w", err)
	}
	defer rows.Close()

	var out []AnalysisRecord
	for rows.Next() {
		var rec AnalysisRecord
		var created string
		if err := rows.Scan(&rec.ID, &rec.SourceFile, &rec.Score, &rec.TotalTokens,
			&rec.IssuesCount, &rec.EstimatedSavings, &rec.Strategy, &created); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, created)
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchive(row rowScanner) (*archive.Content, error) {
	var a archive.Content
	var reason, archivedAt string
	if err := row.Scan(&a.ID, &a.SourceFile, &a.ArchiveFile, &a.SectionName,
		&a.OriginalLines, &a.OriginalTokens, &reason, &archivedAt, &a.ArchivedContent); err != nil {
		return nil, err
	}
	a.Reason = detect.IssueType(reason)
	a.ArchivedAt, _ = time.Parse(time.RFC3339, archivedAt)
	return &a, nil
}

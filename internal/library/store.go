// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists extracted PubMed records in a local SQLite
// database with a full-text index over titles, abstracts, and author
// summaries.
package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

const (
	dbFile            = "pubmed.db"
	defaultMaxResults = 20
)

// ErrNotFound is returned by Get when no record has the requested PMID.
var ErrNotFound = errors.New("record not found")

// Store manages the record library database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int

	// fts is false when the SQLite build lacks FTS5; searches then fall
	// back to substring matching.
	fts bool
}

// NewStore opens or creates the library database at cfg.Dir/pubmed.db and
// creates the schema if it does not exist.
func NewStore(cfg types.LibraryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("library directory is not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the library directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			pmid TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL DEFAULT '',
			abstract TEXT NOT NULL DEFAULT '',
			authors TEXT NOT NULL DEFAULT '[]',
			refs TEXT NOT NULL DEFAULT '[]',
			doc_url TEXT NOT NULL DEFAULT '',
			authorstring TEXT NOT NULL DEFAULT '',
			fetched_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_fetched_at ON records(fetched_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='records_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE records_fts USING fts5(title, abstract, authorstring, content=records, content_rowid=rowid)`,
		`CREATE TRIGGER records_ai AFTER INSERT ON records BEGIN
			INSERT INTO records_fts(rowid, title, abstract, authorstring)
			VALUES (new.rowid, new.title, new.abstract, new.authorstring);
		END`,
		`CREATE TRIGGER records_ad AFTER DELETE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title, abstract, authorstring)
			VALUES ('delete', old.rowid, old.title, old.abstract, old.authorstring);
		END`,
		`CREATE TRIGGER records_au AFTER UPDATE ON records BEGIN
			INSERT INTO records_fts(records_fts, rowid, title, abstract, authorstring)
			VALUES ('delete', old.rowid, old.title, old.abstract, old.authorstring);
			INSERT INTO records_fts(rowid, title, abstract, authorstring)
			VALUES (new.rowid, new.title, new.abstract, new.authorstring);
		END`,
	}
	if _, err := s.db.Exec(ftsStatements[0]); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return fmt.Errorf("creating FTS table: %w", err)
	}
	for _, stmt := range ftsStatements[1:] {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// SaveSummary holds counts from a Save call.
type SaveSummary struct {
	Inserted int
	Updated  int
}

// Total returns the number of records written.
func (s SaveSummary) Total() int { return s.Inserted + s.Updated }

// Save upserts records in one transaction. A record whose PMID is already
// stored replaces the stored copy. Records without a PMID are skipped.
func (s *Store) Save(ctx context.Context, records []types.Record) (SaveSummary, error) {
	var summary SaveSummary

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return summary, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := tx.PrepareContext(ctx, `SELECT count(*) FROM records WHERE pmid = ?`)
	if err != nil {
		return summary, fmt.Errorf("preparing lookup: %w", err)
	}
	defer exists.Close()

	upsert, err := tx.PrepareContext(ctx,
		`INSERT INTO records (pmid, title, abstract, authors, refs, doc_url, authorstring, fetched_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(pmid) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, authors=excluded.authors,
			refs=excluded.refs, doc_url=excluded.doc_url,
			authorstring=excluded.authorstring, fetched_at=excluded.fetched_at`)
	if err != nil {
		return summary, fmt.Errorf("preparing upsert: %w", err)
	}
	defer upsert.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		if r.PMID == "" {
			continue
		}
		var n int
		if err := exists.QueryRowContext(ctx, r.PMID).Scan(&n); err != nil {
			return summary, fmt.Errorf("looking up %s: %w", r.PMID, err)
		}

		authorsJSON, err := json.Marshal(nonNilAuthors(r.Authors))
		if err != nil {
			return summary, fmt.Errorf("encoding authors of %s: %w", r.PMID, err)
		}
		refsJSON, err := json.Marshal(nonNilStrings(r.References))
		if err != nil {
			return summary, fmt.Errorf("encoding references of %s: %w", r.PMID, err)
		}

		if _, err := upsert.ExecContext(ctx,
			r.PMID, r.Title, r.Abstract, string(authorsJSON), string(refsJSON),
			r.DocURL, r.AuthorString, now,
		); err != nil {
			return summary, fmt.Errorf("saving %s: %w", r.PMID, err)
		}

		if n > 0 {
			summary.Updated++
		} else {
			summary.Inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return SaveSummary{}, fmt.Errorf("committing: %w", err)
	}
	return summary, nil
}

// Get returns the record stored under pmid, or ErrNotFound.
func (s *Store) Get(ctx context.Context, pmid string) (*types.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records r WHERE r.pmid = ?`, pmid)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, pmid)
	}
	if err != nil {
		return nil, fmt.Errorf("looking up %s: %w", pmid, err)
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

const recordColumns = `r.pmid, r.title, r.abstract, r.authors, r.refs, r.doc_url, r.authorstring`

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (types.Record, error) {
	var (
		rec         types.Record
		authorsJSON string
		refsJSON    string
	)
	if err := row.Scan(&rec.PMID, &rec.Title, &rec.Abstract, &authorsJSON, &refsJSON,
		&rec.DocURL, &rec.AuthorString); err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(authorsJSON), &rec.Authors); err != nil {
		return rec, fmt.Errorf("decoding authors of %s: %w", rec.PMID, err)
	}
	if err := json.Unmarshal([]byte(refsJSON), &rec.References); err != nil {
		return rec, fmt.Errorf("decoding references of %s: %w", rec.PMID, err)
	}
	rec.Authors = nonNilAuthors(rec.Authors)
	rec.References = nonNilStrings(rec.References)
	return rec, nil
}

func nonNilAuthors(a []types.Author) []types.Author {
	if a == nil {
		return []types.Author{}
	}
	return a
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

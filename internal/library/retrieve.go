// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// QueryOptions holds parameters for library queries.
type QueryOptions struct {
	// Query is the full-text search string matched against titles,
	// abstracts, and author summaries.
	Query string

	// Author keeps records whose author summary contains this substring
	// (case-insensitive for ASCII).
	Author string

	// MaxResults limits result count. Zero uses the store default.
	MaxResults int
}

// IsEmpty reports whether the query has no search terms or filters.
func (q QueryOptions) IsEmpty() bool {
	return q.Query == "" && q.Author == ""
}

// Retrieve queries the library. Full-text queries are ranked by bm25;
// filter-only queries are sorted by PMID.
func (s *Store) Retrieve(ctx context.Context, opts QueryOptions) ([]types.Record, error) {
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)

	switch {
	case opts.Query != "" && s.fts:
		qb.WriteString(`SELECT ` + recordColumns + `
			FROM records_fts
			JOIN records r ON r.rowid = records_fts.rowid
			WHERE records_fts MATCH ?`)
		args = append(args, opts.Query)
	case opts.Query != "":
		qb.WriteString(`SELECT ` + recordColumns + ` FROM records r
			WHERE (r.title LIKE ? ESCAPE '\' OR r.abstract LIKE ? ESCAPE '\' OR r.authorstring LIKE ? ESCAPE '\')`)
		pattern := likePattern(opts.Query)
		args = append(args, pattern, pattern, pattern)
	default:
		qb.WriteString(`SELECT ` + recordColumns + ` FROM records r WHERE 1=1`)
	}

	if opts.Author != "" {
		qb.WriteString(` AND r.authorstring LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(opts.Author))
	}

	if opts.Query != "" && s.fts {
		qb.WriteString(` ORDER BY bm25(records_fts)`)
	} else {
		qb.WriteString(` ORDER BY length(r.pmid), r.pmid`)
	}
	qb.WriteString(` LIMIT ?`)
	args = append(args, maxResults)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying library: %w", err)
	}
	defer rows.Close()

	var results []types.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

// likePattern wraps s in % wildcards, escaping LIKE metacharacters.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

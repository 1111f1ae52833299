// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// QueryFile is the on-disk representation of a search query and its results.
// A saved search can be reloaded later without re-querying PubMed.
type QueryFile struct {
	Query   QueryParams    `yaml:"query"`
	Results []types.Record `yaml:"results"`
	Summary QuerySummary   `yaml:"summary"`
}

// QueryParams stores the query parameters in a serializable form.
type QueryParams struct {
	Terms      string `yaml:"terms,omitempty"`
	MaxResults int    `yaml:"max_results,omitempty"`
	DateFrom   string `yaml:"date_from,omitempty"`
	DateTo     string `yaml:"date_to,omitempty"`
}

// QuerySummary stores result statistics and a timestamp.
type QuerySummary struct {
	QueryID   string    `yaml:"query_id"`
	Matches   int       `yaml:"matches"`
	Total     int       `yaml:"total"`
	Timestamp time.Time `yaml:"timestamp"`
}

const dateFmt = "2006-01-02"

// WriteQueryFile saves query parameters and results to a YAML file.
func WriteQueryFile(path string, out Output) error {
	qf := QueryFile{
		Query: QueryParams{
			Terms:      out.Query.Terms,
			MaxResults: out.Query.MaxResults,
		},
		Results: out.Ordered(),
		Summary: QuerySummary{
			Matches:   out.Count,
			Timestamp: time.Now().UTC(),
		},
	}
	if out.Records != nil {
		qf.Summary.QueryID = out.Records.QueryID
	}
	qf.Summary.Total = len(qf.Results)

	if !out.Query.DateFrom.IsZero() {
		qf.Query.DateFrom = out.Query.DateFrom.Format(dateFmt)
	}
	if !out.Query.DateTo.IsZero() {
		qf.Query.DateTo = out.Query.DateTo.Format(dateFmt)
	}

	data, err := yaml.Marshal(&qf)
	if err != nil {
		return fmt.Errorf("marshaling query file: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadQueryFile loads a previously saved query file from disk.
func ReadQueryFile(path string) (*QueryFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading query file: %w", err)
	}
	var qf QueryFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("parsing query file: %w", err)
	}
	return &qf, nil
}

// Output rebuilds the search output stored in the file.
func (qf *QueryFile) Output() (Output, error) {
	q, err := qf.Query.ToQuery()
	if err != nil {
		return Output{}, err
	}
	set := medline.NewRecordSet()
	if qf.Summary.QueryID != "" {
		set.QueryID = qf.Summary.QueryID
	}
	ids := make([]string, 0, len(qf.Results))
	for _, r := range qf.Results {
		set.Add(r)
		ids = append(ids, r.PMID)
	}
	return Output{Query: q, Count: qf.Summary.Matches, IDs: ids, Records: set}, nil
}

// ToQuery converts stored QueryParams back into a Query struct.
func (p QueryParams) ToQuery() (Query, error) {
	q := Query{Terms: p.Terms, MaxResults: p.MaxResults}
	if p.DateFrom != "" {
		t, err := time.Parse(dateFmt, p.DateFrom)
		if err != nil {
			return q, fmt.Errorf("invalid date_from %q: %w", p.DateFrom, err)
		}
		q.DateFrom = t
	}
	if p.DateTo != "" {
		t, err := time.Parse(dateFmt, p.DateTo)
		if err != nil {
			return q, fmt.Errorf("invalid date_to %q: %w", p.DateTo, err)
		}
		q.DateTo = t
	}
	return q, nil
}

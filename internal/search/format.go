// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pubmed-engine/pkg/types"
)

// Output formats accepted by Write.
const (
	FormatNameJSON  = "json"
	FormatNameYAML  = "yaml"
	FormatNameCSL   = "csl"
	FormatNameTable = "table"
)

// Write renders out to w in the named format.
func Write(out Output, format string, w io.Writer) error {
	switch strings.ToLower(format) {
	case "", FormatNameJSON:
		return FormatJSON(out, w)
	case FormatNameYAML:
		return FormatYAML(out, w)
	case FormatNameCSL:
		return FormatCSL(out, w)
	case FormatNameTable:
		FormatTable(out, w)
		return nil
	default:
		return fmt.Errorf("unknown format %q: want json, yaml, csl, or table", format)
	}
}

// FormatJSON writes the records as an indented JSON array in esearch order.
func FormatJSON(out Output, w io.Writer) error {
	recs := out.Ordered()
	if recs == nil {
		recs = []types.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// FormatYAML writes the records as a YAML list in esearch order.
func FormatYAML(out Output, w io.Writer) error {
	recs := out.Ordered()
	if recs == nil {
		recs = []types.Record{}
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(recs)
}

// FormatTable writes records as a human-readable table to w.
func FormatTable(out Output, w io.Writer) {
	recs := out.Ordered()
	if len(recs) == 0 {
		fmt.Fprintln(w, "No results found.")
		return
	}

	fmt.Fprintf(w, "%-4s  %-10s  %-60s  %-24s  %s\n", "Rank", "PMID", "Title", "Authors", "Refs")
	fmt.Fprintln(w, strings.Repeat("-", 110))

	for i, r := range recs {
		fmt.Fprintf(w, "%-4d  %-10s  %-60s  %-24s  %d\n",
			i+1, r.PMID, truncate(r.Title, 60), formatAuthors(r.Authors), len(r.References))
	}

	fmt.Fprintf(w, "\n%d records", len(recs))
	if out.Count > len(recs) {
		fmt.Fprintf(w, " (%d matches)", out.Count)
	}
	fmt.Fprintln(w)
}

func formatAuthors(authors []types.Author) string {
	switch len(authors) {
	case 0:
		return ""
	case 1:
		return truncate(authors[0].LastName, 24)
	default:
		return truncate(authors[0].LastName, 18) + " et al."
	}
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}

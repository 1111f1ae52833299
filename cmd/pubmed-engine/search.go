// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmed-engine/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [terms...]",
	Short: "Search PubMed and print the matching records",
	Long: `Search runs an esearch query against PubMed, fetches every returned
PMID with efetch in parallel batches, and prints the extracted records in
relevance order.

Use --from-file to reprint a search saved earlier with --save-query.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	fromFile, _ := cmd.Flags().GetString("from-file")
	if fromFile != "" {
		qf, err := search.ReadQueryFile(fromFile)
		if err != nil {
			return err
		}
		out, err := qf.Output()
		if err != nil {
			return err
		}
		return emit(cmd, out)
	}

	q, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}
	if q.IsEmpty() {
		return fmt.Errorf("%w: provide search terms as arguments", search.ErrEmptyQuery)
	}

	out, err := newSearcher(nil).Search(cmd.Context(), q)
	if err != nil {
		return err
	}

	if path, _ := cmd.Flags().GetString("save-query"); path != "" {
		if err := search.WriteQueryFile(path, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "saved query to %s\n", path)
	}
	return emit(cmd, out)
}

func queryFromFlags(cmd *cobra.Command, args []string) (search.Query, error) {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	q := search.Query{Terms: strings.Join(args, " "), MaxResults: maxResults}

	for flag, dst := range map[string]*time.Time{"from": &q.DateFrom, "to": &q.DateTo} {
		raw, _ := cmd.Flags().GetString(flag)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return q, fmt.Errorf("invalid --%s date %q: want YYYY-MM-DD", flag, raw)
		}
		*dst = t
	}
	return q, nil
}

func init() {
	searchCmd.Flags().Int("max-results", 100, "maximum number of PMIDs to fetch")
	searchCmd.Flags().String("from", "", "publication date range start (YYYY-MM-DD)")
	searchCmd.Flags().String("to", "", "publication date range end (YYYY-MM-DD)")
	searchCmd.Flags().String("save-query", "", "save the query and its records to a YAML file")
	searchCmd.Flags().String("from-file", "", "print records from a saved query file instead of searching")
	addOutputFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}

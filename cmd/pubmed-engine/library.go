// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubmed-engine/internal/library"
	"github.com/pdiddy/pubmed-engine/internal/medline"
	"github.com/pdiddy/pubmed-engine/internal/search"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the local record library (retrieve, export, count)",
	Long: `Library manages a local SQLite database of extracted records. Records
are added with "search --store" or "fetch --store".`,
}

// --- retrieve subcommand ---

var libraryRetrieveCmd = &cobra.Command{
	Use:   "retrieve [query]",
	Short: "Query the library with full-text search and filters",
	Long: `Retrieve searches stored titles, abstracts, and author summaries.
Full-text results are ranked by relevance; --author narrows results to
records whose author summary contains the given text.`,
	RunE: runLibraryRetrieve,
}

func runLibraryRetrieve(cmd *cobra.Command, args []string) error {
	opts := libraryQueryFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query or --author")
	}

	st, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	recs, err := st.Retrieve(cmd.Context(), opts)
	if err != nil {
		return err
	}

	set := medline.NewRecordSet()
	ids := make([]string, len(recs))
	for i, r := range recs {
		set.Add(r)
		ids[i] = r.PMID
	}

	format, _ := cmd.Flags().GetString("format")
	return search.Write(search.Output{Count: len(recs), IDs: ids, Records: set}, format, cmd.OutOrStdout())
}

// --- export subcommand ---

var libraryExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export the library to YAML or JSON",
	Long: `Export writes the full library (or a filtered subset) to
<library-dir>/export.json or export.yaml. Supports the same filters as
retrieve for partial exports.`,
	RunE: runLibraryExport,
}

func runLibraryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	path, _ := cmd.Flags().GetString("output")

	st, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	opts := libraryQueryFromFlags(cmd, args)

	var written string
	switch format {
	case "json", "":
		written, err = st.ExportJSON(cmd.Context(), path, opts)
	case "yaml":
		written, err = st.ExportYAML(cmd.Context(), path, opts)
	default:
		return fmt.Errorf("unsupported format %q: use json or yaml", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", written)
	return nil
}

// --- count subcommand ---

var libraryCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openLibrary(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		n, err := st.Count(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d records in %s\n", n, st.Dir())
		return nil
	},
}

// --- shared helpers ---

func openLibrary(cmd *cobra.Command) (*library.Store, error) {
	lc := cfg.Library
	if f := cmd.Flags().Lookup("max-results"); f != nil && f.Changed {
		lc.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	return library.NewStore(lc)
}

func libraryQueryFromFlags(cmd *cobra.Command, args []string) library.QueryOptions {
	author, _ := cmd.Flags().GetString("author")
	maxResults, _ := cmd.Flags().GetInt("max-results")
	return library.QueryOptions{
		Query:      strings.Join(args, " "),
		Author:     author,
		MaxResults: maxResults,
	}
}

func init() {
	libraryRetrieveCmd.Flags().String("author", "", "filter by author summary substring")
	libraryRetrieveCmd.Flags().Int("max-results", 0, "maximum results (default from config)")
	libraryRetrieveCmd.Flags().String("format", search.FormatNameTable, "output format: json, yaml, csl, or table")

	libraryExportCmd.Flags().String("author", "", "filter by author summary substring")
	libraryExportCmd.Flags().String("format", "json", "export format: json or yaml")
	libraryExportCmd.Flags().StringP("output", "o", "", "export path (default <library-dir>/export.<format>)")

	libraryCmd.AddCommand(libraryRetrieveCmd)
	libraryCmd.AddCommand(libraryExportCmd)
	libraryCmd.AddCommand(libraryCountCmd)
	rootCmd.AddCommand(libraryCmd)
}
